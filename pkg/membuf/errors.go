package membuf

import "errors"

var (
	// ErrDisabled is returned by Open when the filter is disabled by
	// configuration.
	ErrDisabled = errors.New("membuf: disabled")

	// ErrLayered is returned by Open when the source already is a membuf
	// stream; stacking the cache on itself only doubles the memory.
	ErrLayered = errors.New("membuf: source is already buffered")

	// ErrUnknownSize is returned by Open when the source cannot report a
	// positive size. Block layout needs the size up front.
	ErrUnknownSize = errors.New("membuf: source size unknown")

	// ErrClosed is returned to readers woken by Close.
	ErrClosed = errors.New("membuf: closed")

	// ErrSourceFailed is returned once the producer hit a fatal source
	// error; the cache is poisoned from then on.
	ErrSourceFailed = errors.New("membuf: source failed")

	// ErrSeekTruncated is returned by Seek when the source ended up short
	// of the requested target; the read position is left at the furthest
	// reachable point.
	ErrSeekTruncated = errors.New("membuf: seek truncated")
)
