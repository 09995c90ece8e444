// Package source defines the upstream byte source consumed by the membuf
// cache, together with file and S3 implementations.
//
// A Source is a sequential, blocking reader over a finite byte stream with
// an explicit position cursor. Unlike io.ReadSeeker, positions are unsigned
// and the capability queries let a caller decide whether seeking is worth
// the cost (CanFastSeek false means a seek costs a network round trip).
package source

import "errors"

var (
	// ErrNotSeekable is returned by Seek on sources that cannot seek.
	ErrNotSeekable = errors.New("source: not seekable")

	// ErrUnknownSize is returned when a source cannot determine its size.
	ErrUnknownSize = errors.New("source: unknown size")
)

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*S3Source)(nil)
)

// Source is a byte-addressable stream. All methods are blocking and
// synchronous; callers serialize access (the membuf cache does this with
// its source lock).
type Source interface {
	// Read fills p with up to len(p) bytes from the current position and
	// advances it. Short reads are allowed. A read at end of stream
	// returns (0, io.EOF).
	Read(p []byte) (int, error)

	// Seek repositions the cursor to pos. Returns ErrNotSeekable when the
	// source cannot seek.
	Seek(pos uint64) error

	// Tell returns the current cursor position. It is authoritative: after
	// a failed Seek, Tell reports where the source actually is.
	Tell() uint64

	// Size returns the total stream size in bytes, 0 when unknown.
	Size() uint64

	// CanSeek reports whether Seek is supported at all.
	CanSeek() bool

	// CanFastSeek reports whether Seek is cheap (no network round trip).
	CanFastSeek() bool

	// Close releases the underlying resource.
	Close() error
}
