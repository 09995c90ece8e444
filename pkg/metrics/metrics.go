// Package metrics defines the observability hooks the membuf cache emits
// and a Prometheus-backed implementation.
//
// The cache takes a Collector; passing nil disables collection with zero
// overhead at the call sites (all helpers are nil-safe).
package metrics

import "time"

// SeekKind classifies how a seek request was satisfied.
type SeekKind string

const (
	// SeekInBuffer means the target was already buffered; no source I/O.
	SeekInBuffer SeekKind = "in_buffer"

	// SeekShortForward means the seek waited for the producer to close a
	// small gap instead of repositioning the source.
	SeekShortForward SeekKind = "short_forward"

	// SeekSource means the source was repositioned and buffering
	// restarted.
	SeekSource SeekKind = "source"
)

// Collector receives cache events. Implementations must be safe for
// concurrent use; the producer and the reader emit from different
// goroutines.
type Collector interface {
	// ObserveFill records bytes pulled from the source into the buffer.
	ObserveFill(bytes int)

	// ObserveRead records bytes delivered to the reader.
	ObserveRead(bytes int)

	// ObserveWait records time a reader spent blocked waiting for data.
	ObserveWait(d time.Duration)

	// ObserveSeek records a seek and how it was satisfied.
	ObserveSeek(kind SeekKind)

	// ObserveRewind records a producer restart caused by a seek that
	// invalidated the buffered run.
	ObserveRewind()

	// SetCachedBytes publishes the current prebuffer frontier.
	SetCachedBytes(n uint64)

	// SetStreamSize publishes the total stream size at open.
	SetStreamSize(n uint64)
}

// Nil-safe helpers; the cache calls these instead of methods on a possibly
// nil Collector.

func ObserveFill(c Collector, bytes int) {
	if c != nil {
		c.ObserveFill(bytes)
	}
}

func ObserveRead(c Collector, bytes int) {
	if c != nil {
		c.ObserveRead(bytes)
	}
}

func ObserveWait(c Collector, d time.Duration) {
	if c != nil {
		c.ObserveWait(d)
	}
}

func ObserveSeek(c Collector, kind SeekKind) {
	if c != nil {
		c.ObserveSeek(kind)
	}
}

func ObserveRewind(c Collector) {
	if c != nil {
		c.ObserveRewind()
	}
}

func SetCachedBytes(c Collector, n uint64) {
	if c != nil {
		c.SetCachedBytes(n)
	}
}

func SetStreamSize(c Collector, n uint64) {
	if c != nil {
		c.SetStreamSize(n)
	}
}
