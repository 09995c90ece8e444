// Package membuf implements a prebuffering in-memory stream cache.
//
// A membuf Stream wraps a seekable source and keeps a background producer
// pulling bytes ahead of the reader into fixed-size blocks. Reads and peeks
// block until the producer has covered the requested range; seeks into
// already-buffered data are served from memory, short forward seeks wait
// for the producer to close the gap, and everything else repositions the
// source and restarts buffering from there.
//
// The buffer between the read position and the prebuffer frontier is always
// valid, so the reader copies block content without coordinating with the
// producer beyond the frontier itself. Blocks are retained until Close;
// there is no eviction.
//
// One logical reader is supported. The producer goroutine and the reader
// coordinate through two condition variables: the reader waits on fill
// until the frontier passes its target, and the producer waits on rewind
// while parked at end of stream.
package membuf

import (
	"sync"
	"sync/atomic"

	"github.com/membufio/membuf/internal/logger"
	"github.com/membufio/membuf/pkg/metrics"
	"github.com/membufio/membuf/pkg/source"
	"github.com/membufio/membuf/pkg/stream"
)

// A Stream is both a filter surface for the host and a Source, so filters
// can layer; Open refuses the pointless membuf-on-membuf stack.
var (
	_ stream.Stream = (*Stream)(nil)
	_ source.Source = (*Stream)(nil)
)

const (
	// BlockSize is the capacity of every block except the last.
	BlockSize = 4 * 1024 * 1024

	// readChunk is the most the producer pulls from the source per step.
	readChunk = 16 * 1024

	// shortSeekWindow is how far past the frontier a forward seek is
	// still served by waiting instead of repositioning the source.
	shortSeekWindow = 64 * 1024
)

// Options configures Open.
type Options struct {
	// Enabled gates the filter; Open fails with ErrDisabled when false.
	// Mirrors the membuf.enable configuration flag.
	Enabled bool

	// Collector receives cache metrics. May be nil.
	Collector metrics.Collector
}

// Stream is a prebuffering cache over a source.
//
// Lock order: offsetMu → srcMu → block.mu. The condition-variable mutexes
// (fillMu, rewindMu) are leaves and are never held across source I/O.
type Stream struct {
	src         source.Source
	size        uint64
	canSeek     bool
	canFastSeek bool
	collector   metrics.Collector

	// offsetMu guards transitions of prebufferOffset and bufferedEOS and
	// the shape of blocks. The atomics allow best-effort unlocked reads
	// (GET_CACHED_SIZE, the producer's rewind hints); decisions are
	// re-validated under offsetMu.
	offsetMu        sync.Mutex
	blocks          []*block
	prebufferOffset atomic.Uint64
	bufferedEOS     atomic.Bool

	// streamOffset is written only by the reader.
	streamOffset atomic.Uint64

	// srcMu serializes source Read/Seek/Tell so Tell is meaningful.
	srcMu sync.Mutex

	fillMu   sync.Mutex
	fillCond *sync.Cond

	rewindMu   sync.Mutex
	rewindCond *sync.Cond

	// failed latches the first source error; closing latches Close.
	// Either wakes all waiters and stops the producer.
	failed  atomic.Bool
	closing atomic.Bool

	// peekBuf is the grow-only scratch for cross-block peeks. Reader
	// owned.
	peekBuf []byte

	done      chan struct{} // closed when the producer exits
	closeOnce sync.Once
}

// Open wraps src in a prebuffering stream and starts the producer.
//
// Open fails when the filter is disabled, when src is itself a membuf
// stream (self-layering), or when the source size is unknown. The source
// stays owned by the caller; Close does not close it.
func Open(src source.Source, opts Options) (*Stream, error) {
	if !opts.Enabled {
		return nil, ErrDisabled
	}
	if _, ok := src.(*Stream); ok {
		return nil, ErrLayered
	}
	size := src.Size()
	if size == 0 {
		return nil, ErrUnknownSize
	}

	s := &Stream{
		src:         src,
		size:        size,
		canSeek:     src.CanSeek(),
		canFastSeek: src.CanFastSeek(),
		collector:   opts.Collector,
		done:        make(chan struct{}),
	}
	s.fillCond = sync.NewCond(&s.fillMu)
	s.rewindCond = sync.NewCond(&s.rewindMu)

	metrics.SetStreamSize(s.collector, size)
	logger.Info("membuf: open", "size", size, "can_seek", s.canSeek, "can_fastseek", s.canFastSeek)

	go s.run()
	return s, nil
}

// Size returns the stream size captured at Open.
func (s *Stream) Size() uint64 { return s.size }

// Tell returns the current read position.
func (s *Stream) Tell() uint64 { return s.streamOffset.Load() }

// CachedSize returns the prebuffer frontier. Best-effort, unlocked.
func (s *Stream) CachedSize() uint64 { return s.prebufferOffset.Load() }

// PrebufferFinished reports whether buffering has reached end of stream.
func (s *Stream) PrebufferFinished() bool { return s.bufferedEOS.Load() }

// CanSeek reports the capability cached from the source at Open.
func (s *Stream) CanSeek() bool { return s.canSeek }

// CanFastSeek reports the capability cached from the source at Open.
func (s *Stream) CanFastSeek() bool { return s.canFastSeek }

// Close stops the producer, waits for it to exit, and releases all blocks
// and the peek scratch. Blocked readers are woken and return ErrClosed.
// Close is idempotent and does not close the source.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)

		s.rewindMu.Lock()
		s.rewindCond.Broadcast()
		s.rewindMu.Unlock()

		s.fillMu.Lock()
		s.fillCond.Broadcast()
		s.fillMu.Unlock()

		<-s.done

		s.offsetMu.Lock()
		s.blocks = nil
		s.offsetMu.Unlock()
		s.peekBuf = nil

		logger.Debug("membuf: closed")
	})
	return nil
}

// signalFill wakes readers waiting for the frontier to advance.
func (s *Stream) signalFill() {
	s.fillMu.Lock()
	s.fillCond.Broadcast()
	s.fillMu.Unlock()
}

// fail latches err as the stream's fatal state and wakes all waiters.
func (s *Stream) fail(err error) {
	logger.Error("membuf: source failed", "error", err, "frontier", s.prebufferOffset.Load())
	s.failed.Store(true)
	s.signalFill()
}
