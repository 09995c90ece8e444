package membuf

import (
	"fmt"

	"github.com/membufio/membuf/internal/logger"
	"github.com/membufio/membuf/pkg/metrics"
	"github.com/membufio/membuf/pkg/stream"
)

// Seek moves the read position to target.
//
// Three regimes, cheapest first:
//
//  1. A forward seek landing less than shortSeekWindow past the frontier
//     waits for the producer to buffer up to the target; the source is
//     never repositioned.
//  2. A seek into contiguously buffered data just moves the read
//     position.
//  3. Anything else repositions the source at the furthest buffered
//     position reachable from target (so already-buffered data ahead of
//     the target is kept) and resets the frontier to wherever the source
//     actually landed.
//
// On a truncated seek the read position is clamped to the reachable point
// and ErrSeekTruncated is returned; the cache stays usable.
func (s *Stream) Seek(target uint64) error {
	if !s.canSeek {
		return stream.ErrUnsupported
	}

	// Short forward seek: let the producer close the gap. When the
	// target lies past end of stream the wait ends immediately via the
	// EOS clamp and the seek falls through to the source path.
	if pre := s.prebufferOffset.Load(); target > pre && target < pre+shortSeekWindow {
		logger.Debug("membuf: short forward seek", "target", target, "frontier", pre)
		metrics.ObserveSeek(s.collector, metrics.SeekShortForward)
		if _, err := s.waitFill(int(target - s.streamOffset.Load())); err != nil {
			return err
		}
	}

	var seekErr error

	s.offsetMu.Lock()
	rewindTarget := s.contiguousEnd(target)

	if target <= s.prebufferOffset.Load() && target < rewindTarget {
		// Inside buffered contiguous data.
		s.streamOffset.Store(target)
		metrics.ObserveSeek(s.collector, metrics.SeekInBuffer)
	} else {
		logger.Debug("membuf: seek out of buffered range", "target", target, "rewind_to", rewindTarget)

		s.srcMu.Lock()
		srcErr := s.src.Seek(rewindTarget)
		actual := s.src.Tell() // authoritative, seek error or not
		s.srcMu.Unlock()

		s.bufferedEOS.Store(false)
		s.prebufferOffset.Store(actual)
		metrics.SetCachedBytes(s.collector, actual)
		metrics.ObserveSeek(s.collector, metrics.SeekSource)

		switch {
		case target <= actual:
			s.streamOffset.Store(target)
		case s.streamOffset.Load() > actual:
			s.streamOffset.Store(actual)
			seekErr = fmt.Errorf("%w: target %d, reached %d", ErrSeekTruncated, target, actual)
		default:
			seekErr = fmt.Errorf("%w: target %d, reached %d", ErrSeekTruncated, target, actual)
		}
		if srcErr != nil && seekErr != nil {
			seekErr = fmt.Errorf("%w (source: %v)", seekErr, srcErr)
		}
	}
	s.offsetMu.Unlock()

	// Wake the producer; it re-reads the frontier and rewinds.
	s.rewindMu.Lock()
	s.rewindCond.Signal()
	s.rewindMu.Unlock()

	return seekErr
}
