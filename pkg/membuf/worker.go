package membuf

import (
	"github.com/membufio/membuf/internal/logger"
	"github.com/membufio/membuf/pkg/metrics"
)

// run is the producer loop. It pulls bytes from the source into blocks at
// the prebuffer frontier, parks at end of stream until a seek rewinds the
// frontier, and exits on the first fatal error or on Close.
func (s *Stream) run() {
	defer close(s.done)

	for {
		off := s.prebufferOffset.Load()

		// Park at EOS until a seek invalidates the frontier.
		for off >= s.size {
			if s.failed.Load() || s.closing.Load() {
				return
			}

			s.offsetMu.Lock()
			s.bufferedEOS.Store(true)
			s.offsetMu.Unlock()

			// Wake waiters polling for "enough": they re-check under
			// the fill lock and observe EOS.
			s.signalFill()
			logger.Debug("membuf: buffered to EOS, parking", "frontier", off)

			s.rewindMu.Lock()
			for !s.closing.Load() && !s.failed.Load() && s.bufferedEOS.Load() {
				s.rewindCond.Wait()
			}
			s.rewindMu.Unlock()

			off = s.prebufferOffset.Load()
		}

		if s.failed.Load() || s.closing.Load() {
			return
		}

		blk, blockOff := s.prepareBlock(off)
		if s.fill(blk, blockOff, off) {
			continue // rewound; restart with the new frontier
		}
		if s.failed.Load() || s.closing.Load() {
			return
		}
	}
}

// prepareBlock grows the block array to cover the frontier, allocates the
// target block if missing, and reconciles its valid range with the
// frontier offset. Returns the block and the in-block fill offset.
func (s *Stream) prepareBlock(off uint64) (*block, int) {
	idx := int(off / BlockSize)
	blockOff := int(off % BlockSize)

	s.offsetMu.Lock()
	defer s.offsetMu.Unlock()

	for idx >= len(s.blocks) {
		s.blocks = append(s.blocks, nil)
	}
	blk := s.blocks[idx]
	if blk == nil {
		blk = newBlock(s.blockCapacity(idx))
		s.blocks[idx] = blk
	}

	blk.mu.Lock()
	switch {
	case blockOff < blk.begin:
		// Seeked backward into the unfilled head of the block: forget
		// the old range and restart at the frontier.
		blk.begin = blockOff
		blk.end = blockOff
	case blockOff > blk.end:
		// Seeked forward past the filled tail. The old run is behind
		// the frontier and unreachable through the contiguous walk, so
		// forget it entirely; keeping begin would claim bytes that
		// were never filled.
		blk.begin = blockOff
		blk.end = blockOff
	default:
		// begin <= blockOff <= end: keep the head, narrow the tail back
		// to the frontier so filling and the source cursor stay in
		// lockstep. A no-op except after a failed seek that left the
		// source mid-range.
		blk.end = blockOff
	}
	blk.mu.Unlock()

	return blk, blockOff
}

// fill pulls source bytes into blk starting at blockOff, with off the
// absolute frontier the producer believes in. Each step re-validates the
// frontier before and after the read; a mismatch means a seek raced the
// fill, and fill returns true so the caller restarts. Returns false when
// the block is complete or the producer must exit.
func (s *Stream) fill(blk *block, blockOff int, off uint64) (rewound bool) {
	for blockOff < blk.capacity {
		if s.failed.Load() || s.closing.Load() {
			return false
		}

		step := readChunk
		if left := blk.capacity - blockOff; step > left {
			step = left
		}

		// A seek may have moved the frontier while this loop ran.
		if s.prebufferOffset.Load() != off {
			logger.Debug("membuf: frontier moved before read", "expected", off)
			metrics.ObserveRewind(s.collector)
			return true
		}

		var n int
		var readErr error
		needRewind := false

		s.srcMu.Lock()
		if tell := s.src.Tell(); tell != off {
			// A seek repositioned the source between our frontier
			// snapshot and taking the source lock.
			logger.Debug("membuf: source position moved", "expected", off, "actual", tell)
			needRewind = true
		} else {
			n, readErr = s.src.Read(blk.buf[blockOff : blockOff+step])
		}
		s.srcMu.Unlock()

		if needRewind {
			metrics.ObserveRewind(s.collector)
			return true
		}
		if n <= 0 {
			// The size is known, so running dry before the last block
			// is complete is an error, EOF included.
			if readErr == nil {
				readErr = ErrSourceFailed
			}
			s.fail(readErr)
			return false
		}

		// Commit: the frontier may only advance if it is still ours.
		s.offsetMu.Lock()
		if s.prebufferOffset.Load() == off {
			blk.mu.Lock()
			blk.end += n
			blk.mu.Unlock()
			off += uint64(n)
			blockOff += n
			s.prebufferOffset.Store(off)
		} else {
			needRewind = true
		}
		s.offsetMu.Unlock()

		if needRewind {
			logger.Debug("membuf: frontier moved during read", "expected", off)
			metrics.ObserveRewind(s.collector)
			return true
		}

		metrics.ObserveFill(s.collector, n)
		metrics.SetCachedBytes(s.collector, off)
		s.signalFill()
	}
	return false
}
