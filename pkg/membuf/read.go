package membuf

import (
	"io"
	"time"

	"github.com/membufio/membuf/pkg/metrics"
)

// waitFill blocks until want bytes past the read position are buffered,
// then returns how many are ready. The result is clamped at end of stream
// and may be 0 (EOS). Returns an error when the cache is poisoned or
// closed while waiting.
func (s *Stream) waitFill(want int) (int, error) {
	if want <= 0 {
		return 0, nil
	}

	// EOS fast path: re-check the flag under the offset lock before
	// trusting it, then clamp to the buffered remainder.
	if s.bufferedEOS.Load() {
		s.offsetMu.Lock()
		if s.bufferedEOS.Load() {
			off := s.streamOffset.Load()
			pre := s.prebufferOffset.Load()
			if off >= pre {
				want = 0
			} else if left := pre - off; uint64(want) > left {
				want = int(left)
			}
		}
		s.offsetMu.Unlock()
		if want == 0 {
			return 0, nil
		}
	}

	// The frontier only advances outside our own seeks, so a satisfied
	// check stays satisfied.
	off := s.streamOffset.Load()
	if off+uint64(want) <= s.prebufferOffset.Load() {
		return want, nil
	}

	start := time.Now()
	s.fillMu.Lock()
	for off+uint64(want) > s.prebufferOffset.Load() {
		if s.failed.Load() || s.closing.Load() {
			break
		}
		if s.bufferedEOS.Load() {
			pre := s.prebufferOffset.Load()
			if pre <= off {
				want = 0
			} else if left := pre - off; uint64(want) > left {
				want = int(left)
			}
			break
		}
		s.fillCond.Wait()
	}
	s.fillMu.Unlock()
	metrics.ObserveWait(s.collector, time.Since(start))

	if s.failed.Load() {
		return 0, ErrSourceFailed
	}
	if s.closing.Load() {
		return 0, ErrClosed
	}
	return want, nil
}

// fetchAt copies buffered bytes for [pos, pos+len(dst)) into dst. The
// caller guarantees the range is below the frontier; every touched block
// exists and covers its part of the range.
func (s *Stream) fetchAt(pos uint64, dst []byte) int {
	s.offsetMu.Lock()
	blocks := s.blocks
	s.offsetMu.Unlock()

	idx := int(pos / BlockSize)
	off := int(pos % BlockSize)
	copied := 0

	for copied < len(dst) && idx < len(blocks) {
		blk := blocks[idx]

		blk.mu.Lock()
		step := blk.end - off
		if left := len(dst) - copied; step > left {
			step = left
		}
		if step > 0 {
			copy(dst[copied:copied+step], blk.buf[off:off+step])
		}
		blk.mu.Unlock()
		if step <= 0 {
			break
		}

		copied += step
		idx++
		off = 0
	}
	return copied
}

// Read copies up to len(p) bytes at the read position, blocking until they
// are buffered, and advances the position. Returns (0, io.EOF) at end of
// stream and (0, nil) for an empty p.
func (s *Stream) Read(p []byte) (int, error) {
	ready, err := s.waitFill(len(p))
	if err != nil {
		return 0, err
	}
	if ready == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	n := s.fetchAt(s.streamOffset.Load(), p[:ready])
	s.streamOffset.Add(uint64(n))
	metrics.ObserveRead(s.collector, n)
	return n, nil
}

// Discard advances the read position by up to n bytes without copying.
// Returns how many bytes were skipped, 0 at end of stream.
func (s *Stream) Discard(n int) (int, error) {
	ready, err := s.waitFill(n)
	if err != nil {
		return 0, err
	}
	if ready == 0 && n > 0 {
		return 0, io.EOF
	}
	s.streamOffset.Add(uint64(ready))
	metrics.ObserveRead(s.collector, ready)
	return ready, nil
}

// Peek returns up to n buffered bytes at the read position without
// advancing it. When the span lies within one block the returned slice
// aliases the block buffer (zero copy); otherwise it points into a scratch
// buffer reused across peeks. Either way it is valid only until the next
// Read, Discard, Peek, or Seek. Returns (nil, io.EOF) at end of stream.
func (s *Stream) Peek(n int) ([]byte, error) {
	ready, err := s.waitFill(n)
	if err != nil {
		return nil, err
	}
	if ready == 0 {
		if n == 0 {
			return nil, nil
		}
		return nil, io.EOF
	}

	pos := s.streamOffset.Load()
	idx := int(pos / BlockSize)
	off := int(pos % BlockSize)

	if off+ready <= BlockSize {
		s.offsetMu.Lock()
		var blk *block
		if idx < len(s.blocks) {
			blk = s.blocks[idx]
		}
		s.offsetMu.Unlock()
		if blk == nil {
			// Only reachable when Close raced the peek.
			return nil, ErrClosed
		}
		return blk.buf[off : off+ready], nil
	}

	if cap(s.peekBuf) < ready {
		s.peekBuf = make([]byte, ready)
	}
	buf := s.peekBuf[:ready]
	s.fetchAt(pos, buf)
	return buf, nil
}
