package membuf

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/membufio/membuf/pkg/source/sourcetest"
	"github.com/membufio/membuf/pkg/stream"
)

// Seek far ahead of the frontier repositions the source exactly once.
func TestSeek_Forward(t *testing.T) {
	// Throttle the producer so the frontier cannot race past the target
	// before the seek is issued.
	st, src := openPattern(t, 10*mib, sourcetest.WithReadDelay(time.Millisecond))

	if err := st.Seek(5 * mib); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 4096)
	n, err := st.Read(buf)
	if err != nil || n != 4096 {
		t.Fatalf("Read = (%d, %v), want (4096, nil)", n, err)
	}
	checkPattern(t, buf, 5*mib)

	if got := src.Seeks(); got != 1 {
		t.Errorf("source seek count = %d, want 1", got)
	}
}

// Seek backward into buffered data never touches the source.
func TestSeek_BackIntoBuffer(t *testing.T) {
	st, src := openPattern(t, 10*mib)
	waitFinished(t, st)

	if err := st.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 8)
	n, err := st.Read(buf)
	if err != nil || n != 8 {
		t.Fatalf("Read = (%d, %v), want (8, nil)", n, err)
	}
	for i, b := range buf {
		if b != byte(i) {
			t.Fatalf("byte %d = %#x, want %#x", i, b, i)
		}
	}
	if got := src.Seeks(); got != 0 {
		t.Errorf("source seek count = %d, want 0", got)
	}

	// The frontier still covers the whole stream, so buffered EOS holds
	// (buffered_eos ⇔ frontier ≥ size).
	if !st.PrebufferFinished() {
		t.Error("in-buffer seek must not invalidate buffered EOS")
	}
}

// A short forward seek past the frontier waits for the producer instead of
// repositioning the source.
func TestSeek_ShortForwardWaits(t *testing.T) {
	st, src := openPattern(t, 64*mib, sourcetest.WithReadDelay(time.Millisecond))
	waitCached(t, st, 32*kib)

	target := st.CachedSize() + 1000 // well inside the short-seek window
	if err := st.Seek(target); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if st.Tell() != target {
		t.Fatalf("Tell = %d, want %d", st.Tell(), target)
	}

	buf := make([]byte, 64)
	if _, err := st.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	checkPattern(t, buf, target)

	if got := src.Seeks(); got != 0 {
		t.Errorf("source seek count = %d, want 0 (short seek must wait)", got)
	}
}

// Seek to the current position is a no-op.
func TestSeek_NoOp(t *testing.T) {
	st, _ := openPattern(t, mib)
	waitCached(t, st, 16*kib)

	pos := st.Tell()
	if err := st.Seek(pos); err != nil {
		t.Fatalf("Seek(Tell()) = %v, want nil", err)
	}
	if st.Tell() != pos {
		t.Errorf("position moved to %d", st.Tell())
	}

	buf := make([]byte, 8)
	if _, err := st.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	checkPattern(t, buf, pos)
}

// Seek to the stream size: the next read reports end of stream.
func TestSeek_ToSize(t *testing.T) {
	st, _ := openPattern(t, mib)

	if err := st.Seek(mib); err != nil {
		t.Fatalf("Seek(size) = %v", err)
	}
	n, err := st.Read(make([]byte, 16))
	if n != 0 || err != io.EOF {
		t.Errorf("Read after Seek(size) = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestSeek_NotSeekable(t *testing.T) {
	src := sourcetest.New(mib, sourcetest.WithoutSeek())
	st, err := Open(src, Options{Enabled: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.Seek(100); !errors.Is(err, stream.ErrUnsupported) {
		t.Fatalf("Seek on non-seekable = %v, want ErrUnsupported", err)
	}
}

// After any valid seek, reads deliver the bytes at the target; the read
// position never passes the frontier.
func TestSeek_ThenReadEverywhere(t *testing.T) {
	st, _ := openPattern(t, 10*mib)

	targets := []uint64{
		0,
		1,
		BlockSize - 1,
		BlockSize,
		BlockSize + 1,
		5 * mib,
		10*mib - 7,
	}
	buf := make([]byte, 7)
	for _, q := range targets {
		if err := st.Seek(q); err != nil {
			t.Fatalf("Seek(%d): %v", q, err)
		}
		n, err := st.Read(buf)
		if err != nil {
			t.Fatalf("Read after Seek(%d): %v", q, err)
		}
		checkPattern(t, buf[:n], q)
		if st.Tell() > st.CachedSize() {
			t.Fatalf("position %d beyond frontier %d", st.Tell(), st.CachedSize())
		}
	}
}

// Seeking forward inside a partially filled block drops the stale tail:
// after the producer rewinds, the block range restarts at the frontier and
// the bytes still verify.
func TestSeek_WithinPartialBlock(t *testing.T) {
	st, _ := openPattern(t, 10*mib, sourcetest.WithReadDelay(time.Millisecond))
	waitCached(t, st, 64*kib)

	// Far enough ahead to be outside the short-seek window, inside block 0.
	target := st.CachedSize() + shortSeekWindow + 256*kib
	if err := st.Seek(target); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 128)
	if _, err := st.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	checkPattern(t, buf, target)
}

// The frontier only moves backward across a seek; between seeks it is
// non-decreasing.
func TestFrontier_Monotonic(t *testing.T) {
	st, _ := openPattern(t, 4 * mib)

	last := st.CachedSize()
	for i := 0; i < 200; i++ {
		cur := st.CachedSize()
		if cur < last {
			t.Fatalf("frontier moved backward: %d -> %d", last, cur)
		}
		last = cur
		time.Sleep(100 * time.Microsecond)
	}
}
