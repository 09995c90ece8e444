package membuf

import (
	"testing"
	"time"

	"github.com/membufio/membuf/pkg/source/sourcetest"
)

const (
	kib = 1024
	mib = 1024 * 1024
)

// openPattern opens a cache over a deterministic pattern source.
func openPattern(t *testing.T, size uint64, opts ...sourcetest.Option) (*Stream, *sourcetest.PatternSource) {
	t.Helper()
	src := sourcetest.New(size, opts...)
	st, err := Open(src, Options{Enabled: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, src
}

// waitCached blocks until the frontier reaches at least min bytes.
func waitCached(t *testing.T, s *Stream, min uint64) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for s.CachedSize() < min {
		if time.Now().After(deadline) {
			t.Fatalf("frontier stuck at %d, want >= %d", s.CachedSize(), min)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitFinished blocks until the producer reports buffered EOS.
func waitFinished(t *testing.T, s *Stream) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for !s.PrebufferFinished() {
		if time.Now().After(deadline) {
			t.Fatalf("prebuffer never finished, frontier at %d of %d", s.CachedSize(), s.size)
		}
		time.Sleep(time.Millisecond)
	}
}

// checkPattern verifies that got holds the source bytes for positions
// starting at pos.
func checkPattern(t *testing.T, got []byte, pos uint64) {
	t.Helper()
	for i, b := range got {
		if want := sourcetest.PatternByte(pos + uint64(i)); b != want {
			t.Fatalf("byte at position %d = %#x, want %#x", pos+uint64(i), b, want)
		}
	}
}

func TestOpen_Disabled(t *testing.T) {
	src := sourcetest.New(mib)
	if _, err := Open(src, Options{Enabled: false}); err != ErrDisabled {
		t.Fatalf("Open disabled = %v, want ErrDisabled", err)
	}
}

func TestOpen_UnknownSize(t *testing.T) {
	src := sourcetest.New(0)
	if _, err := Open(src, Options{Enabled: true}); err != ErrUnknownSize {
		t.Fatalf("Open zero size = %v, want ErrUnknownSize", err)
	}
}

func TestOpen_SelfLayering(t *testing.T) {
	st, _ := openPattern(t, mib)
	if _, err := Open(st, Options{Enabled: true}); err != ErrLayered {
		t.Fatalf("Open on membuf stream = %v, want ErrLayered", err)
	}
}

func TestOpen_CachesCapabilities(t *testing.T) {
	st, _ := openPattern(t, mib)
	if !st.CanSeek() || !st.CanFastSeek() {
		t.Error("capabilities not cached from source")
	}

	src := sourcetest.New(mib, sourcetest.WithoutSeek())
	st2, err := Open(src, Options{Enabled: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st2.Close() }()
	if st2.CanSeek() {
		t.Error("CanSeek must reflect the source")
	}
}

func TestClose_Idempotent(t *testing.T) {
	st, _ := openPattern(t, mib)
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestClose_ReleasesBlocks(t *testing.T) {
	st, _ := openPattern(t, mib)
	waitFinished(t, st)
	_ = st.Close()

	st.offsetMu.Lock()
	defer st.offsetMu.Unlock()
	if st.blocks != nil {
		t.Error("blocks not released on Close")
	}
}

func TestBlockCapacity(t *testing.T) {
	st, _ := openPattern(t, 10*mib)
	if got := st.blockCapacity(0); got != BlockSize {
		t.Errorf("first block capacity = %d, want %d", got, BlockSize)
	}
	// 10 MiB = 2 full blocks + 2 MiB residual.
	if got := st.blockCapacity(2); got != 2*mib {
		t.Errorf("last block capacity = %d, want %d", got, 2*mib)
	}

	st2, _ := openPattern(t, BlockSize)
	if got := st2.blockCapacity(0); got != BlockSize {
		t.Errorf("exact-block stream capacity = %d, want %d", got, BlockSize)
	}

	st3, _ := openPattern(t, 1)
	if got := st3.blockCapacity(0); got != 1 {
		t.Errorf("1-byte stream capacity = %d, want 1", got)
	}
}
