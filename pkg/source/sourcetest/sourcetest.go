// Package sourcetest provides deterministic in-memory sources for tests.
//
// The pattern source produces byte p%251 at position p, so any read can be
// verified from the position alone without keeping reference data around.
package sourcetest

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInjected is returned by reads that hit the configured failure offset.
var ErrInjected = errors.New("sourcetest: injected read failure")

// PatternByte returns the expected byte at position p.
func PatternByte(p uint64) byte {
	return byte(p % 251)
}

// Fill writes the expected pattern for positions [start, start+len(p))
// into p.
func Fill(p []byte, start uint64) {
	for i := range p {
		p[i] = PatternByte(start + uint64(i))
	}
}

// PatternSource is a seekable deterministic source. It counts Read and
// Seek calls so tests can assert, for example, that a short forward seek
// never touched the source.
type PatternSource struct {
	size uint64

	mu  sync.Mutex
	pos uint64

	reads atomic.Int64
	seeks atomic.Int64

	// FailAt injects ErrInjected on any read that would cross or start at
	// this offset. Zero value (disabled) is represented by failAt = ^0.
	failAt uint64

	// ReadDelay throttles each read, widening race windows in
	// concurrency tests.
	readDelay time.Duration

	seekable    bool
	fastSeek    bool
	maxReadSize int
}

// Option configures a PatternSource.
type Option func(*PatternSource)

// WithFailAt makes reads fail once they reach offset.
func WithFailAt(offset uint64) Option {
	return func(s *PatternSource) { s.failAt = offset }
}

// WithReadDelay sleeps for d before each read.
func WithReadDelay(d time.Duration) Option {
	return func(s *PatternSource) { s.readDelay = d }
}

// WithoutSeek makes the source refuse Seek.
func WithoutSeek() Option {
	return func(s *PatternSource) { s.seekable = false }
}

// WithMaxReadSize caps the bytes returned per Read call, forcing short
// reads.
func WithMaxReadSize(n int) Option {
	return func(s *PatternSource) { s.maxReadSize = n }
}

// New creates a PatternSource of the given size.
func New(size uint64, opts ...Option) *PatternSource {
	s := &PatternSource{
		size:     size,
		failAt:   ^uint64(0),
		seekable: true,
		fastSeek: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *PatternSource) Read(p []byte) (int, error) {
	s.reads.Add(1)
	if s.readDelay > 0 {
		time.Sleep(s.readDelay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= s.failAt {
		return 0, ErrInjected
	}
	if s.pos >= s.size {
		return 0, io.EOF
	}

	n := len(p)
	if s.maxReadSize > 0 && n > s.maxReadSize {
		n = s.maxReadSize
	}
	if left := s.size - s.pos; uint64(n) > left {
		n = int(left)
	}
	if limit := s.failAt; s.pos+uint64(n) > limit {
		n = int(limit - s.pos)
	}
	Fill(p[:n], s.pos)
	s.pos += uint64(n)
	return n, nil
}

func (s *PatternSource) Seek(pos uint64) error {
	s.seeks.Add(1)
	if !s.seekable {
		return errors.New("sourcetest: seek not supported")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos > s.size {
		pos = s.size
	}
	s.pos = pos
	return nil
}

func (s *PatternSource) Tell() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *PatternSource) Size() uint64 { return s.size }

func (s *PatternSource) CanSeek() bool { return s.seekable }

func (s *PatternSource) CanFastSeek() bool { return s.seekable && s.fastSeek }

func (s *PatternSource) Close() error { return nil }

// Reads returns the number of Read calls so far.
func (s *PatternSource) Reads() int64 { return s.reads.Load() }

// Seeks returns the number of Seek calls so far.
func (s *PatternSource) Seeks() int64 { return s.seeks.Load() }
