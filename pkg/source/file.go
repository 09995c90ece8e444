package source

import (
	"fmt"
	"os"
)

// FileSource reads a local file. Seeks are cheap.
type FileSource struct {
	f    *os.File
	size uint64
	pos  uint64
}

// OpenFile opens path as a Source. The file size is captured once at open;
// membuf requires a stable size for block layout.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if st.Size() < 0 {
		_ = f.Close()
		return nil, ErrUnknownSize
	}
	return &FileSource{f: f, size: uint64(st.Size())}, nil
}

func (s *FileSource) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	if n > 0 {
		s.pos += uint64(n)
	}
	return n, err
}

func (s *FileSource) Seek(pos uint64) error {
	if _, err := s.f.Seek(int64(pos), 0); err != nil {
		return fmt.Errorf("seek source file: %w", err)
	}
	s.pos = pos
	return nil
}

func (s *FileSource) Tell() uint64 { return s.pos }

func (s *FileSource) Size() uint64 { return s.size }

func (s *FileSource) CanSeek() bool { return true }

func (s *FileSource) CanFastSeek() bool { return true }

func (s *FileSource) Close() error { return s.f.Close() }
