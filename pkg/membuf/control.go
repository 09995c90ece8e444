package membuf

import (
	"fmt"

	"github.com/membufio/membuf/pkg/stream"
)

// Control implements the host control surface. Argument types follow the
// stream.Query documentation; a wrong type is reported as an error rather
// than a panic.
func (s *Stream) Control(q stream.Query, arg any) error {
	switch q {
	case stream.CanSeek:
		p, ok := arg.(*bool)
		if !ok {
			return badArg(q, arg)
		}
		*p = s.canSeek
	case stream.CanFastSeek:
		p, ok := arg.(*bool)
		if !ok {
			return badArg(q, arg)
		}
		*p = s.canFastSeek
	case stream.GetSize:
		p, ok := arg.(*uint64)
		if !ok {
			return badArg(q, arg)
		}
		*p = s.size
	case stream.GetPosition:
		p, ok := arg.(*uint64)
		if !ok {
			return badArg(q, arg)
		}
		*p = s.streamOffset.Load()
	case stream.GetCachedSize:
		p, ok := arg.(*uint64)
		if !ok {
			return badArg(q, arg)
		}
		// Best effort: no lock, the frontier is a single atomic word.
		*p = s.prebufferOffset.Load()
	case stream.GetPrebufferFinished:
		p, ok := arg.(*bool)
		if !ok {
			return badArg(q, arg)
		}
		*p = s.bufferedEOS.Load()
	case stream.SetPosition:
		pos, ok := arg.(uint64)
		if !ok {
			return badArg(q, arg)
		}
		return s.Seek(pos)
	default:
		return stream.ErrUnsupported
	}
	return nil
}

func badArg(q stream.Query, arg any) error {
	return fmt.Errorf("membuf: %s: bad argument type %T", q, arg)
}
