// Package bytesize provides a byte count type that parses human-readable
// strings like "4Mi", "64Ki", "100MB", or plain numbers. It is used for
// configuration values and CLI output.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

func unitMultiplier(unit string) (ByteSize, bool) {
	switch strings.ToLower(unit) {
	case "", "b":
		return B, true
	case "k", "kb":
		return KB, true
	case "m", "mb":
		return MB, true
	case "g", "gb":
		return GB, true
	case "t", "tb":
		return TB, true
	case "ki", "kib":
		return KiB, true
	case "mi", "mib":
		return MiB, true
	case "gi", "gib":
		return GiB, true
	case "ti", "tib":
		return TiB, true
	default:
		return 0, false
	}
}

// Parse parses a human-readable byte size. Accepted forms: plain integers
// ("4194304"), decimal units ("100MB", ×1000), and binary units ("4Mi",
// ×1024). Fractional values are allowed ("1.5Gi").
func Parse(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	// Split the numeric prefix from the unit suffix.
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	numStr := s[:i]
	unit := strings.TrimSpace(s[i:])
	if numStr == "" {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	mult, ok := unitMultiplier(unit)
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", unit)
	}

	if strings.Contains(numStr, ".") {
		f, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q", s)
		}
		return ByteSize(f * float64(mult)), nil
	}

	n, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	return ByteSize(n) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize fields work
// with mapstructure and yaml decoding.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String renders the size with the largest binary unit that divides it
// cleanly enough to read.
func (b ByteSize) String() string {
	format := func(unit ByteSize, suffix string) string {
		if b%unit == 0 {
			return fmt.Sprintf("%d%s", uint64(b/unit), suffix)
		}
		return fmt.Sprintf("%.2f%s", float64(b)/float64(unit), suffix)
	}
	switch {
	case b >= TiB:
		return format(TiB, "TiB")
	case b >= GiB:
		return format(GiB, "GiB")
	case b >= MiB:
		return format(MiB, "MiB")
	case b >= KiB:
		return format(KiB, "KiB")
	default:
		return fmt.Sprintf("%dB", uint64(b))
	}
}

// Uint64 returns the size as a uint64.
func (b ByteSize) Uint64() uint64 { return uint64(b) }

// Int returns the size as an int. Callers validate range beforehand.
func (b ByteSize) Int() int { return int(b) }
