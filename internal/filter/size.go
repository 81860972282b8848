package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = map[string]int64{
	"":  1,
	"B": 1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// ParseSize parses a human-readable size such as "512", "64K", "1.5G",
// "100MB" or "2MiB". Every unit is a power of 1024, as with rsync.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	upper := strings.ToUpper(s)
	split := len(upper)
	for split > 0 && (upper[split-1] < '0' || upper[split-1] > '9') && upper[split-1] != '.' {
		split--
	}
	num, unit := upper[:split], strings.TrimSpace(upper[split:])
	unit = strings.TrimSuffix(strings.TrimSuffix(unit, "IB"), "B")
	if unit == "" && strings.HasSuffix(upper, "B") {
		unit = "B"
	}

	mult, ok := sizeUnits[unit]
	if !ok || num == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	if n, err := strconv.ParseInt(num, 10, 64); err == nil && n >= 0 {
		if n > math.MaxInt64/mult {
			return 0, fmt.Errorf("invalid size: %q overflows int64", s)
		}
		return n * mult, nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
	v := f * float64(mult)
	if v >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid size: %q overflows int64", s)
	}
	return int64(v), nil
}
