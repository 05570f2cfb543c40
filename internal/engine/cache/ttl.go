package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TTL defaults.
const (
	// DefaultTTL is the lifetime of an entry written without an explicit TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultPrefix is the reserved namespace for keys owned by the cache.
	DefaultPrefix = "fluxi_cache_"

	// minTTL is the storage resolution; entries record their TTL in milliseconds.
	minTTL = time.Millisecond
)

// ErrInvalidTTL is returned when a TTL is shorter than one millisecond.
var ErrInvalidTTL = errors.New("TTL must be at least 1ms")

// ParseTTL parses a TTL string in either format:
// - Integer milliseconds: "300000".
// - Duration string: "5m", "90s", "1h30m".
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("%w: got %dms", ErrInvalidTTL, ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	if d < minTTL {
		return 0, fmt.Errorf("%w: got %s", ErrInvalidTTL, d)
	}
	return d, nil
}

// FormatDuration formats d in Go duration syntax without trailing zero
// units, so the result always parses back with ParseTTL.
// Examples: "500ms", "1m30s", "5m", "2h30m", "72h".
func FormatDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = strings.TrimSuffix(s, "0s")
	}
	if strings.HasSuffix(s, "h0m") {
		s = strings.TrimSuffix(s, "0m")
	}
	return s
}
