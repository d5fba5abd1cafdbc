// Package freshness drops position reports that are too old to treat as
// authoritative. Providers keep returning decommissioned assets with stale
// cached coordinates; admitting them would present ghost vehicles as active.
package freshness

import (
	"fmt"
	"strconv"
	"time"

	"github.com/foresyt/fleetsync/internal/models"
)

// DefaultMaxAge is the default staleness threshold: 14 days.
const DefaultMaxAge = 336 * time.Hour

// epochMillisCutoff separates epoch seconds from epoch milliseconds. Any
// value at or above it would be a date past the year 5000 when read as
// seconds, so it is read as milliseconds instead.
const epochMillisCutoff = 1e11

// Parse resolves a provider timestamp into a UTC instant. It accepts
// RFC 3339 (with or without fractional seconds) and epoch seconds or
// milliseconds, which covers every provider shape the normalizers emit.
func Parse(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC(), nil
	}

	if f, err := strconv.ParseFloat(ts, 64); err == nil {
		if f <= 0 {
			return time.Time{}, fmt.Errorf("non-positive epoch value %q", ts)
		}
		if f >= epochMillisCutoff {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unparseable timestamp %q", ts)
}

// IsFresh reports whether ts is at or after now minus maxAge, returning the
// parsed instant for callers that need it. Malformed timestamps are not
// fresh (fail-closed).
func IsFresh(ts string, now time.Time, maxAge time.Duration) (time.Time, bool) {
	t, err := Parse(ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, !t.Before(now.Add(-maxAge))
}

// Filter splits records into fresh and stale. Survivors get their EventTime
// set so downstream stages never re-parse the provider timestamp.
func Filter(records []models.LocationRecord, now time.Time, maxAge time.Duration) (fresh, stale []models.LocationRecord) {
	for i := range records {
		t, ok := IsFresh(records[i].Timestamp, now, maxAge)
		if !ok {
			stale = append(stale, records[i])
			continue
		}
		records[i].EventTime = t
		fresh = append(fresh, records[i])
	}
	return fresh, stale
}
