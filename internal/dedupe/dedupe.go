// Package dedupe collapses location records that describe the same physical
// asset seen through more than one provider endpoint.
package dedupe

import (
	"fmt"

	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// Key derives the pass-scoped dedup key for a record: the identity key when
// an external id is present, otherwise name plus position rounded to 5
// decimal places (about 1.1 m), otherwise a non-mergeable per-record key.
func Key(rec *models.LocationRecord, index int) string {
	if rec.ExternalID != "" {
		return "id:" + rec.ExternalID
	}
	// Exact (0,0) is treated as no GPS fix, not as a real null-island
	// position, so such records never merge on the position key.
	if rec.Latitude != 0 || rec.Longitude != 0 {
		return fmt.Sprintf("pos:%s|%.5f|%.5f", rec.Name, rec.Latitude, rec.Longitude)
	}
	return fmt.Sprintf("rec:%d", index)
}

// Dedupe collapses key collisions, keeping the record whose source category
// ranks higher; equal ranks keep the first-seen record. Output order is the
// input order of each key's first occurrence, and the pass is O(n).
func Dedupe(records []models.LocationRecord) []models.LocationRecord {
	out := make([]models.LocationRecord, 0, len(records))
	slots := make(map[string]int, len(records))

	for i := range records {
		key := Key(&records[i], i)

		slot, seen := slots[key]
		if !seen {
			slots[key] = len(out)
			out = append(out, records[i])
			continue
		}

		if provider.Rank(records[i].SourceCategory) < provider.Rank(out[slot].SourceCategory) {
			out[slot] = records[i]
		}
	}

	return out
}
