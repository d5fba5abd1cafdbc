// Package normalizer maps raw provider payloads into canonical location
// records. Returning absent is the routine signal for unusable input;
// heterogeneous, incomplete upstream data is the expected common case, so
// nothing here produces an error.
package normalizer

import (
	"github.com/foresyt/fleetsync/internal/models"
)

// MPHToKPH converts a miles-per-hour speed to kilometers per hour.
const MPHToKPH = 1.60934

// Normalizer converts one raw record into a canonical location record.
// The second return value is false when the record is unusable: identity,
// latitude, longitude or timestamp could not be resolved after all
// fallbacks. Implementations are pure functions.
type Normalizer interface {
	Supports(source, category string) bool
	Normalize(raw models.RawRecord) (*models.LocationRecord, bool)
}

// Registry holds ordered normalizers and finds a match for a given record.
type Registry struct {
	items []Normalizer
}

// NewRegistry constructs a registry with the provided normalizers.
func NewRegistry(items ...Normalizer) *Registry {
	return &Registry{items: items}
}

// Default returns a registry covering every known source category.
func Default() *Registry {
	return NewRegistry(
		VehicleV2Normalizer{},
		AssetV1Normalizer{},
		CATFleetNormalizer{},
	)
}

// Normalize dispatches to the first normalizer supporting the record's
// source and category. Records from unrecognized categories are absent.
func (r *Registry) Normalize(raw models.RawRecord) (*models.LocationRecord, bool) {
	if r == nil {
		return nil, false
	}
	for _, n := range r.items {
		if n.Supports(raw.Source, raw.Category) {
			return n.Normalize(raw)
		}
	}
	return nil, false
}
