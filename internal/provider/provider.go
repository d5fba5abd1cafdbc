// Package provider defines the adapter contract for telemetry sources and
// the fixed set of source categories the pipeline understands.
package provider

import (
	"context"

	"github.com/foresyt/fleetsync/internal/models"
)

// Source system identifiers.
const (
	SourceSamsara = "samsara"
	SourceCAT     = "cat"
)

// Source categories. A category identifies one provider endpoint shape, not
// just a provider: Samsara alone exposes three of them.
const (
	// CategoryVehiclesV2 is the current-generation Samsara vehicle endpoint.
	CategoryVehiclesV2 = "vehicles_v2"
	// CategoryEquipmentV2 is the current-generation Samsara equipment endpoint.
	CategoryEquipmentV2 = "equipment_v2"
	// CategoryAssetsV1 is the legacy Samsara asset endpoint.
	CategoryAssetsV1 = "assets_v1"
	// CategoryCATFleet is the CAT ISO 15143 fleet endpoint.
	CategoryCATFleet = "cat_fleet"
)

// unrankedPriority sorts unrecognized categories below every known one.
const unrankedPriority = 99

// Rank returns the dedup priority of a category; lower wins. The
// purpose-built current-generation endpoints are authoritative over the
// legacy asset endpoint when both report the same physical asset.
func Rank(category string) int {
	switch category {
	case CategoryVehiclesV2:
		return 0
	case CategoryEquipmentV2:
		return 1
	case CategoryAssetsV1:
		return 2
	default:
		return unrankedPriority
	}
}

// Adapter fetches one endpoint's raw record batch. Implementations own
// auth, pagination and rate limiting; the pipeline only sees tagged
// payloads. Fetch must honor ctx cancellation and return the records it
// could not fetch as an error, never a partial silent result.
type Adapter interface {
	Source() string
	Category() string
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}
