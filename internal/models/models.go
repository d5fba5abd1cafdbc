package models

import (
	"time"

	"github.com/google/uuid"
)

// RawRecord is one provider payload plus the source endpoint it came from.
// It only lives for the duration of a sync pass and is never persisted.
type RawRecord struct {
	Source   string         `json:"source"`
	Category string         `json:"category"`
	Payload  map[string]any `json:"payload"`
}

// LocationRecord is the canonical, provider-agnostic form of one asset's
// latest known position. Records are produced by the normalizer, consumed by
// the dedupe/freshness/matching stages and discarded after persistence.
type LocationRecord struct {
	ExternalID     string
	SourceSystem   string
	SourceCategory string
	Name           string
	VehicleType    string
	Latitude       float64
	Longitude      float64
	SpeedKPH       *float64
	Heading        *float64
	OdometerKM     *float64

	// Timestamp is the provider's position timestamp as received, either an
	// RFC 3339 string or an epoch value. EventTime is the parsed UTC instant,
	// populated by the freshness stage for records that survive it.
	Timestamp string
	EventTime time.Time

	Raw map[string]any
}

// JobSite is a read-only snapshot of one active work site for the duration
// of a pass.
type JobSite struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Latitude  float64
	Longitude float64
}

// VehicleIdentity is the stable identity row for one asset as seen through
// one provider. IsDeleted is the operator-managed blocklist flag; the sync
// path reads it but never sets it.
type VehicleIdentity struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	ExternalID     string
	SourceSystem   string
	Name           string
	Type           string
	IsDeleted      bool
	LastSeenAt     time.Time
}

// VehiclePosition is the single overwrite-latest position row for a vehicle.
type VehiclePosition struct {
	VehicleID      uuid.UUID
	OrganizationID uuid.UUID
	Latitude       float64
	Longitude      float64
	Heading        *float64
	SpeedKPH       *float64
	OdometerKM     *float64
	Timestamp      time.Time
	Raw            []byte
	UpdatedAt      time.Time
}
