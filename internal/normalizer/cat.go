package normalizer

import (
	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// CATFleetNormalizer handles CAT ISO 15143 equipment records. Identity and
// descriptive fields live under EquipmentHeader; position and odometer sit
// in sibling groups with their own observation timestamps.
type CATFleetNormalizer struct{}

func (CATFleetNormalizer) Supports(source, category string) bool {
	return source == provider.SourceCAT && category == provider.CategoryCATFleet
}

func (CATFleetNormalizer) Normalize(raw models.RawRecord) (*models.LocationRecord, bool) {
	payload := raw.Payload

	header, _ := mapField(payload, "EquipmentHeader")
	if header == nil {
		header = map[string]any{}
	}
	loc, _ := mapField(payload, "Location")
	dist, _ := mapField(payload, "Distance")

	externalID, ok := stringField(header, "EquipmentID", "SerialNumber")
	if !ok {
		return nil, false
	}

	if loc == nil {
		return nil, false
	}
	lat, latOK := floatField(loc, "Latitude")
	lon, lonOK := floatField(loc, "Longitude")
	if !latOK || !lonOK {
		return nil, false
	}

	// Prefer the position's own observation time over the odometer's, with
	// the page snapshot time as the last resort.
	ts, tsOK := timestampField(loc, "datetime")
	if !tsOK && dist != nil {
		ts, tsOK = timestampField(dist, "datetime")
	}
	if !tsOK {
		ts, tsOK = timestampField(payload, "SnapshotTime")
	}
	if !tsOK {
		return nil, false
	}

	rec := &models.LocationRecord{
		ExternalID:     externalID,
		SourceSystem:   raw.Source,
		SourceCategory: raw.Category,
		Latitude:       lat,
		Longitude:      lon,
		Timestamp:      ts,
		Raw:            payload,
	}

	if name, ok := stringField(header, "EquipmentID", "SerialNumber", "Model"); ok {
		rec.Name = name
	} else {
		rec.Name = syntheticName("CAT", externalID)
	}
	rec.VehicleType, _ = stringField(header, "Model")

	// Odometer units are kilometres per the ISO 15143 fleet snapshot.
	if dist != nil {
		if odo, ok := floatField(dist, "Odometer"); ok {
			rec.OdometerKM = floatPtr(odo)
		}
	}

	return rec, true
}
