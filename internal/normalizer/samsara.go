package normalizer

import (
	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// VehicleV2Normalizer handles the current-generation Samsara vehicle and
// equipment endpoints. Both shapes nest the position under a location
// group whose name varies by org and endpoint generation.
type VehicleV2Normalizer struct{}

// Supports matches both v2 categories; their payloads share one shape.
func (VehicleV2Normalizer) Supports(source, category string) bool {
	return source == provider.SourceSamsara &&
		(category == provider.CategoryVehiclesV2 || category == provider.CategoryEquipmentV2)
}

func (VehicleV2Normalizer) Normalize(raw models.RawRecord) (*models.LocationRecord, bool) {
	payload := raw.Payload

	externalID, ok := stringField(payload, "id", "assetId", "assetSerialNumber")
	if !ok {
		return nil, false
	}

	loc, ok := mapField(payload, "location", "lastKnownLocation", "gps", "gpsLocation")
	if !ok {
		return nil, false
	}

	lat, latOK := floatField(loc, "latitude")
	lon, lonOK := floatField(loc, "longitude")
	ts, tsOK := timestampField(loc, "time", "timeMs", "updatedAt", "receivedAt")
	if !latOK || !lonOK || !tsOK {
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

	if name, ok := stringField(payload, "name"); ok {
		rec.Name = name
	} else {
		rec.Name = syntheticName("", externalID)
	}
	rec.VehicleType, _ = stringField(payload, "vehicleType", "assetType", "type")

	rec.SpeedKPH = extractSpeed(loc)

	if heading, ok := unwrapValue(loc["heading"]); ok {
		rec.Heading = floatPtr(heading)
	} else if bearing, ok := unwrapValue(loc["bearing"]); ok {
		rec.Heading = floatPtr(bearing)
	}

	// Odometer comes back in meters on the stats shape.
	if meters, ok := unwrapValue(payload["obdOdometerMeters"]); ok {
		rec.OdometerKM = floatPtr(meters / 1000.0)
	} else if meters, ok := unwrapValue(payload["gpsOdometerMeters"]); ok {
		rec.OdometerKM = floatPtr(meters / 1000.0)
	}

	return rec, true
}

// extractSpeed resolves the speed fallback chain. Only the explicitly
// mph-tagged field gets unit-converted; bare "speed" values are already
// km/h on these endpoints.
func extractSpeed(loc map[string]any) *float64 {
	if kph, ok := unwrapValue(loc["speedKph"]); ok {
		return floatPtr(kph)
	}
	if speed, ok := unwrapValue(loc["speed"]); ok {
		return floatPtr(speed)
	}
	if mph, ok := unwrapValue(loc["speedMilesPerHour"]); ok {
		return floatPtr(mph * MPHToKPH)
	}
	return nil
}

// AssetV1Normalizer handles the legacy Samsara asset endpoint, which
// reports a location history list instead of a single location group. The
// first element is the latest position.
type AssetV1Normalizer struct{}

func (AssetV1Normalizer) Supports(source, category string) bool {
	return source == provider.SourceSamsara && category == provider.CategoryAssetsV1
}

func (AssetV1Normalizer) Normalize(raw models.RawRecord) (*models.LocationRecord, bool) {
	payload := raw.Payload

	externalID, ok := stringField(payload, "id", "assetId", "assetSerialNumber")
	if !ok {
		return nil, false
	}

	history, ok := payload["location"].([]any)
	if !ok || len(history) == 0 {
		return nil, false
	}
	loc, ok := history[0].(map[string]any)
	if !ok {
		return nil, false
	}

	lat, latOK := floatField(loc, "latitude")
	lon, lonOK := floatField(loc, "longitude")
	ts, tsOK := timestampField(loc, "time", "timeMs")
	if !latOK || !lonOK || !tsOK {
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

	if name, ok := stringField(payload, "name"); ok {
		rec.Name = name
	} else {
		rec.Name = syntheticName("", externalID)
	}
	rec.VehicleType, _ = stringField(payload, "assetType", "type")

	if mph, ok := unwrapValue(loc["speedMilesPerHour"]); ok {
		rec.SpeedKPH = floatPtr(mph * MPHToKPH)
	}

	return rec, true
}
