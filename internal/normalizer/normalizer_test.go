package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

func vehicleV2Record(payload map[string]any) models.RawRecord {
	return models.RawRecord{
		Source:   provider.SourceSamsara,
		Category: provider.CategoryVehiclesV2,
		Payload:  payload,
	}
}

func TestVehicleV2Normalizer_Supports(t *testing.T) {
	n := VehicleV2Normalizer{}

	tests := []struct {
		name     string
		source   string
		category string
		expected bool
	}{
		{"vehicles v2", provider.SourceSamsara, provider.CategoryVehiclesV2, true},
		{"equipment v2", provider.SourceSamsara, provider.CategoryEquipmentV2, true},
		{"legacy assets", provider.SourceSamsara, provider.CategoryAssetsV1, false},
		{"cat fleet", provider.SourceCAT, provider.CategoryCATFleet, false},
		{"wrong source", provider.SourceCAT, provider.CategoryVehiclesV2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Supports(tt.source, tt.category))
		})
	}
}

func TestVehicleV2Normalizer_FullRecord(t *testing.T) {
	rec, ok := VehicleV2Normalizer{}.Normalize(vehicleV2Record(map[string]any{
		"id":          "281474976710655",
		"name":        "Truck 12",
		"vehicleType": "vehicle",
		"location": map[string]any{
			"latitude":  46.2087,
			"longitude": -119.1199,
			"time":      "2026-08-20T10:30:00Z",
			"speedKph":  42.5,
			"heading":   180.0,
		},
		"obdOdometerMeters": 123456.0,
	}))
	require.True(t, ok)

	assert.Equal(t, "281474976710655", rec.ExternalID)
	assert.Equal(t, provider.SourceSamsara, rec.SourceSystem)
	assert.Equal(t, provider.CategoryVehiclesV2, rec.SourceCategory)
	assert.Equal(t, "Truck 12", rec.Name)
	assert.Equal(t, "vehicle", rec.VehicleType)
	assert.Equal(t, 46.2087, rec.Latitude)
	assert.Equal(t, -119.1199, rec.Longitude)
	assert.Equal(t, "2026-08-20T10:30:00Z", rec.Timestamp)
	require.NotNil(t, rec.SpeedKPH)
	assert.Equal(t, 42.5, *rec.SpeedKPH)
	require.NotNil(t, rec.Heading)
	assert.Equal(t, 180.0, *rec.Heading)
	require.NotNil(t, rec.OdometerKM)
	assert.InDelta(t, 123.456, *rec.OdometerKM, 1e-9)
}

func TestVehicleV2Normalizer_Fallbacks(t *testing.T) {
	t.Run("numeric id and synthetic name", func(t *testing.T) {
		rec, ok := VehicleV2Normalizer{}.Normalize(vehicleV2Record(map[string]any{
			"id": 123456789.0,
			"gps": map[string]any{
				"latitude":  46.0,
				"longitude": -119.0,
				"timeMs":    1755686400000.0,
			},
		}))
		require.True(t, ok)
		assert.Equal(t, "123456789", rec.ExternalID)
		assert.Equal(t, "asset 123456789", rec.Name)
		assert.Equal(t, "1755686400000", rec.Timestamp)
	})

	t.Run("mph speed is converted", func(t *testing.T) {
		rec, ok := VehicleV2Normalizer{}.Normalize(vehicleV2Record(map[string]any{
			"assetId": "A-1",
			"lastKnownLocation": map[string]any{
				"latitude":          46.0,
				"longitude":         -119.0,
				"updatedAt":         "2026-08-20T10:30:00Z",
				"speedMilesPerHour": 10.0,
			},
		}))
		require.True(t, ok)
		require.NotNil(t, rec.SpeedKPH)
		assert.InDelta(t, 16.0934, *rec.SpeedKPH, 1e-3)
	})

	t.Run("kph speed is never converted", func(t *testing.T) {
		rec, ok := VehicleV2Normalizer{}.Normalize(vehicleV2Record(map[string]any{
			"id": "A-2",
			"location": map[string]any{
				"latitude":  46.0,
				"longitude": -119.0,
				"time":      "2026-08-20T10:30:00Z",
				"speedKph":  50.0,
				// Lower-priority field that must stay ignored.
				"speedMilesPerHour": 10.0,
			},
		}))
		require.True(t, ok)
		require.NotNil(t, rec.SpeedKPH)
		assert.Equal(t, 50.0, *rec.SpeedKPH)
	})

	t.Run("value wrapper is unwrapped", func(t *testing.T) {
		rec, ok := VehicleV2Normalizer{}.Normalize(vehicleV2Record(map[string]any{
			"id": "A-3",
			"location": map[string]any{
				"latitude":  46.0,
				"longitude": -119.0,
				"time":      "2026-08-20T10:30:00Z",
				"speed":     map[string]any{"value": 30.0},
				"bearing":   map[string]any{"value": 90.0},
			},
		}))
		require.True(t, ok)
		require.NotNil(t, rec.SpeedKPH)
		assert.Equal(t, 30.0, *rec.SpeedKPH)
		require.NotNil(t, rec.Heading)
		assert.Equal(t, 90.0, *rec.Heading)
	})
}

func TestVehicleV2Normalizer_Unusable(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"no identity", map[string]any{
			"location": map[string]any{"latitude": 46.0, "longitude": -119.0, "time": "2026-08-20T10:30:00Z"},
		}},
		{"no location group", map[string]any{"id": "V1"}},
		{"missing latitude", map[string]any{
			"id":       "V1",
			"location": map[string]any{"longitude": -119.0, "time": "2026-08-20T10:30:00Z"},
		}},
		{"missing timestamp", map[string]any{
			"id":       "V1",
			"location": map[string]any{"latitude": 46.0, "longitude": -119.0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := VehicleV2Normalizer{}.Normalize(vehicleV2Record(tt.payload))
			assert.False(t, ok)
			assert.Nil(t, rec)
		})
	}
}

func TestVehicleV2Normalizer_Pure(t *testing.T) {
	payload := map[string]any{
		"id": "V-pure",
		"location": map[string]any{
			"latitude":  46.0,
			"longitude": -119.0,
			"time":      "2026-08-20T10:30:00Z",
		},
	}
	raw := vehicleV2Record(payload)

	first, ok := VehicleV2Normalizer{}.Normalize(raw)
	require.True(t, ok)
	second, ok := VehicleV2Normalizer{}.Normalize(raw)
	require.True(t, ok)

	assert.Equal(t, first, second)
	// The input payload is untouched.
	assert.Len(t, payload, 2)
}

func TestAssetV1Normalizer(t *testing.T) {
	raw := models.RawRecord{
		Source:   provider.SourceSamsara,
		Category: provider.CategoryAssetsV1,
		Payload: map[string]any{
			"assetId": "T-900",
			"name":    "Lowboy Trailer",
			"location": []any{
				map[string]any{
					"latitude":          46.21,
					"longitude":         -119.12,
					"timeMs":            1755686400000.0,
					"speedMilesPerHour": 20.0,
				},
				map[string]any{
					"latitude":  45.0,
					"longitude": -118.0,
					"timeMs":    1755600000000.0,
				},
			},
		},
	}

	rec, ok := AssetV1Normalizer{}.Normalize(raw)
	require.True(t, ok)

	// Latest history entry wins.
	assert.Equal(t, "T-900", rec.ExternalID)
	assert.Equal(t, 46.21, rec.Latitude)
	assert.Equal(t, -119.12, rec.Longitude)
	assert.Equal(t, "1755686400000", rec.Timestamp)
	require.NotNil(t, rec.SpeedKPH)
	assert.InDelta(t, 20.0*MPHToKPH, *rec.SpeedKPH, 1e-9)

	t.Run("empty history is unusable", func(t *testing.T) {
		_, ok := AssetV1Normalizer{}.Normalize(models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: provider.CategoryAssetsV1,
			Payload:  map[string]any{"assetId": "T-901", "location": []any{}},
		})
		assert.False(t, ok)
	})
}

func catRecord(payload map[string]any) models.RawRecord {
	return models.RawRecord{
		Source:   provider.SourceCAT,
		Category: provider.CategoryCATFleet,
		Payload:  payload,
	}
}

func TestCATFleetNormalizer(t *testing.T) {
	rec, ok := CATFleetNormalizer{}.Normalize(catRecord(map[string]any{
		"EquipmentHeader": map[string]any{
			"EquipmentID":  "CAT0320E",
			"SerialNumber": "XYZ12345",
			"Model":        "320E",
		},
		"Location": map[string]any{
			"Latitude":  46.25,
			"Longitude": -119.2,
			"datetime":  "2026-08-20T09:00:00Z",
		},
		"Distance": map[string]any{
			"Odometer": 4321.5,
			"datetime": "2026-08-19T09:00:00Z",
		},
	}))
	require.True(t, ok)

	assert.Equal(t, "CAT0320E", rec.ExternalID)
	assert.Equal(t, provider.SourceCAT, rec.SourceSystem)
	assert.Equal(t, "CAT0320E", rec.Name)
	assert.Equal(t, "320E", rec.VehicleType)
	// Location's own observation time beats the odometer's.
	assert.Equal(t, "2026-08-20T09:00:00Z", rec.Timestamp)
	require.NotNil(t, rec.OdometerKM)
	assert.Equal(t, 4321.5, *rec.OdometerKM)

	t.Run("serial number fallback", func(t *testing.T) {
		rec, ok := CATFleetNormalizer{}.Normalize(catRecord(map[string]any{
			"EquipmentHeader": map[string]any{"SerialNumber": "XYZ12345"},
			"Location": map[string]any{
				"Latitude":  46.0,
				"Longitude": -119.0,
				"datetime":  "2026-08-20T09:00:00Z",
			},
		}))
		require.True(t, ok)
		assert.Equal(t, "XYZ12345", rec.ExternalID)
	})

	t.Run("odometer timestamp fallback", func(t *testing.T) {
		rec, ok := CATFleetNormalizer{}.Normalize(catRecord(map[string]any{
			"EquipmentHeader": map[string]any{"EquipmentID": "CAT1"},
			"Location":        map[string]any{"Latitude": 46.0, "Longitude": -119.0},
			"Distance":        map[string]any{"Odometer": 10.0, "datetime": "2026-08-19T09:00:00Z"},
		}))
		require.True(t, ok)
		assert.Equal(t, "2026-08-19T09:00:00Z", rec.Timestamp)
	})

	t.Run("no identity is unusable", func(t *testing.T) {
		_, ok := CATFleetNormalizer{}.Normalize(catRecord(map[string]any{
			"EquipmentHeader": map[string]any{"Model": "320E"},
			"Location": map[string]any{
				"Latitude":  46.0,
				"Longitude": -119.0,
				"datetime":  "2026-08-20T09:00:00Z",
			},
		}))
		assert.False(t, ok)
	})

	t.Run("no location is unusable", func(t *testing.T) {
		_, ok := CATFleetNormalizer{}.Normalize(catRecord(map[string]any{
			"EquipmentHeader": map[string]any{"EquipmentID": "CAT2"},
		}))
		assert.False(t, ok)
	})
}

func TestRegistry_Dispatch(t *testing.T) {
	registry := Default()

	t.Run("routes by source and category", func(t *testing.T) {
		rec, ok := registry.Normalize(vehicleV2Record(map[string]any{
			"id": "V1",
			"location": map[string]any{
				"latitude":  46.0,
				"longitude": -119.0,
				"time":      "2026-08-20T10:30:00Z",
			},
		}))
		require.True(t, ok)
		assert.Equal(t, provider.CategoryVehiclesV2, rec.SourceCategory)
	})

	t.Run("unknown category is absent", func(t *testing.T) {
		rec, ok := registry.Normalize(models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: "trailers_v3",
			Payload:  map[string]any{"id": "V1"},
		})
		assert.False(t, ok)
		assert.Nil(t, rec)
	})
}
