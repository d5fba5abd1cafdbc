// Package seeder generates realistic job sites and raw provider payloads
// for local development and fixture-driven runs.
package seeder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// Options controls how much fake data is generated and where it is
// centered. Positions are scattered around the center so nearest-site
// matching produces a mix of assigned and unassigned vehicles.
type Options struct {
	Sites     int
	Vehicles  int
	Equipment int
	Assets    int

	CenterLat float64
	CenterLon float64
	// SpreadDeg is the coordinate jitter in degrees (~0.1 is about 11 km).
	SpreadDeg float64

	Seed int64
}

func (o Options) withDefaults() Options {
	if o.CenterLat == 0 && o.CenterLon == 0 {
		// Tri-Cities, WA; matches the fixture data used in tests.
		o.CenterLat, o.CenterLon = 46.2087, -119.1199
	}
	if o.SpreadDeg == 0 {
		o.SpreadDeg = 0.1
	}
	return o
}

var vehicleKinds = []string{"Truck", "Pickup", "Service Truck", "Water Truck", "Flatbed"}
var equipmentKinds = []string{"Excavator", "Loader", "Dozer", "Grader", "Roller"}

// Sites generates fake job sites.
func Sites(opts Options) []models.JobSite {
	opts = opts.withDefaults()
	f := gofakeit.New(opts.Seed)

	sites := make([]models.JobSite, 0, opts.Sites)
	for i := 0; i < opts.Sites; i++ {
		sites = append(sites, models.JobSite{
			Code:      fmt.Sprintf("%d-%03d", time.Now().Year()%100, i+1),
			Name:      fmt.Sprintf("%s %s", f.Company(), f.RandomString([]string{"Site", "Yard", "Project", "Plant"})),
			Latitude:  jitter(f, opts.CenterLat, opts.SpreadDeg),
			Longitude: jitter(f, opts.CenterLon, opts.SpreadDeg),
		})
	}
	return sites
}

// RawRecords generates raw payloads across all source categories in the
// exact shapes the normalizers expect.
func RawRecords(opts Options) []models.RawRecord {
	opts = opts.withDefaults()
	f := gofakeit.New(opts.Seed + 1)
	now := time.Now().UTC()

	var records []models.RawRecord

	for i := 0; i < opts.Vehicles; i++ {
		records = append(records, models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: provider.CategoryVehiclesV2,
			Payload: map[string]any{
				"id":          fmt.Sprintf("%d", f.Number(100000000, 999999999)),
				"name":        fmt.Sprintf("%s %d", f.RandomString(vehicleKinds), i+1),
				"vehicleType": "vehicle",
				"location": map[string]any{
					"latitude":  jitter(f, opts.CenterLat, opts.SpreadDeg),
					"longitude": jitter(f, opts.CenterLon, opts.SpreadDeg),
					"time":      eventTime(f, now).Format(time.RFC3339),
					"speedKph":  f.Float64Range(0, 95),
					"heading":   f.Float64Range(0, 360),
				},
			},
		})
	}

	for i := 0; i < opts.Equipment; i++ {
		records = append(records, models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: provider.CategoryEquipmentV2,
			Payload: map[string]any{
				"id":        fmt.Sprintf("%d", f.Number(100000000, 999999999)),
				"name":      fmt.Sprintf("%s %d", f.RandomString(equipmentKinds), i+1),
				"assetType": "equipment",
				"lastKnownLocation": map[string]any{
					"latitude":  jitter(f, opts.CenterLat, opts.SpreadDeg),
					"longitude": jitter(f, opts.CenterLon, opts.SpreadDeg),
					"time":      eventTime(f, now).Format(time.RFC3339),
					"speed":     map[string]any{"value": f.Float64Range(0, 30)},
				},
			},
		})
	}

	for i := 0; i < opts.Assets; i++ {
		records = append(records, models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: provider.CategoryAssetsV1,
			Payload: map[string]any{
				"assetId": fmt.Sprintf("%d", f.Number(100000000, 999999999)),
				"name":    fmt.Sprintf("Trailer %d", i+1),
				"location": []any{
					map[string]any{
						"latitude":          jitter(f, opts.CenterLat, opts.SpreadDeg),
						"longitude":         jitter(f, opts.CenterLon, opts.SpreadDeg),
						"timeMs":            float64(eventTime(f, now).UnixMilli()),
						"speedMilesPerHour": f.Float64Range(0, 60),
					},
				},
			},
		})
	}

	return records
}

// WriteFixture writes records as a fixture file the fixture adapter can
// load.
func WriteFixture(path string, records []models.RawRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

func jitter(f *gofakeit.Faker, center, spread float64) float64 {
	return center + f.Float64Range(-spread, spread)
}

// eventTime places reports within the last few hours, with the occasional
// stale straggler so freshness filtering has something to do.
func eventTime(f *gofakeit.Faker, now time.Time) time.Time {
	if f.Number(1, 20) == 1 {
		return now.Add(-time.Duration(f.Number(15, 45)) * 24 * time.Hour)
	}
	return now.Add(-time.Duration(f.Number(0, 6*3600)) * time.Second)
}
