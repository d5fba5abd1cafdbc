package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresyt/fleetsync/internal/geo"
	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/normalizer"
	"github.com/foresyt/fleetsync/internal/provider"
	"github.com/foresyt/fleetsync/internal/provider/fixture"
	"github.com/foresyt/fleetsync/internal/repository"
)

// failingAdapter simulates a provider outage.
type failingAdapter struct{ category string }

func (a failingAdapter) Source() string   { return provider.SourceSamsara }
func (a failingAdapter) Category() string { return a.category }
func (a failingAdapter) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	return nil, errors.New("503 service unavailable")
}

func vehiclePayload(id, name string, lat, lon float64, ts time.Time) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"vehicleType": "vehicle",
		"location": map[string]any{
			"latitude":  lat,
			"longitude": lon,
			"time":      ts.Format(time.RFC3339),
		},
	}
}

func assetPayload(id, name string, lat, lon float64, ts time.Time) map[string]any {
	return map[string]any{
		"assetId": id,
		"name":    name,
		"location": []any{
			map[string]any{
				"latitude":  lat,
				"longitude": lon,
				"time":      ts.Format(time.RFC3339),
			},
		},
	}
}

func TestRun_FullPass(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateJobSite(context.Background(), orgID, models.JobSite{
		Code: "26-001", Name: "River Yard", Latitude: 46.2087, Longitude: -119.1199,
	}))
	require.NoError(t, repo.CreateJobSite(context.Background(), orgID, models.JobSite{
		Code: "26-002", Name: "North Plant", Latitude: 46.3000, Longitude: -119.3000,
	}))

	vehicles := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, []models.RawRecord{
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T1", "Truck 1", 46.2090, -119.1200, now.Add(-time.Hour))},
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T2", "Truck 2", 46.3001, -119.3002, now.Add(-2*time.Hour))},
		// Far from every site: counts as unassigned.
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T3", "Truck 3", 47.6062, -122.3321, now.Add(-time.Hour))},
		// Unusable: no location group.
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: map[string]any{"id": "T4", "name": "Truck 4"}},
	})
	assets := fixture.New(provider.SourceSamsara, provider.CategoryAssetsV1, []models.RawRecord{
		// Same physical asset as T1 through the legacy endpoint, with a
		// 20-day-old cached position; dedupe drops it before the freshness
		// stage ever sees it.
		{Source: provider.SourceSamsara, Category: provider.CategoryAssetsV1,
			Payload: assetPayload("T1", "Truck 1 (legacy)", 46.2090, -119.1200, now.Add(-20*24*time.Hour))},
		// Decommissioned trailer still reported with a 20-day-old position.
		{Source: provider.SourceSamsara, Category: provider.CategoryAssetsV1,
			Payload: assetPayload("TR9", "Trailer 9", 46.2087, -119.1199, now.Add(-20*24*time.Hour))},
	})

	orch := New(repo, []provider.Adapter{vehicles, assets}, normalizer.Default(), nil, Options{
		OrganizationID:  orgID,
		MaxSiteDistance: 2.0,
		DistanceUnit:    geo.Miles,
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.FetchedBySource["samsara/vehicles_v2"])
	assert.Equal(t, 2, report.FetchedBySource["samsara/assets_v1"])
	assert.Equal(t, 6, report.TotalFetched())
	assert.Empty(t, report.ProviderErrors)

	assert.Equal(t, 5, report.Normalized)
	assert.Equal(t, 1, report.SkippedNormalize)
	assert.Equal(t, 1, report.RemovedDedupe)
	assert.Equal(t, 1, report.RemovedStale)
	assert.Equal(t, 3, report.Inserted)
	assert.Equal(t, 0, report.PersistErrors)
	assert.Equal(t, 0, report.SkippedBlocklisted)

	// T1 kept the current-generation record, not the legacy one.
	v, ok := repo.Vehicle(orgID, "T1", provider.SourceSamsara)
	require.True(t, ok)
	assert.Equal(t, "Truck 1", v.Name)
	pos, ok := repo.Position(v.ID)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(-time.Hour), pos.Timestamp, time.Second)

	// The stale trailer never reached the store.
	_, ok = repo.Vehicle(orgID, "TR9", provider.SourceSamsara)
	assert.False(t, ok)
	assert.Equal(t, 3, repo.PositionCount())

	assert.False(t, report.Assignments.NoSites)
	assert.Equal(t, 1, report.Assignments.BySite["26-001"])
	assert.Equal(t, 1, report.Assignments.BySite["26-002"])
	assert.Equal(t, 1, report.Assignments.Unassigned)

	assert.Equal(t, StateIdle, orch.State())
	assert.False(t, report.Finished.Before(report.Started))
}

func TestRun_ProviderFailureIsIsolated(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()

	healthy := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, []models.RawRecord{
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T1", "Truck 1", 46.2090, -119.1200, now.Add(-time.Hour))},
	})

	orch := New(repo, []provider.Adapter{failingAdapter{category: provider.CategoryAssetsV1}, healthy},
		normalizer.Default(), nil, Options{OrganizationID: orgID})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	// The outage is recorded; the healthy endpoint still lands.
	assert.Contains(t, report.ProviderErrors["samsara/assets_v1"], "503")
	assert.Equal(t, 1, report.FetchedBySource["samsara/vehicles_v2"])
	assert.Equal(t, 1, report.Inserted)
}

// slowAdapter blocks until its context is cancelled, like a pagination walk
// that never finishes inside the fetch deadline.
type slowAdapter struct{}

func (slowAdapter) Source() string   { return provider.SourceCAT }
func (slowAdapter) Category() string { return provider.CategoryCATFleet }
func (slowAdapter) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_FetchTimeoutIsPerAdapter(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()

	healthy := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, []models.RawRecord{
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T1", "Truck 1", 46.2090, -119.1200, now.Add(-time.Hour))},
	})

	orch := New(repo, []provider.Adapter{slowAdapter{}, healthy}, normalizer.Default(), nil, Options{
		OrganizationID: orgID,
		FetchTimeout:   10 * time.Millisecond,
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	// The deadline bounds each adapter separately; the fast one is untouched.
	assert.Contains(t, report.ProviderErrors["cat/cat_fleet"], "deadline")
	assert.Equal(t, 1, report.Inserted)
}

func TestRun_BlocklistedVehicle(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()

	_, err := repo.UpsertVehicle(context.Background(), orgID, "T1", provider.SourceSamsara, "Truck 1", "vehicle")
	require.NoError(t, err)
	require.True(t, repo.SetVehicleDeleted(orgID, "T1", provider.SourceSamsara, true))

	adapter := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, []models.RawRecord{
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T1", "Truck 1", 46.2090, -119.1200, now.Add(-time.Hour))},
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T2", "Truck 2", 46.2091, -119.1201, now.Add(-time.Hour))},
	})

	orch := New(repo, []provider.Adapter{adapter}, normalizer.Default(), nil, Options{OrganizationID: orgID})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.SkippedBlocklisted)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 1, repo.PositionCount())

	// The identity row still refreshed its last-seen time.
	v, ok := repo.Vehicle(orgID, "T1", provider.SourceSamsara)
	require.True(t, ok)
	assert.True(t, v.IsDeleted)
	_, ok = repo.Position(v.ID)
	assert.False(t, ok)
}

func TestRun_PersistErrorsAreCounted(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	repo.PositionErr = errors.New("connection reset")
	now := time.Now().UTC()

	adapter := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, []models.RawRecord{
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T1", "Truck 1", 46.2090, -119.1200, now.Add(-time.Hour))},
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T2", "Truck 2", 46.2091, -119.1201, now.Add(-time.Hour))},
	})

	orch := New(repo, []provider.Adapter{adapter}, normalizer.Default(), nil, Options{OrganizationID: orgID})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PersistErrors)
	assert.Equal(t, 0, report.Inserted)
	// Failed persists never show up in the assignment buckets.
	assert.Equal(t, 0, report.Assignments.Unassigned)
	assert.Empty(t, report.Assignments.BySite)
}

func TestRun_NoSitesConfigured(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()

	adapter := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, []models.RawRecord{
		{Source: provider.SourceSamsara, Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload("T1", "Truck 1", 46.2090, -119.1200, now.Add(-time.Hour))},
	})

	orch := New(repo, []provider.Adapter{adapter}, normalizer.Default(), nil, Options{OrganizationID: orgID})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Assignments.NoSites)
	assert.Equal(t, 0, report.Assignments.Unassigned)
	assert.Equal(t, 1, report.Inserted)
}

func TestRun_ManyVehiclesAcrossShards(t *testing.T) {
	orgID := uuid.New()
	repo := repository.NewMemoryRepository()
	now := time.Now().UTC()

	var records []models.RawRecord
	for i := 0; i < 50; i++ {
		records = append(records, models.RawRecord{
			Source:   provider.SourceSamsara,
			Category: provider.CategoryVehiclesV2,
			Payload: vehiclePayload(fmt.Sprintf("V-%02d", i), fmt.Sprintf("Truck %d", i),
				46.2+float64(i)*0.001, -119.1, now.Add(-time.Minute)),
		})
	}
	adapter := fixture.New(provider.SourceSamsara, provider.CategoryVehiclesV2, records)

	orch := New(repo, []provider.Adapter{adapter}, normalizer.Default(), nil, Options{
		OrganizationID: orgID,
		PersistWorkers: 3,
	})

	report, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, report.Inserted)
	assert.Equal(t, 50, repo.PositionCount())
}

func TestShardFor(t *testing.T) {
	// Same vehicle key always lands on the same shard.
	a := shardFor("V-1", "samsara", 4)
	b := shardFor("V-1", "samsara", 4)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 4)

	// The separator keeps "ab"+"c" and "a"+"bc" from aliasing.
	assert.NotEqual(t, shardFor("ab", "c", 1<<30), shardFor("a", "bc", 1<<30))
}
