// Package syncer drives one full ingestion-reconciliation pass: fetch raw
// batches from every configured provider endpoint, normalize, dedupe,
// freshness-filter, persist latest positions, and report.
package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foresyt/fleetsync/internal/dedupe"
	"github.com/foresyt/fleetsync/internal/freshness"
	"github.com/foresyt/fleetsync/internal/geo"
	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/normalizer"
	"github.com/foresyt/fleetsync/internal/provider"
	"github.com/foresyt/fleetsync/internal/repository"
)

// State names the pipeline stages. A pass is strictly linear: Idle →
// Fetching → Normalizing → Deduping → Filtering → Persisting → Reporting →
// Idle, with no branching beyond per-record skip decisions.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateDeduping    State = "deduping"
	StateFiltering   State = "filtering"
	StatePersisting  State = "persisting"
	StateReporting   State = "reporting"
)

// Options configures one orchestrator.
type Options struct {
	OrganizationID uuid.UUID

	// FreshnessMaxAge is the staleness threshold; zero means the 14-day
	// default.
	FreshnessMaxAge time.Duration

	// MaxSiteDistance bounds nearest-site assignment; vehicles farther from
	// every site than this land in the unassigned bucket. Zero disables the
	// bound.
	MaxSiteDistance float64
	DistanceUnit    geo.Unit

	// FetchTimeout bounds each provider fetch. A timeout is a recoverable,
	// provider-scoped failure, not a pass-fatal error. Zero means no bound
	// beyond the adapter's own HTTP timeout.
	FetchTimeout time.Duration

	// PersistWorkers is the number of persistence shards. Writes are
	// parallelized across shards but serialized within one, so the
	// overwrite-latest position row of any single vehicle is never written
	// concurrently.
	PersistWorkers int
}

// Orchestrator runs sync passes. It is not safe for concurrent passes;
// cross-process overlap is handled by the pass lock, in-process callers run
// one pass at a time.
type Orchestrator struct {
	adapters []provider.Adapter
	registry *normalizer.Registry
	repo     repository.Repository
	log      *slog.Logger
	opts     Options

	mu    sync.RWMutex
	state State
}

// New creates an orchestrator.
func New(repo repository.Repository, adapters []provider.Adapter, registry *normalizer.Registry, log *slog.Logger, opts Options) *Orchestrator {
	if opts.FreshnessMaxAge <= 0 {
		opts.FreshnessMaxAge = freshness.DefaultMaxAge
	}
	if opts.PersistWorkers <= 0 {
		opts.PersistWorkers = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		adapters: adapters,
		registry: registry,
		repo:     repo,
		log:      log,
		opts:     opts,
		state:    StateIdle,
	}
}

// State returns the current pipeline stage.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.log.Debug("pipeline state", "state", string(s))
}

// Run executes one full pass and returns its report. The returned error is
// non-nil only for pass-fatal conditions: the job-site snapshot or the
// persistence layer being unreachable. Per-provider and per-record failures
// are absorbed into counters.
func (o *Orchestrator) Run(ctx context.Context) (*models.PassReport, error) {
	report := models.NewPassReport()
	defer o.setState(StateIdle)

	// The site list is read once and held for the whole pass so concurrent
	// site edits elsewhere cannot produce a mid-pass inconsistency. It also
	// proves the store is reachable before any provider traffic is spent.
	sites, err := o.repo.ListJobSites(ctx, o.opts.OrganizationID)
	if err != nil {
		return report, fmt.Errorf("load job sites: %w", err)
	}

	o.setState(StateFetching)
	raw := o.fetchAll(ctx, report)

	o.setState(StateNormalizing)
	normalized := o.normalize(raw, report)

	o.setState(StateDeduping)
	deduped := dedupe.Dedupe(normalized)
	report.RemovedDedupe = len(normalized) - len(deduped)

	o.setState(StateFiltering)
	fresh, stale := freshness.Filter(deduped, time.Now().UTC(), o.opts.FreshnessMaxAge)
	report.RemovedStale = len(stale)
	for i := range stale {
		o.log.Info("dropping stale position",
			"name", stale[i].Name,
			"external_id", stale[i].ExternalID,
			"last_seen", stale[i].Timestamp,
		)
	}

	o.setState(StatePersisting)
	persisted := o.persist(ctx, fresh, report)

	o.setState(StateReporting)
	o.assign(persisted, sites, report)
	report.Finished = time.Now().UTC()

	return report, nil
}

// fetchAll runs every adapter concurrently. Each fetch is independent and
// isolated: a failure contributes zero records and one provider-error entry
// without blocking the others. Results are joined back in adapter order so
// downstream stages see a deterministic sequence.
func (o *Orchestrator) fetchAll(ctx context.Context, report *models.PassReport) []models.RawRecord {
	type result struct {
		records []models.RawRecord
		err     error
	}

	results := make([]result, len(o.adapters))
	var wg sync.WaitGroup

	for i, adapter := range o.adapters {
		wg.Add(1)
		go func(i int, a provider.Adapter) {
			defer wg.Done()

			fetchCtx := ctx
			if o.opts.FetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, o.opts.FetchTimeout)
				defer cancel()
			}

			records, err := a.Fetch(fetchCtx)
			results[i] = result{records: records, err: err}
		}(i, adapter)
	}
	wg.Wait()

	var joined []models.RawRecord
	for i, adapter := range o.adapters {
		key := adapter.Source() + "/" + adapter.Category()
		if results[i].err != nil {
			report.ProviderErrors[key] = results[i].err.Error()
			o.log.Error("provider fetch failed", "source", key, "error", results[i].err)
			continue
		}
		report.FetchedBySource[key] = len(results[i].records)
		joined = append(joined, results[i].records...)
	}
	return joined
}

func (o *Orchestrator) normalize(raw []models.RawRecord, report *models.PassReport) []models.LocationRecord {
	normalized := make([]models.LocationRecord, 0, len(raw))
	for i := range raw {
		rec, ok := o.registry.Normalize(raw[i])
		if !ok {
			report.SkippedNormalize++
			continue
		}
		normalized = append(normalized, *rec)
	}
	report.Normalized = len(normalized)
	return normalized
}

// persist writes each surviving record through shard workers. Sharding by
// vehicle key keeps writes to one vehicle on one worker, so the
// overwrite-latest row is written in a defined order, while distinct
// vehicles still persist in parallel. Returns the records whose position
// made it to the store.
func (o *Orchestrator) persist(ctx context.Context, records []models.LocationRecord, report *models.PassReport) []models.LocationRecord {
	workers := o.opts.PersistWorkers
	shards := make([][]models.LocationRecord, workers)
	for i := range records {
		n := shardFor(records[i].ExternalID, records[i].SourceSystem, workers)
		shards[n] = append(shards[n], records[i])
	}

	var (
		mu        sync.Mutex
		persisted []models.LocationRecord
		wg        sync.WaitGroup
	)

	for _, shard := range shards {
		if len(shard) == 0 {
			continue
		}
		wg.Add(1)
		go func(shard []models.LocationRecord) {
			defer wg.Done()
			for i := range shard {
				outcome := o.persistOne(ctx, &shard[i])

				mu.Lock()
				switch outcome {
				case outcomeInserted:
					report.Inserted++
					persisted = append(persisted, shard[i])
				case outcomeBlocklisted:
					report.SkippedBlocklisted++
				case outcomeError:
					report.PersistErrors++
				}
				mu.Unlock()
			}
		}(shard)
	}
	wg.Wait()

	return persisted
}

type persistOutcome int

const (
	outcomeInserted persistOutcome = iota
	outcomeBlocklisted
	outcomeError
)

func (o *Orchestrator) persistOne(ctx context.Context, rec *models.LocationRecord) persistOutcome {
	identity, err := o.repo.UpsertVehicle(ctx,
		o.opts.OrganizationID, rec.ExternalID, rec.SourceSystem, rec.Name, rec.VehicleType)
	if err != nil {
		o.log.Error("vehicle upsert failed",
			"external_id", rec.ExternalID, "source", rec.SourceSystem, "error", err)
		return outcomeError
	}

	if identity.IsDeleted {
		o.log.Info("skipping blocklisted vehicle",
			"name", identity.Name, "external_id", rec.ExternalID, "source", rec.SourceSystem)
		return outcomeBlocklisted
	}

	raw, err := json.Marshal(rec.Raw)
	if err != nil {
		raw = nil
	}

	err = o.repo.UpsertPosition(ctx, models.VehiclePosition{
		VehicleID:      identity.ID,
		OrganizationID: o.opts.OrganizationID,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		Heading:        rec.Heading,
		SpeedKPH:       rec.SpeedKPH,
		OdometerKM:     rec.OdometerKM,
		Timestamp:      rec.EventTime,
		Raw:            raw,
	})
	if err != nil {
		o.log.Error("position upsert failed",
			"name", identity.Name, "external_id", rec.ExternalID, "error", err)
		return outcomeError
	}

	return outcomeInserted
}

// assign buckets persisted vehicles by nearest work site for the report.
// The assignment is diagnostic output; it is never written to the position
// row.
func (o *Orchestrator) assign(records []models.LocationRecord, sites []models.JobSite, report *models.PassReport) {
	if len(sites) == 0 {
		report.Assignments.NoSites = true
		return
	}

	// Every site appears in the summary, zero-vehicle sites included.
	for i := range sites {
		report.Assignments.BySite[sites[i].Code] = 0
	}

	opts := geo.MatchOptions{MaxDistance: o.opts.MaxSiteDistance, Unit: o.opts.DistanceUnit}
	for i := range records {
		site, _, ok := geo.Nearest(records[i].Latitude, records[i].Longitude, sites, opts)
		if !ok {
			report.Assignments.Unassigned++
			continue
		}
		report.Assignments.BySite[site.Code]++
	}
}

func shardFor(externalID, sourceSystem string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(externalID))
	h.Write([]byte{0})
	h.Write([]byte(sourceSystem))
	return int(h.Sum32() % uint32(workers))
}
