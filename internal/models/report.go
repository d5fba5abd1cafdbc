package models

import "time"

// PassReport accumulates the per-stage counters for one sync pass. Every
// record that enters the pass is attributable to exactly one terminal
// counter, so the report alone answers "why is vehicle X missing".
type PassReport struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Fetch stage, keyed by "<source>/<category>".
	FetchedBySource map[string]int    `json:"fetched_by_source"`
	ProviderErrors  map[string]string `json:"provider_errors,omitempty"`

	Normalized       int `json:"normalized"`
	SkippedNormalize int `json:"skipped_normalize"`
	RemovedDedupe    int `json:"removed_dedupe"`
	RemovedStale     int `json:"removed_stale"`

	SkippedBlocklisted int `json:"skipped_blocklisted"`
	Inserted           int `json:"inserted"`
	PersistErrors      int `json:"persist_errors"`

	Assignments AssignmentSummary `json:"assignments"`
}

// AssignmentSummary buckets persisted vehicles by nearest work site.
// Unassigned counts vehicles whose nearest site exceeded the distance
// threshold; NoSites marks a pass that ran without any sites configured,
// which is a different situation than "all vehicles too far away".
type AssignmentSummary struct {
	NoSites    bool           `json:"no_sites"`
	BySite     map[string]int `json:"by_site,omitempty"`
	Unassigned int            `json:"unassigned"`
}

// NewPassReport returns a report with the map fields initialized.
func NewPassReport() *PassReport {
	return &PassReport{
		Started:         time.Now().UTC(),
		FetchedBySource: make(map[string]int),
		ProviderErrors:  make(map[string]string),
		Assignments:     AssignmentSummary{BySite: make(map[string]int)},
	}
}

// TotalFetched sums the per-source fetch counters.
func (r *PassReport) TotalFetched() int {
	total := 0
	for _, n := range r.FetchedBySource {
		total += n
	}
	return total
}
