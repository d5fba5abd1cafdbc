// Package fixture provides a file-backed provider adapter. It is used by
// tests and by dry runs against payloads captured from the real APIs or
// generated by the seeder.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/foresyt/fleetsync/internal/models"
	"github.com/foresyt/fleetsync/internal/provider"
)

// Adapter replays a fixed batch of raw records for one source/category.
type Adapter struct {
	source   string
	category string
	records  []models.RawRecord
}

// New builds an adapter around an in-memory batch.
func New(source, category string, records []models.RawRecord) *Adapter {
	return &Adapter{source: source, category: category, records: records}
}

func (a *Adapter) Source() string   { return a.source }
func (a *Adapter) Category() string { return a.category }

// Fetch returns the batch unchanged.
func (a *Adapter) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.records, nil
}

// Load reads a JSON fixture file (a flat array of raw records) and returns
// one adapter per source/category pair found in it, in stable order.
func Load(path string) ([]provider.Adapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var records []models.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	groups := make(map[string][]models.RawRecord)
	for _, rec := range records {
		key := rec.Source + "/" + rec.Category
		groups[key] = append(groups[key], rec)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	adapters := make([]provider.Adapter, 0, len(keys))
	for _, key := range keys {
		batch := groups[key]
		adapters = append(adapters, New(batch[0].Source, batch[0].Category, batch))
	}
	return adapters, nil
}
