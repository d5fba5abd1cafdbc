package seeder

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/foresyt/fleetsync/internal/models"
)

type siteEntry struct {
	Code      string  `yaml:"code"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// LoadSites reads an operator-maintained YAML site list. Entries missing a
// code or name are rejected rather than silently skipped, since a bad site
// file poisons every assignment bucket downstream.
func LoadSites(path string) ([]models.JobSite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	var entries []siteEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse sites file %s: %w", path, err)
	}

	sites := make([]models.JobSite, 0, len(entries))
	for i, e := range entries {
		if e.Code == "" || e.Name == "" {
			return nil, fmt.Errorf("sites file %s: entry %d missing code or name", path, i)
		}
		sites = append(sites, models.JobSite{
			Code:      e.Code,
			Name:      e.Name,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
		})
	}
	return sites, nil
}
