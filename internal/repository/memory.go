package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foresyt/fleetsync/internal/models"
)

// MemoryRepository is an in-memory Repository used by tests and dry runs.
type MemoryRepository struct {
	mu        sync.RWMutex
	sites     []models.JobSite
	vehicles  map[vehicleKey]*models.VehicleIdentity
	positions map[uuid.UUID]models.VehiclePosition

	// PositionErr, when set, is returned by every UpsertPosition call.
	// Tests use it to exercise the persist-failure counters.
	PositionErr error
}

type vehicleKey struct {
	orgID        uuid.UUID
	externalID   string
	sourceSystem string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		vehicles:  make(map[vehicleKey]*models.VehicleIdentity),
		positions: make(map[uuid.UUID]models.VehiclePosition),
	}
}

func (r *MemoryRepository) ListJobSites(ctx context.Context, orgID uuid.UUID) ([]models.JobSite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.JobSite, len(r.sites))
	copy(out, r.sites)
	return out, nil
}

func (r *MemoryRepository) CreateJobSite(ctx context.Context, orgID uuid.UUID, site models.JobSite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sites {
		if s.Code == site.Code {
			return ErrSiteExists
		}
	}
	if site.ID == uuid.Nil {
		site.ID = uuid.New()
	}
	r.sites = append(r.sites, site)
	return nil
}

func (r *MemoryRepository) UpsertVehicle(ctx context.Context, orgID uuid.UUID, externalID, sourceSystem, name, vtype string) (models.VehicleIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := vehicleKey{orgID: orgID, externalID: externalID, sourceSystem: sourceSystem}
	v, ok := r.vehicles[key]
	if !ok {
		v = &models.VehicleIdentity{
			ID:             uuid.New(),
			OrganizationID: orgID,
			ExternalID:     externalID,
			SourceSystem:   sourceSystem,
		}
		r.vehicles[key] = v
	}

	if name != "" {
		v.Name = name
	}
	if vtype != "" {
		v.Type = vtype
	}
	v.LastSeenAt = time.Now().UTC()

	return *v, nil
}

func (r *MemoryRepository) UpsertPosition(ctx context.Context, pos models.VehiclePosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PositionErr != nil {
		return r.PositionErr
	}
	pos.UpdatedAt = time.Now().UTC()
	r.positions[pos.VehicleID] = pos
	return nil
}

func (r *MemoryRepository) Close() {}

// SetVehicleDeleted flips the blocklist flag the way an out-of-band
// operator action would.
func (r *MemoryRepository) SetVehicleDeleted(orgID uuid.UUID, externalID, sourceSystem string, deleted bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[vehicleKey{orgID: orgID, externalID: externalID, sourceSystem: sourceSystem}]
	if !ok {
		return false
	}
	v.IsDeleted = deleted
	return true
}

// Position returns the stored latest position for a vehicle.
func (r *MemoryRepository) Position(vehicleID uuid.UUID) (models.VehiclePosition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[vehicleID]
	return pos, ok
}

// Vehicle returns the stored identity for a key.
func (r *MemoryRepository) Vehicle(orgID uuid.UUID, externalID, sourceSystem string) (models.VehicleIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[vehicleKey{orgID: orgID, externalID: externalID, sourceSystem: sourceSystem}]
	if !ok {
		return models.VehicleIdentity{}, false
	}
	return *v, true
}

// PositionCount reports how many vehicles currently have a position row.
func (r *MemoryRepository) PositionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}
