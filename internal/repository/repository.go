package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/foresyt/fleetsync/internal/models"
)

// ErrSiteExists is returned by CreateJobSite on a duplicate site code.
var ErrSiteExists = errors.New("job site code already exists")

// Repository is the persistence contract for vehicle identities, their
// latest positions, and the job-site snapshot. Identity upserts return the
// stored identity including the blocklist flag; the sync path never writes
// a position for a blocklisted vehicle.
type Repository interface {
	// ListJobSites returns the active work sites for an organization. The
	// orchestrator calls this once per pass and treats the result as an
	// immutable snapshot.
	ListJobSites(ctx context.Context, orgID uuid.UUID) ([]models.JobSite, error)

	// CreateJobSite inserts a work site. Returns ErrSiteExists on a code
	// collision within the organization.
	CreateJobSite(ctx context.Context, orgID uuid.UUID, site models.JobSite) error

	// UpsertVehicle creates the vehicle identity on first sighting and
	// refreshes name, type and last_seen_at on every later one. It never
	// changes is_deleted; that flag is operator-managed.
	UpsertVehicle(ctx context.Context, orgID uuid.UUID, externalID, sourceSystem, name, vtype string) (models.VehicleIdentity, error)

	// UpsertPosition overwrites the single latest-position row for a
	// vehicle. No history is kept.
	UpsertPosition(ctx context.Context, pos models.VehiclePosition) error

	Close()
}
