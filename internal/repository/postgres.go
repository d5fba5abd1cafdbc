package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foresyt/fleetsync/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a pooled PostgreSQL repository and verifies
// the connection.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// ListJobSites returns the organization's work sites ordered by code.
func (r *PostgresRepository) ListJobSites(ctx context.Context, orgID uuid.UUID) ([]models.JobSite, error) {
	query := `
		SELECT id, code, name, latitude, longitude
		FROM job_sites
		WHERE organization_id = $1
		ORDER BY code
	`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job sites: %w", err)
	}
	defer rows.Close()

	sites := []models.JobSite{}
	for rows.Next() {
		var s models.JobSite
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Latitude, &s.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan job site: %w", err)
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sites, nil
}

// CreateJobSite inserts a work site.
func (r *PostgresRepository) CreateJobSite(ctx context.Context, orgID uuid.UUID, site models.JobSite) error {
	query := `
		INSERT INTO job_sites (id, organization_id, code, name, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	id := site.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.pool.Exec(ctx, query, id, orgID, site.Code, site.Name, site.Latitude, site.Longitude)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSiteExists
		}
		return fmt.Errorf("failed to create job site: %w", err)
	}

	return nil
}

// UpsertVehicle creates or refreshes the identity row and returns it with
// the current blocklist flag. Empty name/type never clobber stored values.
func (r *PostgresRepository) UpsertVehicle(ctx context.Context, orgID uuid.UUID, externalID, sourceSystem, name, vtype string) (models.VehicleIdentity, error) {
	query := `
		INSERT INTO vehicles (id, organization_id, external_id, source_system, name, type, last_seen_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
		ON CONFLICT (organization_id, external_id, source_system)
		DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), vehicles.name),
			type = COALESCE(NULLIF(EXCLUDED.type, ''), vehicles.type),
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING id, COALESCE(name, ''), COALESCE(type, ''), is_deleted, last_seen_at
	`

	v := models.VehicleIdentity{
		OrganizationID: orgID,
		ExternalID:     externalID,
		SourceSystem:   sourceSystem,
	}
	err := r.pool.QueryRow(ctx, query, uuid.New(), orgID, externalID, sourceSystem, name, vtype, time.Now().UTC()).
		Scan(&v.ID, &v.Name, &v.Type, &v.IsDeleted, &v.LastSeenAt)
	if err != nil {
		return models.VehicleIdentity{}, fmt.Errorf("failed to upsert vehicle: %w", err)
	}

	return v, nil
}

// UpsertPosition overwrites the latest-position row for the vehicle.
func (r *PostgresRepository) UpsertPosition(ctx context.Context, pos models.VehiclePosition) error {
	query := `
		INSERT INTO vehicle_positions (
			vehicle_id, organization_id, latitude, longitude, heading,
			speed_kph, odometer_km, timestamp_utc, source_raw, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (vehicle_id)
		DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			heading = EXCLUDED.heading,
			speed_kph = EXCLUDED.speed_kph,
			odometer_km = EXCLUDED.odometer_km,
			timestamp_utc = EXCLUDED.timestamp_utc,
			source_raw = EXCLUDED.source_raw,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		pos.VehicleID, pos.OrganizationID, pos.Latitude, pos.Longitude, pos.Heading,
		pos.SpeedKPH, pos.OdometerKM, pos.Timestamp, pos.Raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}
