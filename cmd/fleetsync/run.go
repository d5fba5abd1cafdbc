package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/foresyt/fleetsync/internal/geo"
	"github.com/foresyt/fleetsync/internal/metrics"
	"github.com/foresyt/fleetsync/internal/normalizer"
	"github.com/foresyt/fleetsync/internal/notify"
	"github.com/foresyt/fleetsync/internal/passlock"
	"github.com/foresyt/fleetsync/internal/provider"
	"github.com/foresyt/fleetsync/internal/provider/cat"
	"github.com/foresyt/fleetsync/internal/provider/fixture"
	"github.com/foresyt/fleetsync/internal/provider/samsara"
	"github.com/foresyt/fleetsync/internal/report"
	"github.com/foresyt/fleetsync/internal/repository"
	"github.com/foresyt/fleetsync/internal/syncer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync pass",
	Long:  "Fetch, normalize, dedupe, filter and persist the latest positions for every configured provider.",
	Example: `  fleetsync run
  fleetsync run --config /etc/fleetsync/config.yaml
  fleetsync run --fixture testdata/fleet.json --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fixturePath, _ := cmd.Flags().GetString("fixture")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx := cmd.Context()

		orgID, err := organizationID(dryRun)
		if err != nil {
			return err
		}

		adapters, err := buildAdapters(fixturePath)
		if err != nil {
			return err
		}
		if len(adapters) == 0 {
			return fmt.Errorf("no providers enabled; enable samsara/cat in config or pass --fixture")
		}

		repo, err := buildRepository(ctx, dryRun)
		if err != nil {
			return err
		}
		defer repo.Close()

		// The pass lock keeps an overrunning cron schedule from racing two
		// passes into the store.
		if cfg.Redis.Enabled {
			lock, err := passlock.NewFromURL(cfg.Redis.URL, cfg.Redis.LockTTL)
			if err != nil {
				return fmt.Errorf("pass lock: %w", err)
			}
			defer lock.Close()

			if err := lock.Acquire(ctx); err != nil {
				if errors.Is(err, passlock.ErrHeld) {
					logger.Warn("another pass is running, skipping this invocation")
					return nil
				}
				return err
			}
			defer lock.Release(context.Background())
		}

		orch := syncer.New(repo, adapters, normalizer.Default(), logger, syncer.Options{
			OrganizationID:  orgID,
			FreshnessMaxAge: cfg.Sync.FreshnessMaxAge,
			MaxSiteDistance: cfg.Sync.MaxSiteDistance,
			DistanceUnit:    geo.ParseUnit(cfg.Sync.DistanceUnit),
			FetchTimeout:    cfg.Sync.FetchTimeout,
			PersistWorkers:  cfg.Sync.PersistWorkers,
		})

		passReport, err := orch.Run(ctx)
		if err != nil {
			return fmt.Errorf("sync pass failed: %w", err)
		}

		report.Render(os.Stdout, passReport)

		metrics.Record(passReport)
		if cfg.Metrics.Enabled {
			if err := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
				logger.Warn("metrics push failed", "error", err)
			}
		}

		if cfg.NATS.Enabled {
			publisher, err := notify.NewPublisher(notify.Config{
				URL:     cfg.NATS.URL,
				Subject: cfg.NATS.Subject,
				Timeout: cfg.NATS.Timeout,
			})
			if err != nil {
				logger.Warn("report publish skipped", "error", err)
			} else {
				defer publisher.Close()
				if err := publisher.Publish(passReport); err != nil {
					logger.Warn("report publish failed", "error", err)
				}
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("fixture", "", "replay raw records from a fixture file instead of live providers")
	runCmd.Flags().Bool("dry-run", false, "use an in-memory store; nothing is persisted")
}

func organizationID(dryRun bool) (uuid.UUID, error) {
	if cfg.Organization.ID == "" {
		if dryRun {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("organization.id is not configured")
	}
	id, err := uuid.Parse(cfg.Organization.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid organization.id: %w", err)
	}
	return id, nil
}

func buildAdapters(fixturePath string) ([]provider.Adapter, error) {
	if fixturePath != "" {
		return fixture.Load(fixturePath)
	}

	var adapters []provider.Adapter
	if cfg.Samsara.Enabled {
		adapters = append(adapters, samsara.NewClient(cfg.Samsara).Adapters()...)
	}
	if cfg.CAT.Enabled {
		adapters = append(adapters, cat.NewClient(cfg.CAT))
	}
	return adapters, nil
}

func buildRepository(ctx context.Context, dryRun bool) (repository.Repository, error) {
	if dryRun {
		return repository.NewMemoryRepository(), nil
	}

	connString := cfg.Database.Postgres.ConnString()

	if err := applyMigrations(connString); err != nil {
		return nil, err
	}

	repo, err := repository.NewPostgresRepository(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return repo, nil
}

func applyMigrations(connString string) error {
	m, err := migrate.New(cfg.Database.Postgres.Migrations, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
