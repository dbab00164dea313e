package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

type dialect struct {
	serialPK  string
	timestamp string
}

var dialects = map[string]dialect{
	"postgres": {serialPK: "BIGSERIAL PRIMARY KEY", timestamp: "TIMESTAMPTZ"},
	"sqlite3":  {serialPK: "INTEGER PRIMARY KEY AUTOINCREMENT", timestamp: "TIMESTAMP"},
}

func schemaStatements(d dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wmbs_workflow (
			id %s,
			spec TEXT NOT NULL,
			owner TEXT NOT NULL,
			name TEXT NOT NULL UNIQUE
		)`, d.serialPK),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wmbs_fileset (
			id %s,
			name TEXT NOT NULL,
			created_at %s NOT NULL
		)`, d.serialPK, d.timestamp),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wmbs_file (
			id %s,
			lfn TEXT NOT NULL UNIQUE,
			size BIGINT NOT NULL DEFAULT 0,
			events BIGINT NOT NULL DEFAULT 0
		)`, d.serialPK),
		`CREATE TABLE IF NOT EXISTS wmbs_fileset_files (
			fileset_id BIGINT NOT NULL REFERENCES wmbs_fileset(id) ON DELETE CASCADE,
			file_id BIGINT NOT NULL REFERENCES wmbs_file(id),
			PRIMARY KEY (fileset_id, file_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wmbs_subscription (
			id %s,
			fileset_id BIGINT NOT NULL REFERENCES wmbs_fileset(id),
			workflow_id BIGINT NOT NULL REFERENCES wmbs_workflow(id)
		)`, d.serialPK),
		`CREATE TABLE IF NOT EXISTS wmbs_sub_files (
			subscription_id BIGINT NOT NULL REFERENCES wmbs_subscription(id) ON DELETE CASCADE,
			file_id BIGINT NOT NULL REFERENCES wmbs_file(id),
			state TEXT NOT NULL,
			PRIMARY KEY (subscription_id, file_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wmbs_job (
			id %s,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, d.serialPK, d.timestamp, d.timestamp),
		`CREATE TABLE IF NOT EXISTS wmbs_job_assoc (
			job_id BIGINT NOT NULL REFERENCES wmbs_job(id) ON DELETE CASCADE,
			file_id BIGINT NOT NULL REFERENCES wmbs_file(id),
			PRIMARY KEY (job_id, file_id)
		)`,
		`CREATE TABLE IF NOT EXISTS wmbs_job_output (
			job_id BIGINT NOT NULL REFERENCES wmbs_job(id) ON DELETE CASCADE,
			file_id BIGINT NOT NULL REFERENCES wmbs_file(id),
			PRIMARY KEY (job_id, file_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wmbs_jobgroup (
			id %s,
			uid TEXT NOT NULL UNIQUE,
			subscription_id BIGINT NOT NULL REFERENCES wmbs_subscription(id),
			output_fileset_id BIGINT NOT NULL REFERENCES wmbs_fileset(id),
			created_at %s NOT NULL
		)`, d.serialPK, d.timestamp),
		`CREATE TABLE IF NOT EXISTS wmbs_jobgroup_job (
			jobgroup_id BIGINT NOT NULL REFERENCES wmbs_jobgroup(id) ON DELETE CASCADE,
			job_id BIGINT NOT NULL REFERENCES wmbs_job(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobgroup_job_group ON wmbs_jobgroup_job(jobgroup_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobgroup_subscription ON wmbs_jobgroup(subscription_id, id)`,
	}
}

// Migrate creates the job group tables and the collaborator tables they reference
func (s *Storage) Migrate(ctx context.Context, db *sqlx.DB) error {
	d, ok := dialects[db.DriverName()]
	if !ok {
		return fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	for _, stmt := range schemaStatements(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	s.logger.Info("Database schema ready", slog.String("driver", db.DriverName()))
	return nil
}
