package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_attachments",
		SQL: `CREATE TABLE IF NOT EXISTS attachments (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id       TEXT        NOT NULL,
  original_name  TEXT        NOT NULL,
  declared_mime  TEXT        NOT NULL DEFAULT '',
  detected_mime  TEXT        NOT NULL,
  size_bytes     BIGINT      NOT NULL CHECK (size_bytes >= 0),
  content_digest VARCHAR(64) NOT NULL,
  payload        BYTEA       NOT NULL,
  scan_status    TEXT        NOT NULL,
  is_deleted     BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_attachments_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_attachments_owner_id ON attachments (owner_id);`,
	},
	{
		// Non-unique: duplicate content is allowed unless strict dedup is
		// enforced at the service layer.
		Name: "create_index_attachments_content_digest",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_attachments_content_digest ON attachments (content_digest);`,
	},
	{
		Name: "create_index_attachments_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_attachments_created_at ON attachments (created_at);`,
	},
	{
		Name: "create_table_audit_logs",
		SQL: `CREATE TABLE IF NOT EXISTS audit_logs (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  actor_id      TEXT        NOT NULL,
  action        TEXT        NOT NULL,
  resource_type TEXT        NOT NULL,
  resource_id   TEXT        NOT NULL DEFAULT '',
  ip_address    TEXT        NOT NULL DEFAULT '',
  metadata      JSONB,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audit_logs_actor_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_id ON audit_logs (actor_id);`,
	},
	{
		Name: "create_index_audit_logs_action",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action);`,
	},
	{
		Name: "create_index_audit_logs_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at);`,
	},
}

// EnsureMigrated checks if the 'attachments' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.attachments') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
