package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestDataSourceFor(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"relative sqlite", "sqlite://data/geokeeper.db", "sqlite3", "data/geokeeper.db?_foreign_keys=on", false},
		{"absolute sqlite", "sqlite:///var/lib/gk.db", "sqlite3", "/var/lib/gk.db?_foreign_keys=on", false},
		{"postgres", "postgres://gk@db/geokeeper", "postgres", "postgres://gk@db/geokeeper", false},
		{"postgresql alias", "postgresql://gk@db/geokeeper", "postgres", "postgresql://gk@db/geokeeper", false},
		{"unsupported scheme", "mysql://db/geokeeper", "", "", true},
		{"sqlite without path", "sqlite://", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := dataSourceFor(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %s", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("dataSourceFor failed: %v", err)
			}
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("got (%s, %s), want (%s, %s)", driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()

	applied, err := MigrateUp(ctx, conn, zerolog.Nop())
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations applied, got %d", applied)
	}

	t.Run("idempotent", func(t *testing.T) {
		again, err := MigrateUp(ctx, conn, zerolog.Nop())
		if err != nil {
			t.Fatalf("second MigrateUp failed: %v", err)
		}
		if again != 0 {
			t.Errorf("expected no pending migrations, got %d", again)
		}
	})

	t.Run("status", func(t *testing.T) {
		statuses, err := MigrateStatus(ctx, conn)
		if err != nil {
			t.Fatalf("MigrateStatus failed: %v", err)
		}
		if len(statuses) != 2 {
			t.Fatalf("expected 2 statuses, got %d", len(statuses))
		}
		if statuses[0].ID != "001_initial_schema.sql" || statuses[1].ID != "002_seed_reference_catalog.sql" {
			t.Errorf("unexpected migration order: %s, %s", statuses[0].ID, statuses[1].ID)
		}
		for _, s := range statuses {
			if !s.Applied || s.AppliedAt == nil {
				t.Errorf("migration %s not recorded as applied", s.ID)
			}
		}
	})

	t.Run("tampered checksum", func(t *testing.T) {
		if _, err := conn.ExecContext(ctx, "UPDATE migrations SET checksum = 'x' WHERE migration_id = '002_seed_reference_catalog.sql'"); err != nil {
			t.Fatal(err)
		}
		if _, err := MigrateUp(ctx, conn, zerolog.Nop()); err == nil {
			t.Error("expected checksum mismatch error")
		}
	})
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer conn.Close()
	if _, err := MigrateUp(ctx, conn, zerolog.Nop()); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	q, err := LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}

	var next int
	if err := q.GetContext(ctx, "next-crs-position", &next); err != nil {
		t.Fatalf("next-crs-position failed: %v", err)
	}
	if next != 16 {
		t.Errorf("expected next position 16 after seed, got %d", next)
	}

	if _, err := q.ExecContext(ctx, "no-such-query"); err == nil {
		t.Error("expected error for unknown query name")
	}

	t.Run("rollback on error", func(t *testing.T) {
		err := q.InTx(ctx, func(tx *Tx) error {
			if _, err := tx.ExecContext(ctx, "delete-operation-steps", "EPSG:1314"); err != nil {
				return err
			}
			return context.Canceled
		})
		if err != context.Canceled {
			t.Fatalf("expected callback error, got %v", err)
		}

		var count int
		if err := conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM operation_steps WHERE operation_code = 'EPSG:1314'"); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("expected rolled back step to remain, got %d rows", count)
		}
	})
}
