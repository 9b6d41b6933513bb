package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreateSQLMigrationSortsAfterExistingVersions(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "20300101000000_create_raw_trips.sql")
	if err := os.WriteFile(existing, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("seed migration: %v", err)
	}

	// A clock behind the newest file must not produce an older version.
	path, err := createSQLMigrationAt(dir, "add trip index", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("createSQLMigrationAt: %v", err)
	}
	if got := filepath.Base(path); got != "20300101000001_add_trip_index.sql" {
		t.Fatalf("expected version bumped past existing, got %q", got)
	}

	later := time.Date(2031, 6, 1, 12, 0, 0, 0, time.UTC)
	path, err = createSQLMigrationAt(dir, "drop legacy column", later)
	if err != nil {
		t.Fatalf("createSQLMigrationAt: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "20310601120000_") {
		t.Fatalf("expected clock version, got %q", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migrations should validate: %v", err)
	}
}

func TestValidateDirRejectsUnbalancedStatementBlocks(t *testing.T) {
	cases := map[string]string{
		"unterminated": "-- +goose Up\n-- +goose StatementBegin\nCREATE TABLE t (id int);\n-- +goose Down\nDROP TABLE t;\n",
		"stray end":    "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
		"nested":       "-- +goose Up\n-- +goose StatementBegin\n-- +goose StatementBegin\n-- +goose StatementEnd\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "20260101090000_bad.sql"), []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := ValidateDir(dir); err == nil {
				t.Fatalf("expected %s block to be rejected", name)
			}
		})
	}
}
