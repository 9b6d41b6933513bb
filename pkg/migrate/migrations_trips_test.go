package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tripdash/tripdash-backend/pkg/enums"
	"github.com/tripdash/tripdash-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return strings.Join(strings.Fields(string(data)), " ")
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestCleanedTripsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_cleaned_trips")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS cleaned_trips",
		"booking_id TEXT PRIMARY KEY",
		"unified_cancellation_reason TEXT NOT NULL",
		"CHECK (driver_rating BETWEEN 0 AND 5)",
		"CHECK (customer_rating BETWEEN 0 AND 5)",
		"DROP TABLE IF EXISTS cleaned_trips",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEnrichedTripsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_enriched_trips")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS enriched_trips",
		"revenue_per_km NUMERIC(10,2)",
		"CHECK (driver_rating BETWEEN 0 AND 5)",
		"CHECK (is_cancelled = (booking_status <> '" + enums.BookingStatusCompleted.String() + "'))",
		"DROP TABLE IF EXISTS enriched_trips",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRawTripsMigrationKeepsSourceColumnsNullable(t *testing.T) {
	content := readMigration(t, "create_raw_trips")
	for _, column := range []string{"booking_id", "cancelled_by_customer", "driver_rating", "payment_method"} {
		if strings.Contains(content, column+" TEXT NOT NULL") {
			t.Errorf("raw column %s must stay nullable", column)
		}
	}
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Trip Index!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_trip_index.sql") {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}
