package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// ValidateDir checks the trip schema migrations before goose sees them: every
// file is named YYYYMMDDHHMMSS_name.sql with a unique version, carries both
// goose sections, and closes every StatementBegin it opens. The multi-statement
// CHECK and index blocks in the trip tables rely on that pairing.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{} // version -> filename

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}

		version := m[1]
		if prev, ok := seen[version]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", version, prev, name)
		}
		seen[version] = name

		full := filepath.Join(dir, name)
		b, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read file %q: %w", full, err)
		}

		txt := string(b)
		if !strings.Contains(txt, "-- +goose Up") {
			return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
		}
		if !strings.Contains(txt, "-- +goose Down") {
			return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
		}
		if err := checkStatementBlocks(txt); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}

	return nil
}

func checkStatementBlocks(txt string) error {
	open := false
	for i, line := range strings.Split(txt, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			if open {
				return fmt.Errorf("line %d: StatementBegin inside an open block", i+1)
			}
			open = true
		case "-- +goose StatementEnd":
			if !open {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", i+1)
			}
			open = false
		case "-- +goose Down":
			if open {
				return fmt.Errorf("line %d: Down section starts inside an open block", i+1)
			}
		}
	}
	if open {
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
