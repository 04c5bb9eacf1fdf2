package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var tables = []string{"subjects", "vaccines"}

// Migrate applies every embedded migration in file order. Statements use
// IF NOT EXISTS, so running it again is a no-op.
func (d *DB) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(body)) {
			if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
				d.logger.Error("migration failed", "file", name, "error", err)
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
		d.logger.Debug("migration applied", "file", name)
	}
	return nil
}

func splitStatements(body string) []string {
	var lines []string
	for _, l := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "--") {
			continue
		}
		lines = append(lines, l)
	}
	var out []string
	for _, s := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
