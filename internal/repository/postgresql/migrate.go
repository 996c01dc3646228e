package postgresql

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/hours-watch/internal/pkg/database"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded migration in file name order. Statements are idempotent.
func Migrate(ctx context.Context, db *database.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	return WithTransaction(ctx, db, func(ctx context.Context) error {
		q := GetQuerier(ctx, db)
		for _, name := range names {
			sql, err := migrations.ReadFile(name)
			if err != nil {
				return err
			}
			if _, err := q.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
			slog.Debug("Migration applied", "name", name)
		}
		return nil
	})
}
