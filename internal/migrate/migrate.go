// Package migrate applies the embedded schema migrations with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrations embed.FS

// Dialect selects the migration set and goose dialect.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) gooseDialect() (goose.Dialect, error) {
	switch d {
	case Postgres:
		return goose.DialectPostgres, nil
	case SQLite:
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unknown migration dialect %q", d)
	}
}

// Up migrates db to the latest schema version for dialect.
func Up(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	gd, err := dialect.gooseDialect()
	if err != nil {
		return err
	}

	dir, err := fs.Sub(migrations, string(dialect))
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dialect, err)
	}

	provider, err := goose.NewProvider(gd, db, dir)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, res := range results {
		logger.Info("migration applied",
			slog.String("dialect", string(dialect)),
			slog.String("source", res.Source.Path),
			slog.Duration("duration", res.Duration),
		)
	}

	return nil
}
