package cachestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"gamesort/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] upgrades a database from version i+1 to i+2. Fresh databases
// run schema.sql directly and start at schemaVersion.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_tag_mappings_priority ON tag_mappings(priority DESC, source_tag);`,
}

var schemaVersion = len(migrations) + 1

// ErrSchemaMismatch reports a database written by a newer gamesort.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	version, err := s.readSchemaVersion(ctx)
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		return s.inSchemaTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion)
			return err
		})
	case version > schemaVersion:
		return fmt.Errorf("%w: %s has version %d, this build understands up to %d",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	case version < schemaVersion:
		return s.migrate(ctx, version)
	}
	return nil
}

// readSchemaVersion returns 0 for a database that has never been initialized.
func (s *Store) readSchemaVersion(ctx context.Context) (int, error) {
	var tables int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'",
	).Scan(&tables); err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) migrate(ctx context.Context, from int) error {
	err := s.inSchemaTx(ctx, func(tx *sql.Tx) error {
		for v := from; v < schemaVersion; v++ {
			if _, err := tx.ExecContext(ctx, migrations[v-1]); err != nil {
				return fmt.Errorf("migrate to version %d: %w", v+1, err)
			}
		}
		_, err := tx.ExecContext(ctx, "UPDATE schema_version SET version = ?", schemaVersion)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("cache schema migrated",
		logging.Int("from_version", from),
		logging.Int("to_version", schemaVersion),
	)
	return nil
}

func (s *Store) inSchemaTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return tx.Commit()
}
