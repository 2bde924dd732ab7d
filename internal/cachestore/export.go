package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"gamesort/internal/fileutil"
	"gamesort/internal/logging"
)

// Export writes every record matching filter under dir using the DocumentPath
// layout and returns the number of files written. Files are replaced atomically.
func (s *Store) Export(ctx context.Context, dir string, filter Filter) (int, error) {
	ctx = ensureContext(ctx)
	entries, err := s.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		target := filepath.Join(dir, filepath.FromSlash(DocumentPath(entry.Platform, entry.Identifier)))
		if err := writeDocument(target, entry); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func writeDocument(target string, entry Entry) error {
	data, err := json.MarshalIndent(entry.Record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", entry.Identifier, err)
	}
	if err := fileutil.WriteFileAtomic(target, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("export %s: %w", entry.Identifier, err)
	}
	return nil
}

// Backup checkpoints the write-ahead log and copies the database file to
// dest with checksum verification. Callers hold the exclusive cache lock so
// no other process writes during the copy.
func (s *Store) Backup(ctx context.Context, dest string) error {
	ctx = ensureContext(ctx)
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint wal: %w", err)
	}
	src, srcErr := filepath.Abs(s.path)
	dst, dstErr := filepath.Abs(dest)
	if srcErr == nil && dstErr == nil && src == dst {
		return fmt.Errorf("backup destination is the cache database itself")
	}
	if err := fileutil.CopyFileVerified(s.path, dest); err != nil {
		return fmt.Errorf("backup cache: %w", err)
	}
	s.logger.Info("cache backed up", logging.String("destination", dest))
	return nil
}
