package stores

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/colonyops/codesentry/internal/data/db"
)

// IsCorruptionError reports whether err means the database file is unusable.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}

// RecoverFromCorruption moves the database in dir and its -wal/-shm files
// aside as <name>.corrupt.<timestamp> so the next Open starts empty. Missing
// files are not an error.
func RecoverFromCorruption(dir string) error {
	dbPath := filepath.Join(dir, db.FileName)
	backup := fmt.Sprintf("%s.corrupt.%s", dbPath, time.Now().Format("20060102-150405"))

	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Rename(dbPath+suffix, backup+suffix)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		// A stale -wal or -shm next to a fresh database breaks it again.
		if suffix != "" {
			if rmErr := os.Remove(dbPath + suffix); rmErr == nil {
				continue
			}
		}
		return fmt.Errorf("move aside %s: %w", filepath.Base(dbPath+suffix), err)
	}
	return nil
}

// OpenCache opens the cache database in dir. The cache holds nothing that
// cannot be refetched, so a corrupt file is moved aside and replaced.
func OpenCache(dir string, log zerolog.Logger) (*db.DB, error) {
	database, err := db.Open(dir)
	if err == nil || !IsCorruptionError(err) {
		return database, err
	}

	log.Warn().Err(err).Str("dir", dir).Msg("cache database corrupt, starting fresh")
	if err := RecoverFromCorruption(dir); err != nil {
		return nil, err
	}
	return db.Open(dir)
}
