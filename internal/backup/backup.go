// Package backup takes and restores snapshots of the SQLite page store.
//
// Snapshots are written with VACUUM INTO as backup_<ULID>.db, so their names
// sort by creation time and carry it.
package backup

import (
	"context"
	"errors"
	"fmt"
	"fyrewiki/internal/config"
	"fyrewiki/internal/data"
	"fyrewiki/internal/logger"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".db"
)

var (
	// ErrNoBackups is returned by Latest when the backup directory holds no snapshots.
	ErrNoBackups = errors.New("no backups found")
	// ErrUnsupportedDriver is returned for databases other than SQLite.
	ErrUnsupportedDriver = errors.New("backups are only supported for sqlite3 databases")
)

// Snapshot is one backup file.
type Snapshot struct {
	ID        ulid.ULID
	Path      string
	CreatedAt time.Time
}

// Manager writes, prunes and restores snapshots.
type Manager struct {
	db        *sqlx.DB
	dbPath    string
	dir       string
	retention time.Duration
	log       logger.Logger

	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewManager returns a Manager for db, whose file is named by dsn.
func NewManager(db *sqlx.DB, dsn string, cfg config.BackupConfig, log logger.Logger) *Manager {
	return &Manager{
		db:        db,
		dbPath:    DatabasePath(dsn),
		dir:       cfg.Dir,
		retention: cfg.Retention,
		log:       log,
		entropy:   ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:       time.Now,
	}
}

// DatabasePath strips the URI scheme and query parameters from a SQLite DSN.
func DatabasePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// Snapshot copies the live database into path.
func (m *Manager) Snapshot(ctx context.Context, path string) error {
	if m.db.DriverName() != data.DriverSQLite {
		return ErrUnsupportedDriver
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}
	return nil
}

// Backup writes a new snapshot into the backup directory and prunes old ones.
func (m *Manager) Backup(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	now := m.now()
	id, err := ulid.New(ulid.Timestamp(now), m.entropy)
	m.mu.Unlock()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to name backup: %w", err)
	}

	snap := Snapshot{
		ID:        id,
		Path:      filepath.Join(m.dir, filePrefix+id.String()+fileSuffix),
		CreatedAt: ulid.Time(id.Time()),
	}
	if err := m.Snapshot(ctx, snap.Path); err != nil {
		return Snapshot{}, err
	}
	m.log.Info("Database backed up to " + snap.Path)

	if _, err := m.Prune(now); err != nil {
		m.log.Error(err, "Failed to prune old backups")
	}
	return snap, nil
}

// List returns every snapshot in the backup directory, oldest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id, err := ulid.ParseStrict(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			ID:        id,
			Path:      filepath.Join(m.dir, name),
			CreatedAt: ulid.Time(id.Time()),
		})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID.Compare(snaps[j].ID) < 0 })
	return snaps, nil
}

// Latest returns the newest snapshot.
func (m *Manager) Latest() (Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, ErrNoBackups
	}
	return snaps[len(snaps)-1], nil
}

// Prune deletes snapshots older than the retention period. The newest
// snapshot is always kept.
func (m *Manager) Prune(now time.Time) (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}
	snaps, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-m.retention)
	removed := 0
	for i, s := range snaps {
		if i == len(snaps)-1 || !s.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove backup %s: %w", s.Path, err)
		}
		removed++
		m.log.Info("Removed old backup " + s.Path)
	}
	return removed, nil
}

// Rollback replaces the database file with snap. The server must not be
// running: open connections keep reading the old file.
func (m *Manager) Rollback(snap Snapshot) error {
	if m.dbPath == "" || m.dbPath == ":memory:" {
		return ErrUnsupportedDriver
	}

	f, err := os.Open(snap.Path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	if err := atomic.WriteFile(m.dbPath, f); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	// A write-ahead log left from the old file would be replayed onto the restored one.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", m.dbPath+suffix, err)
		}
	}
	m.log.Info(fmt.Sprintf("Database restored from %s", snap.Path))
	return nil
}

// StartScheduler backs up every interval until the returned func is called.
func (m *Manager) StartScheduler(interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.Backup(ctx); err != nil && !errors.Is(err, context.Canceled) {
					m.log.Error(err, "Scheduled backup failed")
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
