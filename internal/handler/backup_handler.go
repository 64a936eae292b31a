package handler

import (
	"context"
	"errors"
	"fyrewiki/internal/backup"
	"fyrewiki/internal/logger"
	"fyrewiki/internal/middleware"
	"net/http"
	"os"
	"path/filepath"
)

// Backupper writes database snapshots.
type Backupper interface {
	Backup(ctx context.Context) (backup.Snapshot, error)
	Snapshot(ctx context.Context, path string) error
}

// BackupHandler serves the database download and manual backup routes.
type BackupHandler struct {
	backups Backupper
	log     logger.Logger
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(b Backupper, log logger.Logger) *BackupHandler {
	return &BackupHandler{backups: b, log: log}
}

// downloadHandler streams a consistent copy of the database.
func (h *BackupHandler) downloadHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	dir, err := os.MkdirTemp("", "fyrewiki-download-")
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to prepare download", Code: http.StatusInternalServerError}
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "data.db")
	if err := h.backups.Snapshot(r.Context(), path); err != nil {
		if errors.Is(err, backup.ErrUnsupportedDriver) {
			http.Redirect(w, r, withFlash("/", "Download Unavailable", "Database downloads are only available for SQLite."), http.StatusFound)
			return nil
		}
		return &middleware.AppError{Error: err, Message: "Failed to snapshot database", Code: http.StatusInternalServerError}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="data.db"`)
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
	return nil
}

// backupHandler writes a snapshot into the backup directory.
func (h *BackupHandler) backupHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	snap, err := h.backups.Backup(r.Context())
	if errors.Is(err, backup.ErrUnsupportedDriver) {
		http.Redirect(w, r, withFlash("/", "Backup Unavailable", "Backups are only available for SQLite."), http.StatusFound)
		return nil
	}
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to back up database", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, withFlash("/", titleSuccess, "Database backed up to "+filepath.Base(snap.Path)+"."), http.StatusFound)
	return nil
}
