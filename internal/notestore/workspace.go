// Package notestore owns the on-disk workspace layout: the data
// directory, the sqlite file path, and the single-instance lock that
// keeps two daemon processes from opening the same workspace at once.
package notestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/openmined/notesync/internal/utils"
)

const (
	metadataDir  = ".data"
	logsDir      = "logs"
	lockFileName = "notesync.lock"
	dbFileName   = "notesync.db"
)

// ErrWorkspaceLocked is returned by Lock when another process already
// holds the workspace lock.
var ErrWorkspaceLocked = errors.New("notestore: workspace locked by another process")

// Workspace is the resolved on-disk layout for one client instance.
type Workspace struct {
	Root        string
	MetadataDir string
	LogsDir     string
	DBPath      string

	lock *flock.Flock
}

// New resolves rootDir into a Workspace. It does not touch the
// filesystem; call Setup to create directories and acquire the lock.
func New(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("notestore: resolve workspace root: %w", err)
	}

	metaDir := filepath.Join(root, metadataDir)
	return &Workspace{
		Root:        root,
		MetadataDir: metaDir,
		LogsDir:     filepath.Join(root, logsDir),
		DBPath:      filepath.Join(metaDir, dbFileName),
		lock:        flock.New(filepath.Join(metaDir, lockFileName)),
	}, nil
}

// Lock acquires the single-instance workspace lock, failing fast if
// another process already holds it.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("notestore: create metadata dir: %w", err)
	}

	locked, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("notestore: lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

// Unlock releases the workspace lock and removes the lock file, a
// no-op if this process never acquired it.
func (w *Workspace) Unlock() error {
	if !w.lock.Locked() {
		return nil
	}
	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("notestore: unlock workspace: %w", err)
	}
	return os.Remove(w.lock.Path())
}

// Setup acquires the lock and ensures every required directory exists.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("notestore: workspace", "root", w.Root)

	for _, dir := range []string{w.MetadataDir, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("notestore: create directory %s: %w", dir, err)
		}
	}
	return nil
}
