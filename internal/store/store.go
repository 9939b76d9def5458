// Package store persists proxy records on the local filesystem, one JSON
// file per proxy under a base directory. The files double as the IPC
// channel between the supervisor and its detached workers: both sides
// read and write the same record, so every write is atomic (temp file +
// fsync + rename) and in-process access is guarded by an RWMutex.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/logging"
)

// recordExt is the filename extension for proxy record files.
const recordExt = ".json"

// Store is a file-backed proxy record store rooted at a single directory.
type Store struct {
	baseDir string
	logger  *logging.Logger
	mu      sync.RWMutex
}

// New creates a Store rooted at baseDir, creating the directory if it
// doesn't exist.
func New(baseDir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.NewStoreError("failed to create store directory", err).
			WithOp("init").
			WithPath(baseDir)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{baseDir: baseDir, logger: logger}, nil
}

// Dir returns the base directory holding the record files.
func (s *Store) Dir() string {
	return s.baseDir
}

// GenerateID returns a fresh unique proxy identifier.
func (s *Store) GenerateID() string {
	return uuid.NewString()
}

// Create persists a brand-new record, failing with ErrRecordExists in
// the chain when the id is already taken.
func (s *Store) Create(cfg *ProxyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.NewStoreError("failed to marshal record", err).
			WithOp("create").
			WithProxyID(cfg.ID)
	}

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return errors.NewStoreError("failed to create store directory", err).
			WithOp("create").
			WithPath(s.baseDir)
	}

	path := s.recordPath(cfg.ID)

	// O_EXCL enforces that an id is never reused while its record exists
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.NewStoreError("record already exists", errors.ErrRecordExists).
				WithOp("create").
				WithProxyID(cfg.ID).
				WithPath(path)
		}
		return errors.NewStoreError("failed to create record file", err).
			WithOp("create").
			WithProxyID(cfg.ID).
			WithPath(path)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(path) // Clean up on failure
		return errors.NewStoreError("failed to write record file", err).
			WithOp("create").
			WithProxyID(cfg.ID).
			WithPath(path)
	}

	return nil
}

// Save persists the record, overwriting any existing file atomically.
func (s *Store) Save(cfg *ProxyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.NewStoreError("failed to marshal record", err).
			WithOp("save").
			WithProxyID(cfg.ID)
	}

	// Ensure the directory exists; it may have been swept out from
	// under a long-lived process
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return errors.NewStoreError("failed to create store directory", err).
			WithOp("save").
			WithPath(s.baseDir)
	}

	path := s.recordPath(cfg.ID)
	if err := atomicWriteFile(path, data, 0644); err != nil {
		return errors.NewStoreError("failed to write record file", err).
			WithOp("save").
			WithProxyID(cfg.ID).
			WithPath(path)
	}

	return nil
}

// Get retrieves the record for the given id. A missing record yields an
// error matching ErrProxyNotFound; an unparseable file yields one
// matching ErrRecordCorrupted.
func (s *Store) Get(id string) (*ProxyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.recordPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("proxy", id)
		}
		return nil, errors.NewStoreError("failed to read record file", err).
			WithOp("get").
			WithProxyID(id).
			WithPath(path)
	}

	var cfg ProxyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewStoreError(
			"failed to decode record: "+err.Error(), errors.ErrRecordCorrupted).
			WithOp("get").
			WithProxyID(id).
			WithPath(path)
	}

	return &cfg, nil
}

// Delete removes the record for the given id. Deleting the record is
// the authoritative "stopped" signal for the proxy. A missing record
// yields an error matching ErrProxyNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordPath(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("proxy", id)
		}
		return errors.NewStoreError("failed to delete record file", err).
			WithOp("delete").
			WithProxyID(id).
			WithPath(path)
	}
	return nil
}

// List returns all readable records in directory order (ids are UUIDs,
// so this is id order). Unreadable or corrupt entries are logged and
// skipped so one bad file never breaks enumeration.
func (s *Store) List() ([]*ProxyConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Directory doesn't exist, no records
		}
		return nil, errors.NewStoreError("failed to read store directory", err).
			WithOp("list").
			WithPath(s.baseDir)
	}

	var records []*ProxyConfig
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}

		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "path", path, "error", err)
			continue
		}

		var cfg ProxyConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			s.logger.Warn("skipping corrupt record", "path", path, "error", err)
			continue
		}

		records = append(records, &cfg)
	}

	return records, nil
}

// IsProcessAlive reports whether a process with the given pid is
// running. Zombies count as dead: a worker that exited before the
// supervisor did stays in the process table until reaped, and waiting
// on it would defeat the death checks this feeds. Probe errors other
// than "no such process" count as alive, since liveness answers gate
// destructive acts (poll abort, stale-record sweep).
func (s *Store) IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return !errors.Is(err, process.ErrorProcessNotRunning)
	}
	statuses, err := proc.Status()
	if err != nil {
		return true
	}
	for _, st := range statuses {
		if st == process.Zombie {
			return false
		}
	}
	return true
}

// recordPath returns the file path for the given proxy id.
func (s *Store) recordPath(id string) string {
	return filepath.Join(s.baseDir, id+recordExt)
}

// atomicWriteFile writes data to a file atomically by writing to a
// temporary file first, then renaming. This ensures the target file is
// never observed in a partially-written state, which matters here
// because workers and the daemon read these files from other processes.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory to ensure atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on any error
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	// Sync to disk before rename
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}
