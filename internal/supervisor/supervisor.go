// Package supervisor implements the proxy lifecycle: start a detached
// worker, wait until its socket is confirmed listening, and tear it
// down again. The supervisor owns record creation and deletion;
// deleting a record is the authoritative "stopped" signal, regardless
// of what the OS reports about the process.
package supervisor

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/logging"
	"github.com/proxherd/proxherd/internal/store"
)

// ConfigStore is the record persistence the supervisor depends on.
// *store.Store satisfies it; tests substitute hand-written mocks.
type ConfigStore interface {
	GenerateID() string
	Create(cfg *store.ProxyConfig) error
	Save(cfg *store.ProxyConfig) error
	Get(id string) (*store.ProxyConfig, error)
	Delete(id string) error
	List() ([]*store.ProxyConfig, error)
	IsProcessAlive(pid int) bool
}

// Launcher spawns and signals worker processes.
// *launcher.DetachedLauncher satisfies it.
type Launcher interface {
	Launch(id string) (int, error)
	Terminate(pid int) error
}

// StartOptions carries the caller's wishes for a new proxy.
type StartOptions struct {
	// Upstream is the forwarding target; empty means DIRECT mode
	Upstream string
	// Port is the requested listen port; 0 lets the OS pick
	Port int
	// ProfileID is an optional opaque link to the calling context
	ProfileID string
}

// StopOutcome reports the result of stopping one proxy during StopAll.
type StopOutcome struct {
	ID      string
	Stopped bool
	Err     error
}

// Supervisor coordinates the store, the launcher, and the registry.
type Supervisor struct {
	store    ConfigStore
	launcher Launcher
	registry *Registry
	cfg      config.SupervisorConfig
	logger   *logging.Logger
}

// New creates a Supervisor. A nil registry gets a fresh one; a nil
// logger is replaced with a no-op logger.
func New(st ConfigStore, l Launcher, registry *Registry, cfg config.SupervisorConfig, logger *logging.Logger) *Supervisor {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Supervisor{
		store:    st,
		launcher: l,
		registry: registry,
		cfg:      cfg,
		logger:   logger.WithComponent("supervisor"),
	}
}

// Registry returns the supervisor's pid registry.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Start creates a record, spawns a detached worker for it, and waits
// until the worker's socket is confirmed accepting connections. The
// returned record always carries a bound port and local URL.
//
// A readiness timeout does NOT kill the process: a slow worker may
// still come up, so the record and process are left in place and the
// caller decides whether to Stop.
func (s *Supervisor) Start(ctx context.Context, opts StartOptions) (*store.ProxyConfig, error) {
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, errors.NewValidationError("requested port out of range").
			WithField("port").
			WithValue(opts.Port)
	}

	id := s.store.GenerateID()
	rec := store.NewProxyConfig(id, opts.Upstream, opts.Port, opts.ProfileID)
	log := s.logger.WithProxy(id)

	// The record must exist before the worker does: the worker's first
	// act is to load it
	if err := s.store.Create(rec); err != nil {
		return nil, err
	}
	log.Debug("created proxy record", "upstream", rec.Upstream, "requested_port", rec.RequestedPort)

	pid, err := s.launcher.Launch(id)
	if err != nil {
		// Nothing is running; the record stays for inspection
		log.Error("worker spawn failed", "error", err)
		return nil, err
	}

	s.registry.Put(id, pid)

	rec.PID = pid
	if err := s.store.Save(rec); err != nil {
		return nil, err
	}
	log.Debug("worker spawned", "pid", pid)

	ready, err := s.awaitReady(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Info("worker ready", "pid", ready.PID, "bound_port", ready.BoundPort, "local_url", ready.LocalURL)
	return ready, nil
}

// Stop terminates the worker for the given id and deletes its record.
// It reports (false, nil) when no record exists, so stopping an unknown
// or already-stopped proxy is a safe no-op. It reports (true, nil) once
// the record is deleted, whether or not the OS confirmed the process
// exit.
func (s *Supervisor) Stop(ctx context.Context, id string) (bool, error) {
	rec, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, errors.ErrProxyNotFound) {
			return false, nil
		}
		return false, err
	}

	log := s.logger.WithProxy(id)

	pid := rec.PID
	if pid == 0 {
		if cached, ok := s.registry.Get(id); ok {
			pid = cached
		}
	}

	if pid > 0 {
		if err := s.launcher.Terminate(pid); err != nil {
			// The worker may already be gone; deletion below is what
			// marks the proxy stopped
			log.Debug("terminate signal failed", "pid", pid, "error", err)
		}
		if err := sleepCtx(ctx, s.cfg.StopGrace()); err != nil {
			return false, err
		}
	}

	s.registry.Remove(id)

	if err := s.store.Delete(id); err != nil && !errors.Is(err, errors.ErrProxyNotFound) {
		return false, err
	}

	log.Info("stopped proxy", "pid", pid)
	return true, nil
}

// StopAll stops every recorded proxy, each independently: one failure
// never prevents the others from being attempted. The error return
// covers enumeration only; per-proxy results are in the outcome list.
func (s *Supervisor) StopAll(ctx context.Context) ([]StopOutcome, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}

	outcomes := make([]StopOutcome, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			stopped, err := s.Stop(ctx, id)
			outcomes[i] = StopOutcome{ID: id, Stopped: stopped, Err: err}
		}(i, rec.ID)
	}
	wg.Wait()

	return outcomes, nil
}

// logDir returns the directory holding worker log files, mirroring the
// launcher's resolution so diagnostics read the same files workers
// write.
func (s *Supervisor) logDir() string {
	if s.cfg.LogDir != "" {
		return s.cfg.LogDir
	}
	return os.TempDir()
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
