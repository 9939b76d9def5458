// Package daemon implements the background janitor: a long-running
// loop that watches the record store and removes records whose worker
// process has died, plus login-autostart registration for running that
// loop without user involvement.
package daemon

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/logging"
	"github.com/proxherd/proxherd/internal/store"
)

// debounceWindow batches bursts of store-directory events into a
// single sweep. Editors and atomic renames produce several events per
// logical change.
const debounceWindow = 200 * time.Millisecond

// RecordStore is the slice of the store the reconciler needs.
// *store.Store satisfies it.
type RecordStore interface {
	Dir() string
	List() ([]*store.ProxyConfig, error)
	Delete(id string) error
	IsProcessAlive(pid int) bool
}

// Reconciler removes records left behind by workers that died without
// a Stop: crashed processes, killed sessions, reboots.
type Reconciler struct {
	store  RecordStore
	cfg    config.DaemonConfig
	logger *logging.Logger
}

// New creates a Reconciler. A nil logger is replaced with a no-op
// logger.
func New(st RecordStore, cfg config.DaemonConfig, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Reconciler{
		store:  st,
		cfg:    cfg,
		logger: logger.WithComponent("daemon"),
	}
}

// Run sweeps once immediately, then blocks until ctx is done, sweeping
// again on every store-directory change and on a fixed interval. The
// interval pass also covers filesystems where the change watch is
// unavailable.
func (r *Reconciler) Run(ctx context.Context) error {
	var events <-chan fsnotify.Event
	var watchErrs <-chan error

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("filesystem watch unavailable, sweeping on interval only", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(r.store.Dir()); err != nil {
			r.logger.Warn("cannot watch store directory", "dir", r.store.Dir(), "error", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	r.Sweep()

	ticker := time.NewTicker(r.cfg.ReconcileInterval())
	defer ticker.Stop()

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial fire
	defer debounce.Stop()

	r.logger.Info("reconciler running", "dir", r.store.Dir(), "interval", r.cfg.ReconcileInterval(), "clean_stale", r.cfg.CleanStale)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopping")
			return nil

		case <-ticker.C:
			r.Sweep()

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(debounceWindow)

		case <-debounce.C:
			r.Sweep()

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			r.logger.Warn("store watch error", "error", err)
		}
	}
}

// Sweep examines every record and removes those whose process has
// died. Records without a pid are left alone: they never had a process
// to lose. Returns how many records were examined and how many were
// removed.
func (r *Reconciler) Sweep() (examined, cleaned int) {
	records, err := r.store.List()
	if err != nil {
		r.logger.Error("failed to list records", "error", err)
		return 0, 0
	}

	for _, rec := range records {
		if rec.PID == 0 || r.store.IsProcessAlive(rec.PID) {
			continue
		}
		log := r.logger.WithProxy(rec.ID)
		if !r.cfg.CleanStale {
			log.Warn("stale record: worker process is gone", "pid", rec.PID)
			continue
		}
		if err := r.store.Delete(rec.ID); err != nil {
			if !errors.Is(err, errors.ErrProxyNotFound) {
				log.Error("failed to remove stale record", "pid", rec.PID, "error", err)
			}
			continue
		}
		log.Info("removed stale record", "pid", rec.PID)
		cleaned++
	}
	return len(records), cleaned
}
