package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/store"
)

// unlikelyPid is far above any real pid range on supported platforms.
const unlikelyPid = 2147483647

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "proxies"), nil)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return st
}

func createRecord(t *testing.T, st *store.Store, id string, pid int) {
	t.Helper()
	rec := store.NewProxyConfig(id, "", 0, "")
	rec.PID = pid
	if err := st.Create(rec); err != nil {
		t.Fatalf("Create(%s) error = %v", id, err)
	}
}

func TestReconciler_Sweep(t *testing.T) {
	st := newTestStore(t)
	createRecord(t, st, "prox-alive", os.Getpid())
	createRecord(t, st, "prox-dead", unlikelyPid)
	createRecord(t, st, "prox-unspawned", 0)

	r := New(st, config.DaemonConfig{ReconcileIntervalSec: 30, CleanStale: true}, nil)

	examined, cleaned := r.Sweep()
	if examined != 3 {
		t.Errorf("examined = %d, want 3", examined)
	}
	if cleaned != 1 {
		t.Errorf("cleaned = %d, want 1", cleaned)
	}

	if _, err := st.Get("prox-dead"); !errors.Is(err, errors.ErrProxyNotFound) {
		t.Errorf("stale record still present: err = %v", err)
	}
	if _, err := st.Get("prox-alive"); err != nil {
		t.Errorf("live record removed: %v", err)
	}
	if _, err := st.Get("prox-unspawned"); err != nil {
		t.Errorf("pidless record removed: %v", err)
	}
}

func TestReconciler_Sweep_LogOnly(t *testing.T) {
	st := newTestStore(t)
	createRecord(t, st, "prox-dead", unlikelyPid)

	r := New(st, config.DaemonConfig{ReconcileIntervalSec: 30, CleanStale: false}, nil)

	examined, cleaned := r.Sweep()
	if examined != 1 || cleaned != 0 {
		t.Errorf("Sweep() = (%d, %d), want (1, 0)", examined, cleaned)
	}
	if _, err := st.Get("prox-dead"); err != nil {
		t.Errorf("record removed despite clean_stale=false: %v", err)
	}
}

func TestReconciler_Sweep_EmptyStore(t *testing.T) {
	r := New(newTestStore(t), config.DaemonConfig{ReconcileIntervalSec: 30, CleanStale: true}, nil)

	if examined, cleaned := r.Sweep(); examined != 0 || cleaned != 0 {
		t.Errorf("Sweep() = (%d, %d), want (0, 0)", examined, cleaned)
	}
}

func TestReconciler_Run_StopsOnCancel(t *testing.T) {
	r := New(newTestStore(t), config.DaemonConfig{ReconcileIntervalSec: 30, CleanStale: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after cancellation")
	}
}

func TestReconciler_Run_CleansNewStaleRecords(t *testing.T) {
	st := newTestStore(t)
	// The interval is the fallback when the directory watch is not
	// available, so keep it short
	r := New(st, config.DaemonConfig{ReconcileIntervalSec: 1, CleanStale: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	createRecord(t, st, "prox-dead", unlikelyPid)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := st.Get("prox-dead"); errors.Is(err, errors.ErrProxyNotFound) {
			cancel()
			<-errCh
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("stale record was never cleaned")
}
