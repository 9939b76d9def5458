package supervisor

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/launcher"
	"github.com/proxherd/proxherd/internal/store"
)

// logTailLines is how many trailing worker-log lines a readiness
// failure carries in its diagnostic.
const logTailLines = 10

// awaitReady polls the record until the worker has published its bound
// port and the port accepts a TCP connection. It fails fast when the
// worker process dies and gives a detailed diagnostic when the attempt
// budget runs out.
func (s *Supervisor) awaitReady(ctx context.Context, id string) (*store.ProxyConfig, error) {
	if err := sleepCtx(ctx, s.cfg.InitialDelay()); err != nil {
		return nil, err
	}

	var (
		attempts int
		last     *store.ProxyConfig
	)

	op := func() error {
		attempts++

		rec, err := s.store.Get(id)
		if err != nil {
			// A vanished or unreadable record cannot become ready;
			// retrying would only burn the budget
			return backoff.Permanent(err)
		}
		last = rec

		if rec.PID != 0 && !s.store.IsProcessAlive(rec.PID) {
			return backoff.Permanent(errors.Wrap(errors.ErrProcessExited, "worker died during startup"))
		}

		if !rec.Ready() {
			return errors.ErrWorkerNotReady
		}

		addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(rec.BoundPort))
		conn, err := net.DialTimeout("tcp", addr, s.cfg.DialTimeout())
		if err != nil {
			return errors.Wrapf(err, "port %d not accepting connections", rec.BoundPort)
		}
		conn.Close()
		return nil
	}

	// MaxRetries counts retries after the first attempt
	retries := s.cfg.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.PollInterval()), uint64(retries)),
		ctx,
	)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, s.readinessFailure(id, attempts, last, err)
	}
	return last, nil
}

// readinessFailure assembles the diagnostic for a worker that never
// confirmed readiness: what the record said last, whether the process
// is still running, and the tail of the worker's log.
func (s *Supervisor) readinessFailure(id string, attempts int, last *store.ProxyConfig, cause error) error {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}

	// Store failures mean supervisor state is unreliable; surface them
	// as themselves instead of dressing them up as a readiness timeout
	var storeErr *errors.StoreError
	if errors.As(cause, &storeErr) || errors.Is(cause, errors.ErrProxyNotFound) {
		return cause
	}

	// The final poll may be stale; prefer a fresh read
	rec, err := s.store.Get(id)
	if err != nil {
		rec = last
	}

	snapshot := "<record missing>"
	running := false
	if rec != nil {
		snapshot = fmt.Sprintf("bound_port=%d local_url=%q pid=%d", rec.BoundPort, rec.LocalURL, rec.PID)
		if rec.PID != 0 {
			running = s.store.IsProcessAlive(rec.PID)
		}
	}

	var tail string
	if lines, err := launcher.TailFile(launcher.LogPath(s.logDir(), id), logTailLines); err == nil {
		tail = strings.Join(lines, "\n")
	}

	msg := "worker never confirmed listening"
	if errors.Is(cause, errors.ErrProcessExited) {
		msg = "worker process exited before becoming ready"
	} else {
		budget := s.cfg.InitialDelay() + time.Duration(s.cfg.MaxAttempts)*s.cfg.PollInterval()
		cause = errors.NewTimeoutError("readiness poll", budget).WithCause(cause)
	}

	return errors.NewReadinessError(msg, cause).
		WithProxyID(id).
		WithAttempts(attempts).
		WithSnapshot(snapshot).
		WithProcessRunning(running).
		WithLogTail(tail)
}
