// Package worker implements the spawned side of the process boundary:
// a detached process that binds a local listener, publishes the bound
// address through the config store, and relays connections until told
// to stop. The record write after binding is the readiness signal the
// supervisor polls for.
package worker

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/proxherd/proxherd/internal/config"
	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/logging"
	"github.com/proxherd/proxherd/internal/store"
)

// Worker is one proxy endpoint process. It owns a single listener and
// updates exactly one store record: its own.
type Worker struct {
	store  *store.Store
	cfg    config.WorkerConfig
	logger *logging.Logger
}

// New creates a Worker backed by the given store.
func New(st *store.Store, cfg config.WorkerConfig, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Worker{store: st, cfg: cfg, logger: logger.WithComponent("worker")}
}

// Run binds the listener, publishes readiness, and serves until ctx is
// done. The record is never deleted here: deleting it is the
// supervisor's signal, not the worker's.
func (w *Worker) Run(ctx context.Context, id string) error {
	rec, err := w.store.Get(id)
	if err != nil {
		return errors.Wrap(err, "worker cannot load its own record")
	}
	log := w.logger.WithProxy(id)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", rec.RequestedPort))
	if err != nil {
		log.Error("failed to bind listener", "requested_port", rec.RequestedPort, "error", err)
		return errors.Wrapf(err, "failed to bind 127.0.0.1:%d", rec.RequestedPort)
	}
	defer ln.Close()

	boundPort := ln.Addr().(*net.TCPAddr).Port
	if err := w.publish(id, boundPort); err != nil {
		log.Error("failed to publish bound address", "error", err)
		return err
	}
	log.Info("listening", "bound_port", boundPort, "upstream", rec.Upstream)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			log.Warn("accept failed", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			w.handle(c, rec.Upstream, log)
		}(conn)
	}
	wg.Wait()

	log.Info("worker stopped")
	return nil
}

// publish writes the bound address into the record. The supervisor may
// be writing the pid concurrently, so re-read right before saving; both
// sides write the same pid value, so the last write wins harmlessly.
func (w *Worker) publish(id string, port int) error {
	rec, err := w.store.Get(id)
	if err != nil {
		return errors.Wrap(err, "worker record vanished before publish")
	}
	rec.BoundPort = port
	rec.LocalURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	rec.PID = os.Getpid()
	return w.store.Save(rec)
}

// handle serves one accepted connection. DIRECT mode carries no
// forwarding engine; the endpoint accepts and closes.
func (w *Worker) handle(conn net.Conn, upstream string, log *logging.Logger) {
	defer conn.Close()

	if upstream == store.DirectUpstream {
		return
	}

	remote, err := net.DialTimeout("tcp", upstreamAddr(upstream), w.cfg.UpstreamDialTimeout())
	if err != nil {
		log.Warn("upstream dial failed", "upstream", upstream, "error", err)
		return
	}
	defer remote.Close()

	relay(conn, remote)
}

// upstreamAddr normalizes an upstream value to a dialable host:port.
func upstreamAddr(upstream string) string {
	for _, scheme := range []string{"http://", "https://", "socks5://", "tcp://"} {
		if strings.HasPrefix(upstream, scheme) {
			return strings.TrimSuffix(strings.TrimPrefix(upstream, scheme), "/")
		}
	}
	return upstream
}

// relay copies bytes both ways until both directions have seen EOF.
// Each direction half-closes its write side when its copy finishes so
// the peer observes end-of-stream.
func relay(client, remote net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(remote, client)
		if tc, ok := remote.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
	}()
	go func() {
		defer wg.Done()
		io.Copy(client, remote)
		if tc, ok := client.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
	}()
	wg.Wait()
}
