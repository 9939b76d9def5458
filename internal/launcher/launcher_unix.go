//go:build unix

package launcher

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/proxherd/proxherd/internal/logging"
)

// Niceness targets for worker processes. The strongly elevated value
// usually needs privileges; the mild one is the common-case fallback.
const (
	priorityPreferred = -10
	priorityFallback  = -5
)

// setDetachAttrs puts the child in a new session so it detaches from
// the controlling terminal and survives parent exit.
func setDetachAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

// elevatePriority raises the worker's scheduling priority best-effort:
// preferred niceness first, fallback second, total failure tolerated.
// It runs in the parent after spawn, so a worker that already exited
// simply makes both calls fail.
func elevatePriority(pid int, logger *logging.Logger) {
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, priorityPreferred); err == nil {
		return
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, priorityFallback); err != nil {
		logger.Debug("could not raise worker priority", "pid", pid, "error", err)
	}
}

// terminateProcess sends SIGTERM, giving the worker a chance to close
// its listener and exit cleanly.
func terminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}
