// Package launcher spawns and terminates detached proxy worker
// processes. Workers outlive the supervisor that started them: on Unix
// they get their own session, on Windows they are detached from the
// parent console. The launcher holds no handle tying the parent to the
// child's lifetime; the record file in the store is the only link.
package launcher

import (
	"os"
	"os/exec"

	"github.com/proxherd/proxherd/internal/errors"
	"github.com/proxherd/proxherd/internal/logging"
)

// Options configures a DetachedLauncher.
type Options struct {
	// Executable is the binary to spawn, normally the running binary
	// itself (os.Executable())
	Executable string
	// Args are the worker-mode arguments; the proxy id flag is appended
	// per launch
	Args []string
	// LogDir is where per-proxy worker logs land; empty means the
	// platform temp directory
	LogDir string
}

// Launcher starts and signals worker processes. The two platform
// implementations differ only in detach attributes, priority elevation,
// and termination signal; callers never branch on GOOS.
type Launcher interface {
	// Launch spawns a detached worker for the given proxy id and
	// returns its pid as soon as the OS reports the process started.
	Launch(id string) (int, error)
	// Terminate requests the process end: SIGTERM on Unix, forceful
	// kill on Windows.
	Terminate(pid int) error
}

// DetachedLauncher is the production Launcher implementation.
type DetachedLauncher struct {
	opts   Options
	logger *logging.Logger
}

// New creates a DetachedLauncher.
func New(opts Options, logger *logging.Logger) *DetachedLauncher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &DetachedLauncher{opts: opts, logger: logger}
}

// Launch spawns a detached worker process for the given proxy id.
// Stdin and stdout go to the null device; stderr goes to the per-proxy
// log file, falling back to the null device if the file can't be
// created. Returns the child's pid without waiting for it.
func (l *DetachedLauncher) Launch(id string) (int, error) {
	args := make([]string, 0, len(l.opts.Args)+2)
	args = append(args, l.opts.Args...)
	args = append(args, "--id", id)

	cmd := exec.Command(l.opts.Executable, args...)

	// A nil Stdin/Stdout connects the child to the null device. The
	// worker's only channels are the record file and its stderr log.
	cmd.Stdin = nil
	cmd.Stdout = nil

	logPath := LogPath(l.logDir(), id)
	logFile, err := os.Create(logPath)
	if err != nil {
		// Log file creation degrades silently to the null sink
		l.logger.Debug("could not create worker log file", "proxy_id", id, "path", logPath, "error", err)
		cmd.Stderr = nil
	} else {
		cmd.Stderr = logFile
		// The child holds its own descriptor after Start; this closes
		// only the parent's copy
		defer func() { _ = logFile.Close() }()
	}

	setDetachAttrs(cmd)

	if err := cmd.Start(); err != nil {
		return 0, errors.NewSpawnError("failed to start worker process", err).
			WithProxyID(id).
			WithExecutable(l.opts.Executable)
	}

	pid := cmd.Process.Pid

	// Best-effort: a failed elevation never fails the launch
	elevatePriority(pid, l.logger)

	if err := cmd.Process.Release(); err != nil {
		l.logger.Debug("failed to release worker process handle", "proxy_id", id, "error", err)
	}

	l.logger.Info("launched worker", "proxy_id", id, "pid", pid, "log", logPath)
	return pid, nil
}

// Terminate requests that the worker process end.
func (l *DetachedLauncher) Terminate(pid int) error {
	return terminateProcess(pid)
}

func (l *DetachedLauncher) logDir() string {
	if l.opts.LogDir != "" {
		return l.opts.LogDir
	}
	return os.TempDir()
}
