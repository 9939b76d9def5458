//go:build windows

package launcher

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/proxherd/proxherd/internal/logging"
)

// setDetachAttrs detaches the child from the parent console, gives it
// its own process group, and suppresses any console window.
func setDetachAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.DETACHED_PROCESS |
			windows.CREATE_NEW_PROCESS_GROUP |
			windows.CREATE_NO_WINDOW,
	}
}

// elevatePriority requests ABOVE_NORMAL_PRIORITY_CLASS for the worker.
// There is no pre-exec hook on Windows, so this runs after spawn via a
// separate process handle; failure is tolerated.
func elevatePriority(pid int, logger *logging.Logger) {
	h, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(pid))
	if err != nil {
		logger.Debug("could not open worker process for priority change", "pid", pid, "error", err)
		return
	}
	defer func() { _ = windows.CloseHandle(h) }()

	if err := windows.SetPriorityClass(h, windows.ABOVE_NORMAL_PRIORITY_CLASS); err != nil {
		logger.Debug("could not raise worker priority", "pid", pid, "error", err)
	}
}

// terminateProcess force-kills the worker. Windows has no SIGTERM
// equivalent a detached console-less process could catch, so the worker
// never gets a shutdown handler here; the supervisor's record deletion
// is what marks the proxy stopped.
func terminateProcess(pid int) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer func() { _ = windows.CloseHandle(h) }()

	return windows.TerminateProcess(h, 1)
}
