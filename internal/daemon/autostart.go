package daemon

import (
	"os"

	"github.com/proxherd/proxherd/internal/errors"
)

// autostartLabel is the launchd agent label and plist file stem on
// macOS. Linux and Windows name their entries in their own
// conventions (.desktop stem, Run key value).
const autostartLabel = "com.proxherd.daemon"

// EnableAutostart registers `proxherd daemon run` to start at login
// for the current user.
func EnableAutostart() error {
	exe, err := daemonExecutable()
	if err != nil {
		return err
	}
	return enableAutostart(exe)
}

// DisableAutostart removes the login registration. Removing an absent
// registration is a no-op.
func DisableAutostart() error {
	return disableAutostart()
}

// AutostartEnabled reports whether the daemon is registered to start
// at login.
func AutostartEnabled() (bool, error) {
	return autostartEnabled()
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "cannot resolve own executable path")
	}
	return exe, nil
}
