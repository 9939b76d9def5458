//go:build !darwin && !linux && !windows

package daemon

import "github.com/proxherd/proxherd/internal/errors"

func enableAutostart(exe string) error {
	return errors.ErrAutostartUnsupported
}

func disableAutostart() error {
	return errors.ErrAutostartUnsupported
}

func autostartEnabled() (bool, error) {
	return false, errors.ErrAutostartUnsupported
}
