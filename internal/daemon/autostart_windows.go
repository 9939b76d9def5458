//go:build windows

package daemon

import (
	"fmt"

	"golang.org/x/sys/windows/registry"

	"github.com/proxherd/proxherd/internal/errors"
)

const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// registryValueName is the value under the HKCU Run key.
const registryValueName = "proxherd"

func enableAutostart(exe string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return errors.Wrap(err, "failed to open Run key")
	}
	defer key.Close()

	cmd := fmt.Sprintf(`"%s" daemon run`, exe)
	if err := key.SetStringValue(registryValueName, cmd); err != nil {
		return errors.Wrap(err, "failed to set Run value")
	}
	return nil
}

func disableAutostart() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return errors.Wrap(err, "failed to open Run key")
	}
	defer key.Close()

	if err := key.DeleteValue(registryValueName); err != nil && err != registry.ErrNotExist {
		return errors.Wrap(err, "failed to delete Run value")
	}
	return nil
}

func autostartEnabled() (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false, errors.Wrap(err, "failed to open Run key")
	}
	defer key.Close()

	if _, _, err := key.GetStringValue(registryValueName); err != nil {
		if err == registry.ErrNotExist {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
