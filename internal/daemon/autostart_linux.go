//go:build linux

package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/proxherd/proxherd/internal/errors"
)

const desktopTemplate = `[Desktop Entry]
Type=Application
Name=proxherd daemon
Comment=Cleans up records of dead proxy workers
Exec=%s daemon run
Terminal=false
X-GNOME-Autostart-enabled=true
`

func desktopPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "autostart", "proxherd-daemon.desktop"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot resolve home directory")
	}
	return filepath.Join(home, ".config", "autostart", "proxherd-daemon.desktop"), nil
}

func enableAutostart(exe string) error {
	path, err := desktopPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create autostart directory")
	}
	content := fmt.Sprintf(desktopTemplate, exe)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrap(err, "failed to write autostart entry")
	}
	return nil
}

func disableAutostart() error {
	path, err := desktopPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove autostart entry")
	}
	return nil
}

func autostartEnabled() (bool, error) {
	path, err := desktopPath()
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
