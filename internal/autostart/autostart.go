// Package autostart registers MouseShare to launch on login, so a secondary
// machine reconnects to its primary after a reboot without manual action.
package autostart

import (
	"fmt"
	"runtime"
)

// Enable turns on auto-start for the current platform.
func Enable() error {
	if err := enable(); err != nil {
		return fmt.Errorf("autostart enable on %s: %w", runtime.GOOS, err)
	}
	return nil
}

// Disable turns off auto-start for the current platform.
func Disable() error {
	if err := disable(); err != nil {
		return fmt.Errorf("autostart disable on %s: %w", runtime.GOOS, err)
	}
	return nil
}

// IsEnabled reports whether auto-start is currently configured.
func IsEnabled() bool {
	return isEnabled()
}
