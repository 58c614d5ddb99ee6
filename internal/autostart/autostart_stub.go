//go:build !windows && !darwin

package autostart

import "fmt"

func enable() error {
	return fmt.Errorf("autostart is not supported on this platform")
}

func disable() error {
	return fmt.Errorf("autostart is not supported on this platform")
}

func isEnabled() bool {
	return false
}
