//go:build !windows

package osutils

// IsAdmin always reports true elsewhere: only the Windows hook path needs
// elevation to reliably see input from other desktop sessions.
func IsAdmin() bool {
	return true
}
