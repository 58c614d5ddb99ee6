// Package errs defines the sentinel error kinds used across the session,
// so callers can branch on recovery policy with errors.Is/errors.As instead
// of matching strings.
package errs

import "errors"

var (
	ErrConfig             = errors.New("config error")
	ErrHookInstall        = errors.New("hook install error")
	ErrInjectorInit       = errors.New("injector init error")
	ErrAddressResolve     = errors.New("address resolve error")
	ErrConnectionRefused  = errors.New("connection refused")
	ErrConnectionTimeout  = errors.New("connection timeout")
	ErrSendFailed         = errors.New("send failed")
	ErrRecvFailed         = errors.New("recv failed")
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrIdleTimeout        = errors.New("idle timeout")
	ErrDiscoveryBind      = errors.New("discovery bind error")
)

// Fatal reports whether err belongs to a kind that must terminate the
// process per the error handling policy: hook installation, injector
// initialization, and discovery socket binding can never be retried
// meaningfully from inside the running process.
func Fatal(err error) bool {
	return errors.Is(err, ErrHookInstall) ||
		errors.Is(err, ErrInjectorInit) ||
		errors.Is(err, ErrDiscoveryBind)
}

// Recoverable reports whether err should trigger local recovery: close the
// session, reset focus, release suppress, and retry.
func Recoverable(err error) bool {
	return errors.Is(err, ErrRecvFailed) ||
		errors.Is(err, ErrSendFailed) ||
		errors.Is(err, ErrIdleTimeout) ||
		errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrConnectionRefused) ||
		errors.Is(err, ErrMalformedFrame)
}
