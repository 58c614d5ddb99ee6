//go:build windows

// Package osutils provides the one OS-privilege check App Glue needs: on
// Windows, the low-level hooks the interceptor installs are silently
// ignored by UAC-protected foreground windows unless the process itself
// runs elevated, so App Glue warns the user up front instead of failing
// mysteriously at hook-install time.
package osutils

import (
	"golang.org/x/sys/windows"
)

// IsAdmin reports whether the current process is running elevated.
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}
