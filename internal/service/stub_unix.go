//go:build !windows
// +build !windows

package service

import (
	"fmt"
	"os"
)

// Stub implementations for non-Windows platforms

// RunService runs the app in the foreground on non-Windows platforms
func RunService(isDebug bool, app *Application) {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "service failed: %v\n", err)
		os.Exit(1)
	}
}

// InstallService is a no-op on non-Windows platforms
func InstallService(exePath string) error {
	return nil
}

// UninstallService is a no-op on non-Windows platforms
func UninstallService() error {
	return nil
}

// StartService is a no-op on non-Windows platforms
func StartService() error {
	return nil
}

// StopService is a no-op on non-Windows platforms
func StopService() error {
	return nil
}

// ServiceStatus reports that no service manager is available
func ServiceStatus() (string, error) {
	return "unsupported", nil
}

// IsWindowsService always returns false on non-Windows platforms
func IsWindowsService() (bool, error) {
	return false, nil
}
