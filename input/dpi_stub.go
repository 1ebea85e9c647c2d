//go:build !windows

package input

// EnableDPIAwareness is a no-op outside Windows.
func EnableDPIAwareness() {}
