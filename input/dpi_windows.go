//go:build windows

package input

import (
	"log"

	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

// EnableDPIAwareness opts the process into per-monitor DPI awareness so that
// captured pixels and injected clicks use the same coordinate space on scaled
// displays. Without this, Windows lies about window sizes and every click
// lands off target.
func EnableDPIAwareness() {
	shcore := windows.NewLazySystemDLL("Shcore.dll")
	proc := shcore.NewProc("SetProcessDpiAwareness")
	if err := proc.Find(); err == nil {
		_, _, _ = proc.Call(uintptr(processPerMonitorDPIAware))
		return
	}
	// Pre-8.1 fallback.
	user32 := windows.NewLazySystemDLL("user32.dll")
	fallback := user32.NewProc("SetProcessDPIAware")
	if err := fallback.Find(); err == nil {
		_, _, _ = fallback.Call()
		return
	}
	log.Printf("Input: DPI awareness unavailable; clicks may miss on scaled displays")
}
