// Package input performs simulated pointer input and the coordinate scaling
// between the canonical UI design resolution and the real client area.
package input

import (
	"time"

	"github.com/go-vgo/robotgo"
)

// Design resolution the click coordinates are authored against. Matches the
// capture reference resolution.
const (
	DesignWidth  = 1920
	DesignHeight = 1080
)

// Injector moves the pointer and clicks at virtual-screen coordinates.
type Injector interface {
	Click(x, y int) error
}

// ClientRect is the game window's client area in virtual-screen coordinates.
type ClientRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ToScreen maps a design-resolution point into the client area by linear
// scaling.
func (r ClientRect) ToScreen(designX, designY int) (int, int) {
	x := r.X + (designX*r.Width+r.Width/2)/DesignWidth
	y := r.Y + (designY*r.Height+r.Height/2)/DesignHeight
	return x, y
}

// Robotgo injects real pointer events through the OS.
type Robotgo struct {
	// MoveDelay gives the target application time to observe the pointer
	// position before the button event arrives.
	MoveDelay time.Duration
}

// Click moves the pointer and presses the left button.
func (r Robotgo) Click(x, y int) error {
	robotgo.Move(x, y)
	delay := r.MoveDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	time.Sleep(delay)
	robotgo.Click("left")
	return nil
}
