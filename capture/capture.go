// Package capture supplies full-frame raster images and canonicalizes them
// to the fixed reference resolution all screen-layout math is authored
// against.
package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"
)

// Reference resolution. Every layout constant in the classify package assumes
// frames of exactly this size.
const (
	RefWidth  = 1920
	RefHeight = 1080
)

var (
	// ErrUnavailable means no frame could be produced.
	ErrUnavailable = errors.New("capture source unavailable")

	// ErrAspectRatio means the frame is not 16:9 and cannot be canonicalized
	// without distorting the layout.
	ErrAspectRatio = errors.New("frame is not 16:9")
)

// Source produces one raster frame per call. The frame must cover exactly the
// game's client area.
type Source interface {
	Frame() (image.Image, error)
}

// Canonicalize validates the 16:9 aspect ratio and rescales the frame to the
// reference resolution. Frames already at the reference size pass through.
func Canonicalize(img image.Image) (*image.RGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrAspectRatio)
	}
	if w*9 != h*16 {
		return nil, fmt.Errorf("%w: %dx%d", ErrAspectRatio, w, h)
	}

	if rgba, ok := img.(*image.RGBA); ok && w == RefWidth && h == RefHeight {
		return rgba, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, RefWidth, RefHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// DisplaySource grabs frames from one physical display. It is the fallback
// source when the game runs borderless fullscreen and the client area is the
// whole display.
type DisplaySource struct {
	Display int
}

// Frame captures the display.
func (s DisplaySource) Frame() (image.Image, error) {
	if n := screenshot.NumActiveDisplays(); s.Display < 0 || s.Display >= n {
		return nil, fmt.Errorf("%w: display %d of %d", ErrUnavailable, s.Display, n)
	}
	img, err := screenshot.CaptureDisplay(s.Display)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return img, nil
}

// RectSource grabs frames from a fixed virtual-screen rectangle, for windowed
// clients whose client area has been located by the caller.
type RectSource struct {
	Rect image.Rectangle
}

// Frame captures the rectangle.
func (s RectSource) Frame() (image.Image, error) {
	if s.Rect.Empty() {
		return nil, fmt.Errorf("%w: empty capture rect", ErrUnavailable)
	}
	img, err := screenshot.CaptureRect(s.Rect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return img, nil
}
