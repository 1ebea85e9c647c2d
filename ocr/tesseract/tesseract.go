// Package tesseract backs the OCR contract with a gosseract client. Each
// Worker keeps one Tesseract API instance alive so repeated requests skip the
// per-call setup cost.
package tesseract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"

	"snowbreak-gacha-export/ocr"
)

// Worker wraps one gosseract client. Not safe for concurrent use.
type Worker struct {
	client *gosseract.Client
}

// Factory returns an ocr.Factory producing Tesseract workers with the given
// language hints (e.g. "eng", "chi_sim").
func Factory(languages ...string) ocr.Factory {
	return func() (ocr.Handle, error) {
		return New(languages...)
	}
}

// New creates a Tesseract-backed worker.
func New(languages ...string) (*Worker, error) {
	c := gosseract.NewClient()
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: set languages: %v", ocr.ErrBackendUnavailable, err)
		}
	}
	// The listing fields are single lines; PSM 7 keeps Tesseract from
	// inventing layout structure on tiny crops.
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: set page seg mode: %v", ocr.ErrBackendUnavailable, err)
	}
	return &Worker{client: c}, nil
}

// Recognize runs OCR on the image and reports word tokens with positions.
func (w *Worker) Recognize(img image.Image) ([]ocr.Token, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if err := w.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: set image: %v", ocr.ErrBackendUnavailable, err)
	}

	boxes, err := w.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("%w: bounding boxes: %v", ocr.ErrMalformedResponse, err)
	}
	tokens := make([]ocr.Token, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		tokens = append(tokens, ocr.Token{
			Text: b.Word,
			X:    b.Box.Min.X,
			Y:    b.Box.Min.Y,
			W:    b.Box.Dx(),
			H:    b.Box.Dy(),
		})
	}
	if len(tokens) == 0 {
		return nil, ocr.ErrNoTextFound
	}
	return tokens, nil
}

// Close releases the Tesseract API instance.
func (w *Worker) Close() error {
	return w.client.Close()
}
