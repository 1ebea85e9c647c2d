// Package ocr defines the contract between the dispatch engine and the
// text-recognition backends. A Handle is one live backend held exclusively by
// a single request at a time; backends can be local subprocesses (paddle) or
// in-process native libraries (tesseract).
package ocr

import (
	"errors"
	"image"
	"strings"
)

// Typed backend failures. Callers decide whether to resubmit; nothing in this
// package retries on its own.
var (
	// ErrBackendUnavailable means the backend process or library could not be
	// started or died mid-request.
	ErrBackendUnavailable = errors.New("ocr backend unavailable")

	// ErrMalformedResponse means the backend answered with something that
	// could not be decoded.
	ErrMalformedResponse = errors.New("malformed ocr response")

	// ErrNoTextFound means the backend ran successfully but recognized no
	// text in the image.
	ErrNoTextFound = errors.New("no text found")
)

// Token is a single recognized text fragment with its pixel position inside
// the submitted image.
type Token struct {
	Text string
	X    int
	Y    int
	W    int
	H    int
}

// Handle is one live OCR backend. A handle is not safe for concurrent use;
// ownership belongs to whichever in-flight request checked it out.
type Handle interface {
	Recognize(img image.Image) ([]Token, error)
	Close() error
}

// Factory starts a fresh backend handle. The dispatch engine calls it when
// its pool has no idle handle and capacity remains.
type Factory func() (Handle, error)

// Text returns the text of the first token, trimmed. The listing page fields
// are single short strings, so the first token carries the whole field.
func Text(tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	return strings.TrimSpace(tokens[0].Text)
}
