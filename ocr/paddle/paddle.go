// Package paddle runs PaddleOCR-json as a child process and speaks its
// line-delimited JSON protocol. One Worker wraps one live process.
package paddle

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"

	"snowbreak-gacha-export/ocr"
)

const (
	// Status codes defined by the PaddleOCR-json protocol.
	codeOK     = 100
	codeNoText = 101

	readyMarker  = "OCR init completed"
	startTimeout = 30 * time.Second
)

// Worker is one live PaddleOCR-json process. Not safe for concurrent use; the
// dispatch engine guarantees exclusive ownership per request.
type Worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// Factory returns an ocr.Factory that starts PaddleOCR-json from exePath.
func Factory(exePath string) ocr.Factory {
	return func() (ocr.Handle, error) {
		return Start(exePath)
	}
}

// Start launches the backend process and waits for its ready marker.
func Start(exePath string) (*Worker, error) {
	cmd := exec.Command(exePath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ocr.ErrBackendUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ocr.ErrBackendUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ocr.ErrBackendUnavailable, exePath, err)
	}

	w := &Worker{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := w.awaitReady(); err != nil {
		w.Close()
		return nil, err
	}
	log.Printf("Paddle: worker started (pid %d)", cmd.Process.Pid)
	return w, nil
}

// awaitReady consumes startup chatter until the ready marker appears. The
// process prints diagnostics before the marker; everything after it is the
// JSON request/response stream.
func (w *Worker) awaitReady() error {
	deadline := time.Now().Add(startTimeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: ready marker not seen within %s", ocr.ErrBackendUnavailable, startTimeout)
		}
		line, err := w.stdout.ReadString('\n')
		if err != nil {
			return fmt.Errorf("%w: process exited during startup: %v", ocr.ErrBackendUnavailable, err)
		}
		if strings.Contains(line, readyMarker) {
			return nil
		}
	}
}

type request struct {
	ImageBase64 string `json:"image_base64"`
}

type response struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type item struct {
	Box   [4][2]int `json:"box"`
	Score float64   `json:"score"`
	Text  string    `json:"text"`
}

// Recognize sends one PNG-encoded image and decodes the token list.
func (w *Worker) Recognize(img image.Image) ([]ocr.Token, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	req := request{ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes())}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.stdin.Write(payload); err != nil {
		return nil, fmt.Errorf("%w: write request: %v", ocr.ErrBackendUnavailable, err)
	}

	line, err := w.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ocr.ErrBackendUnavailable, err)
	}
	return decodeResponse([]byte(line))
}

// decodeResponse maps the protocol's status codes onto the typed failures.
func decodeResponse(line []byte) ([]ocr.Token, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ocr.ErrMalformedResponse, err)
	}
	switch resp.Code {
	case codeOK:
		var items []item
		if err := json.Unmarshal(resp.Data, &items); err != nil {
			return nil, fmt.Errorf("%w: data not an item list: %v", ocr.ErrMalformedResponse, err)
		}
		if len(items) == 0 {
			return nil, ocr.ErrNoTextFound
		}
		tokens := make([]ocr.Token, 0, len(items))
		for _, it := range items {
			tokens = append(tokens, ocr.Token{
				Text: it.Text,
				X:    it.Box[0][0],
				Y:    it.Box[0][1],
				W:    it.Box[2][0] - it.Box[0][0],
				H:    it.Box[2][1] - it.Box[0][1],
			})
		}
		return tokens, nil
	case codeNoText:
		return nil, ocr.ErrNoTextFound
	default:
		return nil, fmt.Errorf("%w: code %d", ocr.ErrMalformedResponse, resp.Code)
	}
}

// Close terminates the backend process.
func (w *Worker) Close() error {
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	return w.cmd.Wait()
}
