// Package classify turns one canonical page capture into structured pull
// records. Star tiers come from pixel sampling; every text field is cropped,
// tightened around its ink, and sent through the OCR dispatch engine.
package classify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"snowbreak-gacha-export/ocr"
	"snowbreak-gacha-export/record"
)

// ErrNotListing means the capture is not a valid pull listing page: its
// page-index label could not be decoded.
var ErrNotListing = errors.New("not a pull listing page")

// Recognizer is the OCR entry point. Satisfied by dispatch.Engine.
type Recognizer interface {
	Submit(ctx context.Context, img image.Image) ([]ocr.Token, error)
}

// Page is one accepted listing capture with its decoded index label.
type Page struct {
	Index int
	Image image.Image
}

// Index decodes only the page-index label. It is the cheap validity probe
// used while paginating; full row decoding happens later.
func Index(ctx context.Context, rec Recognizer, img image.Image) (int, error) {
	tokens, err := rec.Submit(ctx, glyphCrop(img, indexRect()))
	if err != nil {
		return 0, fmt.Errorf("%w: index label: %v", ErrNotListing, err)
	}
	n, err := strconv.Atoi(ocr.Text(tokens))
	if err != nil {
		return 0, fmt.Errorf("%w: index label %q", ErrNotListing, ocr.Text(tokens))
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: index label %d", ErrNotListing, n)
	}
	return n, nil
}

// Stars samples one fixed pixel per row position and classifies it against
// the three reference colors. The first row without a match ends enumeration,
// which tolerates a partially filled final page.
func Stars(img image.Image) []uint8 {
	var stars []uint8
	for row := 0; row < maxRowsPerPage; row++ {
		star, ok := starAt(img, starPoint(row))
		if !ok {
			break
		}
		stars = append(stars, star)
	}
	return stars
}

func starAt(img image.Image, p image.Point) (uint8, bool) {
	r, g, b, _ := img.At(p.X, p.Y).RGBA()
	c := rgb{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
	for star, ref := range starColors {
		if rgbDistance(c, ref) < starTolerance {
			return star, true
		}
	}
	return 0, false
}

func rgbDistance(a, b rgb) float64 {
	dr := a.r - b.r
	dg := a.g - b.g
	db := a.b - b.b
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// rowFields collects the three OCR'd fields of one row after the join.
type rowFields struct {
	name     string
	nameErr  error
	typeText string
	typeErr  error
	timeText string
	timeErr  error
}

// Rows decodes every record on the page. All fields of all rows go to the
// recognizer concurrently and are joined per row. A field that fails to
// decode truncates the accepted rows at that row: trailing placeholder rows
// on a short final page decode as garbage and must not produce records. The
// truncation is logged because it can equally hide a genuine misread.
func (p *Page) Rows(ctx context.Context, rec Recognizer) ([]record.Record, error) {
	stars := Stars(p.Image)
	if len(stars) == 0 {
		return nil, nil
	}

	fields := make([]rowFields, len(stars))
	var wg sync.WaitGroup
	for i := range stars {
		i := i
		submit := func(r image.Rectangle, text *string, errDst *error) {
			defer wg.Done()
			tokens, err := rec.Submit(ctx, glyphCrop(p.Image, r))
			if err != nil {
				*errDst = err
				return
			}
			*text = ocr.Text(tokens)
		}
		wg.Add(3)
		go submit(nameRect(i), &fields[i].name, &fields[i].nameErr)
		go submit(typeRect(i), &fields[i].typeText, &fields[i].typeErr)
		go submit(timeRect(i), &fields[i].timeText, &fields[i].timeErr)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]record.Record, 0, len(stars))
	for i, star := range stars {
		r, err := resolveRow(star, fields[i])
		if err != nil {
			log.Printf("Classify: page %d row %d: %v; dropping %d remaining row(s)",
				p.Index, i, err, len(stars)-i)
			break
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// resolveRow turns the joined field texts into a record, reporting the first
// field-level decode failure.
func resolveRow(star uint8, f rowFields) (record.Record, error) {
	if f.nameErr != nil {
		return record.Record{}, fmt.Errorf("name field: %w", f.nameErr)
	}
	if f.typeErr != nil {
		return record.Record{}, fmt.Errorf("category field: %w", f.typeErr)
	}
	if f.timeErr != nil {
		return record.Record{}, fmt.Errorf("time field: %w", f.timeErr)
	}

	itemType, ok := record.ItemTypeFromLabel(f.typeText)
	if !ok {
		return record.Record{}, fmt.Errorf("category field: unknown label %q", f.typeText)
	}

	t, err := time.ParseInLocation(record.TimeLayout, f.timeText, time.Local)
	if err != nil {
		return record.Record{}, fmt.Errorf("time field: %q: %v", f.timeText, err)
	}

	return record.Record{
		Star:      star,
		ItemName:  f.name,
		ItemType:  itemType,
		Timestamp: t.Unix(),
	}, nil
}
