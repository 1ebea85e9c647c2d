package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snowbreak-gacha-export/classify"
	"snowbreak-gacha-export/input"
	"snowbreak-gacha-export/ocr"
	"snowbreak-gacha-export/record"
	"snowbreak-gacha-export/store"
)

// The fakes below paint real 1920x1080 listing pages: star pixels at the
// sampled positions and a distinct gray shade in each text field. The fake
// recognizer answers by the darkest pixel of the crop it is handed, so the
// whole classify pipeline runs for real.

type fakeGame struct {
	pages   []*image.RGBA
	current int
}

func (g *fakeGame) Frame() (image.Image, error) { return g.pages[g.current], nil }

func (g *fakeGame) Click(x, y int) error {
	switch y {
	case classify.NextPageButton.Y:
		if g.current < len(g.pages)-1 {
			g.current++
		}
	case classify.PrevPageButton.Y:
		if g.current > 0 {
			g.current--
		}
	}
	return nil
}

type shadeRecognizer map[uint8]string

func (f shadeRecognizer) Submit(ctx context.Context, img image.Image) ([]ocr.Token, error) {
	b := img.Bounds()
	darkest := uint8(255)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if g < darkest {
				darkest = g
			}
		}
	}
	if s, ok := f[darkest]; ok {
		return []ocr.Token{{Text: s}}, nil
	}
	return nil, ocr.ErrNoTextFound
}

var starFills = map[uint8]color.RGBA{
	3: {R: 55, G: 98, B: 242, A: 255},
	4: {R: 192, G: 105, B: 214, A: 255},
	5: {R: 233, G: 155, B: 55, A: 255},
}

type pageBuilder struct {
	text  shadeRecognizer
	shade uint8
}

func newPageBuilder() *pageBuilder {
	return &pageBuilder{text: shadeRecognizer{}, shade: 10}
}

func (b *pageBuilder) paint(img *image.RGBA, r image.Rectangle, label string) {
	b.text[b.shade] = label
	c := color.RGBA{R: b.shade, G: b.shade, B: b.shade, A: 255}
	draw.Draw(img, r.Inset(6), image.NewUniform(c), image.Point{}, draw.Src)
	b.shade += 3
}

func (b *pageBuilder) page(index int, rows []record.Record) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	b.paint(img, image.Rect(1577, 464, 1751, 577), itoa(index))
	for i, rec := range rows {
		p := starPointFor(i)
		img.SetRGBA(p.X, p.Y, starFills[rec.Star])
		b.paint(img, fieldRect(i, 367, 883), rec.ItemName)
		b.paint(img, fieldRect(i, 883, 1216), rec.ItemType.Label(record.LanguageEN))
		b.paint(img, fieldRect(i, 1216, 1548), rec.TimeString())
	}
	return img
}

func itoa(n int) string { return string(rune('0' + n)) }

func fieldRect(row, x0, x1 int) image.Rectangle {
	top := 207 + row*67 // matches the listing row pitch for the first rows
	return image.Rect(x0, top, x1, top+32)
}

func starPointFor(row int) image.Point {
	top := 207 + row*67
	return image.Point{X: 352, Y: top + 16}
}

func rec(star uint8, name string, typ record.ItemType, ts string) record.Record {
	t, err := time.ParseInLocation(record.TimeLayout, ts, time.Local)
	if err != nil {
		panic(err)
	}
	return record.Record{Star: star, ItemName: name, ItemType: typ, Timestamp: t.Unix()}
}

func newScanner(t *testing.T, game *fakeGame, recognizer shadeRecognizer, banner record.BannerType) (*Scanner, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	return &Scanner{
		Recognizer: recognizer,
		Source:     game,
		Clicker:    game,
		Window:     input.ClientRect{X: 0, Y: 0, Width: 1920, Height: 1080},
		Store:      st,
		Options: Options{
			Banner:      banner,
			Language:    record.LanguageEN,
			Settle:      time.Millisecond,
			PollTimeout: 100 * time.Millisecond,
		},
	}, st
}

func TestScanFreshHistory(t *testing.T) {
	r1 := rec(5, "Katya", record.ItemCharacter, "2024-06-01 12:30")
	r2 := rec(3, "Frost Echo", record.ItemWeapon, "2024-06-01 12:29")
	r3 := rec(4, "Lyfe", record.ItemCharacter, "2024-06-01 12:28")

	b := newPageBuilder()
	game := &fakeGame{pages: []*image.RGBA{
		b.page(1, []record.Record{r1, r2}),
		b.page(2, []record.Record{r3}),
	}}
	// Start the game on page 2 so the scan has to rewind first.
	game.current = 1

	banner := record.BannerLimitedCharacter100
	s, st := newScanner(t, game, b.text, banner)
	s.Options.ExcelPath = filepath.Join(st.Dir, "history.xlsx")

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Pages != 2 || summary.Records != 3 || summary.Added != 3 {
		t.Errorf("Expected 2 pages / 3 records / 3 added, got %+v", summary)
	}

	stored, err := st.Load(banner)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []record.Record{r1, r2, r3}
	if len(stored) != len(want) {
		t.Fatalf("Expected %d stored records, got %d", len(want), len(stored))
	}
	for i := range want {
		if stored[i] != want[i] {
			t.Errorf("Stored %d: expected %+v, got %+v", i, want[i], stored[i])
		}
	}

	if _, err := os.Stat(s.Options.ExcelPath); err != nil {
		t.Errorf("Expected workbook at %s: %v", s.Options.ExcelPath, err)
	}
}

func TestScanMergesWithStoredHistory(t *testing.T) {
	r1 := rec(5, "Katya", record.ItemCharacter, "2024-06-01 12:30")
	r2 := rec(3, "Frost Echo", record.ItemWeapon, "2024-06-01 12:29")
	r3 := rec(4, "Lyfe", record.ItemCharacter, "2024-06-01 12:28")

	b := newPageBuilder()
	game := &fakeGame{pages: []*image.RGBA{
		b.page(1, []record.Record{r1, r2}),
		b.page(2, []record.Record{r3}),
	}}

	banner := record.BannerPermanentCharacter
	s, st := newScanner(t, game, b.text, banner)
	if err := st.SaveMerged(banner, []record.Record{r2, r3}); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Records != 3 || summary.Added != 1 {
		t.Errorf("Expected 3 records / 1 added, got %+v", summary)
	}
}

func TestScanOrderViolationDumpsAndKeepsHistory(t *testing.T) {
	fresh1 := rec(5, "Katya", record.ItemCharacter, "2024-06-01 12:30")
	fresh2 := rec(3, "Frost Echo", record.ItemWeapon, "2024-06-01 11:00")
	stale := rec(4, "Lyfe", record.ItemCharacter, "2024-06-01 12:00")

	b := newPageBuilder()
	game := &fakeGame{pages: []*image.RGBA{
		b.page(1, []record.Record{fresh1, fresh2}),
	}}

	banner := record.BannerBeginner
	s, st := newScanner(t, game, b.text, banner)
	if err := st.SaveMerged(banner, []record.Record{stale}); err != nil {
		t.Fatal(err)
	}

	summary, err := s.Run(context.Background())
	if !errors.Is(err, record.ErrOrderViolation) {
		t.Fatalf("Expected ErrOrderViolation, got %v", err)
	}
	if summary.UnmergedDump == "" {
		t.Fatal("Expected an unmerged dump path")
	}
	if _, err := os.Stat(summary.UnmergedDump); err != nil {
		t.Errorf("Expected dump file: %v", err)
	}

	stored, err := st.Load(banner)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(stored) != 1 || stored[0] != stale {
		t.Errorf("Expected stored history untouched, got %+v", stored)
	}
}
