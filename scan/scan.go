// Package scan runs one full pull-history scan: it paginates the listing,
// decodes every collected page, reconciles the fresh records with stored
// history, and writes the results out.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"snowbreak-gacha-export/capture"
	"snowbreak-gacha-export/classify"
	"snowbreak-gacha-export/input"
	"snowbreak-gacha-export/paginate"
	"snowbreak-gacha-export/record"
	"snowbreak-gacha-export/store"
)

// pageDecodeLimit caps how many pages decode their rows at once. Each page
// already fans its fields out to the OCR pool, so a small limit keeps the
// pool's queue from being dominated by a single page.
const pageDecodeLimit = 4

// Options carries the per-scan knobs.
type Options struct {
	Banner       record.BannerType
	Language     record.Language
	Settle       time.Duration
	PollTimeout  time.Duration
	RewindBudget int
	// ExcelPath, when set, rewrites the workbook after a successful scan.
	ExcelPath string
}

// Scanner wires the screen, input and OCR layers together for Run.
type Scanner struct {
	Recognizer classify.Recognizer
	Source     capture.Source
	Clicker    input.Injector
	Window     input.ClientRect
	Store      *store.Store
	Options    Options
}

// Summary reports what one scan accomplished.
type Summary struct {
	Pages   int
	Records int // total records now stored for the banner
	Added   int // records the scan contributed
	// UnmergedDump is the path of the rejected-scan dump, set only when the
	// merge was refused.
	UnmergedDump string
}

// Run executes one scan of the configured banner. On a refused merge the
// fresh records are dumped for inspection and the stored history is left
// untouched.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	pages, err := s.paginate(ctx)
	summary := Summary{Pages: len(pages)}
	if err != nil {
		return summary, fmt.Errorf("paginating %s: %w", s.Options.Banner.FileName(), err)
	}

	fresh, err := s.decodePages(ctx, pages)
	if err != nil {
		return summary, fmt.Errorf("decoding pages: %w", err)
	}
	log.Printf("Scan: decoded %d record(s) across %d page(s)", len(fresh), len(pages))

	old, err := s.Store.Load(s.Options.Banner)
	if err != nil {
		return summary, err
	}

	merged, added, err := record.Merge(fresh, old)
	if errors.Is(err, record.ErrOrderViolation) {
		dump, dumpErr := s.Store.DumpUnmerged(s.Options.Banner, fresh, old)
		if dumpErr != nil {
			return summary, fmt.Errorf("%w (and dumping failed: %v)", err, dumpErr)
		}
		summary.UnmergedDump = dump
		return summary, err
	}
	if err != nil {
		return summary, err
	}

	if err := s.Store.SaveMerged(s.Options.Banner, merged); err != nil {
		return summary, err
	}
	summary.Records = len(merged)
	summary.Added = added

	if s.Options.ExcelPath != "" {
		if err := s.Store.ExportAll(s.Options.ExcelPath, s.Options.Language); err != nil {
			return summary, fmt.Errorf("exporting workbook: %w", err)
		}
	}
	return summary, nil
}

func (s *Scanner) paginate(ctx context.Context) ([]classify.Page, error) {
	ctrl := &paginate.Controller{
		Capture: func() (image.Image, error) {
			frame, err := s.Source.Frame()
			if err != nil {
				return nil, err
			}
			return capture.Canonicalize(frame)
		},
		IndexOf: func(ctx context.Context, img image.Image) (int, error) {
			return classify.Index(ctx, s.Recognizer, img)
		},
		NextPage:     s.click(classify.NextPageButton),
		PrevPage:     s.click(classify.PrevPageButton),
		Settle:       s.Options.Settle,
		PollTimeout:  s.Options.PollTimeout,
		RewindBudget: s.Options.RewindBudget,
	}
	return ctrl.Run(ctx)
}

func (s *Scanner) click(button image.Point) func() error {
	return func() error {
		x, y := s.Window.ToScreen(button.X, button.Y)
		return s.Clicker.Click(x, y)
	}
}

// decodePages turns collected pages into one newest-first record list. Pages
// decode concurrently; the flattening preserves page order, so the result
// stays newest-first.
func (s *Scanner) decodePages(ctx context.Context, pages []classify.Page) ([]record.Record, error) {
	perPage := make([][]record.Record, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageDecodeLimit)
	for i := range pages {
		i := i
		g.Go(func() error {
			rows, err := pages[i].Rows(gctx, s.Recognizer)
			if err != nil {
				return fmt.Errorf("page %d: %w", pages[i].Index, err)
			}
			perPage[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fresh []record.Record
	for _, rows := range perPage {
		fresh = append(fresh, rows...)
	}
	return fresh, nil
}
