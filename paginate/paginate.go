// Package paginate drives the pull-history listing back to its first page and
// then walks it forward, collecting one accepted capture per page. It owns no
// screen or input code itself; the scanner wires those in.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"snowbreak-gacha-export/classify"
)

// State of the pagination walk.
type State int

const (
	// StateLocating waits for the screen to show a valid listing page.
	StateLocating State = iota
	// StateRewinding clicks backwards until the listing shows page 1.
	StateRewinding
	// StateAdvancing collects pages forward until the index stops moving.
	StateAdvancing
	// StateDone means every page was collected.
	StateDone
	// StateFailed means the walk stopped before reaching the end.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLocating:
		return "locating"
	case StateRewinding:
		return "rewinding"
	case StateAdvancing:
		return "advancing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrRewindBudgetExceeded means the walk clicked backwards the allowed number
// of times without ever seeing page 1.
var ErrRewindBudgetExceeded = errors.New("rewind budget exceeded before reaching page 1")

// Defaults for the timing knobs.
const (
	DefaultSettle       = 200 * time.Millisecond
	DefaultPollTimeout  = 1 * time.Second
	DefaultRewindBudget = 20
)

// Controller walks the listing. Capture, IndexOf and the click functions are
// injected so tests can run the state machine without a screen.
type Controller struct {
	// Capture grabs one canonical frame.
	Capture func() (image.Image, error)
	// IndexOf decodes the page-index label, or reports the frame is not a
	// listing page.
	IndexOf func(ctx context.Context, img image.Image) (int, error)
	// NextPage and PrevPage click the page-flip buttons.
	NextPage func() error
	PrevPage func() error

	// Settle is how long to wait after a click before trusting a capture.
	Settle time.Duration
	// PollTimeout bounds how long a single page observation may keep
	// retrying before the walk gives up. Hitting it while advancing is not
	// an error: an unresponsive next-click means the last page was already
	// collected.
	PollTimeout time.Duration
	// RewindBudget caps backward clicks.
	RewindBudget int

	state State
}

// State reports the walk's current phase.
func (c *Controller) State() State { return c.state }

func (c *Controller) settle() time.Duration {
	if c.Settle > 0 {
		return c.Settle
	}
	return DefaultSettle
}

func (c *Controller) pollTimeout() time.Duration {
	if c.PollTimeout > 0 {
		return c.PollTimeout
	}
	return DefaultPollTimeout
}

func (c *Controller) rewindBudget() int {
	if c.RewindBudget > 0 {
		return c.RewindBudget
	}
	return DefaultRewindBudget
}

// Run walks the listing and returns the collected pages in order, first page
// first. On failure it returns the pages collected so far together with the
// error.
func (c *Controller) Run(ctx context.Context) ([]classify.Page, error) {
	c.state = StateLocating
	page, err := c.observe(ctx)
	if err != nil {
		c.state = StateFailed
		return nil, fmt.Errorf("locating listing page: %w", err)
	}
	log.Printf("Paginate: located listing at page %d", page.Index)

	if page, err = c.rewind(ctx, page); err != nil {
		c.state = StateFailed
		return nil, err
	}

	pages, err := c.advance(ctx, page)
	if err != nil {
		c.state = StateFailed
		return pages, err
	}
	c.state = StateDone
	log.Printf("Paginate: collected %d page(s)", len(pages))
	return pages, nil
}

// rewind clicks backwards until the index reads 1. An observation timeout
// while rewinding is a failure: unlike advancing, the walk has not collected
// anything it can call complete.
func (c *Controller) rewind(ctx context.Context, page classify.Page) (classify.Page, error) {
	c.state = StateRewinding
	for clicks := 0; page.Index != 1; clicks++ {
		if clicks >= c.rewindBudget() {
			return page, fmt.Errorf("%w: stuck at page %d after %d click(s)",
				ErrRewindBudgetExceeded, page.Index, clicks)
		}
		if err := c.PrevPage(); err != nil {
			return page, fmt.Errorf("rewinding: %w", err)
		}
		next, err := c.observe(ctx)
		if err != nil {
			return page, fmt.Errorf("rewinding from page %d: %w", page.Index, err)
		}
		page = next
	}
	return page, nil
}

// advance collects pages forward. After each click it polls for the next
// contiguous index; a poll that times out without progress means the listing
// has no further page. There is no explicit end-of-list marker, so absence of
// progress within the timeout is the completion signal.
func (c *Controller) advance(ctx context.Context, page classify.Page) ([]classify.Page, error) {
	c.state = StateAdvancing
	pages := []classify.Page{page}
	for {
		if err := c.NextPage(); err != nil {
			return pages, fmt.Errorf("advancing past page %d: %w", page.Index, err)
		}
		next, ok, err := c.awaitIndex(ctx, page.Index+1)
		if err != nil {
			return pages, fmt.Errorf("advancing past page %d: %w", page.Index, err)
		}
		if !ok {
			return pages, nil
		}
		page = next
		pages = append(pages, page)
	}
}

// awaitIndex polls until the listing shows the wanted index. ok=false means
// the poll timeout elapsed without progress; only a parent-context error is
// reported as an error.
func (c *Controller) awaitIndex(ctx context.Context, want int) (page classify.Page, ok bool, err error) {
	if err := sleepCtx(ctx, c.settle()); err != nil {
		return classify.Page{}, false, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout())
	defer cancel()

	for {
		img, err := c.Capture()
		if err != nil {
			return classify.Page{}, false, fmt.Errorf("capture: %w", err)
		}
		if idx, err := c.IndexOf(pollCtx, img); err == nil && idx == want {
			return classify.Page{Index: idx, Image: img}, true, nil
		}

		select {
		case <-pollCtx.Done():
			return classify.Page{}, false, ctx.Err()
		case <-time.After(c.settle() / 4):
		}
	}
}

// observe waits for the screen to settle, then captures and decodes frames
// until one reads as a listing page or the poll timeout passes.
func (c *Controller) observe(ctx context.Context) (classify.Page, error) {
	if err := sleepCtx(ctx, c.settle()); err != nil {
		return classify.Page{}, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout())
	defer cancel()

	var lastErr error
	for {
		img, err := c.Capture()
		if err != nil {
			return classify.Page{}, fmt.Errorf("capture: %w", err)
		}
		idx, err := c.IndexOf(pollCtx, img)
		if err == nil {
			return classify.Page{Index: idx, Image: img}, nil
		}
		lastErr = err

		select {
		case <-pollCtx.Done():
			if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
				return classify.Page{}, fmt.Errorf("%w (last decode: %v)", pollCtx.Err(), lastErr)
			}
			return classify.Page{}, pollCtx.Err()
		case <-time.After(c.settle() / 4):
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
