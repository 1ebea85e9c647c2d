package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"snowbreak-gacha-export/capture"
	"snowbreak-gacha-export/config"
	"snowbreak-gacha-export/dispatch"
	"snowbreak-gacha-export/hotkey"
	"snowbreak-gacha-export/input"
	"snowbreak-gacha-export/logutil"
	"snowbreak-gacha-export/ocr"
	"snowbreak-gacha-export/ocr/paddle"
	"snowbreak-gacha-export/ocr/tesseract"
	"snowbreak-gacha-export/record"
	"snowbreak-gacha-export/scan"
	"snowbreak-gacha-export/store"
	"snowbreak-gacha-export/update"
)

// version is stamped by the release build.
var version = "dev"

type cliOptions struct {
	banner   string
	language string
	engine   string
	window   string
	listen   bool
	verbose  bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(os.Args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gacha-export",
		Short:         "Scan the in-game pull history and export it",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.banner, "banner", "", "Banner to scan: "+strings.Join(bannerStems(), ", "))
	cmd.Flags().StringVar(&opts.language, "language", "", "Export language: zh or en (overrides .env)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: paddle or tesseract (overrides .env)")
	cmd.Flags().StringVar(&opts.window, "window", "", "Game client area as x,y,w,h (default: whole display)")
	cmd.Flags().BoolVar(&opts.listen, "listen", false, "Wait for the hotkey instead of scanning immediately")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	_ = cmd.MarkFlagRequired("banner")

	return cmd
}

func runWithOptions(opts cliOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opts.engine != "" {
		cfg.Engine = opts.engine
	}
	if opts.language != "" {
		cfg.Language = opts.language
	}

	if opts.verbose {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		logutil.Setup(cfg.EnableFileLogging)
	}

	banner, err := bannerFromStem(opts.banner)
	if err != nil {
		return err
	}

	input.EnableDPIAwareness()
	warnIfOutdated()

	source, window, err := buildSource(opts.window, cfg.DisplayIndex)
	if err != nil {
		return err
	}

	factory, err := buildFactory(cfg)
	if err != nil {
		return err
	}
	engine := dispatch.New(factory, cfg.OCRPoolSize)
	defer engine.Close()

	scanner := &scan.Scanner{
		Recognizer: engine,
		Source:     source,
		Clicker:    input.Robotgo{},
		Window:     window,
		Store:      store.New(cfg.DataDir),
		Options: scan.Options{
			Banner:       banner,
			Language:     record.ParseLanguage(cfg.Language),
			Settle:       cfg.SettleDelay,
			PollTimeout:  cfg.PollTimeout,
			RewindBudget: cfg.RewindBudget,
			ExcelPath:    cfg.ExcelPath,
		},
	}

	if opts.listen {
		return listenAndScan(scanner, cfg.Hotkey)
	}
	return scanOnce(scanner)
}

func scanOnce(scanner *scan.Scanner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := scanner.Run(ctx)
	if err != nil {
		if summary.UnmergedDump != "" {
			fmt.Printf("Scan rejected; fresh records kept at %s\n", summary.UnmergedDump)
		}
		return err
	}
	fmt.Printf("Scanned %d page(s): %d record(s) stored, %d new\n",
		summary.Pages, summary.Records, summary.Added)
	return nil
}

func listenAndScan(scanner *scan.Scanner, combo string) error {
	trigger := make(chan struct{}, 1)
	if err := hotkey.Listen(combo, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}
	fmt.Printf("Ready. Open the pull history in game and press %s to scan (Ctrl+C to quit).\n", combo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			if err := scanOnce(scanner); err != nil {
				fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			}
		}
	}
}

func buildFactory(cfg *config.Config) (ocr.Factory, error) {
	switch cfg.Engine {
	case "paddle":
		if cfg.PaddlePath == "" {
			return nil, fmt.Errorf("PADDLE_OCR_PATH is required for the paddle engine")
		}
		return paddle.Factory(cfg.PaddlePath), nil
	case "tesseract":
		return tesseract.Factory("eng", "chi_sim"), nil
	}
	return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
}

// buildSource picks the capture source: an explicit client rect for windowed
// clients, otherwise the whole configured display.
func buildSource(window string, display int) (capture.Source, input.ClientRect, error) {
	if window != "" {
		rect, err := parseWindow(window)
		if err != nil {
			return nil, input.ClientRect{}, err
		}
		source := capture.RectSource{Rect: image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)}
		return source, rect, nil
	}

	source := capture.DisplaySource{Display: display}
	frame, err := source.Frame()
	if err != nil {
		return nil, input.ClientRect{}, fmt.Errorf("probing display %d: %w", display, err)
	}
	b := frame.Bounds()
	return source, input.ClientRect{X: 0, Y: 0, Width: b.Dx(), Height: b.Dy()}, nil
}

func parseWindow(spec string) (input.ClientRect, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return input.ClientRect{}, fmt.Errorf("--window wants x,y,w,h, got %q", spec)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return input.ClientRect{}, fmt.Errorf("--window wants x,y,w,h, got %q", spec)
		}
		vals[i] = n
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return input.ClientRect{}, fmt.Errorf("--window needs a positive size, got %q", spec)
	}
	return input.ClientRect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func bannerStems() []string {
	stems := make([]string, len(record.BannerTypes))
	for i, b := range record.BannerTypes {
		stems[i] = b.FileName()
	}
	return stems
}

func bannerFromStem(stem string) (record.BannerType, error) {
	for _, b := range record.BannerTypes {
		if b.FileName() == stem {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown banner %q (want one of: %s)", stem, strings.Join(bannerStems(), ", "))
}

// warnIfOutdated is best-effort: network failures stay in the log.
func warnIfOutdated() {
	checker := &update.Checker{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	latest, err := checker.Latest(ctx)
	if err != nil {
		log.Printf("Update: check skipped: %v", err)
		return
	}
	if update.Available(version, latest) {
		fmt.Printf("A newer release (%s) is available: %s\n", latest.Version, latest.URL)
	}
}
