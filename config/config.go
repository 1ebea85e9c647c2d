package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for everything the .env file leaves unset.
const (
	DefaultEngine       = "paddle"
	DefaultDataDir      = "data"
	DefaultExcelFile    = "gacha_history.xlsx"
	DefaultSettle       = 200 * time.Millisecond
	DefaultPollTimeout  = 1 * time.Second
	DefaultRewindBudget = 20
	DefaultHotkey       = "Ctrl+Alt+G"
)

type Config struct {
	// Language picks the display language of exports ("zh" or "en").
	Language string
	// Engine selects the OCR backend: "paddle" or "tesseract".
	Engine string
	// PaddlePath is the PaddleOCR-json executable, required by the paddle
	// engine.
	PaddlePath string
	// DataDir holds the per-banner history files.
	DataDir string
	// ExcelPath is where the workbook is written after a scan.
	ExcelPath string

	DisplayIndex int
	OCRPoolSize  int

	SettleDelay  time.Duration
	PollTimeout  time.Duration
	RewindBudget int

	Hotkey            string
	EnableFileLogging bool
}

// Load reads the .env file and environment. The file is searched next to the
// working directory and the executable; GACHA_EXPORT_ENV overrides the search
// with an explicit path.
func Load() (*Config, error) {
	envPaths := []string{".env"}
	if explicit := os.Getenv("GACHA_EXPORT_ENV"); explicit != "" {
		envPaths = []string{explicit}
	} else if execPath, err := os.Executable(); err == nil {
		envPaths = append(envPaths, filepath.Join(filepath.Dir(execPath), ".env"))
	}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err == nil {
			godotenv.Load(envPath)
			break
		}
	}

	cfg := &Config{
		Language:          getEnvWithDefault("LANGUAGE", "zh"),
		Engine:            getEnvWithDefault("OCR_ENGINE", DefaultEngine),
		PaddlePath:        os.Getenv("PADDLE_OCR_PATH"),
		DataDir:           getEnvWithDefault("DATA_DIR", DefaultDataDir),
		ExcelPath:         getEnvWithDefault("EXCEL_PATH", DefaultExcelFile),
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
	}

	var err error
	if cfg.DisplayIndex, err = intEnv("DISPLAY_INDEX", 0); err != nil {
		return nil, err
	}
	if cfg.OCRPoolSize, err = intEnv("OCR_POOL_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.RewindBudget, err = intEnv("REWIND_BUDGET", DefaultRewindBudget); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = durationEnv("SETTLE_DELAY", DefaultSettle); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = durationEnv("POLL_TIMEOUT", DefaultPollTimeout); err != nil {
		return nil, err
	}

	// The paddle path requirement is checked by the caller once the engine
	// choice is final: CLI flags may still override Engine.
	switch cfg.Engine {
	case "paddle", "tesseract":
	default:
		return nil, fmt.Errorf("OCR_ENGINE must be paddle or tesseract, got %q", cfg.Engine)
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, value)
	}
	return n, nil
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration (try \"200ms\")", key, value)
	}
	return d, nil
}
