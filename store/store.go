// Package store persists pull records. Each banner keeps one CSV file of its
// full merged history; rejected merges are dumped untouched for inspection.
package store

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"snowbreak-gacha-export/record"
)

var csvHeader = []string{"star", "item_name", "item_type", "timestamp"}

// Store reads and writes per-banner record files under Dir.
type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) bannerPath(banner record.BannerType) string {
	return filepath.Join(s.Dir, banner.FileName()+".csv")
}

// Load reads the stored history for a banner, newest-first as written. A
// missing file is an empty history, not an error.
func (s *Store) Load(banner record.BannerType) ([]record.Record, error) {
	f, err := os.Open(s.bannerPath(banner))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s history: %w", banner.FileName(), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s history: %w", banner.FileName(), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]record.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s history line %d: %w", banner.FileName(), i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (record.Record, error) {
	star, err := strconv.ParseUint(row[0], 10, 8)
	if err != nil {
		return record.Record{}, fmt.Errorf("star %q: %v", row[0], err)
	}
	itemType, ok := record.ItemTypeFromToken(row[2])
	if !ok {
		return record.Record{}, fmt.Errorf("unknown item type %q", row[2])
	}
	ts, err := strconv.ParseInt(row[3], 10, 64)
	if err != nil {
		return record.Record{}, fmt.Errorf("timestamp %q: %v", row[3], err)
	}
	return record.Record{
		Star:      uint8(star),
		ItemName:  row[1],
		ItemType:  itemType,
		Timestamp: ts,
	}, nil
}

// SaveMerged replaces the banner's history file. The write goes through a
// temp file so a crash never leaves a half-written history behind.
func (s *Store) SaveMerged(banner record.BannerType, records []record.Record) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	path := s.bannerPath(banner)
	tmp, err := os.CreateTemp(s.Dir, banner.FileName()+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s history: %w", banner.FileName(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s history: %w", banner.FileName(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s history: %w", banner.FileName(), err)
	}
	log.Printf("Store: saved %d record(s) to %s", len(records), path)
	return nil
}

// DumpUnmerged writes both sides of a rejected merge next to the store, as a
// paired fresh/old snapshot, so the conflicting data survives for manual
// reconciliation. Returns the path of the fresh-side dump.
func (s *Store) DumpUnmerged(banner record.BannerType, fresh, old []record.Record) (string, error) {
	dir := filepath.Join(s.Dir, "unmerged")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating unmerged dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	freshPath := filepath.Join(dir, fmt.Sprintf("%s_%s_fresh.csv", banner.FileName(), stamp))
	oldPath := filepath.Join(dir, fmt.Sprintf("%s_%s_old.csv", banner.FileName(), stamp))
	if err := dumpCSV(freshPath, fresh); err != nil {
		return "", err
	}
	if err := dumpCSV(oldPath, old); err != nil {
		return "", err
	}
	log.Printf("Store: dumped unmerged records (%d fresh, %d old) to %s", len(fresh), len(old), dir)
	return freshPath, nil
}

func dumpCSV(path string, records []record.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating unmerged dump: %w", err)
	}
	defer f.Close()
	if err := writeCSV(f, records); err != nil {
		return fmt.Errorf("writing unmerged dump: %w", err)
	}
	return nil
}

func writeCSV(f *os.File, records []record.Record) error {
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(int(rec.Star)),
			rec.ItemName,
			rec.ItemType.String(),
			strconv.FormatInt(rec.Timestamp, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
