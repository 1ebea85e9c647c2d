package store

import (
	"fmt"
	"log"

	"github.com/xuri/excelize/v2"

	"snowbreak-gacha-export/record"
)

// Tier row fills, matching the in-game star colors.
const (
	fill5Star = "E99B37"
	fill4Star = "C069D6"
)

func excelHeaders(lang record.Language) []string {
	if lang == record.LanguageZH {
		return []string{"时间", "名称", "类别", "星级", "距上个五星", "距保底剩余", "距上个四星"}
	}
	return []string{"Time", "Item", "Category", "Star", "Into 5-Star", "Left to Pity", "Into 4-Star"}
}

// ExportAll loads every banner's stored history and writes the workbook.
func (s *Store) ExportAll(path string, lang record.Language) error {
	sequences := make([]record.Sequence, 0, len(record.BannerTypes))
	for _, banner := range record.BannerTypes {
		records, err := s.Load(banner)
		if err != nil {
			return err
		}
		sequences = append(sequences, record.Sequence{Banner: banner, Records: records})
	}
	return ExportExcel(path, lang, sequences)
}

// ExportExcel writes one workbook with a sheet per banner that has records.
// Rows stay newest-first like the stored history; 5- and 4-star rows carry
// their tier color so the sheet reads like the in-game listing.
func ExportExcel(path string, lang record.Language, sequences []record.Sequence) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("excel style: %w", err)
	}
	style5, err := tierStyle(f, fill5Star)
	if err != nil {
		return fmt.Errorf("excel style: %w", err)
	}
	style4, err := tierStyle(f, fill4Star)
	if err != nil {
		return fmt.Errorf("excel style: %w", err)
	}

	sheets := 0
	for _, seq := range sequences {
		if len(seq.Records) == 0 {
			continue
		}
		name := seq.Banner.DisplayName(lang)
		if sheets == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("excel sheet %s: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return fmt.Errorf("excel sheet %s: %w", name, err)
			}
		}
		sheets++

		if err := writeSheet(f, name, lang, seq, headerStyle, style5, style4); err != nil {
			return fmt.Errorf("excel sheet %s: %w", name, err)
		}
	}
	if sheets == 0 {
		return fmt.Errorf("nothing to export: every banner is empty")
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	log.Printf("Store: exported %d sheet(s) to %s", sheets, path)
	return nil
}

func tierStyle(f *excelize.File, fill string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "FFFFFF", Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
	})
}

func writeSheet(f *excelize.File, sheet string, lang record.Language, seq record.Sequence, headerStyle, style5, style4 int) error {
	headers := excelHeaders(lang)
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, rec := range seq.Records {
		row := i + 2
		values := []interface{}{
			rec.TimeString(),
			rec.ItemName,
			rec.ItemType.Label(lang),
			int(rec.Star),
			seq.PullsInto5Star(i),
			seq.PullsLeftTo5Pity(i),
			seq.PullsInto4Star(i),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		switch rec.Star {
		case 5:
			if err := f.SetRowStyle(sheet, row, row, style5); err != nil {
				return err
			}
		case 4:
			if err := f.SetRowStyle(sheet, row, row, style4); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 18); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 24)
}
