package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"snowbreak-gacha-export/record"
)

func TestExportExcelWritesSheetPerBanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	sequences := []record.Sequence{
		{Banner: record.BannerLimitedCharacter100, Records: sampleRecords},
		{Banner: record.BannerBeginner, Records: nil}, // empty: no sheet
		{Banner: record.BannerPermanentWeapon, Records: sampleRecords[:1]},
	}

	require.NoError(t, ExportExcel(path, record.LanguageEN, sequences))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	wantSheets := []string{
		record.BannerLimitedCharacter100.DisplayName(record.LanguageEN),
		record.BannerPermanentWeapon.DisplayName(record.LanguageEN),
	}
	assert.Equal(t, wantSheets, f.GetSheetList())

	sheet := wantSheets[0]
	name, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Katya", name)

	category, err := f.GetCellValue(sheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "Weapon", category)

	header, err := f.GetCellValue(sheet, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Into 5-Star", header)

	// The 5-star in row 2 landed on the 3rd pull of its window.
	into5, err := f.GetCellValue(sheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "3", into5)
}

func TestExportExcelLocalizedHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	sequences := []record.Sequence{
		{Banner: record.BannerBeginner, Records: sampleRecords[:1]},
	}
	require.NoError(t, ExportExcel(path, record.LanguageZH, sequences))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheet := record.BannerBeginner.DisplayName(record.LanguageZH)
	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "时间", header)

	category, err := f.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "角色", category)
}

func TestExportExcelAllEmptyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	err := ExportExcel(path, record.LanguageEN, []record.Sequence{
		{Banner: record.BannerBeginner, Records: nil},
	})
	assert.Error(t, err)
}
