package classify

import (
	"image"
	"math"
)

// Pixel layout of the pull-history listing page, authored against the
// 1920x1080 reference resolution.
const (
	maxRowsPerPage = 10

	firstRowTop = 207
	rowHeight   = 32
	// Rows are spaced so ten of them fill the list area exactly.
	rowSpacing = 319.0 / 9.0

	starX = 352

	nameX0 = 367
	nameX1 = 883
	typeX0 = 883
	timeX1 = 1548
	typeX1 = (typeX0 + timeX1 + 1) / 2
	timeX0 = typeX1

	pageButtonX = 1664

	indexX0 = 1577
	indexX1 = (pageButtonX-indexX0)+pageButtonX
	indexY0 = 464
	indexY1 = 577

	// A well-framed glyph crop is rowHeight tall with this margin around the
	// ink; tightening re-creates that framing for glyphs of any size.
	glyphMargin = 7
	glyphHeight = rowHeight - 2*glyphMargin
)

// Page-flip buttons in design coordinates, used by the pagination wiring.
// The previous-page arrow sits slightly above the index label band.
var (
	NextPageButton = image.Point{X: pageButtonX, Y: 616}
	PrevPageButton = image.Point{X: pageButtonX, Y: 425}
)

// rowTops lists the top y of each record row.
var rowTops = func() [maxRowsPerPage]int {
	var tops [maxRowsPerPage]int
	for i := range tops {
		tops[i] = firstRowTop + int(math.Round((rowHeight+rowSpacing)*float64(i)))
	}
	return tops
}()

func rowRect(row int, x0, x1 int) image.Rectangle {
	top := rowTops[row]
	return image.Rect(x0, top, x1, top+rowHeight)
}

func nameRect(row int) image.Rectangle  { return rowRect(row, nameX0, nameX1) }
func typeRect(row int) image.Rectangle  { return rowRect(row, typeX0, typeX1) }
func timeRect(row int) image.Rectangle  { return rowRect(row, timeX0, timeX1) }
func indexRect() image.Rectangle        { return image.Rect(indexX0, indexY0, indexX1, indexY1) }
func starPoint(row int) image.Point {
	return image.Point{X: starX, Y: rowTops[row] + (rowHeight+1)/2}
}

// Reference colors of the star-tier marker, one fixed pixel per row.
type rgb struct{ r, g, b float64 }

var starColors = map[uint8]rgb{
	3: {55, 98, 242},
	4: {192, 105, 214},
	5: {233, 155, 55},
}

// starTolerance is the maximum Euclidean RGB distance to a reference color.
const starTolerance = 5.0
