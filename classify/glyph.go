package classify

import (
	"image"
	"image/color"
	"math"
)

// tightenGlyphRect shrinks a generous field rectangle to the actual ink
// bounding box, then re-expands it by a margin proportional to the detected
// glyph height. This way OCR always sees the glyphs framed the same no matter
// how long or short the field text is.
func tightenGlyphRect(img image.Image, r image.Rectangle) image.Rectangle {
	gray := grayCrop(img, r)
	threshold := otsuThreshold(gray)

	ink, ok := inkBounds(gray, threshold)
	if !ok {
		// Nothing darker than the threshold: leave the crop as authored and
		// let OCR report no text.
		return r
	}

	margin := int(math.Round(float64(ink.Dy()) / glyphHeight * glyphMargin))
	tight := image.Rect(
		r.Min.X+ink.Min.X-margin,
		r.Min.Y+ink.Min.Y-margin,
		r.Min.X+ink.Max.X+margin,
		r.Min.Y+ink.Max.Y+margin,
	)
	return tight.Intersect(img.Bounds())
}

// glyphCrop returns the tightened grayscale crop submitted to OCR.
func glyphCrop(img image.Image, r image.Rectangle) *image.Gray {
	return grayCrop(img, tightenGlyphRect(img, r))
}

// grayCrop converts the rectangle to a grayscale image with origin (0,0).
func grayCrop(img image.Image, r image.Rectangle) *image.Gray {
	r = r.Intersect(img.Bounds())
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dst.SetGray(x, y, color.GrayModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray))
		}
	}
	return dst
}

// otsuThreshold picks the global brightness threshold that maximizes the
// between-class variance of the crop's histogram.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	total := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	var sum float64
	for v, n := range hist {
		sum += float64(v) * float64(n)
	}

	var sumBack, weightBack float64
	var best float64
	var threshold uint8
	for v, n := range hist {
		weightBack += float64(n)
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(v) * float64(n)
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		between := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if between > best {
			best = between
			threshold = uint8(v)
		}
	}
	return threshold
}

// inkBounds finds the bounding box of pixels at or below the threshold.
func inkBounds(img *image.Gray, threshold uint8) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y <= threshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
