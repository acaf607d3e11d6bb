package seamless

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
)

// EdgeBandWidth returns the seam band width for a square of the given side:
// 5% of the side with a 20px floor.
func EdgeBandWidth(side int) int {
	band := side * 5 / 100
	if band < 20 {
		band = 20
	}
	return band
}

// BlendSeams softens the wrap boundary of a square image. Thin strips along
// each edge are Gaussian-blurred and overlaid back onto both the near edge
// and its opposite counterpart, then the mirror-tile extraction is re-run to
// finalize the wrap symmetry. Output dimensions match the (square-repaired)
// input.
func BlendSeams(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("seamless: blend seams: nil image: %w", domain.ErrProcessingFailed)
	}
	sq := canvas.CenterSquare(img)
	side := sq.Bounds().Dx()
	band := EdgeBandWidth(side)
	if side < 2*band {
		return nil, fmt.Errorf("seamless: blend seams: side %d too small for %dpx band: %w", side, band, domain.ErrInvalidDimensions)
	}
	sigma := float64(band) / 4

	edges := []image.Rectangle{
		image.Rect(0, 0, side, band),         // top
		image.Rect(0, side-band, side, side), // bottom
		image.Rect(0, 0, band, side),         // left
		image.Rect(side-band, 0, side, side), // right
	}
	opposite := []image.Point{
		image.Pt(0, side-band),
		image.Pt(0, 0),
		image.Pt(side-band, 0),
		image.Pt(0, 0),
	}

	blended := imaging.Clone(sq)
	for i, region := range edges {
		strip, err := canvas.ExtractRegion(sq, region.Min.Y, region.Min.X, region.Dx(), region.Dy())
		if err != nil {
			return nil, fmt.Errorf("seamless: blend seams: %w", err)
		}
		blurred := imaging.Blur(strip, sigma)
		blended = imaging.Paste(blended, blurred, region.Min)
		blended = imaging.Overlay(blended, blurred, opposite[i], 0.5)
	}

	out, err := MirrorTile(blended)
	if err != nil {
		return nil, fmt.Errorf("seamless: blend seams: %w", err)
	}
	return out, nil
}
