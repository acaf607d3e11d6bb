package seamless

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
)

var (
	maskKeep       = color.NRGBA{0, 0, 0, 255}
	maskRegenerate = color.NRGBA{255, 255, 255, 255}
)

// CenterCrossMask builds an inpainting mask covering the horizontal and
// vertical center bands of a size x size square. White marks the region to
// regenerate. Used after SwapQuadrants, when the old wrap seams form a cross
// through the middle of the image.
func CenterCrossMask(size, band int) (*image.NRGBA, error) {
	if size < MinSide || band <= 0 || band >= size {
		return nil, fmt.Errorf("seamless: center cross mask size %d band %d: %w", size, band, domain.ErrInvalidDimensions)
	}
	mask, err := canvas.SolidRect(size, size, maskKeep)
	if err != nil {
		return nil, err
	}
	half := size / 2
	halfBand := band / 2

	horizontal, err := canvas.SolidRect(size, band, maskRegenerate)
	if err != nil {
		return nil, err
	}
	vertical, err := canvas.SolidRect(band, size, maskRegenerate)
	if err != nil {
		return nil, err
	}
	mask = imaging.Paste(mask, horizontal, image.Pt(0, clampOffset(half-halfBand, size-band)))
	mask = imaging.Paste(mask, vertical, image.Pt(clampOffset(half-halfBand, size-band), 0))
	return mask, nil
}

func clampOffset(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
