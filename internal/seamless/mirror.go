// Package seamless turns square images into tileable ones. The core method
// is deterministic mirror-tiling; quadrant swapping and seam blending support
// the generative refinement stages layered on top by the pipeline.
package seamless

import (
	"fmt"
	"image"
	"image/color"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
)

// MinSide is the smallest input side the transforms accept. Anything smaller
// has no meaningful seam to hide.
const MinSide = 4

// MirrorTile produces a tileable image by compositing the input with its
// mirrored variants into a 2S x 2S mosaic and extracting the centered S x S
// window. Every quadrant border in the mosaic is a reflection of its
// neighbor, so the extracted window is mirror-symmetric across the wrap
// boundary. Non-square input is repaired with a centered square crop first.
// Odd sides are cropped by one pixel: the extraction window only straddles
// the mosaic's reflection axes symmetrically when the side is even, and an
// off-axis window leaves a visible wrap seam.
func MirrorTile(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("seamless: mirror tile: nil image: %w", domain.ErrProcessingFailed)
	}
	sq := canvas.CenterSquare(img)
	side := sq.Bounds().Dx()
	if side%2 == 1 {
		even, err := canvas.ExtractRegion(sq, 0, 0, side-1, side-1)
		if err != nil {
			return nil, fmt.Errorf("seamless: mirror tile: %w", err)
		}
		sq = even
		side--
	}
	if side < MinSide {
		return nil, fmt.Errorf("seamless: mirror tile: side %d below minimum %d: %w", side, MinSide, domain.ErrInvalidDimensions)
	}

	flipH := canvas.FlipH(sq)
	flipV := canvas.FlipV(sq)
	flipHV := canvas.FlipH(flipV)

	mosaic, err := canvas.Composite(2*side, 2*side, color.NRGBA{}, []canvas.Layer{
		{Image: sq, Top: 0, Left: 0},
		{Image: flipH, Top: 0, Left: side},
		{Image: flipV, Top: side, Left: 0},
		{Image: flipHV, Top: side, Left: side},
	})
	if err != nil {
		return nil, fmt.Errorf("seamless: mirror tile: %w", err)
	}

	out, err := canvas.ExtractRegion(mosaic, side/2, side/2, side, side)
	if err != nil {
		return nil, fmt.Errorf("seamless: mirror tile: %w", err)
	}
	return out, nil
}
