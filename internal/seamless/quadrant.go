package seamless

import (
	"fmt"
	"image"
	"image/color"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
)

// Quadrants holds the four equal sub-images of a square.
type Quadrants struct {
	TopLeft     *image.NRGBA
	TopRight    *image.NRGBA
	BottomLeft  *image.NRGBA
	BottomRight *image.NRGBA
}

// SplitQuadrants divides a square image into four equal quadrants. The side
// must be even so the quadrants tile the image exactly.
func SplitQuadrants(img image.Image) (*Quadrants, error) {
	if img == nil {
		return nil, fmt.Errorf("seamless: split quadrants: nil image: %w", domain.ErrProcessingFailed)
	}
	b := img.Bounds()
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("seamless: split quadrants: %dx%d not square: %w", b.Dx(), b.Dy(), domain.ErrInvalidDimensions)
	}
	if b.Dx()%2 != 0 || b.Dx() < MinSide {
		return nil, fmt.Errorf("seamless: split quadrants: side %d must be even and at least %d: %w", b.Dx(), MinSide, domain.ErrInvalidDimensions)
	}
	half := b.Dx() / 2

	var q Quadrants
	var err error
	if q.TopLeft, err = canvas.ExtractRegion(img, 0, 0, half, half); err != nil {
		return nil, err
	}
	if q.TopRight, err = canvas.ExtractRegion(img, 0, half, half, half); err != nil {
		return nil, err
	}
	if q.BottomLeft, err = canvas.ExtractRegion(img, half, 0, half, half); err != nil {
		return nil, err
	}
	if q.BottomRight, err = canvas.ExtractRegion(img, half, half, half, half); err != nil {
		return nil, err
	}
	return &q, nil
}

// SwapDiagonal exchanges the quadrants across the center: top-left with
// bottom-right and top-right with bottom-left. Applying it twice restores
// the original arrangement.
func (q *Quadrants) SwapDiagonal() *Quadrants {
	return &Quadrants{
		TopLeft:     q.BottomRight,
		TopRight:    q.BottomLeft,
		BottomLeft:  q.TopRight,
		BottomRight: q.TopLeft,
	}
}

// Combine reassembles the quadrants into one square image.
func (q *Quadrants) Combine() (*image.NRGBA, error) {
	half := q.TopLeft.Bounds().Dx()
	side := 2 * half
	return canvas.Composite(side, side, color.NRGBA{}, []canvas.Layer{
		{Image: q.TopLeft, Top: 0, Left: 0},
		{Image: q.TopRight, Top: 0, Left: half},
		{Image: q.BottomLeft, Top: half, Left: 0},
		{Image: q.BottomRight, Top: half, Left: half},
	})
}

// SwapQuadrants moves the image's outer edges to the center by swapping the
// quadrants diagonally. The former wrap seams meet as a visible cross in the
// middle, where an inpainting pass can repair them; a second call undoes the
// rearrangement.
func SwapQuadrants(img image.Image) (*image.NRGBA, error) {
	q, err := SplitQuadrants(img)
	if err != nil {
		return nil, err
	}
	return q.SwapDiagonal().Combine()
}
