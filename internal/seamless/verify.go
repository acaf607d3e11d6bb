package seamless

import (
	"fmt"
	"image"
	"image/color"

	"tileforge/internal/canvas"
)

// Tile2x2 repeats the image in a 2x2 grid. Used by the verification helpers
// and the tilecheck tool to make seams visible.
func Tile2x2(img image.Image) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	return canvas.Composite(2*w, 2*h, color.NRGBA{}, []canvas.Layer{
		{Image: img, Top: 0, Left: 0},
		{Image: img, Top: 0, Left: w},
		{Image: img, Top: h, Left: 0},
		{Image: img, Top: h, Left: w},
	})
}

// SeamScore measures the worst per-channel discontinuity across the wrap
// boundary: the maximum absolute difference between the last row/column and
// the first row/column of the adjacent repetition. 0 means the tiling is
// continuous at the seam.
func SeamScore(img image.Image) (int, error) {
	tiled, err := Tile2x2(img)
	if err != nil {
		return 0, fmt.Errorf("seamless: seam score: %w", err)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	worst := 0
	// Horizontal seam: rows h-1 and h of the tiled image.
	for x := 0; x < 2*w; x++ {
		worst = maxInt(worst, pixelDelta(tiled.NRGBAAt(x, h-1), tiled.NRGBAAt(x, h)))
	}
	// Vertical seam: columns w-1 and w.
	for y := 0; y < 2*h; y++ {
		worst = maxInt(worst, pixelDelta(tiled.NRGBAAt(w-1, y), tiled.NRGBAAt(w, y)))
	}
	return worst, nil
}

// Verify reports whether tiling the image 2x2 produces no discontinuity
// larger than tolerance at the seams.
func Verify(img image.Image, tolerance int) (bool, error) {
	score, err := SeamScore(img)
	if err != nil {
		return false, err
	}
	return score <= tolerance, nil
}

func pixelDelta(a, b color.NRGBA) int {
	d := absInt(int(a.R) - int(b.R))
	d = maxInt(d, absInt(int(a.G)-int(b.G)))
	d = maxInt(d, absInt(int(a.B)-int(b.B)))
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
