package seamless

import (
	"errors"
	"image/color"
	"testing"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
)

func TestSwapQuadrantsMovesCornersToCenter(t *testing.T) {
	tl, _ := canvas.SolidRect(4, 4, color.NRGBA{R: 255, A: 255})
	tr, _ := canvas.SolidRect(4, 4, color.NRGBA{G: 255, A: 255})
	bl, _ := canvas.SolidRect(4, 4, color.NRGBA{B: 255, A: 255})
	br, _ := canvas.SolidRect(4, 4, color.NRGBA{R: 255, G: 255, A: 255})
	src, err := canvas.Composite(8, 8, color.NRGBA{}, []canvas.Layer{
		{Image: tl, Top: 0, Left: 0},
		{Image: tr, Top: 0, Left: 4},
		{Image: bl, Top: 4, Left: 0},
		{Image: br, Top: 4, Left: 4},
	})
	if err != nil {
		t.Fatalf("composite: %v", err)
	}
	swapped, err := SwapQuadrants(src)
	if err != nil {
		t.Fatalf("swap quadrants: %v", err)
	}
	if got := swapped.NRGBAAt(0, 0); got.R != 255 || got.G != 255 {
		t.Fatalf("top-left = %v, want former bottom-right", got)
	}
	if got := swapped.NRGBAAt(7, 7); got.R != 255 || got.G != 0 {
		t.Fatalf("bottom-right = %v, want former top-left", got)
	}
	if got := swapped.NRGBAAt(7, 0); got.B != 255 {
		t.Fatalf("top-right = %v, want former bottom-left", got)
	}
}

func TestSwapQuadrantsRoundTrip(t *testing.T) {
	src := gradient(16, 16)
	swapped, err := SwapQuadrants(src)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	restored, err := SwapQuadrants(swapped)
	if err != nil {
		t.Fatalf("swap back: %v", err)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if restored.NRGBAAt(x, y) != src.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) not restored by double swap", x, y)
			}
		}
	}
}

func TestSplitQuadrantsRejectsBadInput(t *testing.T) {
	if _, err := SplitQuadrants(gradient(8, 6)); !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Fatalf("non-square: err = %v, want ErrInvalidDimensions", err)
	}
	if _, err := SplitQuadrants(gradient(7, 7)); !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Fatalf("odd side: err = %v, want ErrInvalidDimensions", err)
	}
	if _, err := SplitQuadrants(nil); !errors.Is(err, domain.ErrProcessingFailed) {
		t.Fatalf("nil: err = %v, want ErrProcessingFailed", err)
	}
}
