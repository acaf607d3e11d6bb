// Package canvas provides the pure image-buffer operations the seamless
// pipeline is built on. Every function returns a new buffer; inputs are
// never mutated.
package canvas

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"tileforge/internal/domain"
)

// Layer places an image at an offset on a composite canvas. Offsets are in
// pixels from the canvas origin; Top is the Y offset and Left the X offset.
type Layer struct {
	Image image.Image
	Top   int
	Left  int
}

// FlipH mirrors the image around its vertical axis. Output dimensions match
// the input.
func FlipH(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}

// FlipV mirrors the image around its horizontal axis. Output dimensions match
// the input.
func FlipV(img image.Image) *image.NRGBA {
	return imaging.FlipV(img)
}

// Composite paints the given layers onto a fresh width x height canvas filled
// with bg, in list order; later layers overwrite earlier ones where they
// overlap. A layer that does not fit entirely inside the canvas is an error.
func Composite(width, height int, bg color.Color, layers []Layer) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: composite %dx%d: %w", width, height, domain.ErrInvalidDimensions)
	}
	dst := imaging.New(width, height, bg)
	for i, layer := range layers {
		if layer.Image == nil {
			return nil, fmt.Errorf("canvas: composite layer %d has no image", i)
		}
		b := layer.Image.Bounds()
		if layer.Left < 0 || layer.Top < 0 ||
			layer.Left+b.Dx() > width || layer.Top+b.Dy() > height {
			return nil, fmt.Errorf("canvas: composite layer %d (%dx%d at %d,%d) exceeds %dx%d canvas: %w",
				i, b.Dx(), b.Dy(), layer.Left, layer.Top, width, height, domain.ErrInvalidDimensions)
		}
		dst = imaging.Paste(dst, layer.Image, image.Pt(layer.Left, layer.Top))
	}
	return dst, nil
}

// ExtractRegion copies the width x height rectangle whose top-left corner sits
// at (left, top). The rectangle must be fully contained in the source image.
func ExtractRegion(img image.Image, top, left, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: extract %dx%d: %w", width, height, domain.ErrInvalidDimensions)
	}
	b := img.Bounds()
	if left < 0 || top < 0 || left+width > b.Dx() || top+height > b.Dy() {
		return nil, fmt.Errorf("canvas: extract %dx%d at %d,%d outside %dx%d image: %w",
			width, height, left, top, b.Dx(), b.Dy(), domain.ErrInvalidDimensions)
	}
	rect := image.Rect(b.Min.X+left, b.Min.Y+top, b.Min.X+left+width, b.Min.Y+top+height)
	return imaging.Crop(img, rect), nil
}

// BlurRegion applies a Gaussian blur with the given sigma to the sub-rectangle
// only, leaving the rest of the image untouched.
func BlurRegion(img image.Image, region image.Rectangle, sigma float64) (*image.NRGBA, error) {
	if sigma <= 0 {
		return imaging.Clone(img), nil
	}
	sub, err := ExtractRegion(img, region.Min.Y, region.Min.X, region.Dx(), region.Dy())
	if err != nil {
		return nil, err
	}
	blurred := imaging.Blur(sub, sigma)
	return imaging.Paste(imaging.Clone(img), blurred, region.Min), nil
}

// SolidRect creates a width x height image filled with the given color.
// This is the constructor used for masks and backgrounds.
func SolidRect(width, height int, c color.Color) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: solid rect %dx%d: %w", width, height, domain.ErrInvalidDimensions)
	}
	return imaging.New(width, height, c), nil
}

// CenterSquare crops the largest centered square out of the image. Square
// inputs are returned as an unmodified copy. This is the square-repair step
// applied before any tiling-aware transform.
func CenterSquare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	return imaging.CropCenter(img, side, side)
}

// Resize scales the image to width x height using Catmull-Rom resampling.
// Used to condition oversized provider output before tiling.
func Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: resize to %dx%d: %w", width, height, domain.ErrInvalidDimensions)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}
