package texture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
)

// SyntheticTexture renders a deterministic procedural texture for a prompt.
// It is the pipeline's terminal fallback when every remote generation stage
// is unavailable: cheap, local, and incapable of failing, so the orchestrator
// always has a seed image to process.
func SyntheticTexture(prompt string, side int) *image.NRGBA {
	if side <= 0 {
		side = 1024
	}
	seed := deterministicSeed(prompt, side)
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripe := maxOf(16, side/16)
	for y := 0; y < side; y += stripe * 2 {
		band := image.Rect(0, y, side, minOf(side, y+stripe))
		draw.Draw(img, band, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	grain := colorFromSeed(seed, 2)
	step := maxOf(8, side/64)
	for x := 0; x < side; x += step {
		for y := 0; y < side; y++ {
			xx := x + y
			if xx >= side {
				break
			}
			img.SetNRGBA(xx, y, grain)
		}
	}
	return img
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

func colorFromSeed(seed string, shift int) color.NRGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.NRGBA{
		R: parseHexByte(segment[0:2]),
		G: parseHexByte(segment[2:4]),
		B: parseHexByte(segment[4:6]),
		A: 255,
	}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minOf(a, b int) int {
	if a < b {
		return a
	}
	return b
}
