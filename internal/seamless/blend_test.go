package seamless

import (
	"errors"
	"testing"

	"tileforge/internal/domain"
)

func TestEdgeBandWidth(t *testing.T) {
	cases := []struct {
		side int
		want int
	}{
		{100, 20},
		{256, 20},
		{400, 20},
		{512, 25},
		{1000, 50},
		{1024, 51},
	}
	for _, tc := range cases {
		if got := EdgeBandWidth(tc.side); got != tc.want {
			t.Fatalf("EdgeBandWidth(%d) = %d, want %d", tc.side, got, tc.want)
		}
	}
}

func TestBlendSeamsDimensionInvariant(t *testing.T) {
	out, err := BlendSeams(gradient(64, 64))
	if err != nil {
		t.Fatalf("blend seams: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Fatalf("bounds = %v, want 64x64", out.Bounds())
	}
}

func TestBlendSeamsOutputIsTileable(t *testing.T) {
	out, err := BlendSeams(gradient(64, 64))
	if err != nil {
		t.Fatalf("blend seams: %v", err)
	}
	score, err := SeamScore(out)
	if err != nil {
		t.Fatalf("seam score: %v", err)
	}
	// The final mirror extraction restores exact reflective continuity.
	if score != 0 {
		t.Fatalf("seam score = %d, want 0", score)
	}
}

func TestBlendSeamsRejectsTooSmall(t *testing.T) {
	_, err := BlendSeams(gradient(32, 32))
	if !errors.Is(err, domain.ErrInvalidDimensions) {
		t.Fatalf("err = %v, want ErrInvalidDimensions", err)
	}
}

func TestBlendSeamsRejectsNil(t *testing.T) {
	if _, err := BlendSeams(nil); !errors.Is(err, domain.ErrProcessingFailed) {
		t.Fatalf("err = %v, want ErrProcessingFailed", err)
	}
}
