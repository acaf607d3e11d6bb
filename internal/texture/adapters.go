package texture

import (
	"context"
	"fmt"
	"image"

	"tileforge/internal/canvas"
	"tileforge/internal/providers/dashscope"
	"tileforge/internal/providers/stability"
)

// StabilityAdapter maps the pipeline contract onto the Stability client.
// Text-to-image ignores seed and mask fields; inpainting requires both.
type StabilityAdapter struct {
	Client *stability.Client
}

var _ TextToImage = (*StabilityAdapter)(nil)
var _ Inpainter = (*StabilityAdapter)(nil)

func (a *StabilityAdapter) GenerateFromText(ctx context.Context, req GenerationRequest) (image.Image, error) {
	data, err := a.Client.GenerateImage(ctx, stability.TextRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          req.Steps,
		CFGScale:       req.CFGScale,
		StylePreset:    req.StylePreset,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, err
	}
	img, err := canvas.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("texture: decode generated image: %w", err)
	}
	return img, nil
}

func (a *StabilityAdapter) InpaintRegion(ctx context.Context, req GenerationRequest) (image.Image, error) {
	if req.SeedImage == nil {
		return nil, fmt.Errorf("texture: inpaint requires a seed image")
	}
	initBytes, err := canvas.EncodePNG(req.SeedImage)
	if err != nil {
		return nil, err
	}
	var maskBytes []byte
	if req.Mask != nil {
		maskBytes, err = canvas.EncodePNG(req.Mask)
		if err != nil {
			return nil, err
		}
	}
	data, err := a.Client.Inpaint(ctx, stability.InpaintRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		InitImage:      initBytes,
		MaskImage:      maskBytes,
		Strength:       req.Strength,
		Steps:          req.Steps,
		CFGScale:       req.CFGScale,
		StylePreset:    req.StylePreset,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, err
	}
	img, err := canvas.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("texture: decode inpainted image: %w", err)
	}
	return img, nil
}

// DashScopeAdapter maps the pipeline contract onto the DashScope image-edit
// client.
type DashScopeAdapter struct {
	Client *dashscope.Client
}

var _ ImageEditor = (*DashScopeAdapter)(nil)

func (a *DashScopeAdapter) GenerateFromImage(ctx context.Context, req GenerationRequest) (image.Image, error) {
	if req.SeedImage == nil {
		return nil, fmt.Errorf("texture: image edit requires a seed image")
	}
	baseBytes, err := canvas.EncodePNG(req.SeedImage)
	if err != nil {
		return nil, err
	}
	var maskBytes []byte
	if req.Mask != nil {
		maskBytes, err = canvas.EncodePNG(req.Mask)
		if err != nil {
			return nil, err
		}
	}
	asset, err := a.Client.EditImage(ctx, dashscope.EditRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		BaseImage:      baseBytes,
		Mask:           maskBytes,
		Strength:       req.Strength,
		Tiling:         req.Tiling,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, err
	}
	img, err := canvas.Decode(asset.Data)
	if err != nil {
		return nil, fmt.Errorf("texture: decode edited image: %w", err)
	}
	return img, nil
}
