// Package texture drives the end-to-end prompt-to-tileable-image pipeline:
// remote generation with a fixed fallback precedence, the deterministic
// mirror-tile transform, and an optional generative refinement pass.
package texture

import (
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
	"tileforge/internal/infra"
	"tileforge/internal/seamless"
	"tileforge/internal/storage"
)

// GenerationRequest is the uniform call contract over both external
// generation capabilities. Immutable once constructed; adapters ignore the
// fields their backend does not support.
type GenerationRequest struct {
	Prompt         string
	NegativePrompt string
	SeedImage      image.Image
	Mask           image.Image
	Tiling         bool
	Strength       float64
	Steps          int
	CFGScale       float64
	StylePreset    string
	Width          int
	Height         int
	Seed           int
}

// TextToImage generates an image from prompt text alone.
type TextToImage interface {
	GenerateFromText(ctx context.Context, req GenerationRequest) (image.Image, error)
}

// ImageEditor generates an image conditioned on a seed image, optionally
// restricted by a mask.
type ImageEditor interface {
	GenerateFromImage(ctx context.Context, req GenerationRequest) (image.Image, error)
}

// Inpainter regenerates only the masked region of a seed image.
type Inpainter interface {
	InpaintRegion(ctx context.Context, req GenerationRequest) (image.Image, error)
}

// Request is one pipeline invocation. SeedImage is optional; when present it
// takes precedence as the conditioning input and is the degraded-path output.
type Request struct {
	Prompt    string
	SeedImage image.Image
}

// Result is the pipeline outcome. Image is always a valid PNG; Degraded marks
// outputs produced without any successful remote generation.
type Result struct {
	Image    []byte
	Width    int
	Height   int
	Strategy string
	Degraded bool
}

// Options configures a Pipeline. Any provider may be nil; its strategies are
// skipped in the fallback chain.
type Options struct {
	Text            TextToImage
	Editor          ImageEditor
	Inpainter       Inpainter
	Size            int
	Steps           int
	CFGScale        float64
	StylePreset     string
	EnhanceStrength float64
	CallTimeout     time.Duration
	Store           *storage.FileStore
	Logger          *infra.Logger
}

// Pipeline orchestrates generation strategies in fixed precedence. Each
// strategy runs at most once per request; failures advance the chain instead
// of repeating a step, and nothing past prompt validation escapes to the
// caller as an error.
type Pipeline struct {
	text            TextToImage
	editor          ImageEditor
	inpainter       Inpainter
	size            int
	steps           int
	cfgScale        float64
	stylePreset     string
	enhanceStrength float64
	callTimeout     time.Duration
	store           *storage.FileStore
	logger          *infra.Logger
}

// A strategy is one generation attempt in the fallback chain. local marks
// strategies that do not reach a remote provider; their output counts as
// degraded. raw marks the passthrough branch that must return its input
// unprocessed.
type strategy struct {
	name  string
	local bool
	raw   bool
	run   func(ctx context.Context, req Request) (image.Image, error)
}

// NewPipeline constructs a pipeline with defaults filled in.
func NewPipeline(opts Options) *Pipeline {
	size := opts.Size
	if size <= 0 {
		size = 1024
	}
	steps := opts.Steps
	if steps <= 0 {
		steps = 30
	}
	cfgScale := opts.CFGScale
	if cfgScale <= 0 {
		cfgScale = 7
	}
	stylePreset := strings.TrimSpace(opts.StylePreset)
	if stylePreset == "" {
		stylePreset = "photographic"
	}
	enhanceStrength := opts.EnhanceStrength
	if enhanceStrength <= 0 || enhanceStrength >= 1 {
		enhanceStrength = 0.4
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Pipeline{
		text:            opts.Text,
		editor:          opts.Editor,
		inpainter:       opts.Inpainter,
		size:            size,
		steps:           steps,
		cfgScale:        cfgScale,
		stylePreset:     stylePreset,
		enhanceStrength: enhanceStrength,
		callTimeout:     callTimeout,
		store:           opts.Store,
		logger:          logger,
	}
}

// Generate runs the full pipeline for one prompt. The only error it returns
// is prompt validation; every generation or processing failure degrades into
// the next fallback stage, so the worst case is the unprocessed seed image
// (or a locally rendered texture when no seed exists).
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return nil, fmt.Errorf("texture: prompt is required: %w", domain.ErrInvalidPrompt)
	}

	sess := NewSession(p.store, p.logger)
	defer sess.Close()

	candidate, strat := p.generateSeed(ctx, sess, req)
	degraded := strat.local
	if strat.raw {
		return p.finalize(sess, candidate, strat.name, degraded)
	}

	conditioned, err := p.condition(candidate)
	if err != nil {
		p.stageLog(sess, "condition", err)
	} else {
		candidate = conditioned
	}
	sess.SaveIntermediate(ctx, "01-seed.png", candidate)

	tiled, err := seamless.MirrorTile(candidate)
	if err != nil {
		p.stageLog(sess, "mirror-tile", err)
	} else {
		candidate = tiled
	}
	sess.SaveIntermediate(ctx, "02-seamless.png", candidate)

	if !degraded {
		enhanced, err := p.enhance(ctx, req.Prompt, candidate)
		if err != nil {
			p.stageLog(sess, "enhance", err)
		} else if enhanced != nil {
			candidate = enhanced
			strat.name += "+enhanced"
			sess.SaveIntermediate(ctx, "03-enhanced.png", candidate)
		}
	}

	return p.finalize(sess, candidate, strat.name, degraded)
}

// generateSeed walks the strategy chain in order until one yields an image.
// The chain always ends in a strategy that cannot fail.
func (p *Pipeline) generateSeed(ctx context.Context, sess *Session, req Request) (image.Image, strategy) {
	chain := p.strategies(req)
	failures := 0
	for _, s := range chain {
		img, err := s.run(ctx, req)
		if err != nil {
			failures++
			p.logger.Warn().
				Err(err).
				Str("session_id", sess.ID).
				Str("strategy", s.name).
				Msg("texture: generation strategy failed")
			continue
		}
		p.logger.Info().
			Str("session_id", sess.ID).
			Str("strategy", s.name).
			Int("failed_attempts", failures).
			Msg("texture: seed image produced")
		return img, s
	}
	// Unreachable: the chain's last entry never errors. Kept as a hard
	// floor so a future strategy-list edit cannot break the guarantee.
	return SyntheticTexture(req.Prompt, p.size), strategy{name: "synthetic", local: true}
}

// strategies builds the ordered fallback chain for a request. Seed-image
// requests prefer the image-to-image path; prompt-only requests go straight
// to text-to-image. The terminal entry is local and infallible.
func (p *Pipeline) strategies(req Request) []strategy {
	var chain []strategy
	if req.SeedImage != nil && p.editor != nil {
		chain = append(chain, strategy{name: "edit-tiling", run: func(ctx context.Context, req Request) (image.Image, error) {
			return p.callEditor(ctx, GenerationRequest{
				Prompt:         BuildTilingPrompt(req.Prompt),
				NegativePrompt: BuildNegativePrompt(),
				SeedImage:      req.SeedImage,
				Tiling:         true,
				Strength:       0.7,
				Steps:          p.steps,
				CFGScale:       p.cfgScale,
			})
		}})
	}
	if p.text != nil {
		chain = append(chain, strategy{name: "direct-tiling", run: func(ctx context.Context, req Request) (image.Image, error) {
			return p.callText(ctx, GenerationRequest{
				Prompt:         BuildTilingPrompt(req.Prompt),
				NegativePrompt: BuildNegativePrompt(),
				Tiling:         true,
				Steps:          p.steps,
				CFGScale:       p.cfgScale,
				StylePreset:    p.stylePreset,
				Width:          p.size,
				Height:         p.size,
			})
		}})
	}
	if req.SeedImage != nil {
		chain = append(chain, strategy{name: "seed-passthrough", local: true, raw: true, run: func(ctx context.Context, req Request) (image.Image, error) {
			return req.SeedImage, nil
		}})
	} else {
		chain = append(chain, strategy{name: "synthetic", local: true, run: func(ctx context.Context, req Request) (image.Image, error) {
			return SyntheticTexture(req.Prompt, p.size), nil
		}})
	}
	return chain
}

// enhance runs the optional refinement pass over a seamless candidate. A nil
// result with nil error means no refiner is configured.
func (p *Pipeline) enhance(ctx context.Context, subject string, candidate image.Image) (image.Image, error) {
	switch {
	case p.editor != nil:
		img, err := p.callEditor(ctx, GenerationRequest{
			Prompt:         BuildEnhancePrompt(subject),
			NegativePrompt: BuildNegativePrompt(),
			SeedImage:      candidate,
			Tiling:         true,
			Strength:       p.enhanceStrength,
			Steps:          p.steps,
			CFGScale:       p.cfgScale,
		})
		if err != nil {
			return nil, err
		}
		return p.condition(img)
	case p.inpainter != nil:
		return p.inpaintSeams(ctx, subject, candidate)
	default:
		return nil, nil
	}
}

// inpaintSeams regenerates the wrap boundary content: swap quadrants so the
// seams meet in the middle, inpaint a white center cross over them, swap
// back.
func (p *Pipeline) inpaintSeams(ctx context.Context, subject string, candidate image.Image) (image.Image, error) {
	swapped, err := seamless.SwapQuadrants(candidate)
	if err != nil {
		return nil, err
	}
	side := swapped.Bounds().Dx()
	band := 64
	if band > side/4 {
		band = side / 4
	}
	mask, err := seamless.CenterCrossMask(side, band)
	if err != nil {
		return nil, err
	}
	repaired, err := p.callInpainter(ctx, GenerationRequest{
		Prompt:         BuildEnhancePrompt(subject),
		NegativePrompt: BuildNegativePrompt(),
		SeedImage:      swapped,
		Mask:           mask,
		Strength:       p.enhanceStrength,
		Steps:          p.steps,
		CFGScale:       p.cfgScale,
		StylePreset:    p.stylePreset,
	})
	if err != nil {
		return nil, err
	}
	conditioned, err := p.condition(repaired)
	if err != nil {
		return nil, err
	}
	restored, err := seamless.SwapQuadrants(conditioned)
	if err != nil {
		return nil, err
	}
	return restored, nil
}

func (p *Pipeline) callText(ctx context.Context, req GenerationRequest) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.text.GenerateFromText(ctx, req)
}

func (p *Pipeline) callEditor(ctx context.Context, req GenerationRequest) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.editor.GenerateFromImage(ctx, req)
}

func (p *Pipeline) callInpainter(ctx context.Context, req GenerationRequest) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.inpainter.InpaintRegion(ctx, req)
}

// condition repairs non-square input with a centered crop and downscales
// oversized provider output to the configured texture size.
func (p *Pipeline) condition(img image.Image) (image.Image, error) {
	square := canvas.CenterSquare(img)
	side := square.Bounds().Dx()
	if side > p.size {
		resized, err := canvas.Resize(square, p.size, p.size)
		if err != nil {
			return nil, err
		}
		return resized, nil
	}
	return square, nil
}

func (p *Pipeline) finalize(sess *Session, img image.Image, strategyName string, degraded bool) (*Result, error) {
	data, err := canvas.EncodePNG(img)
	if err != nil {
		// Last line of defense: re-render locally so the caller still
		// receives a valid buffer.
		p.stageLog(sess, "encode", err)
		fallback := SyntheticTexture(strategyName, p.size)
		data, err = canvas.EncodePNG(fallback)
		if err != nil {
			return nil, fmt.Errorf("texture: encode output: %w", err)
		}
		img = fallback
		strategyName = "synthetic"
		degraded = true
	}
	bounds := img.Bounds()
	p.logger.Info().
		Str("session_id", sess.ID).
		Str("strategy", strategyName).
		Bool("degraded", degraded).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Msg("texture: pipeline complete")
	return &Result{
		Image:    data,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Strategy: strategyName,
		Degraded: degraded,
	}, nil
}

func (p *Pipeline) stageLog(sess *Session, stage string, err error) {
	p.logger.Warn().
		Err(err).
		Str("session_id", sess.ID).
		Str("stage", stage).
		Msg("texture: stage degraded to pass-through")
}
