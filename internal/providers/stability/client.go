// Package stability implements the Stability AI REST client used for direct
// text-to-image generation and for masked image-to-image (inpainting) calls.
package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tileforge/internal/domain"
	"tileforge/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("stability: api key is required: %w", domain.ErrMissingCredentials)

// Options configures the Stability client.
type Options struct {
	APIKey         string
	BaseURL        string
	Engine         string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Stability AI generation API.
type Client struct {
	apiKey     string
	baseURL    string
	engine     string
	httpClient *http.Client
	logger     *infra.Logger
}

// TextRequest captures the inputs for a text-to-image call.
type TextRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	CFGScale       float64
	Sampler        string
	StylePreset    string
	Seed           int
}

// InpaintRequest captures the inputs for a masked image-to-image call. White
// pixels in the mask mark the region to regenerate.
type InpaintRequest struct {
	Prompt         string
	NegativePrompt string
	InitImage      []byte
	MaskImage      []byte
	Strength       float64
	Steps          int
	CFGScale       float64
	StylePreset    string
	Seed           int
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight,omitempty"`
}

type textToImagePayload struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
	Steps       int          `json:"steps,omitempty"`
	CFGScale    float64      `json:"cfg_scale,omitempty"`
	Sampler     string       `json:"sampler,omitempty"`
	StylePreset string       `json:"style_preset,omitempty"`
	Samples     int          `json:"samples"`
	Seed        int          `json:"seed,omitempty"`
}

type inpaintPayload struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	InitImage   string       `json:"init_image"`
	MaskImage   string       `json:"mask_image,omitempty"`
	MaskSource  string       `json:"mask_source,omitempty"`
	Strength    float64      `json:"strength,omitempty"`
	Steps       int          `json:"steps,omitempty"`
	CFGScale    float64      `json:"cfg_scale,omitempty"`
	StylePreset string       `json:"style_preset,omitempty"`
	Samples     int          `json:"samples"`
	Seed        int          `json:"seed,omitempty"`
}

type generationResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
		Seed         int64  `json:"seed"`
	} `json:"artifacts"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.stability.ai/v1"
	}
	engine := strings.TrimSpace(opts.Engine)
	if engine == "" {
		engine = "stable-diffusion-xl-1024-v1-0"
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		engine:     engine,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Engine returns the configured engine identifier.
func (c *Client) Engine() string {
	return c.engine
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage invokes the text-to-image endpoint once and returns the raw
// bytes of the first artifact. There is no internal retry; callers own the
// fallback policy.
func (c *Client) GenerateImage(ctx context.Context, req TextRequest) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("stability: prompt is required")
	}
	payload := textToImagePayload{
		TextPrompts: promptsFor(prompt, req.NegativePrompt),
		Width:       req.Width,
		Height:      req.Height,
		Steps:       req.Steps,
		CFGScale:    req.CFGScale,
		Sampler:     strings.TrimSpace(req.Sampler),
		StylePreset: strings.TrimSpace(req.StylePreset),
		Samples:     1,
		Seed:        req.Seed,
	}
	endpoint := fmt.Sprintf("%s/generation/%s/text-to-image", c.baseURL, c.engine)
	return c.invoke(ctx, endpoint, payload)
}

// Inpaint invokes the masked image-to-image endpoint once and returns the raw
// bytes of the first artifact. The mask is interpreted with white marking the
// region to regenerate.
func (c *Client) Inpaint(ctx context.Context, req InpaintRequest) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("stability: prompt is required")
	}
	if len(req.InitImage) == 0 {
		return nil, errors.New("stability: init image is required")
	}
	payload := inpaintPayload{
		TextPrompts: promptsFor(prompt, req.NegativePrompt),
		InitImage:   base64.StdEncoding.EncodeToString(req.InitImage),
		Strength:    req.Strength,
		Steps:       req.Steps,
		CFGScale:    req.CFGScale,
		StylePreset: strings.TrimSpace(req.StylePreset),
		Samples:     1,
		Seed:        req.Seed,
	}
	if len(req.MaskImage) > 0 {
		payload.MaskImage = base64.StdEncoding.EncodeToString(req.MaskImage)
		payload.MaskSource = "MASK_IMAGE_WHITE"
	}
	endpoint := fmt.Sprintf("%s/generation/%s/image-to-image/masking", c.baseURL, c.engine)
	return c.invoke(ctx, endpoint, payload)
}

func (c *Client) invoke(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("stability: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("stability: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stability: http request: %w: %w", err, domain.ErrGenerationFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stability: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("stability: %s (%s): %w", detail.Message, detail.Name, domain.ErrGenerationFailed)
		}
		return nil, fmt.Errorf("stability: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrGenerationFailed)
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("stability: decode response: %w", err)
	}
	if len(decoded.Artifacts) == 0 {
		return nil, fmt.Errorf("stability: empty artifact list: %w", domain.ErrGenerationFailed)
	}
	data, err := base64.StdEncoding.DecodeString(decoded.Artifacts[0].Base64)
	if err != nil {
		return nil, fmt.Errorf("stability: decode artifact: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("stability: empty artifact payload: %w", domain.ErrGenerationFailed)
	}
	c.logger.Debug().
		Str("engine", c.engine).
		Int("bytes", len(data)).
		Msg("stability: generated image artifact")
	return data, nil
}

func promptsFor(prompt, negative string) []textPrompt {
	prompts := []textPrompt{{Text: prompt, Weight: 1}}
	if neg := strings.TrimSpace(negative); neg != "" {
		prompts = append(prompts, textPrompt{Text: neg, Weight: -1})
	}
	return prompts
}
