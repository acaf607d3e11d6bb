// Package dashscope implements the DashScope image-edit client used for
// image-to-image refinement with tiling support.
package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tileforge/internal/domain"
	"tileforge/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("dashscope: api key is required: %w", domain.ErrMissingCredentials)

// Options configures the DashScope image-edit client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the DashScope image-edit API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// EditRequest captures the inputs for an image-to-image call. BaseImage is the
// seed image and is required; Mask is optional and restricts the edit to its
// white region. Tiling asks the model to produce wrap-around continuity.
type EditRequest struct {
	Prompt         string
	NegativePrompt string
	BaseImage      []byte
	Mask           []byte
	Strength       float64
	Tiling         bool
	Seed           int
	RequestID      string
}

// EditedAsset is the normalized result from the DashScope API.
type EditedAsset struct {
	URL    string
	Data   []byte
	Format string
	Width  int
	Height int
}

type editPayload struct {
	Model      string     `json:"model"`
	Input      editInput  `json:"input"`
	Parameters editParams `json:"parameters"`
}

type editInput struct {
	Prompt       string `json:"prompt"`
	BaseImageURL string `json:"base_image_url"`
	MaskImageURL string `json:"mask_image_url,omitempty"`
}

type editParams struct {
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Strength       *float64 `json:"strength,omitempty"`
	Tiling         *bool    `json:"tiling,omitempty"`
	Seed           *int     `json:"seed,omitempty"`
	N              int      `json:"n"`
}

type editResponse struct {
	Output struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
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
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wanx2.1-imageedit"
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// EditImage invokes the image-edit API once and returns a single edited asset.
// The response carries result URLs, not pixels, so the first URL is fetched
// with a follow-up GET. There is no internal retry; callers own the fallback
// policy.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*EditedAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("dashscope: prompt is required")
	}
	if len(req.BaseImage) == 0 {
		return nil, errors.New("dashscope: base image is required")
	}
	payload := editPayload{
		Model: c.model,
		Input: editInput{
			Prompt:       prompt,
			BaseImageURL: inlineImage(req.BaseImage),
		},
		Parameters: editParams{N: 1},
	}
	if len(req.Mask) > 0 {
		payload.Input.MaskImageURL = inlineImage(req.Mask)
	}
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		payload.Parameters.NegativePrompt = neg
	}
	if req.Strength > 0 {
		strength := req.Strength
		payload.Parameters.Strength = &strength
	}
	if req.Tiling {
		tiling := true
		payload.Parameters.Tiling = &tiling
	}
	if req.Seed > 0 {
		seed := req.Seed
		payload.Parameters.Seed = &seed
	}

	endpoint := c.baseURL + "/services/aigc/image2image/image-synthesis"
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dashscope: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if id := strings.TrimSpace(req.RequestID); id != "" {
		httpReq.Header.Set("X-Request-Id", id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dashscope: http request: %w: %w", err, domain.ErrGenerationFailed)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dashscope: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, fmt.Errorf("dashscope: %s (%s): %w", detail.Message, detail.Code, domain.ErrGenerationFailed)
		}
		return nil, fmt.Errorf("dashscope: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(raw)), domain.ErrGenerationFailed)
	}

	var decoded editResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("dashscope: decode response: %w", err)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("dashscope: %s (%s): %w", decoded.Message, decoded.Code, domain.ErrGenerationFailed)
	}
	resultURL := firstResultURL(decoded)
	if resultURL == "" {
		return nil, fmt.Errorf("dashscope: empty result list: %w", domain.ErrGenerationFailed)
	}
	data, format, err := c.download(ctx, resultURL)
	if err != nil {
		return nil, err
	}
	width, height := decoded.Usage.Width, decoded.Usage.Height
	if width == 0 || height == 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err == nil {
			width, height = cfg.Width, cfg.Height
		}
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("request_id", decoded.RequestID).
		Str("url", resultURL).
		Msg("dashscope: edited image asset")
	return &EditedAsset{URL: resultURL, Data: data, Format: format, Width: width, Height: height}, nil
}

func (c *Client) download(ctx context.Context, resultURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(resultURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("dashscope: invalid result url: %s", resultURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("dashscope: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("dashscope: download result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("dashscope: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("dashscope: read result: %w", err)
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "image/png"
	}
	return data, format, nil
}

func inlineImage(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func firstResultURL(resp editResponse) string {
	for _, result := range resp.Output.Results {
		if u := strings.TrimSpace(result.URL); u != "" {
			return u
		}
	}
	return ""
}
