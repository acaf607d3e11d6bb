package stability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"tileforge/internal/domain"
)

func TestGenerateImagePayloadAndDecode(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		Engine:     "stable-diffusion-xl-1024-v1-0",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	artifact := []byte{0x89, 'P', 'N', 'G'}
	transport.setJSONResponse("/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image", map[string]any{
		"artifacts": []any{
			map[string]any{
				"base64":       base64.StdEncoding.EncodeToString(artifact),
				"finishReason": "SUCCESS",
				"seed":         42,
			},
		},
	})

	data, err := client.GenerateImage(context.Background(), TextRequest{
		Prompt:         "weathered brick wall, seamless tiling",
		NegativePrompt: "blurry",
		Width:          1024,
		Height:         1024,
		Steps:          30,
		CFGScale:       7,
		StylePreset:    "photographic",
	})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if !bytes.Equal(data, artifact) {
		t.Fatalf("artifact bytes mismatch: %v vs %v", data, artifact)
	}
	if transport.lastBody == nil {
		t.Fatalf("expected payload to be captured")
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	prompts := payload["text_prompts"].([]any)
	if len(prompts) != 2 {
		t.Fatalf("text_prompts len = %d, want 2", len(prompts))
	}
	first := prompts[0].(map[string]any)
	if first["text"] != "weathered brick wall, seamless tiling" {
		t.Fatalf("prompt text = %v", first["text"])
	}
	second := prompts[1].(map[string]any)
	if second["weight"].(float64) >= 0 {
		t.Fatalf("negative prompt weight = %v, want negative", second["weight"])
	}
	if payload["width"].(float64) != 1024 || payload["height"].(float64) != 1024 {
		t.Fatalf("dimensions = %vx%v, want 1024x1024", payload["width"], payload["height"])
	}
	if payload["style_preset"] != "photographic" {
		t.Fatalf("style_preset = %v, want photographic", payload["style_preset"])
	}
	if payload["samples"].(float64) != 1 {
		t.Fatalf("samples = %v, want 1", payload["samples"])
	}
}

func TestInpaintEncodesMaskWhite(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	artifact := []byte{0x01, 0x02}
	transport.setJSONResponse("/v1/generation/stable-diffusion-xl-1024-v1-0/image-to-image/masking", map[string]any{
		"artifacts": []any{
			map[string]any{"base64": base64.StdEncoding.EncodeToString(artifact)},
		},
	})

	init := []byte{0xaa, 0xbb}
	mask := []byte{0xcc, 0xdd}
	data, err := client.Inpaint(context.Background(), InpaintRequest{
		Prompt:    "mossy stone",
		InitImage: init,
		MaskImage: mask,
		Strength:  0.4,
		Steps:     30,
		CFGScale:  7,
	})
	if err != nil {
		t.Fatalf("inpaint: %v", err)
	}
	if !bytes.Equal(data, artifact) {
		t.Fatalf("artifact bytes mismatch")
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["mask_source"] != "MASK_IMAGE_WHITE" {
		t.Fatalf("mask_source = %v, want MASK_IMAGE_WHITE", payload["mask_source"])
	}
	if payload["init_image"] != base64.StdEncoding.EncodeToString(init) {
		t.Fatalf("init_image not base64 of input")
	}
	if payload["mask_image"] != base64.StdEncoding.EncodeToString(mask) {
		t.Fatalf("mask_image not base64 of input")
	}
	if payload["strength"].(float64) != 0.4 {
		t.Fatalf("strength = %v, want 0.4", payload["strength"])
	}
}

func TestGenerateImageWithoutCredentials(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.HasCredentials() {
		t.Fatalf("expected no credentials")
	}
	_, err = client.GenerateImage(context.Background(), TextRequest{Prompt: "anything"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("err should wrap domain.ErrMissingCredentials, got %v", err)
	}
}

func TestGenerateImageEmptyArtifacts(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport.setJSONResponse("/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image", map[string]any{
		"artifacts": []any{},
	})
	_, err = client.GenerateImage(context.Background(), TextRequest{Prompt: "rusted metal plate"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want wrapped ErrGenerationFailed", err)
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.responses["/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"] = responseStub{
		status: http.StatusBadRequest,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   []byte(`{"name":"invalid_prompts","message":"prompt rejected"}`),
	}
	client, err := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GenerateImage(context.Background(), TextRequest{Prompt: "anything"})
	if err == nil || !strings.Contains(err.Error(), "prompt rejected") {
		t.Fatalf("err = %v, want message from API", err)
	}
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("err should wrap domain.ErrGenerationFailed, got %v", err)
	}
}

type captureTransport struct {
	responses map[string]responseStub
	lastBody  []byte
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
		if stub, ok := c.responses[req.URL.Path]; ok {
			return stub.toResponse(), nil
		}
	}
	if req.Method == http.MethodGet {
		if stub, ok := c.responses[req.URL.String()]; ok {
			return stub.toResponse(), nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
