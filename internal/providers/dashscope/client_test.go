package dashscope

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

func TestEditImagePayloadAndDownload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		Model:      "wanx2.1-imageedit",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport.setJSONResponse("/api/v1/services/aigc/image2image/image-synthesis", map[string]any{
		"output": map[string]any{
			"results": []any{
				map[string]any{"url": "https://example.com/results/out.png"},
			},
		},
		"usage":      map[string]any{"width": 1024, "height": 1024},
		"request_id": "req-456",
	})
	result := []byte{0x89, 'P', 'N', 'G'}
	transport.setBinaryResponse("https://example.com/results/out.png", result)

	base := []byte{0x01, 0x02, 0x03}
	asset, err := client.EditImage(context.Background(), EditRequest{
		Prompt:    "seamless cobblestone texture",
		BaseImage: base,
		Strength:  0.5,
		Tiling:    true,
		Seed:      7,
	})
	if err != nil {
		t.Fatalf("edit image: %v", err)
	}
	if !bytes.Equal(asset.Data, result) {
		t.Fatalf("downloaded bytes mismatch")
	}
	if asset.Width != 1024 || asset.Height != 1024 {
		t.Fatalf("dimensions = %dx%d, want 1024x1024", asset.Width, asset.Height)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	input := payload["input"].(map[string]any)
	baseURL := input["base_image_url"].(string)
	if !strings.HasPrefix(baseURL, "data:image/png;base64,") {
		t.Fatalf("base_image_url = %q, want inline data url", baseURL)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(baseURL, "data:image/png;base64,"))
	if err != nil || !bytes.Equal(decoded, base) {
		t.Fatalf("base image payload mismatch: %v", err)
	}
	if _, ok := input["mask_image_url"]; ok {
		t.Fatalf("mask_image_url should be omitted without a mask")
	}
	params := payload["parameters"].(map[string]any)
	if params["tiling"] != true {
		t.Fatalf("tiling = %v, want true", params["tiling"])
	}
	if params["strength"].(float64) != 0.5 {
		t.Fatalf("strength = %v, want 0.5", params["strength"])
	}
	if params["seed"].(float64) != 7 {
		t.Fatalf("seed = %v, want 7", params["seed"])
	}
	if params["n"].(float64) != 1 {
		t.Fatalf("n = %v, want 1", params["n"])
	}
}

func TestEditImageMaskIncluded(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport.setJSONResponse("/api/v1/services/aigc/image2image/image-synthesis", map[string]any{
		"output": map[string]any{
			"results": []any{map[string]any{"url": "https://example.com/results/masked.png"}},
		},
	})
	transport.setBinaryResponse("https://example.com/results/masked.png", []byte{0x01})

	_, err = client.EditImage(context.Background(), EditRequest{
		Prompt:    "repair seams",
		BaseImage: []byte{0x01},
		Mask:      []byte{0x02},
	})
	if err != nil {
		t.Fatalf("edit image: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	input := payload["input"].(map[string]any)
	if _, ok := input["mask_image_url"]; !ok {
		t.Fatalf("mask_image_url missing from payload")
	}
	params := payload["parameters"].(map[string]any)
	if _, ok := params["tiling"]; ok {
		t.Fatalf("tiling should be omitted when false")
	}
}

func TestEditImageEmptyResults(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport.setJSONResponse("/api/v1/services/aigc/image2image/image-synthesis", map[string]any{
		"output": map[string]any{"results": []any{}},
	})
	_, err = client.EditImage(context.Background(), EditRequest{
		Prompt:    "anything",
		BaseImage: []byte{0x01},
	})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want wrapped ErrGenerationFailed", err)
	}
}

func TestEditImageWithoutCredentials(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.EditImage(context.Background(), EditRequest{
		Prompt:    "anything",
		BaseImage: []byte{0x01},
	})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestEditImageAPIErrorCode(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport.setJSONResponse("/api/v1/services/aigc/image2image/image-synthesis", map[string]any{
		"code":    "InvalidParameter",
		"message": "strength out of range",
	})
	_, err = client.EditImage(context.Background(), EditRequest{
		Prompt:    "anything",
		BaseImage: []byte{0x01},
	})
	if err == nil || !strings.Contains(err.Error(), "strength out of range") {
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

func (c *captureTransport) setBinaryResponse(url string, data []byte) {
	c.responses[url] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"image/png"}},
		body:   data,
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
