package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
	"tileforge/internal/seamless"
	"tileforge/internal/texture"
	"tileforge/pkg/zip"
)

// BundleTexture handles POST /v1/textures/bundle. It runs the same pipeline
// as GenerateTexture but ships the result as a zip archive holding the
// texture plus a 2x2 tiled preview, ready to drop into an asset library.
func (a *App) BundleTexture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req textureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	start := time.Now()
	result, err := a.Pipeline.Generate(r.Context(), texture.Request{Prompt: req.Prompt})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPrompt) {
			a.error(w, http.StatusBadRequest, "prompt is required")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: texture pipeline failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.recordRun(r, req.Prompt, result, time.Since(start))

	assets := []zip.Asset{{Filename: "texture.png", MIME: "image/png", Data: result.Image}}
	// The preview is a convenience; skip it rather than fail the download.
	if decoded, err := canvas.Decode(result.Image); err == nil {
		if preview, err := seamless.Tile2x2(decoded); err == nil {
			if previewPNG, err := canvas.EncodePNG(preview); err == nil {
				assets = append(assets, zip.Asset{Filename: "preview_2x2.png", MIME: "image/png", Data: previewPNG})
			}
		}
	}

	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: archive assets failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="texture_bundle.zip"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(archive)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: write bundle response failed")
	}
}
