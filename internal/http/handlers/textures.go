package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tileforge/internal/canvas"
	"tileforge/internal/domain"
	"tileforge/internal/middleware"
	"tileforge/internal/texture"
)

type textureRequest struct {
	Prompt string `json:"prompt"`
}

type textureResponse struct {
	ImageURL string `json:"imageUrl"`
	Strategy string `json:"strategy,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

// GenerateTexture handles POST /v1/textures. The pipeline guarantees a valid
// image for every generation failure, so the only client errors are a bad
// method or a missing prompt; anything else unexpected lands in the recover
// safety net as a 500.
func (a *App) GenerateTexture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			a.Logger.Error().
				Interface("panic", rec).
				Str("request_id", middleware.RequestIDFromContext(r.Context())).
				Msg("handlers: texture generation panicked")
			a.error(w, http.StatusInternalServerError, "internal error")
		}
	}()

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
	a.json(w, http.StatusOK, textureResponse{
		ImageURL: canvas.DataURL(result.Image),
		Strategy: result.Strategy,
		Degraded: result.Degraded,
	})
}

// recordRun writes the audit row when history is configured. Failures are
// logged only; audit must never affect the response.
func (a *App) recordRun(r *http.Request, prompt string, result *texture.Result, elapsed time.Duration) {
	if a.History == nil {
		return
	}
	status := domain.RunSucceeded
	if result.Degraded {
		status = domain.RunDegraded
	}
	run := &domain.Run{
		ID:       uuid.NewString(),
		Prompt:   prompt,
		Strategy: result.Strategy,
		Status:   status,
		Width:    result.Width,
		Height:   result.Height,
		Country:  middleware.CountryFromContext(r.Context()),
		Duration: elapsed,
	}
	if err := a.History.Record(r.Context(), run); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: record run failed")
	}
}
