package handlers

import (
	"net/http"
	"strconv"
	"time"
)

type historyEntry struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	Strategy   string    `json:"strategy"`
	Status     string    `json:"status"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Country    string    `json:"country,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// TextureHistory handles GET /v1/textures/history. Available only when a
// database is configured.
func (a *App) TextureHistory(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		a.error(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	runs, err := a.History.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: load history failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}
	entries := make([]historyEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, historyEntry{
			ID:         run.ID,
			Prompt:     run.Prompt,
			Strategy:   run.Strategy,
			Status:     string(run.Status),
			Width:      run.Width,
			Height:     run.Height,
			Country:    run.Country,
			DurationMS: run.Duration.Milliseconds(),
			CreatedAt:  run.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"runs": entries})
}
