package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tileforge/internal/domain"
	"tileforge/internal/infra"
	"tileforge/internal/texture"
)

// TextureGenerator is the slice of the pipeline the handlers depend on.
type TextureGenerator interface {
	Generate(ctx context.Context, req texture.Request) (*texture.Result, error)
}

// App bundles the handler dependencies. History is optional; handlers that
// need it degrade gracefully when it is nil.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Pipeline TextureGenerator
	History  domain.RunRepository
}

func NewApp(cfg *infra.Config, logger infra.Logger, pipeline TextureGenerator, history domain.RunRepository) *App {
	return &App{Config: cfg, Logger: logger, Pipeline: pipeline, History: history}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
