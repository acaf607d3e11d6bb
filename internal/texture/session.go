package texture

import (
	"context"
	"image"

	"github.com/google/uuid"

	"tileforge/internal/canvas"
	"tileforge/internal/infra"
	"tileforge/internal/storage"
)

// Session is the ephemeral scope of one pipeline run. It owns a scratch
// namespace keyed by its ID; intermediate frames written there are removed
// when the session closes, on every exit path.
type Session struct {
	ID     string
	store  *storage.FileStore
	logger *infra.Logger
}

// NewSession allocates a session with a fresh identifier. The store may be
// nil, in which case intermediate saves become no-ops.
func NewSession(store *storage.FileStore, logger *infra.Logger) *Session {
	return &Session{
		ID:     uuid.NewString(),
		store:  store,
		logger: logger,
	}
}

// SaveIntermediate persists a pipeline stage's output for later inspection.
// Failures are logged and swallowed; scratch debugging must never affect the
// pipeline outcome.
func (s *Session) SaveIntermediate(ctx context.Context, name string, img image.Image) {
	if s == nil || s.store == nil || img == nil {
		return
	}
	data, err := canvas.EncodePNG(img)
	if err != nil {
		s.warn(name, err)
		return
	}
	if _, err := s.store.Write(ctx, s.ID, name, data); err != nil {
		s.warn(name, err)
	}
}

// Close releases the session's scratch namespace.
func (s *Session) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.RemoveSession(s.ID); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Str("session_id", s.ID).Msg("texture: scratch cleanup failed")
	}
}

func (s *Session) warn(name string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn().Err(err).Str("session_id", s.ID).Str("artifact", name).Msg("texture: intermediate save failed")
}
