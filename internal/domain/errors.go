package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidPrompt      = errors.New("invalid prompt")
	ErrInvalidDimensions  = errors.New("invalid image dimensions")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrProcessingFailed   = errors.New("processing failed")
	ErrMissingCredentials = errors.New("missing provider credentials")
)
