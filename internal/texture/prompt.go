package texture

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// BuildTilingPrompt interpolates the user's subject into the template used for
// direct tileable generation. The subject is title-cased so prompts render
// consistently regardless of how the caller typed them.
func BuildTilingPrompt(subject string) string {
	c := cases.Title(language.Und)
	subject = strings.TrimSpace(subject)
	return fmt.Sprintf(
		"Seamless tileable texture of %s, top-down view, even diffuse lighting, high detail, repeating pattern",
		c.String(subject),
	)
}

// BuildEnhancePrompt interpolates the subject into the template used for the
// refinement pass over an already tileable candidate.
func BuildEnhancePrompt(subject string) string {
	c := cases.Title(language.Und)
	subject = strings.TrimSpace(subject)
	return fmt.Sprintf(
		"Texture of %s, enhance fine surface detail, keep the existing composition and edges unchanged",
		c.String(subject),
	)
}

// BuildNegativePrompt returns the fixed negative prompt shared by every
// generation call.
func BuildNegativePrompt() string {
	return "seams, visible borders, frame, vignette, text, watermark, logo, blur, perspective distortion"
}
