// Package render produces composited insight cards: a background image or
// solid color with the insight text drawn on top.
//
// Rendering capability is probed once at startup (font parse, config), and
// the result is passed into the delivery pipeline as a strategy. A nil
// Renderer simply means the composite representation is unavailable and
// delivery falls back to photo-by-reference or plain text.
package render

import (
	"context"

	"insightbot/internal/feed"
	"insightbot/pkg/logx"
)

// Config holds typography/layout parameters for the composite card.
type Config struct {
	CanvasWidth  int
	CanvasHeight int
	FontSize     float64
	Padding      float64
	LineSpacing  float64
	TextColor    string

	// FallbackBackground is a "#rrggbb" color used when the item has no
	// usable background reference.
	FallbackBackground string

	// DimOpacity darkens image backgrounds so text stays readable (0..1).
	DimOpacity float64

	// FontFile optionally overrides the embedded Go Regular face.
	FontFile string
}

// Renderer turns an insight into encoded image bytes ready for upload.
type Renderer interface {
	Compose(ctx context.Context, in feed.Insight) ([]byte, error)
}

// Probe builds the composite renderer if the runtime can support it.
// A probe failure (unparseable font file, broken config) is not fatal to
// the caller; it just disables the composite representation.
func Probe(cfg Config, log logx.Logger) (Renderer, error) {
	return newOverlay(cfg, log)
}
