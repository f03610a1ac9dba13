package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"insightbot/internal/feed"
	"insightbot/pkg/logx"
)

const maxBackgroundBytes = 10 << 20

// overlay composites text onto a background with fogleman/gg.
type overlay struct {
	cfg  Config
	font *truetype.Font
	http *http.Client
	log  logx.Logger
}

func newOverlay(cfg Config, log logx.Logger) (*overlay, error) {
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, errors.New("render: canvas dimensions required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	ttf := goregular.TTF
	if cfg.FontFile != "" {
		b, err := os.ReadFile(cfg.FontFile)
		if err != nil {
			return nil, fmt.Errorf("render: read font %s: %w", cfg.FontFile, err)
		}
		ttf = b
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}

	return &overlay{
		cfg:  cfg,
		font: f,
		http: &http.Client{Timeout: 20 * time.Second},
		log:  log,
	}, nil
}

// Compose renders the card and returns PNG bytes. Any failure here is
// recoverable for the caller: the item falls back to a simpler
// representation and is never lost.
func (o *overlay) Compose(ctx context.Context, in feed.Insight) ([]byte, error) {
	w, h := o.cfg.CanvasWidth, o.cfg.CanvasHeight
	dc := gg.NewContext(w, h)

	if err := o.paintBackground(ctx, dc, in); err != nil {
		return nil, err
	}

	dc.SetFontFace(truetype.NewFace(o.font, &truetype.Options{Size: o.cfg.FontSize}))
	dc.SetHexColor(o.cfg.TextColor)

	pad := o.cfg.Padding
	textWidth := float64(w) - 2*pad
	dc.DrawStringWrapped(in.Text, pad, pad, 0, 0, textWidth, o.cfg.LineSpacing, gg.AlignLeft)

	if in.ReadTime != "" {
		dc.SetFontFace(truetype.NewFace(o.font, &truetype.Options{Size: o.cfg.FontSize * 0.5}))
		dc.DrawStringAnchored(in.ReadTime, float64(w)-pad, float64(h)-pad/2, 1, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (o *overlay) paintBackground(ctx context.Context, dc *gg.Context, in feed.Insight) error {
	// Color token or nothing: flat fill, no dimming needed.
	if in.Background == "" || in.BackgroundIsColor() {
		color := in.Background
		if color == "" {
			color = o.cfg.FallbackBackground
		}
		dc.SetHexColor(color)
		dc.Clear()
		return nil
	}

	img, err := o.fetchImage(ctx, in.Background)
	if err != nil {
		return err
	}

	w, h := o.cfg.CanvasWidth, o.cfg.CanvasHeight
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	dc.DrawImage(scaled, 0, 0)

	dc.SetRGBA(0, 0, 0, o.cfg.DimOpacity)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()
	return nil
}

func (o *overlay) fetchImage(ctx context.Context, rawURL string) (image.Image, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("render: unsupported background reference %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: fetch background: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("render: fetch background: unexpected status %s", resp.Status)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxBackgroundBytes))
	if err != nil {
		return nil, fmt.Errorf("render: decode background: %w", err)
	}
	return img, nil
}
