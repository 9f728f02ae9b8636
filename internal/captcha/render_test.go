package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/dodocap/captcha-server/internal/config"
)

func newTestRenderer(t *testing.T) (*Renderer, config.Config) {
	t.Helper()
	cfg := config.Default()
	r, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	return r, cfg
}

func TestRender_EmbedsPNGOfConfiguredSize(t *testing.T) {
	r, cfg := newTestRenderer(t)
	_, glyphs := NewCodeGenerator(cfg).Generate()

	doc, err := r.Render(context.Background(), glyphs)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	const prefix = "data:image/png;base64,"
	start := strings.Index(doc, prefix)
	if start < 0 {
		t.Fatal("document does not embed a PNG data URL")
	}
	encoded := doc[start+len(prefix):]
	if end := strings.IndexByte(encoded, '"'); end >= 0 {
		encoded = encoded[:end]
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("embedded image is not valid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("embedded image is not valid PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != cfg.Width || bounds.Dy() != cfg.Height {
		t.Errorf("expected %dx%d image, got %dx%d", cfg.Width, cfg.Height, bounds.Dx(), bounds.Dy())
	}
}

func TestRender_CanceledContext(t *testing.T) {
	r, cfg := newTestRenderer(t)
	_, glyphs := NewCodeGenerator(cfg).Generate()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Render(ctx, glyphs); err == nil {
		t.Error("expected an error rendering with a canceled context")
	}
}

func TestExpiredNotice(t *testing.T) {
	r, _ := newTestRenderer(t)

	notice := r.ExpiredNotice()
	if !strings.Contains(notice, "Captcha Expired") {
		t.Error("expected the expired notice to carry the expiration text")
	}
}
