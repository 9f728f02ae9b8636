package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"math/rand"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/dodocap/captcha-server/internal/config"
	"github.com/dodocap/captcha-server/internal/metrics"
)

// expiredNotice is the document fragment sent with captcha.expired.
const expiredNotice = `<!DOCTYPE html>
<html>
  <body>
    <div style="display: flex; justify-content: center; align-items: center; width: 150px; height: 75px; background-color: #1a1a1a">
      <p style="width: auto; height: auto; color: white">Captcha Expired</p>
    </div>
  </body>
</html>`

// Renderer turns glyph instructions into a displayable challenge document:
// a striped noise background, one obfuscation line, and the glyphs, rasterized
// to PNG and embedded as a base64 data URL in a minimal HTML fragment.
//
// The embedded Go fonts are parsed once at construction; faces are created
// per render because truetype faces are not safe for concurrent use.
type Renderer struct {
	cfg     config.Config
	regular *truetype.Font
	bold    *truetype.Font
}

// NewRenderer creates a Renderer for the given frame configuration.
func NewRenderer(cfg config.Config) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("captcha: parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("captcha: parse bold font: %w", err)
	}
	return &Renderer{cfg: cfg, regular: regular, bold: bold}, nil
}

// Render composes and rasterizes the challenge scene. It is the one slow
// operation in the pipeline; the context lets callers abandon a render whose
// session has already gone away. The returned document is ready to transmit
// as the params of a captcha.challenge message.
func (r *Renderer) Render(ctx context.Context, glyphs []Glyph) (string, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("captcha: render canceled: %w", err)
	}

	dc := gg.NewContext(r.cfg.Width, r.cfg.Height)
	r.drawBackground(dc)
	r.drawLine(dc)
	r.drawGlyphs(dc, glyphs)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("captcha: render canceled: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return "", fmt.Errorf("captcha: encode png: %w", err)
	}

	metrics.RenderDuration.Observe(time.Since(start).Seconds())

	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	doc := fmt.Sprintf("<!DOCTYPE html>\n<html>\n  <body>\n    <img src=%q />\n  </body>\n</html>", url)
	return doc, nil
}

// ExpiredNotice returns the document sent to the client when a challenge
// times out.
func (r *Renderer) ExpiredNotice() string {
	return expiredNotice
}

// drawBackground fills the frame with a stripe pattern of per-challenge
// random stripe height (4-7px) and rotation (0-359 degrees), alternating two
// dark gray tones. The stripes are decorative noise only.
func (r *Renderer) drawBackground(dc *gg.Context) {
	stripeHeight := float64(rand.Intn(4) + 4)
	rotation := float64(rand.Intn(360))

	w := float64(r.cfg.Width)
	h := float64(r.cfg.Height)

	dc.Push()
	dc.RotateAbout(gg.Radians(rotation), w/2, h/2)

	// Overscan so the rotated stripes still cover every corner.
	span := w + h
	dark := false
	for y := -span; y < span; y += stripeHeight / 2 {
		if dark {
			dc.SetRGB255(55, 55, 55)
		} else {
			dc.SetRGB255(80, 80, 80)
		}
		dark = !dark
		dc.DrawRectangle(-span, y, 2*span, stripeHeight/2)
		dc.Fill()
	}
	dc.Pop()
}

// drawLine draws the single obfuscation line: a thin black bar of configured
// width, centered at a random position within the band spanned by the text
// anchor and font size, tilted by a small random angle (0-19 degrees).
func (r *Renderer) drawLine(dc *gg.Context) {
	minX, minY := r.cfg.TextX, r.cfg.TextY
	maxX := r.cfg.TextX + int(r.cfg.FontSize)*2
	maxY := r.cfg.TextY + int(r.cfg.FontSize)/2

	x := float64(rand.Intn(maxX-minX+1) + minX)
	y := float64(rand.Intn(maxY-minY+1) + minY)
	rotation := float64(rand.Intn(20))

	lineWidth := float64(r.cfg.LineWidth)

	dc.Push()
	dc.RotateAbout(gg.Radians(rotation), x, y)
	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(x-lineWidth/2, y-0.75, lineWidth, 1.5)
	dc.Fill()
	dc.Pop()
}

// drawGlyphs overlays the glyph instructions in order, switching to the bold
// face where requested and rotating each glyph about its own anchor.
func (r *Renderer) drawGlyphs(dc *gg.Context, glyphs []Glyph) {
	regularFace := truetype.NewFace(r.regular, &truetype.Options{Size: r.cfg.FontSize})
	boldFace := truetype.NewFace(r.bold, &truetype.Options{Size: r.cfg.FontSize})

	dc.SetRGB(0, 0, 0)
	for _, g := range glyphs {
		dc.Push()
		if g.Rotation != 0 {
			dc.RotateAbout(gg.Radians(g.Rotation), g.X, g.AnchorY)
		}
		if g.Bold {
			dc.SetFontFace(boldFace)
		} else {
			dc.SetFontFace(regularFace)
		}
		dc.DrawStringAnchored(string(g.Char), g.X, g.Y, 0.5, 0.5)
		dc.Pop()
	}
}
