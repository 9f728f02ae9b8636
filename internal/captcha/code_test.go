package captcha

import (
	"testing"

	"github.com/dodocap/captcha-server/internal/config"
)

func isCodeChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func TestGenerate_CodeProperties(t *testing.T) {
	gen := NewCodeGenerator(config.Default())

	for i := 0; i < 200; i++ {
		code, glyphs := gen.Generate()

		if len(code) != CodeLength {
			t.Fatalf("expected code length %d, got %d (%q)", CodeLength, len(code), code)
		}
		if len(glyphs) != CodeLength {
			t.Fatalf("expected %d glyphs, got %d", CodeLength, len(glyphs))
		}
		for _, r := range code {
			if !isCodeChar(r) {
				t.Fatalf("code %q contains character %q outside [a-zA-Z0-9]", code, r)
			}
		}
		// Glyphs must spell the code in order.
		for j, r := range code {
			if glyphs[j].Char != r {
				t.Fatalf("glyph %d is %q, code has %q", j, glyphs[j].Char, r)
			}
		}
	}
}

func TestGenerate_GlyphLayout(t *testing.T) {
	cfg := config.Default()
	gen := NewCodeGenerator(cfg)

	_, glyphs := gen.Generate()

	baseline := float64(cfg.TextY) + cfg.FontSize/2
	for i, g := range glyphs {
		wantX := float64(cfg.TextX) + float64(i)*cfg.FontSize/2
		if g.X != wantX {
			t.Errorf("glyph %d: expected x=%v, got %v", i, wantX, g.X)
		}
		if g.Y != baseline {
			t.Errorf("glyph %d: expected y=%v, got %v", i, baseline, g.Y)
		}
	}
}

func TestGenerate_AtLeastOneRotatedAndOneBold(t *testing.T) {
	gen := NewCodeGenerator(config.Default())

	for i := 0; i < 500; i++ {
		_, glyphs := gen.Generate()

		rotated, bold := 0, 0
		for _, g := range glyphs {
			if g.Rotation != 0 {
				rotated++
			}
			if g.Bold {
				bold++
			}
		}
		if rotated == 0 {
			t.Fatal("generated a challenge with no rotated glyph")
		}
		if bold == 0 {
			t.Fatal("generated a challenge with no bold glyph")
		}
	}
}

func TestGenerate_RotationAnchors(t *testing.T) {
	cfg := config.Default()
	gen := NewCodeGenerator(cfg)

	baseline := float64(cfg.TextY) + cfg.FontSize/2
	half := float64(cfg.Height) / 2

	sawForced := false
	for i := 0; i < 5000; i++ {
		_, glyphs := gen.Generate()
		for _, g := range glyphs {
			if g.Rotation == 0 {
				continue
			}
			switch g.AnchorY {
			case baseline:
				// Normal per-glyph anchor.
			case half:
				// The forced-rotation pass anchors at frame half-height
				// and always rotates clockwise.
				sawForced = true
				if g.Rotation != rotationDegrees {
					t.Fatalf("forced rotation should be +%d degrees, got %v", rotationDegrees, g.Rotation)
				}
			default:
				t.Fatalf("unexpected rotation anchor %v (baseline=%v half=%v)", g.AnchorY, baseline, half)
			}
		}
	}
	if !sawForced {
		t.Error("never observed a forced rotation over 5000 challenges; correction pass may be broken")
	}
}
