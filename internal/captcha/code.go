// Package captcha implements the challenge/verification core: code
// generation, challenge rendering, the per-connection session state machine,
// and the process-wide registry of verified tokens.
package captcha

import (
	"math/rand"
	"strings"
	"unicode"

	"github.com/dodocap/captcha-server/internal/config"
)

// CodeLength is the number of characters in every challenge solution.
const CodeLength = 5

// charset is the base alphabet a solution is drawn from. Each character is
// additionally case-randomized after selection; digits pass through the
// uppercase branch unchanged.
const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

// rotationDegrees is the magnitude of a glyph tilt in either direction.
const rotationDegrees = 25

// Glyph is one drawing instruction for a single challenge character. The
// renderer draws Char centered at (X, Y), optionally in the bold face, and
// optionally rotated by Rotation degrees about (X, AnchorY).
type Glyph struct {
	Char     rune
	X        float64
	Y        float64
	Bold     bool
	Rotation float64 // degrees; 0 means no rotation
	AnchorY  float64 // vertical rotation anchor, only meaningful when Rotation != 0
}

// CodeGenerator produces challenge solutions and the glyph instructions that
// visually encode them. It is stateless apart from its configuration, so a
// single instance is shared by all sessions.
type CodeGenerator struct {
	cfg config.Config
}

// NewCodeGenerator creates a generator for the given frame configuration.
func NewCodeGenerator(cfg config.Config) *CodeGenerator {
	return &CodeGenerator{cfg: cfg}
}

// Generate returns a fresh solution string and its glyph instructions.
//
// Layout: glyphs advance left to right from the configured text anchor, each
// offset by fontSize/2 from the previous regardless of actual glyph width.
// The irregular, overlapping spacing that results is deliberate.
//
// Transforms are sampled per glyph (weight: normal or bold; rotation: none,
// +25 or -25 degrees about the glyph's own baseline anchor), then patched in
// a second pass: if no glyph was rotated, one random glyph is forced to +25
// degrees anchored at frame half-height, and if no glyph is bold, one random
// glyph is forced bold. Every challenge therefore contains at least one
// rotated and at least one bold glyph.
func (g *CodeGenerator) Generate() (string, []Glyph) {
	var text strings.Builder
	glyphs := make([]Glyph, CodeLength)

	baseline := float64(g.cfg.TextY) + g.cfg.FontSize/2

	for i := 0; i < CodeLength; i++ {
		x := float64(g.cfg.TextX)
		if i > 0 {
			x = glyphs[i-1].X + g.cfg.FontSize/2
		}

		ch := randomChar()
		text.WriteRune(ch)

		glyph := Glyph{
			Char:    ch,
			X:       x,
			Y:       baseline,
			Bold:    rand.Intn(2) == 1,
			AnchorY: baseline,
		}

		switch rand.Intn(3) {
		case 1:
			glyph.Rotation = rotationDegrees
		case 2:
			glyph.Rotation = -rotationDegrees
		}

		glyphs[i] = glyph
	}

	// Correction pass: sample-then-patch rather than biased sampling, so the
	// per-glyph distribution stays uniform.
	if noneRotated(glyphs) {
		i := rand.Intn(len(glyphs))
		glyphs[i].Rotation = rotationDegrees
		// The forced rotation pivots at frame half-height, not the glyph
		// baseline.
		glyphs[i].AnchorY = float64(g.cfg.Height) / 2
	}
	if noneBold(glyphs) {
		glyphs[rand.Intn(len(glyphs))].Bold = true
	}

	return text.String(), glyphs
}

// randomChar picks a character uniformly from the alphabet, then randomly
// upper- or lowercases it. Uppercasing a digit is a no-op, so roughly 26/36
// of characters end up case-ambiguous; verification is still case-sensitive.
func randomChar() rune {
	ch := rune(charset[rand.Intn(len(charset))])
	if rand.Intn(2) == 1 {
		return unicode.ToUpper(ch)
	}
	return ch
}

func noneRotated(glyphs []Glyph) bool {
	for _, g := range glyphs {
		if g.Rotation != 0 {
			return false
		}
	}
	return true
}

func noneBold(glyphs []Glyph) bool {
	for _, g := range glyphs {
		if g.Bold {
			return false
		}
	}
	return true
}
