package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
)

// GeneratorPillow is the registry key for the local template renderer.
const GeneratorPillow = "pillow"

const (
	canvasSize  = 1080
	marginX     = 80
	lineSpacing = 6
)

// Generator renders the job prompt as text over a background image, entirely
// locally. It is the fallback when no image API is configured, and the fast
// path for text-only post formats.
type Generator struct {
	backgroundPath string
	outputDir      string
}

// NewGenerator creates a renderer. backgroundPath may be empty: a plain dark
// canvas is used instead.
func NewGenerator(backgroundPath, outputDir string) *Generator {
	return &Generator{backgroundPath: backgroundPath, outputDir: outputDir}
}

func (g *Generator) Generate(ctx context.Context, job *model.Job, env config.TenantEnv) (*services.GeneratorResult, error) {
	text := job.PromptText()
	if text == "" {
		return nil, fmt.Errorf("job %s has no prompt", job.ID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas, err := g.background()
	if err != nil {
		return nil, err
	}
	drawText(canvas, text)

	localPath := filepath.Join(g.outputDir, job.ID+".png")
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := imaging.Save(canvas, localPath); err != nil {
		return nil, fmt.Errorf("save rendered image: %w", err)
	}
	return &services.GeneratorResult{ImagePath: localPath}, nil
}

// background loads and squares the configured template image, or builds a
// plain canvas when none is set.
func (g *Generator) background() (*image.NRGBA, error) {
	if g.backgroundPath == "" {
		canvas := imaging.New(canvasSize, canvasSize, color.NRGBA{R: 24, G: 26, B: 34, A: 255})
		return canvas, nil
	}
	img, err := imaging.Open(g.backgroundPath)
	if err != nil {
		return nil, fmt.Errorf("open background %s: %w", g.backgroundPath, err)
	}
	return imaging.Fill(img, canvasSize, canvasSize, imaging.Center, imaging.Lanczos), nil
}

// drawText word-wraps the text and draws it centered on the canvas.
func drawText(canvas *image.NRGBA, text string) {
	face := basicfont.Face7x13
	maxWidth := canvasSize - 2*marginX
	lines := wrapLines(face, text, maxWidth)

	lineHeight := face.Metrics().Height.Ceil() + lineSpacing
	totalHeight := lineHeight * len(lines)
	y := (canvasSize-totalHeight)/2 + face.Metrics().Ascent.Ceil()

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	for _, line := range lines {
		width := drawer.MeasureString(line).Ceil()
		drawer.Dot = fixed.P((canvasSize-width)/2, y)
		drawer.DrawString(line)
		y += lineHeight
	}
}

// wrapLines greedily packs words into lines no wider than maxWidth pixels.
func wrapLines(face font.Face, text string, maxWidth int) []string {
	drawer := &font.Drawer{Face: face}
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if drawer.MeasureString(candidate).Ceil() > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
