package render

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font/basicfont"
	"gorm.io/datatypes"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
)

func TestGenerateWritesImage(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator("", dir)
	job := &model.Job{
		ID:     "job-render",
		Prompt: datatypes.JSONMap{"prompt": "Monday motivation, but make it forest themed"},
	}

	res, err := g.Generate(context.Background(), job, config.TenantEnv{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := filepath.Join(dir, "job-render.png")
	if res.ImagePath != want {
		t.Errorf("image path = %q, want %q", res.ImagePath, want)
	}
	if res.ImageURL != "" {
		t.Errorf("local renderer reported a remote url: %q", res.ImageURL)
	}

	img, err := imaging.Open(res.ImagePath)
	if err != nil {
		t.Fatalf("open rendered image: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != canvasSize || bounds.Dy() != canvasSize {
		t.Errorf("canvas = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), canvasSize, canvasSize)
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	g := NewGenerator("", t.TempDir())
	job := &model.Job{ID: "job-empty"}
	if _, err := g.Generate(context.Background(), job, config.TenantEnv{}); err == nil {
		t.Fatal("empty prompt accepted")
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	g := NewGenerator("", t.TempDir())
	job := &model.Job{ID: "job-c", Prompt: datatypes.JSONMap{"prompt": "x"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, job, config.TenantEnv{}); err == nil {
		t.Fatal("cancelled context accepted")
	}
}

func TestGenerateWithBackground(t *testing.T) {
	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	if err := imaging.Save(imaging.New(300, 200, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), bg); err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(bg, dir)
	job := &model.Job{ID: "job-bg", Prompt: datatypes.JSONMap{"prompt": "hello"}}
	res, err := g.Generate(context.Background(), job, config.TenantEnv{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	img, err := imaging.Open(res.ImagePath)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != canvasSize {
		t.Errorf("background not squared to canvas size")
	}
}

func TestGenerateMissingBackground(t *testing.T) {
	g := NewGenerator(filepath.Join(t.TempDir(), "missing.png"), t.TempDir())
	job := &model.Job{ID: "job-m", Prompt: datatypes.JSONMap{"prompt": "hello"}}
	if _, err := g.Generate(context.Background(), job, config.TenantEnv{}); err == nil {
		t.Fatal("missing background accepted")
	}
	if _, err := os.Stat(filepath.Join(g.outputDir, "job-m.png")); err == nil {
		t.Error("output written despite background failure")
	}
}

func TestWrapLines(t *testing.T) {
	face := basicfont.Face7x13
	text := strings.Repeat("forest ", 40)
	lines := wrapLines(face, text, 200)
	if len(lines) < 2 {
		t.Fatalf("long text produced %d lines", len(lines))
	}
	for i, line := range lines {
		if line == "" {
			t.Errorf("line %d is empty", i)
		}
	}

	if lines := wrapLines(face, "one", 200); len(lines) != 1 || lines[0] != "one" {
		t.Errorf("single word wrapped to %v", lines)
	}
	if lines := wrapLines(face, "   ", 200); len(lines) != 0 {
		t.Errorf("whitespace-only text wrapped to %v", lines)
	}
}
