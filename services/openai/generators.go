package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
	"github.com/postforge/api/services"
)

// Generator registry keys.
const (
	GeneratorDalle      = "dalle"
	GeneratorGPTImage15 = "gptimage15"
)

// DalleGenerator produces images with dall-e-3. The API returns a temporary
// URL that is downloaded into the output dir before it expires.
type DalleGenerator struct {
	client    *Client
	outputDir string
}

func NewDalleGenerator(client *Client, outputDir string) *DalleGenerator {
	return &DalleGenerator{client: client, outputDir: outputDir}
}

func (g *DalleGenerator) Generate(ctx context.Context, job *model.Job, env config.TenantEnv) (*services.GeneratorResult, error) {
	apiKey, err := env.Require("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	prompt := job.PromptText()
	if prompt == "" {
		return nil, fmt.Errorf("job %s has no prompt", job.ID)
	}

	resp, err := g.client.GenerateImage(ctx, apiKey, ImageRequest{
		Model:          "dall-e-3",
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "url",
	})
	if err != nil {
		return nil, err
	}
	remoteURL := resp.Data[0].URL
	if remoteURL == "" {
		return nil, fmt.Errorf("openai returned no image url")
	}

	localPath, err := downloadImage(ctx, remoteURL, g.outputDir, job.ID)
	if err != nil {
		return nil, err
	}
	return &services.GeneratorResult{ImagePath: localPath, ImageURL: remoteURL}, nil
}

// GPTImage15Generator produces images with gpt-image-1.5, which only returns
// base64 payloads.
type GPTImage15Generator struct {
	client    *Client
	outputDir string
}

func NewGPTImage15Generator(client *Client, outputDir string) *GPTImage15Generator {
	return &GPTImage15Generator{client: client, outputDir: outputDir}
}

func (g *GPTImage15Generator) Generate(ctx context.Context, job *model.Job, env config.TenantEnv) (*services.GeneratorResult, error) {
	apiKey, err := env.Require("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	prompt := job.PromptText()
	if prompt == "" {
		return nil, fmt.Errorf("job %s has no prompt", job.ID)
	}

	resp, err := g.client.GenerateImage(ctx, apiKey, ImageRequest{
		Model:   "gpt-image-1.5",
		Prompt:  prompt,
		N:       1,
		Size:    "1024x1024",
		Quality: "high",
	})
	if err != nil {
		return nil, err
	}
	payload := resp.Data[0].B64JSON
	if payload == "" {
		return nil, fmt.Errorf("openai returned no image payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	localPath := filepath.Join(g.outputDir, job.ID+".png")
	if err := writeImage(localPath, data); err != nil {
		return nil, err
	}
	return &services.GeneratorResult{ImagePath: localPath}, nil
}

func downloadImage(ctx context.Context, url, outputDir, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	localPath := filepath.Join(outputDir, jobID+".png")
	if err := writeImage(localPath, data); err != nil {
		return "", err
	}
	return localPath, nil
}

func writeImage(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}
