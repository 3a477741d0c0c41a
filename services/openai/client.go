package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// BaseURL is the OpenAI API base URL
	BaseURL = "https://api.openai.com/v1"
	// DefaultTimeout covers image generation, which routinely takes
	// upwards of a minute for large models.
	DefaultTimeout = 3 * time.Minute
)

// Client handles OpenAI image generation API calls. It is credential-free:
// the API key is resolved per call from the tenant config, so one client
// serves every tenant.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new OpenAI API client
func NewClient() *Client {
	return &Client{
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// ImageRequest is the payload for the images/generations endpoint.
type ImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// ImageResponse is the payload returned by images/generations.
type ImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL     string `json:"url,omitempty"`
		B64JSON string `json:"b64_json,omitempty"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// GenerateImage calls the images/generations endpoint and returns the first
// result.
func (c *Client) GenerateImage(ctx context.Context, apiKey string, req ImageRequest) (*ImageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("openai API error (%d): %s", resp.StatusCode, string(raw))
	}

	var imageResp ImageResponse
	if err := json.Unmarshal(raw, &imageResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(imageResp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no images")
	}
	return &imageResp, nil
}
