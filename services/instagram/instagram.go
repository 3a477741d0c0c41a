package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/postforge/api/config"
)

const (
	// BaseURL is the Instagram Graph API base URL
	BaseURL = "https://graph.facebook.com/v18.0"
	// DefaultTimeout is the HTTP timeout for Graph API calls
	DefaultTimeout = 60 * time.Second
	// carouselSettleDelay gives the platform time to ingest the child
	// containers before the carousel container references them.
	carouselSettleDelay = 15 * time.Second
)

// Client publishes images through the Instagram Graph API. Credentials come
// from the tenant config on every call; the client itself holds none.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// settleDelay is overridable in tests
	settleDelay time.Duration
}

// NewClient creates a new Graph API client
func NewClient() *Client {
	return &Client{
		baseURL:     BaseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		settleDelay: carouselSettleDelay,
	}
}

type graphResponse struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Error     *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// PublishImage publishes a single image post: create a media container, then
// publish it, then fetch the permalink for the result log.
func (c *Client) PublishImage(ctx context.Context, env config.TenantEnv, imageURL, caption string) (map[string]interface{}, error) {
	accountID, token, err := credentials(env)
	if err != nil {
		return nil, err
	}

	containerID, err := c.createContainer(ctx, accountID, token, url.Values{
		"image_url": {imageURL},
		"caption":   {caption},
	})
	if err != nil {
		return nil, fmt.Errorf("create media container: %w", err)
	}
	return c.publishContainer(ctx, accountID, token, containerID, 1)
}

// PublishCarousel publishes a multi-image post: one child container per
// image, a short settle delay, then a CAROUSEL container referencing the
// children, then publish.
func (c *Client) PublishCarousel(ctx context.Context, env config.TenantEnv, imageURLs []string, caption string) (map[string]interface{}, error) {
	accountID, token, err := credentials(env)
	if err != nil {
		return nil, err
	}

	children := make([]string, 0, len(imageURLs))
	for _, imageURL := range imageURLs {
		childID, err := c.createContainer(ctx, accountID, token, url.Values{
			"image_url":        {imageURL},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return nil, fmt.Errorf("create carousel child: %w", err)
		}
		children = append(children, childID)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.settleDelay):
	}

	containerID, err := c.createContainer(ctx, accountID, token, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {caption},
	})
	if err != nil {
		return nil, fmt.Errorf("create carousel container: %w", err)
	}
	return c.publishContainer(ctx, accountID, token, containerID, len(imageURLs))
}

func (c *Client) createContainer(ctx context.Context, accountID, token string, params url.Values) (string, error) {
	params.Set("access_token", token)
	resp, err := c.post(ctx, fmt.Sprintf("%s/%s/media", c.baseURL, accountID), params)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) publishContainer(ctx context.Context, accountID, token, containerID string, imageCount int) (map[string]interface{}, error) {
	resp, err := c.post(ctx, fmt.Sprintf("%s/%s/media_publish", c.baseURL, accountID), url.Values{
		"creation_id":  {containerID},
		"access_token": {token},
	})
	if err != nil {
		return nil, fmt.Errorf("publish media: %w", err)
	}
	mediaID := resp.ID

	payload := map[string]interface{}{
		"media_id":    mediaID,
		"image_count": imageCount,
	}
	// The permalink is informational; a fetch failure does not undo a
	// successful publish.
	if permalink, err := c.permalink(ctx, mediaID, token); err == nil && permalink != "" {
		payload["permalink"] = permalink
	}
	return payload, nil
}

func (c *Client) permalink(ctx context.Context, mediaID, token string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=permalink&access_token=%s",
		c.baseURL, mediaID, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	decoded, err := decode(resp)
	if err != nil {
		return "", err
	}
	return decoded.Permalink, nil
}

func (c *Client) post(ctx context.Context, endpoint string, params url.Values) (*graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph API request failed: %w", err)
	}
	defer resp.Body.Close()
	return decode(resp)
}

func decode(resp *http.Response) (*graphResponse, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var decoded graphResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response (%d): %s", resp.StatusCode, string(raw))
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("graph API error (%d/%d): %s",
			resp.StatusCode, decoded.Error.Code, decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph API error: status %d", resp.StatusCode)
	}
	return &decoded, nil
}

func credentials(env config.TenantEnv) (accountID, token string, err error) {
	accountID, err = env.Require("INSTAGRAM_ACCOUNT_ID")
	if err != nil {
		return "", "", err
	}
	token, err = env.Require("INSTAGRAM_ACCESS_TOKEN")
	if err != nil {
		return "", "", err
	}
	return accountID, token, nil
}
