package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/postforge/api/config"
	"github.com/postforge/api/model"
)

// Notifier posts operational events to a Discord webhook. It is fire and
// forget: failures are logged, never propagated, so a dead webhook can not
// take down publishing.
type Notifier struct {
	httpClient *http.Client
}

func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Notify sends "[tenant] [event] message" to the tenant's webhook. Tenants
// without DISCORD_WEBHOOK_URL configured are silently skipped.
func (n *Notifier) Notify(ctx context.Context, tenant *model.Tenant, eventType, message string) {
	env := config.ForTenant(tenant)
	webhookURL := env.Get("DISCORD_WEBHOOK_URL", "")
	if webhookURL == "" {
		return
	}

	name := "system"
	if tenant != nil {
		name = tenant.Slug
	}
	content := fmt.Sprintf("[%s] [%s] %s", name, eventType, message)

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		log.Printf("[NOTIFY] Encode webhook payload: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[NOTIFY] Build webhook request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		log.Printf("[NOTIFY] Webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[NOTIFY] Webhook returned status %d", resp.StatusCode)
	}
}
