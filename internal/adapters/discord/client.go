package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
)

const (
	alertColor   = 16711680
	alertContent = "@everyone Halo APENGJERS berikut data pesanan terbaru untuk toko kamu:"
)

// WebhookMessage is the body posted to a Discord webhook
type WebhookMessage struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed is a Discord rich embed
type Embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []EmbedField `json:"fields"`
	Timestamp string       `json:"timestamp,omitempty"`
}

// EmbedField is one name/value row of an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Client posts order alerts to a Discord channel webhook
type Client struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Discord webhook client
func NewClient(webhookURL string, httpClient *http.Client) (*Client, error) {
	if webhookURL == "" {
		return nil, errors.New("DISCORD_WEBHOOK_URL is required but not set")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
		now:        time.Now,
	}, nil
}

// OrderReceived posts the paid order with its account details for the workers
func (c *Client) OrderReceived(ctx context.Context, draft *core.OrderDraft) error {
	msg := orderMessage(draft, c.now())

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal discord message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send discord alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

func orderMessage(draft *core.OrderDraft, at time.Time) WebhookMessage {
	return WebhookMessage{
		Content: alertContent,
		Embeds: []Embed{{
			Title: fmt.Sprintf("Pesanan baru masuk (%s) %s", draft.ID, draft.ProductName),
			Color: alertColor,
			Fields: []EmbedField{
				{Name: "Username", Value: codeBlock(draft.Credentials.Username)},
				{Name: "Password", Value: codeBlock(draft.Credentials.Password)},
				{Name: "Payment", Value: draft.Credentials.PaymentMethod, Inline: true},
				{Name: "Jumlah", Value: strconv.Itoa(draft.Quantity), Inline: true},
			},
			Timestamp: at.UTC().Format(time.RFC3339),
		}},
	}
}

func codeBlock(s string) string {
	return "```" + s + "```"
}
