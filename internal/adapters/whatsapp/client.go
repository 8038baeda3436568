package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v19.0"

	maxButtons     = 3
	maxListRows    = 10
	maxButtonTitle = 20
	maxRowTitle    = 24
)

// Client handles WhatsApp Cloud API communication
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another Graph API host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new WhatsApp client
func NewClient(phoneNumberID, token string, opts ...Option) (*Client, error) {
	if phoneNumberID == "" {
		return nil, errors.New("WHATSAPP_PHONE_NUMBER_ID is required but not set")
	}
	if token == "" {
		return nil, errors.New("WHATSAPP_TOKEN is required but not set")
	}

	c := &Client{
		baseURL:       defaultBaseURL,
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// sendMessage posts a message payload to the Cloud API
func (c *Client) sendMessage(ctx context.Context, to string, payload interface{}) error {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		slog.Warn("WhatsApp API rejected message", "to", to, "status", resp.StatusCode, "token", maskToken(c.token))
		return fmt.Errorf("whatsapp API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}

// maskToken masks a token for logging (shows first 3 and last 3 chars)
func maskToken(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:3] + "***" + token[len(token)-3:]
}

// SendText sends a simple text message
func (c *Client) SendText(ctx context.Context, to string, message string) error {
	return c.sendMessage(ctx, to, TextMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             TextBody{Body: message},
	})
}

// SendImage sends an image by URL with a caption
func (c *Client) SendImage(ctx context.Context, to string, imageURL string, caption string) error {
	return c.sendMessage(ctx, to, ImageMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "image",
		Image:            ImageLink{Link: imageURL, Caption: caption},
	})
}

// SendMenuButtons sends an interactive button message; WhatsApp allows at most 3 buttons
func (c *Client) SendMenuButtons(ctx context.Context, to string, text string, footer string, buttons []core.Button) error {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}

	replies := make([]ReplyButton, len(buttons))
	for i, btn := range buttons {
		replies[i] = ReplyButton{
			Type:  "reply",
			Reply: Reply{ID: btn.ID, Title: truncate(btn.Title, maxButtonTitle)},
		}
	}

	msg := InteractiveMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: Interactive{
			Type:   "button",
			Body:   TextBody{Body: text},
			Action: Action{Buttons: replies},
		},
	}
	if footer != "" {
		msg.Interactive.Footer = &TextBody{Body: footer}
	}
	return c.sendMessage(ctx, to, msg)
}

// SendList sends an interactive list message with a single section
func (c *Client) SendList(ctx context.Context, to string, list core.ListPrompt) error {
	items := list.Rows
	if len(items) > maxListRows {
		items = items[:maxListRows]
	}

	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = Row{ID: item.ID, Title: truncate(item.Title, maxRowTitle), Description: item.Description}
	}

	msg := InteractiveMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: Interactive{
			Type: "list",
			Body: TextBody{Body: list.Text},
			Action: Action{
				Button:   list.ButtonText,
				Sections: []Section{{Title: list.SectionTitle, Rows: rows}},
			},
		},
	}
	if list.Title != "" {
		msg.Interactive.Header = &InteractiveHeader{Type: "text", Text: list.Title}
	}
	if list.Footer != "" {
		msg.Interactive.Footer = &TextBody{Body: list.Footer}
	}
	return c.sendMessage(ctx, to, msg)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
