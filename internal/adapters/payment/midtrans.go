package payment

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
)

const (
	SandboxSnapURL    = "https://app.sandbox.midtrans.com"
	ProductionSnapURL = "https://app.midtrans.com"
)

var (
	// ErrInvalidSignature is returned when a notification's signature_key does not match
	ErrInvalidSignature = errors.New("invalid notification signature")
	// ErrMalformedNotification is returned when a notification lacks order_id or transaction_status
	ErrMalformedNotification = errors.New("malformed notification")
)

// Client handles Midtrans Snap payment operations
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another Snap host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new Midtrans Snap client
func NewClient(serverKey string, isProduction bool, opts ...Option) (*Client, error) {
	if serverKey == "" {
		return nil, errors.New("MIDTRANS_SERVER_KEY is required but not set")
	}

	baseURL := SandboxSnapURL
	if isProduction {
		baseURL = ProductionSnapURL
	}

	c := &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SnapRequest represents the Snap create-transaction payload
type SnapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	ItemDetails     []SnapItem `json:"item_details,omitempty"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
	} `json:"customer_details"`
}

// SnapItem is one line of the Snap item_details
type SnapItem struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

// SnapResponse represents the Snap create-transaction response
type SnapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages,omitempty"`
}

// CreateTransaction opens a Snap transaction for the draft and returns its redirect URL
func (c *Client) CreateTransaction(ctx context.Context, draft *core.OrderDraft) (string, error) {
	payload := SnapRequest{}
	payload.TransactionDetails.OrderID = draft.ID
	payload.TransactionDetails.GrossAmount = draft.TotalPrice
	payload.CustomerDetails.FirstName = customerName(draft.Sender)
	if draft.Quantity > 0 && draft.TotalPrice%int64(draft.Quantity) == 0 {
		payload.ItemDetails = []SnapItem{{
			ID:       draft.ProductID,
			Price:    draft.TotalPrice / int64(draft.Quantity),
			Quantity: draft.Quantity,
			Name:     truncateName("Joki " + draft.ProductName),
		}}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snap request: %w", err)
	}

	url := c.baseURL + "/snap/v1/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send snap request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("midtrans API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var snapResponse SnapResponse
	if err := json.Unmarshal(body, &snapResponse); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if snapResponse.RedirectURL == "" {
		return "", fmt.Errorf("midtrans API returned no redirect_url for order %s", draft.ID)
	}

	return snapResponse.RedirectURL, nil
}

// NotificationPayload represents the Midtrans HTTP notification body
type NotificationPayload struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}

// ParseNotification decodes a notification and verifies its signature_key
func (c *Client) ParseNotification(ctx context.Context, payload []byte) (*core.PaymentEvent, error) {
	var n NotificationPayload
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to parse notification payload: %w", err)
	}

	if n.OrderID == "" || n.TransactionStatus == "" {
		return nil, ErrMalformedNotification
	}

	if !c.verifySignature(n) {
		return nil, fmt.Errorf("%w for order %s", ErrInvalidSignature, n.OrderID)
	}

	return &core.PaymentEvent{
		OrderID:           n.OrderID,
		TransactionStatus: strings.ToLower(n.TransactionStatus),
		StatusCode:        n.StatusCode,
		GrossAmount:       n.GrossAmount,
		FraudStatus:       strings.ToLower(n.FraudStatus),
		PaymentType:       n.PaymentType,
	}, nil
}

// verifySignature checks SHA512(order_id + status_code + gross_amount + server_key)
func (c *Client) verifySignature(n NotificationPayload) bool {
	expected := SignatureKey(n.OrderID, n.StatusCode, n.GrossAmount, c.serverKey)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(n.SignatureKey)), []byte(expected)) == 1
}

// SignatureKey computes the notification signature Midtrans sends for an order
func SignatureKey(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// customerName is the local part of a chat id ("62811@s.whatsapp.net" -> "62811")
func customerName(sender string) string {
	if i := strings.Index(sender, "@"); i >= 0 {
		return sender[:i]
	}
	return sender
}

// Midtrans caps item names at 50 characters
func truncateName(name string) string {
	r := []rune(name)
	if len(r) <= 50 {
		return name
	}
	return string(r[:50])
}
