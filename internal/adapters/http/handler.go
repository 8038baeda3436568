package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/apengjers/joki-bot/internal/adapters/whatsapp"
	"github.com/apengjers/joki-bot/internal/service"
	"github.com/gofiber/fiber/v2"
)

// MessageSubmitter queues inbound chat messages for per-sender handling
type MessageSubmitter interface {
	Submit(msg service.Message) error
}

// NotificationHandler reconciles raw payment notifications
type NotificationHandler interface {
	HandleNotification(ctx context.Context, payload []byte) (service.ReconcileResult, error)
}

// Handler handles HTTP requests for WhatsApp webhooks and payment webhooks
type Handler struct {
	verifyToken string
	appSecret   string
	messages    MessageSubmitter
	payments    NotificationHandler
}

// NewHandler creates a new HTTP handler. An empty appSecret disables
// X-Hub-Signature-256 verification.
func NewHandler(verifyToken, appSecret string, messages MessageSubmitter, payments NotificationHandler) *Handler {
	verifyToken = strings.TrimSpace(verifyToken)
	if verifyToken == "" {
		slog.Warn("WHATSAPP_VERIFY_TOKEN is not set; webhook verification will fail")
	}
	if appSecret == "" {
		slog.Warn("WHATSAPP_APP_SECRET is not set; inbound webhook signatures are not verified")
	}

	return &Handler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		messages:    messages,
		payments:    payments,
	}
}

// Home answers GET / so uptime checks have something to hit
func (h *Handler) Home(c *fiber.Ctx) error {
	return c.SendString("APENGJERS joki bot is running")
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"project": "joki-bot",
	})
}

// VerifyWebhook handles GET requests for webhook verification
func (h *Handler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := strings.TrimSpace(c.Query("hub.verify_token"))
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" {
		slog.Warn("Webhook verification failed: invalid mode", "mode", mode)
		return c.Status(http.StatusBadRequest).SendString("Invalid mode")
	}

	if h.verifyToken == "" || token != h.verifyToken {
		slog.Warn("Webhook verification failed: token mismatch",
			"provided", maskToken(token), "expected", maskToken(h.verifyToken))
		return c.Status(http.StatusForbidden).SendString("Invalid verify token")
	}

	slog.Info("Webhook verification successful")
	// Challenge goes back as plain text, not JSON
	return c.SendString(challenge)
}

// maskToken masks a token for logging (shows first 3 and last 3 chars)
func maskToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	if len(token) <= 6 {
		return "***"
	}
	return token[:3] + "***" + token[len(token)-3:]
}

// ReceiveMessage handles POST requests for incoming WhatsApp messages.
// Messages are queued and the webhook is acknowledged immediately.
func (h *Handler) ReceiveMessage(c *fiber.Ctx) error {
	body := c.Body()

	if h.appSecret != "" {
		signature := c.Get("X-Hub-Signature-256")
		if signature == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing signature",
			})
		}
		if !h.verifySignature(signature, body) {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
	}

	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	for _, msg := range payload.Messages() {
		err := h.messages.Submit(service.Message{
			Sender: msg.Sender,
			Token:  msg.Token,
			Text:   msg.Text,
		})
		if err != nil {
			slog.Error("Failed to queue message", "sender", msg.Sender, "message_id", msg.ID, "error", err)
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Shutting down",
			})
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}

// verifySignature verifies the X-Hub-Signature-256 header using HMAC-SHA256
func (h *Handler) verifySignature(signature string, body []byte) bool {
	// Signature format: sha256=<hex_string>
	algo, sig, ok := strings.Cut(signature, "=")
	if !ok || algo != "sha256" {
		return false
	}

	expectedSig, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	return hmac.Equal(expectedSig, mac.Sum(nil))
}

// HandlePaymentWebhook handles POST requests for Midtrans payment notifications.
// 200 tells the gateway to stop; 500 asks it to redeliver.
func (h *Handler) HandlePaymentWebhook(c *fiber.Ctx) error {
	result, err := h.payments.HandleNotification(c.UserContext(), c.Body())
	if err != nil {
		slog.Error("Failed to handle payment notification", "error", err)
		return c.Status(http.StatusInternalServerError).SendString("Error")
	}

	if result == service.ReconcileNotFound {
		return c.Status(http.StatusOK).SendString("OK (Order not found)")
	}
	return c.Status(http.StatusOK).SendString("OK")
}
