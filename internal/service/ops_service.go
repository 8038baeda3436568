package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of an ops feed token
const DefaultTokenTTL = 7 * 24 * time.Hour

const orderStartedMessage = "🚀 Pesanan %s sudah mulai dikerjakan oleh tim APENGJERS.\nEstimasi selesai: %s\nMohon jangan login ke akun selama proses berlangsung ya kak 🙏"

// OpsService serves fulfillment workers: starting ledger orders and the ops event feed
type OpsService struct {
	ledger    core.LedgerRepository
	whatsapp  core.WhatsAppGateway // optional
	eventBus  events.Publisher
	jwtSecret string
	now       func() time.Time
}

// NewOpsService creates a new ops service
func NewOpsService(ledger core.LedgerRepository, whatsapp core.WhatsAppGateway, publisher events.Publisher, jwtSecret string) *OpsService {
	return &OpsService{
		ledger:    ledger,
		whatsapp:  whatsapp,
		eventBus:  publisher,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}
}

// StartOrder moves a queued ledger order to in-progress and tells the customer.
// Orders that are not queued return core.ErrOrderAlreadyStarted with the current entry.
func (s *OpsService) StartOrder(ctx context.Context, orderID string) (*core.LedgerEntry, error) {
	entry, err := s.ledger.StartProcessing(ctx, orderID)
	if errors.Is(err, core.ErrOrderAlreadyStarted) {
		return entry, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start order %s: %w", orderID, err)
	}

	if s.eventBus != nil {
		startedAt := s.now().UTC()
		if entry.StartedAt != nil {
			startedAt = *entry.StartedAt
		}
		s.eventBus.Publish(events.EventOrderStarted, events.OrderEvent{
			OrderID:     entry.OrderID,
			ProductID:   entry.ProductID,
			ProductName: entry.ProductName,
			Quantity:    entry.Quantity,
			TotalPrice:  entry.TotalPrice,
			Estimate:    entry.Estimate,
			At:          startedAt,
		})
	}

	if s.whatsapp != nil && entry.Sender != "" {
		if err := s.whatsapp.SendText(ctx, entry.Sender, fmt.Sprintf(orderStartedMessage, entry.OrderID, entry.Estimate)); err != nil {
			slog.Warn("Failed to notify customer of started order", "order_id", orderID, "error", err)
		}
	}

	return entry, nil
}

// GetOrder returns the ledger entry of an order
func (s *OpsService) GetOrder(ctx context.Context, orderID string) (*core.LedgerEntry, error) {
	return s.ledger.GetByOrderID(ctx, orderID)
}

// Queue lists paid orders still waiting for a worker
func (s *OpsService) Queue(ctx context.Context, limit int) ([]*core.LedgerEntry, error) {
	return s.ledger.ListByStatus(ctx, core.LedgerStatusQueued, limit)
}

// IssueToken mints an HS256 token for the ops feed
func (s *OpsService) IssueToken(worker string, ttl time.Duration) (string, error) {
	if worker == "" {
		return "", errors.New("worker name is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":  worker,
		"role": "WORKER",
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateJWT validates a token and returns its claims
func (s *OpsService) ValidateJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
