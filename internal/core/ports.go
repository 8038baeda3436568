package core

import (
	"context"
	"errors"
)

var (
	// ErrOrderNotFound is returned by a PendingOrderStore when no draft exists for an id
	ErrOrderNotFound = errors.New("pending order not found")
	// ErrUnknownProduct is returned when a product id is not in the catalog
	ErrUnknownProduct = errors.New("unknown product")
	// ErrLedgerEntryNotFound is returned when the ledger has no row for an order id
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
	// ErrOrderAlreadyStarted is returned when a worker tries to start a non-queued order
	ErrOrderAlreadyStarted = errors.New("order already started")
)

// ConversationStore defines durable per-sender conversation state.
// A missing entry is reported as IdleState.
type ConversationStore interface {
	GetState(ctx context.Context, sender string) (ConversationState, error)
	SetState(ctx context.Context, sender string, state ConversationState) error
	ClearState(ctx context.Context, sender string) error
}

// PendingOrderStore defines durable storage for drafts awaiting payment
type PendingOrderStore interface {
	PutOrder(ctx context.Context, draft *OrderDraft) error
	GetOrder(ctx context.Context, orderID string) (*OrderDraft, error)
	RemoveOrder(ctx context.Context, orderID string) error
}

// DraftCommitter is implemented by stores that can persist a new draft and clear
// its sender's conversation state in a single durable step.
type DraftCommitter interface {
	CommitDraft(ctx context.Context, draft *OrderDraft) error
}

// Button represents a quick reply button
type Button struct {
	ID    string
	Title string
}

// ListRow is one selectable row of a list prompt
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListPrompt is a multi-option list message
type ListPrompt struct {
	Title        string
	Text         string
	Footer       string
	ButtonText   string
	SectionTitle string
	Rows         []ListRow
}

// WhatsAppGateway defines the interface for outbound chat replies
type WhatsAppGateway interface {
	SendText(ctx context.Context, to string, message string) error
	SendImage(ctx context.Context, to string, imageURL string, caption string) error
	SendMenuButtons(ctx context.Context, to string, text string, footer string, buttons []Button) error
	SendList(ctx context.Context, to string, list ListPrompt) error
}

// PaymentGateway defines the interface for payment initiation and notification parsing
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, draft *OrderDraft) (string, error)
	ParseNotification(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

// LedgerRepository is the fulfillment system of record
type LedgerRepository interface {
	Record(ctx context.Context, entry *LedgerEntry) error
	GetByOrderID(ctx context.Context, orderID string) (*LedgerEntry, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*LedgerEntry, error)
	StartProcessing(ctx context.Context, orderID string) (*LedgerEntry, error)
}

// Alerter posts operator notifications
type Alerter interface {
	OrderReceived(ctx context.Context, draft *OrderDraft) error
}
