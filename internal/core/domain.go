package core

import "time"

// Product represents a purchasable joki package from the static catalog
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`        // unit price in IDR
	BaseMinutes int    `json:"base_minutes"` // fulfillment minutes per unit
}

// StateKind is the tag of a conversation state
type StateKind string

const (
	StateIdle                          StateKind = "idle"
	StateAwaitingOrderForm             StateKind = "awaiting_order_form"
	StateAwaitingComplaintConfirmation StateKind = "awaiting_complaint_confirmation"
)

// ConversationState is what the bot expects a sender to say next.
// ProductID is only meaningful for StateAwaitingOrderForm.
type ConversationState struct {
	Kind      StateKind `json:"kind"`
	ProductID string    `json:"product_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdleState returns the state of a sender with no multi-step flow in progress
func IdleState() ConversationState {
	return ConversationState{Kind: StateIdle}
}

// AwaitingOrderForm returns the state of a sender who picked productID and owes us a form
func AwaitingOrderForm(productID string) ConversationState {
	return ConversationState{Kind: StateAwaitingOrderForm, ProductID: productID}
}

// AwaitingComplaintConfirmation returns the state of a sender asked to confirm a complaint
func AwaitingComplaintConfirmation() ConversationState {
	return ConversationState{Kind: StateAwaitingComplaintConfirmation}
}

// IsIdle reports whether the state carries no pending flow
func (s ConversationState) IsIdle() bool {
	return s.Kind == "" || s.Kind == StateIdle
}

// OrderStatus represents the lifecycle of an order draft
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusReconciled     OrderStatus = "RECONCILED"
)

// Credentials holds the account details the customer submitted in the order form
type Credentials struct {
	Username      string            `json:"username"`
	Password      string            `json:"password"`
	PaymentMethod string            `json:"payment_method"`
	Extra         map[string]string `json:"extra,omitempty"` // any other submitted fields
}

// OrderDraft is an order between intake and payment reconciliation
type OrderDraft struct {
	ID          string      `json:"id"`
	Sender      string      `json:"sender"`
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int         `json:"quantity"`
	Credentials Credentials `json:"credentials"`
	TotalPrice  int64       `json:"total_price"`
	Estimate    string      `json:"estimate"`
	PaymentURL  string      `json:"payment_url,omitempty"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	PaidAt      *time.Time  `json:"paid_at,omitempty"`
}

// PaymentEvent is an inbound payment-status notification from the gateway
type PaymentEvent struct {
	OrderID           string
	TransactionStatus string
	StatusCode        string
	GrossAmount       string
	FraudStatus       string
	PaymentType       string
}

// IsPaid reports whether the event confirms the money has been received
func (e PaymentEvent) IsPaid() bool {
	switch e.TransactionStatus {
	case "settlement":
		return true
	case "capture":
		return e.FraudStatus == "" || e.FraudStatus == "accept"
	}
	return false
}

// Ledger statuses as seen by the fulfillment workers
const (
	LedgerStatusQueued     = "Segera Diproses"
	LedgerStatusInProgress = "Dalam Proses"
)

// LedgerEntry is one committed order row in the fulfillment ledger
type LedgerEntry struct {
	OrderID       string     `json:"order_id"`
	Sender        string     `json:"sender"`
	ProductID     string     `json:"product_id"`
	ProductName   string     `json:"product_name"`
	Account       string     `json:"account"` // username:password
	PaymentMethod string     `json:"payment_method"`
	Quantity      int        `json:"quantity"`
	TotalPrice    int64      `json:"total_price"`
	Estimate      string     `json:"estimate"`
	Status        string     `json:"status"`
	PaidAt        time.Time  `json:"paid_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
}

// NewLedgerEntry builds the ledger row for a reconciled draft
func NewLedgerEntry(draft *OrderDraft, paidAt time.Time) *LedgerEntry {
	return &LedgerEntry{
		OrderID:       draft.ID,
		Sender:        draft.Sender,
		ProductID:     draft.ProductID,
		ProductName:   draft.ProductName,
		Account:       draft.Credentials.Username + ":" + draft.Credentials.Password,
		PaymentMethod: draft.Credentials.PaymentMethod,
		Quantity:      draft.Quantity,
		TotalPrice:    draft.TotalPrice,
		Estimate:      draft.Estimate,
		Status:        LedgerStatusQueued,
		PaidAt:        paidAt,
	}
}
