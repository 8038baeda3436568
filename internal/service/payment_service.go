package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
)

// ReconcileResult describes what a payment notification did
type ReconcileResult string

const (
	// ReconcileIgnored means the status does not confirm payment
	ReconcileIgnored ReconcileResult = "ignored"
	// ReconcileNotFound means no pending order exists for the id
	ReconcileNotFound ReconcileResult = "not_found"
	// ReconcileCommitted means the order was committed and notified by this call
	ReconcileCommitted ReconcileResult = "reconciled"
	// ReconcileResumed means an earlier delivery already notified; only removal was retried
	ReconcileResumed ReconcileResult = "already_reconciled"
)

const paymentReceivedMessage = "Pembayaran diterima, joki sudah mulai diproses ya kak 🙏\nEstimasi selesai: %s\nSelama proses berlangsung mohon jangan ditabrak/dimainkan dulu akunnya agar tidak mengganggu proses 🙏\nEstimasi tersebut sudah termasuk bonus uangnya juga ya kak 💸\nMohon ditunggu dan terima kasih atas kepercayaannya 😊"

// PaymentService reconciles payment notifications with pending orders
type PaymentService struct {
	Orders   core.PendingOrderStore
	Payment  core.PaymentGateway
	Ledger   core.LedgerRepository
	Alerter  core.Alerter // optional
	WhatsApp core.WhatsAppGateway
	Events   events.Publisher

	locks *KeyLock
	now   func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(orders core.PendingOrderStore, payment core.PaymentGateway, ledger core.LedgerRepository, alerter core.Alerter, whatsapp core.WhatsAppGateway, publisher events.Publisher) *PaymentService {
	return &PaymentService{
		Orders:   orders,
		Payment:  payment,
		Ledger:   ledger,
		Alerter:  alerter,
		WhatsApp: whatsapp,
		Events:   publisher,
		locks:    NewKeyLock(),
		now:      time.Now,
	}
}

// HandleNotification parses a raw gateway notification and reconciles it
func (s *PaymentService) HandleNotification(ctx context.Context, payload []byte) (ReconcileResult, error) {
	event, err := s.Payment.ParseNotification(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("invalid payment notification: %w", err)
	}
	return s.Reconcile(ctx, event)
}

// Reconcile applies a payment event at most once per order id.
//
// The draft is first rewritten with status Reconciled, then the ledger, the
// operator alert and the customer are notified, then the draft is removed.
// A redelivery that finds the Reconciled marker only retries the removal, so
// side effects never repeat; a crash between marker and notification loses
// the notification instead of duplicating it.
func (s *PaymentService) Reconcile(ctx context.Context, event *core.PaymentEvent) (ReconcileResult, error) {
	if !event.IsPaid() {
		slog.Info("Payment notification ignored", "order_id", event.OrderID, "status", event.TransactionStatus)
		return ReconcileIgnored, nil
	}

	unlock := s.locks.Lock(event.OrderID)
	defer unlock()

	draft, err := s.Orders.GetOrder(ctx, event.OrderID)
	if errors.Is(err, core.ErrOrderNotFound) {
		slog.Warn("Payment for unknown or already reconciled order", "order_id", event.OrderID)
		return ReconcileNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load order %s: %w", event.OrderID, err)
	}

	if draft.Status == core.OrderStatusReconciled {
		if err := s.Orders.RemoveOrder(ctx, draft.ID); err != nil {
			return "", fmt.Errorf("failed to remove reconciled order %s: %w", draft.ID, err)
		}
		return ReconcileResumed, nil
	}

	paidAt := s.now().UTC()
	draft.Status = core.OrderStatusReconciled
	draft.PaidAt = &paidAt
	if err := s.Orders.PutOrder(ctx, draft); err != nil {
		return "", fmt.Errorf("failed to mark order %s reconciled: %w", draft.ID, err)
	}

	slog.Info("Payment received", "order_id", draft.ID, "status", event.TransactionStatus, "payment_type", event.PaymentType)
	s.notify(ctx, draft, paidAt)

	if err := s.Orders.RemoveOrder(ctx, draft.ID); err != nil {
		return "", fmt.Errorf("failed to remove reconciled order %s: %w", draft.ID, err)
	}
	return ReconcileCommitted, nil
}

// notify runs the side effects of a reconciliation. Failures are logged, never retried.
func (s *PaymentService) notify(ctx context.Context, draft *core.OrderDraft, paidAt time.Time) {
	if err := s.Ledger.Record(ctx, core.NewLedgerEntry(draft, paidAt)); err != nil {
		slog.Error("Failed to write order to ledger", "order_id", draft.ID, "error", err)
	}

	if s.Alerter != nil {
		if err := s.Alerter.OrderReceived(ctx, draft); err != nil {
			slog.Error("Failed to send operator alert", "order_id", draft.ID, "error", err)
		}
	}

	if err := s.WhatsApp.SendText(ctx, draft.Sender, fmt.Sprintf(paymentReceivedMessage, draft.Estimate)); err != nil {
		slog.Error("Failed to send payment confirmation", "order_id", draft.ID, "sender", draft.Sender, "error", err)
	}

	if s.Events != nil {
		s.Events.Publish(events.EventOrderReconciled, events.OrderEvent{
			OrderID:     draft.ID,
			ProductID:   draft.ProductID,
			ProductName: draft.ProductName,
			Quantity:    draft.Quantity,
			TotalPrice:  draft.TotalPrice,
			Estimate:    draft.Estimate,
			At:          paidAt,
		})
	}
}
