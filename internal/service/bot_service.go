package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
)

// IDGenerator produces order ids
type IDGenerator interface {
	NewID() (string, error)
}

// BotSettings are the operator-supplied values the replies depend on
type BotSettings struct {
	ContactLink  string // wa.me link for complaints
	QRISImageURL string // image sent with the payment instructions
}

// BotService handles the conversation state machine and order intake
type BotService struct {
	Catalog  *core.Catalog
	Menu     *Menu
	States   core.ConversationStore
	Orders   core.PendingOrderStore
	WhatsApp core.WhatsAppGateway
	Payment  core.PaymentGateway
	Events   events.Publisher
	IDs      IDGenerator
	Settings BotSettings

	now func() time.Time
}

// NewBotService creates a new bot service
func NewBotService(catalog *core.Catalog, states core.ConversationStore, orders core.PendingOrderStore, whatsapp core.WhatsAppGateway, payment core.PaymentGateway, publisher events.Publisher, ids IDGenerator, settings BotSettings) *BotService {
	return &BotService{
		Catalog:  catalog,
		Menu:     NewMenu(catalog),
		States:   states,
		Orders:   orders,
		WhatsApp: whatsapp,
		Payment:  payment,
		Events:   publisher,
		IDs:      ids,
		Settings: settings,
		now:      time.Now,
	}
}

// HandleIncomingMessage processes one inbound chat event. token is the tapped
// button/list id or the trimmed text; text is the raw body used for forms.
func (b *BotService) HandleIncomingMessage(ctx context.Context, sender string, token string, text string) error {
	state, err := b.States.GetState(ctx, sender)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	switch state.Kind {
	case core.StateAwaitingOrderForm:
		if b.Menu.IsCancel(token) {
			if err := b.States.ClearState(ctx, sender); err != nil {
				return fmt.Errorf("failed to clear state: %w", err)
			}
			return b.WhatsApp.SendText(ctx, sender, msgOrderCancelled)
		}
		if text == "" {
			text = token
		}
		return b.handleOrderForm(ctx, sender, state.ProductID, text)
	case core.StateAwaitingComplaintConfirmation:
		return b.handleComplaintConfirmation(ctx, sender, token)
	default:
		return b.handleMenu(ctx, sender, token)
	}
}

// handleMenu routes a token received while Idle
func (b *BotService) handleMenu(ctx context.Context, sender string, token string) error {
	route := b.Menu.Resolve(token)

	switch route.Kind {
	case RouteProductList:
		return b.WhatsApp.SendList(ctx, sender, b.Menu.ProductList())

	case RouteComingSoon:
		return b.WhatsApp.SendText(ctx, sender, msgComingSoon)

	case RouteComplaintPrompt:
		if err := b.States.SetState(ctx, sender, core.AwaitingComplaintConfirmation()); err != nil {
			return fmt.Errorf("failed to set state: %w", err)
		}
		return b.WhatsApp.SendMenuButtons(ctx, sender, msgComplaintPrompt, msgComplaintFooter, b.Menu.ComplaintButtons())

	case RouteOrderForm:
		if err := b.States.SetState(ctx, sender, core.AwaitingOrderForm(route.Product.ID)); err != nil {
			return fmt.Errorf("failed to set state: %w", err)
		}
		if err := b.WhatsApp.SendText(ctx, sender, msgFormPrompt); err != nil {
			return err
		}
		return b.WhatsApp.SendText(ctx, sender, FormTemplate(route.Product))

	default:
		return b.WhatsApp.SendMenuButtons(ctx, sender, msgWelcome, msgWelcomeFooter, b.Menu.MainMenuButtons())
	}
}

// handleComplaintConfirmation answers the Ya/Tidak prompt. Any token ends the flow.
func (b *BotService) handleComplaintConfirmation(ctx context.Context, sender string, token string) error {
	if err := b.States.ClearState(ctx, sender); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}

	switch b.Menu.ResolveComplaint(token) {
	case ComplaintConfirmed:
		return b.WhatsApp.SendText(ctx, sender, ComplaintContactMessage(b.Settings.ContactLink))
	case ComplaintDeclined:
		return b.WhatsApp.SendText(ctx, sender, msgComplaintDecline)
	}
	return nil
}

// handleOrderForm turns a submitted form into a pending order
func (b *BotService) handleOrderForm(ctx context.Context, sender string, productID string, text string) error {
	product, ok := b.Catalog.Lookup(productID)
	if !ok {
		// product left the catalog while the sender was filling the form
		slog.Warn("Form received for unknown product", "sender", sender, "product_id", productID)
		if err := b.States.ClearState(ctx, sender); err != nil {
			return fmt.Errorf("failed to clear state: %w", err)
		}
		return b.handleMenu(ctx, sender, "")
	}

	order, err := ParseOrderForm(text).Validate()
	switch {
	case errors.Is(err, ErrFormIncomplete):
		return b.WhatsApp.SendText(ctx, sender, msgFormIncomplete)
	case errors.Is(err, ErrInvalidQuantity):
		return b.WhatsApp.SendText(ctx, sender, msgInvalidQuantity)
	case err != nil:
		return err
	}

	estimate, err := core.EstimateOrder(product, order.Quantity)
	if err != nil {
		return b.WhatsApp.SendText(ctx, sender, msgInvalidQuantity)
	}

	orderID, err := b.IDs.NewID()
	if err != nil {
		return fmt.Errorf("failed to generate order id: %w", err)
	}

	draft := &core.OrderDraft{
		ID:          orderID,
		Sender:      sender,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    order.Quantity,
		Credentials: order.Credentials,
		TotalPrice:  estimate.TotalPrice,
		Estimate:    estimate.Label,
		Status:      core.OrderStatusPendingPayment,
		CreatedAt:   b.now().UTC(),
	}

	// No draft is stored until the gateway has accepted the transaction,
	// so a failed initiation leaves the sender free to resubmit.
	paymentURL, err := b.Payment.CreateTransaction(ctx, draft)
	if err != nil {
		slog.Error("Payment initiation failed", "order_id", orderID, "sender", sender, "error", err)
		return b.WhatsApp.SendText(ctx, sender, msgPaymentBusy)
	}
	draft.PaymentURL = paymentURL

	if err := b.commitDraft(ctx, draft); err != nil {
		if sendErr := b.WhatsApp.SendText(ctx, sender, msgPaymentBusy); sendErr != nil {
			slog.Warn("Failed to send busy reply", "sender", sender, "error", sendErr)
		}
		return fmt.Errorf("failed to save order %s: %w", orderID, err)
	}

	slog.Info("Order created", "order_id", orderID, "product_id", product.ID, "quantity", order.Quantity, "total", estimate.TotalPrice)
	if b.Events != nil {
		b.Events.Publish(events.EventOrderPending, events.OrderEvent{
			OrderID:     draft.ID,
			ProductID:   draft.ProductID,
			ProductName: draft.ProductName,
			Quantity:    draft.Quantity,
			TotalPrice:  draft.TotalPrice,
			Estimate:    draft.Estimate,
			At:          draft.CreatedAt,
		})
	}

	return b.WhatsApp.SendImage(ctx, sender, b.Settings.QRISImageURL, PaymentInstructions(draft))
}

// commitDraft persists the draft and clears the sender's state, atomically when the store supports it
func (b *BotService) commitDraft(ctx context.Context, draft *core.OrderDraft) error {
	if committer, ok := b.Orders.(core.DraftCommitter); ok {
		return committer.CommitDraft(ctx, draft)
	}
	if err := b.Orders.PutOrder(ctx, draft); err != nil {
		return err
	}
	if err := b.States.ClearState(ctx, draft.Sender); err != nil {
		return fmt.Errorf("order saved but state not cleared: %w", err)
	}
	return nil
}

// PaymentInstructions is the caption sent with the QRIS image
func PaymentInstructions(draft *core.OrderDraft) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Joki %s\n", draft.ProductName))
	sb.WriteString(fmt.Sprintf("username: %s\n", draft.Credentials.Username))
	sb.WriteString(fmt.Sprintf("password: %s\n", draft.Credentials.Password))
	sb.WriteString(fmt.Sprintf("payment: %s\n", draft.Credentials.PaymentMethod))
	sb.WriteString(fmt.Sprintf("Jumlah: %d\n\n", draft.Quantity))
	sb.WriteString(fmt.Sprintf("Harga: %s\n", core.FormatRupiah(draft.TotalPrice)))
	sb.WriteString(fmt.Sprintf("Estimasi: %s\n\n", draft.Estimate))
	sb.WriteString("Silahkan Bayar lewat QRIS di bawah ini atau melalui link:\n")
	sb.WriteString(draft.PaymentURL)
	return sb.String()
}
