package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const heartbeatInterval = 30 * time.Second

// OrderOps is the worker-facing side of the ledger
type OrderOps interface {
	GetOrder(ctx context.Context, orderID string) (*core.LedgerEntry, error)
	Queue(ctx context.Context, limit int) ([]*core.LedgerEntry, error)
	StartOrder(ctx context.Context, orderID string) (*core.LedgerEntry, error)
}

// EventSource is the subscribe side of the event bus
type EventSource interface {
	Subscribe(ctx context.Context, id string) <-chan events.Event
	Unsubscribe(id string)
}

// OpsHandler serves the fulfillment workers' API and live event feed
type OpsHandler struct {
	ops       OrderOps
	events    EventSource
	heartbeat time.Duration
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(ops OrderOps, source EventSource) *OpsHandler {
	return &OpsHandler{ops: ops, events: source, heartbeat: heartbeatInterval}
}

// GetQueue lists paid orders waiting for a worker
// GET /api/ops/orders?limit=50
func (h *OpsHandler) GetQueue(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be a positive integer",
		})
	}

	entries, err := h.ops.Queue(c.UserContext(), limit)
	if err != nil {
		slog.Error("Failed to list queued orders", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list orders",
		})
	}
	if entries == nil {
		entries = []*core.LedgerEntry{}
	}
	return c.JSON(entries)
}

// GetOrder returns one ledger entry
// GET /api/ops/orders/:id
func (h *OpsHandler) GetOrder(c *fiber.Ctx) error {
	orderID := strings.ToUpper(c.Params("id"))

	entry, err := h.ops.GetOrder(c.UserContext(), orderID)
	if errors.Is(err, core.ErrLedgerEntryNotFound) {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("order %s not found", orderID),
		})
	}
	if err != nil {
		slog.Error("Failed to load order", "order_id", orderID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load order",
		})
	}
	return c.JSON(entry)
}

// StartOrder moves a queued order to in-progress
// POST /api/ops/orders/:id/start
func (h *OpsHandler) StartOrder(c *fiber.Ctx) error {
	orderID := strings.ToUpper(c.Params("id"))

	entry, err := h.ops.StartOrder(c.UserContext(), orderID)
	switch {
	case errors.Is(err, core.ErrLedgerEntryNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("order %s not found", orderID),
		})
	case errors.Is(err, core.ErrOrderAlreadyStarted):
		status := ""
		if entry != nil {
			status = entry.Status
		}
		return c.Status(http.StatusConflict).JSON(fiber.Map{
			"error":  fmt.Sprintf("order %s is already %q", orderID, status),
			"status": status,
		})
	case err != nil:
		slog.Error("Failed to start order", "order_id", orderID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to start order",
		})
	}

	slog.Info("Order started", "order_id", orderID, "worker", c.Locals("worker"))
	return c.JSON(entry)
}

// SSEEvents streams order lifecycle events
// GET /api/ops/events
func (h *OpsHandler) SSEEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	ctx, cancel := context.WithCancel(context.Background())
	subscriberID := uuid.New().String()
	eventChan := h.events.Subscribe(ctx, subscriberID)
	heartbeat := h.heartbeat

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer h.events.Unsubscribe(subscriberID)

		if _, err := w.WriteString("event: connected\ndata: {\"message\":\"connected\"}\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-eventChan:
				if !ok {
					return
				}

				sseData, err := events.FormatSSE(event)
				if err != nil {
					slog.Warn("Failed to format SSE event", "type", event.Type, "error", err)
					continue
				}
				if _, err := w.WriteString(sseData); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				if _, err := w.WriteString(": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
