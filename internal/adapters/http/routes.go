package http

import (
	"github.com/apengjers/joki-bot/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// RoleWorker is the JWT role allowed on the ops API
const RoleWorker = "WORKER"

// RegisterRoutes mounts the public webhooks and the authenticated ops API
func RegisterRoutes(app *fiber.App, h *Handler, ops *OpsHandler, tokens middleware.TokenValidator) {
	app.Get("/", h.Home)
	app.Get("/health", h.Health)

	// WhatsApp Cloud API
	app.Get("/webhook", h.VerifyWebhook)
	app.Post("/webhook", h.ReceiveMessage)

	// Midtrans HTTP notification
	app.Post("/webhook-midtrans", h.HandlePaymentWebhook)

	api := app.Group("/api/ops", middleware.AuthMiddleware(tokens), middleware.RequireRoles(RoleWorker))
	api.Get("/orders", ops.GetQueue)
	api.Get("/orders/:id", ops.GetOrder)
	api.Post("/orders/:id/start", ops.StartOrder)
	api.Get("/events", ops.SSEEvents)
}
