package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apengjers/joki-bot/internal/adapters/discord"
	"github.com/apengjers/joki-bot/internal/adapters/filestore"
	"github.com/apengjers/joki-bot/internal/adapters/http"
	"github.com/apengjers/joki-bot/internal/adapters/payment"
	"github.com/apengjers/joki-bot/internal/adapters/postgres"
	redisRepo "github.com/apengjers/joki-bot/internal/adapters/redis"
	"github.com/apengjers/joki-bot/internal/adapters/whatsapp"
	"github.com/apengjers/joki-bot/internal/config"
	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/events"
	"github.com/apengjers/joki-bot/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// orderStore is what both state backends provide
type orderStore interface {
	core.ConversationStore
	core.PendingOrderStore
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

// openStore picks the conversation/pending-order backend from STATE_BACKEND
func openStore(ctx context.Context, cfg *config.Config) (orderStore, func(), error) {
	if cfg.StateBackend == config.StateBackendFile {
		store, err := filestore.Open(cfg.StateDir, cfg.StateTTL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("State store ready", "backend", "file", "dir", cfg.StateDir)
		return store, func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		redisOpts.Password = cfg.RedisPassword
	}

	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("State store ready", "backend", "redis")
	return redisRepo.NewRepository(rdb, cfg.StateTTL), func() { rdb.Close() }, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer closeStore()

	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	slog.Info("PostgreSQL connection established")

	ledger, err := postgres.NewLedgerFromPool(dbpool)
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}
	if err := ledger.AutoMigrate(ctx); err != nil {
		log.Fatalf("Failed to migrate ledger: %v", err)
	}

	whatsappClient, err := whatsapp.NewClient(cfg.WhatsAppPhoneNumberID, cfg.WhatsAppToken)
	if err != nil {
		log.Fatalf("Failed to initialize WhatsApp client: %v", err)
	}

	paymentClient, err := payment.NewClient(cfg.MidtransServerKey, cfg.MidtransIsProduction)
	if err != nil {
		log.Fatalf("Failed to initialize payment client: %v", err)
	}

	var alerter core.Alerter
	if cfg.DiscordWebhookURL != "" {
		discordClient, err := discord.NewClient(cfg.DiscordWebhookURL, nil)
		if err != nil {
			log.Fatalf("Failed to initialize Discord client: %v", err)
		}
		alerter = discordClient
	} else {
		slog.Warn("DISCORD_WEBHOOK_URL is not set; operator alerts are disabled")
	}

	eventBus := events.NewEventBus()

	botService := service.NewBotService(
		core.DefaultCatalog(),
		store,
		store,
		whatsappClient,
		paymentClient,
		eventBus,
		core.NewOrderIDGenerator(),
		service.BotSettings{
			ContactLink:  cfg.AdminContactLink(),
			QRISImageURL: cfg.QRISImageURL,
		},
	)
	dispatcher := service.NewDispatcher(botService, service.DefaultMessageTimeout)
	paymentService := service.NewPaymentService(store, paymentClient, ledger, alerter, whatsappClient, eventBus)
	opsService := service.NewOpsService(ledger, whatsappClient, eventBus, cfg.JWTSecret)

	app := fiber.New(fiber.Config{
		AppName:      "APENGJERS Joki Bot",
		ServerHeader: "Fiber",
	})
	app.Use(recover.New())
	app.Use(logger.New())

	http.RegisterRoutes(app,
		http.NewHandler(cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, dispatcher, paymentService),
		http.NewOpsHandler(opsService, eventBus),
		opsService,
	)

	slog.Info("Routes registered",
		"whatsapp", "GET/POST /webhook",
		"payment", "POST /webhook-midtrans",
		"ops", "/api/ops/orders, /api/ops/events")

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	addr := fmt.Sprintf(":%s", cfg.AppPort)
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "addr", addr, "env", cfg.AppEnv)
		serveErr <- app.Listen(addr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Error("Queued messages were not drained", "error", err)
	}
	slog.Info("Server stopped")
}
