package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apengjers/joki-bot/internal/adapters/postgres"
	"github.com/apengjers/joki-bot/internal/adapters/whatsapp"
	"github.com/apengjers/joki-bot/internal/config"
	"github.com/apengjers/joki-bot/internal/core"
	"github.com/apengjers/joki-bot/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Version = "dev"

func main() {
	rootCmd := newRootCmd(openOps, openIssuer)
	rootCmd.Version = Version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openOps connects to the ledger. WhatsApp is optional: without credentials
// the customer is simply not told that work has started.
func openOps(ctx context.Context) (orderOps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	ledger, err := postgres.NewLedgerFromPool(dbpool)
	if err != nil {
		dbpool.Close()
		return nil, nil, err
	}

	var notifier core.WhatsAppGateway
	if client, err := whatsapp.NewClient(cfg.WhatsAppPhoneNumberID, cfg.WhatsAppToken); err == nil {
		notifier = client
	}

	return service.NewOpsService(ledger, notifier, nil, cfg.JWTSecret), dbpool.Close, nil
}

func openIssuer() (tokenIssuer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return service.NewOpsService(nil, nil, nil, cfg.JWTSecret), nil
}

const commandTimeout = 30 * time.Second
