package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger implements LedgerRepository using GORM with the pgx driver
type Ledger struct {
	db *gorm.DB
}

// NewLedger connects to Postgres
func NewLedger(dbURL string) (*Ledger, error) {
	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Ledger{db: db}, nil
}

// NewLedgerFromPool runs GORM on top of an existing pgx pool.
// Closing the Ledger closes only the database/sql wrapper, not the pool.
func NewLedgerFromPool(pool *pgxpool.Pool) (*Ledger, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger on pool: %w", err)
	}
	return &Ledger{db: db}, nil
}

// AutoMigrate creates or updates the ledger table from the model
func (l *Ledger) AutoMigrate(ctx context.Context) error {
	return l.db.WithContext(ctx).AutoMigrate(&LedgerEntryModel{})
}

// Close releases the underlying connection pool
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record inserts a ledger row. A second row for the same order id is ignored.
func (l *Ledger) Record(ctx context.Context, entry *core.LedgerEntry) error {
	model := LedgerEntryModelFromDomain(entry)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to record order %s: %w", entry.OrderID, result.Error)
	}
	return nil
}

// GetByOrderID retrieves a ledger row by order id
func (l *Ledger) GetByOrderID(ctx context.Context, orderID string) (*core.LedgerEntry, error) {
	var model LedgerEntryModel
	err := l.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrLedgerEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return model.ToDomain(), nil
}

// ListByStatus returns rows with the given status, oldest payment first
func (l *Ledger) ListByStatus(ctx context.Context, status string, limit int) ([]*core.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []LedgerEntryModel
	err := l.db.WithContext(ctx).
		Where("status = ?", status).
		Order("paid_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	entries := make([]*core.LedgerEntry, len(models))
	for i := range models {
		entries[i] = models[i].ToDomain()
	}
	return entries, nil
}

// StartProcessing moves a queued row to in-progress and stamps started_at.
// The row is locked for the duration so two workers cannot both start it.
func (l *Ledger) StartProcessing(ctx context.Context, orderID string) (*core.LedgerEntry, error) {
	var entry *core.LedgerEntry

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model LedgerEntryModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.ErrLedgerEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order %s: %w", orderID, err)
		}

		if model.Status != core.LedgerStatusQueued {
			entry = model.ToDomain()
			return core.ErrOrderAlreadyStarted
		}

		now := time.Now().UTC()
		if err := tx.Model(&model).Updates(map[string]interface{}{
			"status":     core.LedgerStatusInProgress,
			"started_at": now,
			"updated_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to start order %s: %w", orderID, err)
		}

		model.Status = core.LedgerStatusInProgress
		model.StartedAt = sql.NullTime{Time: now, Valid: true}
		entry = model.ToDomain()
		return nil
	})
	if err != nil {
		return entry, err
	}
	return entry, nil
}

// LedgerEntryModel represents the order_ledger table structure
type LedgerEntryModel struct {
	ID            string       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string       `gorm:"column:order_id;type:varchar(64);not null;uniqueIndex"`
	Sender        string       `gorm:"column:sender;type:varchar(64);not null"`
	ProductID     string       `gorm:"column:product_id;type:varchar(64);not null"`
	ProductName   string       `gorm:"column:product_name;type:varchar(255);not null"`
	Account       string       `gorm:"column:account;type:text;not null"`
	PaymentMethod string       `gorm:"column:payment_method;type:varchar(64)"`
	Quantity      int          `gorm:"column:quantity;not null"`
	TotalPrice    int64        `gorm:"column:total_price;type:bigint;not null"`
	Estimate      string       `gorm:"column:estimate;type:varchar(64)"`
	Status        string       `gorm:"column:status;type:varchar(32);not null;index"`
	PaidAt        time.Time    `gorm:"column:paid_at;type:timestamptz;not null"`
	StartedAt     sql.NullTime `gorm:"column:started_at;type:timestamptz"`
	CreatedAt     time.Time    `gorm:"column:created_at;type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (LedgerEntryModel) TableName() string {
	return "order_ledger"
}

// LedgerEntryModelFromDomain creates LedgerEntryModel from core.LedgerEntry
func LedgerEntryModelFromDomain(entry *core.LedgerEntry) *LedgerEntryModel {
	startedAt := sql.NullTime{}
	if entry.StartedAt != nil {
		startedAt = sql.NullTime{Time: *entry.StartedAt, Valid: true}
	}

	return &LedgerEntryModel{
		OrderID:       entry.OrderID,
		Sender:        entry.Sender,
		ProductID:     entry.ProductID,
		ProductName:   entry.ProductName,
		Account:       entry.Account,
		PaymentMethod: entry.PaymentMethod,
		Quantity:      entry.Quantity,
		TotalPrice:    entry.TotalPrice,
		Estimate:      entry.Estimate,
		Status:        entry.Status,
		PaidAt:        entry.PaidAt,
		StartedAt:     startedAt,
	}
}

// ToDomain converts LedgerEntryModel to core.LedgerEntry
func (m *LedgerEntryModel) ToDomain() *core.LedgerEntry {
	entry := &core.LedgerEntry{
		OrderID:       m.OrderID,
		Sender:        m.Sender,
		ProductID:     m.ProductID,
		ProductName:   m.ProductName,
		Account:       m.Account,
		PaymentMethod: m.PaymentMethod,
		Quantity:      m.Quantity,
		TotalPrice:    m.TotalPrice,
		Estimate:      m.Estimate,
		Status:        m.Status,
		PaidAt:        m.PaidAt,
	}
	if m.StartedAt.Valid {
		t := m.StartedAt.Time
		entry.StartedAt = &t
	}
	return entry
}
