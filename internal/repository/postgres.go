package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/mnee-gate/gatekeeper/internal/models"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
	"github.com/mnee-gate/gatekeeper/pkg/validation"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

// New wraps an existing gorm connection. Used by Dial and by tests that
// run against an in-memory database.
func New(db *gorm.DB, logger *logger.Logger) *PostgresDB {
	return &PostgresDB{Conn: db, logger: logger}
}

// Migrate creates or updates the schema for all persisted entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Channel{},
		&models.SubscriptionPlan{},
		&models.User{},
		&models.Subscription{},
		&models.Transaction{},
	)
}

func Dial(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return New(db, logger), nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) GetOrCreateUser(ctx context.Context, telegramID, walletAddress string) (*models.User, error) {
	var user models.User
	err := db.Conn.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == nil {
		if walletAddress == "" {
			return &user, nil
		}
		normalized := validation.NormalizeAddress(walletAddress)
		if user.WalletAddress == nil || !validation.EqualAddresses(*user.WalletAddress, normalized) {
			user.WalletAddress = &normalized
			if err := db.Conn.WithContext(ctx).Save(&user).Error; err != nil {
				return nil, fmt.Errorf("failed to update user wallet address: %w", err)
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = models.User{
		ID:         uuid.NewString(),
		TelegramID: telegramID,
		CreatedAt:  time.Now().UTC(),
	}
	if walletAddress != "" {
		normalized := validation.NormalizeAddress(walletAddress)
		user.WalletAddress = &normalized
	}
	if err := db.Conn.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (db *PostgresDB) GetPlanWithChannel(ctx context.Context, planID string) (*models.SubscriptionPlan, *models.Channel, error) {
	var plan models.SubscriptionPlan
	if err := db.Conn.WithContext(ctx).Where("id = ?", planID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.ErrPlanNotFound
		}
		return nil, nil, fmt.Errorf("failed to get plan: %w", err)
	}

	var channel models.Channel
	if err := db.Conn.WithContext(ctx).Where("id = ?", plan.ChannelID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, models.ErrChannelNotFound
		}
		return nil, nil, fmt.Errorf("failed to get plan's channel: %w", err)
	}

	return &plan, &channel, nil
}

func (db *PostgresDB) FindChannel(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	err := db.Conn.WithContext(ctx).Where("id = ?", id).First(&channel).Error
	if err == nil {
		return &channel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find channel: %w", err)
	}

	// Fall back to the Telegram channel ID namespace.
	err = db.Conn.WithContext(ctx).Where("channel_id = ?", id).First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to find channel: %w", err)
	}
	return &channel, nil
}

func (db *PostgresDB) FindChannelByAdmin(ctx context.Context, id, adminTelegramID string) (*models.Channel, error) {
	var channel models.Channel
	err := db.Conn.WithContext(ctx).Where("id = ? AND admin_telegram_id = ?", id, adminTelegramID).First(&channel).Error
	if err == nil {
		return &channel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find channel by admin: %w", err)
	}

	err = db.Conn.WithContext(ctx).Where("channel_id = ? AND admin_telegram_id = ?", id, adminTelegramID).First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to find channel by admin: %w", err)
	}
	return &channel, nil
}

func (db *PostgresDB) GetChannelsByAdmin(ctx context.Context, adminTelegramID string) ([]*models.Channel, error) {
	var channels []*models.Channel
	if err := db.Conn.WithContext(ctx).Where("admin_telegram_id = ?", adminTelegramID).Order("created_at").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to get channels by admin: %w", err)
	}
	return channels, nil
}

func (db *PostgresDB) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	var channel models.Channel
	if err := db.Conn.WithContext(ctx).Where("channel_id = ?", channelID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if channel exists: %w", err)
	}
	return true, nil
}

func (db *PostgresDB) CreateChannel(ctx context.Context, channel *models.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now().UTC()
	}
	if err := db.Conn.WithContext(ctx).Create(channel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrChannelExists
		}
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (db *PostgresDB) CreatePlan(ctx context.Context, plan *models.SubscriptionPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	if err := db.Conn.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetActivePlans(ctx context.Context, channelID string) ([]*models.SubscriptionPlan, error) {
	var plans []*models.SubscriptionPlan
	if err := db.Conn.WithContext(ctx).
		Where("channel_id = ? AND is_active = ?", channelID, true).
		Order("price_mnee").
		Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to get active plans: %w", err)
	}
	return plans, nil
}

func (db *PostgresDB) GetTransactionByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Conn.WithContext(ctx).Where("tx_hash = ?", txHash).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction by hash: %w", err)
	}
	return &tx, nil
}

// CreateSubscription persists the subscription and its funding transaction
// in one database transaction. The unique index on tx_hash rejects a
// concurrent insert for the same hash, rolling back both rows.
func (db *PostgresDB) CreateSubscription(ctx context.Context, sub *models.Subscription, tx *models.Transaction) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.SubscriptionID = sub.ID

	err := db.Conn.WithContext(ctx).Transaction(func(conn *gorm.DB) error {
		if err := conn.Omit("User", "Channel").Create(sub).Error; err != nil {
			return err
		}
		if err := conn.Create(tx).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrAlreadyProcessed
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := db.Conn.WithContext(ctx).
		Where("status = ? AND expiry_date IS NOT NULL AND expiry_date < ?", models.SubscriptionActive, now).
		Preload("User").
		Preload("Channel").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to get expired subscriptions: %w", err)
	}
	return subs, nil
}

func (db *PostgresDB) ExpireSubscription(ctx context.Context, subscriptionID string) error {
	if err := db.Conn.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("status", models.SubscriptionExpired).Error; err != nil {
		return fmt.Errorf("failed to expire subscription: %w", err)
	}
	return nil
}
