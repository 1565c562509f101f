package models

import (
	"context"
	"time"
)

// Repository is the narrow persistence contract. All mutation of stored
// state goes through it; uniqueness constraints on channel_id, telegram_id
// and tx_hash are enforced by the store and act as the concurrency boundary.
type Repository interface {
	// GetOrCreateUser upserts a user by Telegram ID. When walletAddress
	// is non-empty and differs from the stored one, it is rebound.
	GetOrCreateUser(ctx context.Context, telegramID, walletAddress string) (*User, error)

	// GetPlanWithChannel loads a plan together with its owning channel.
	// Returns ErrPlanNotFound / ErrChannelNotFound.
	GetPlanWithChannel(ctx context.Context, planID string) (*SubscriptionPlan, *Channel, error)

	// FindChannel resolves a channel by record ID first, then by
	// Telegram channel ID. Returns ErrChannelNotFound when absent.
	FindChannel(ctx context.Context, id string) (*Channel, error)

	// FindChannelByAdmin resolves a channel like FindChannel but only
	// if it is owned by the given admin.
	FindChannelByAdmin(ctx context.Context, id, adminTelegramID string) (*Channel, error)

	// GetChannelsByAdmin lists all channels owned by the admin.
	GetChannelsByAdmin(ctx context.Context, adminTelegramID string) ([]*Channel, error)

	// ChannelExists reports whether a Telegram channel ID is registered.
	ChannelExists(ctx context.Context, channelID string) (bool, error)

	// CreateChannel registers a new channel.
	CreateChannel(ctx context.Context, channel *Channel) error

	// CreatePlan creates a new subscription plan.
	CreatePlan(ctx context.Context, plan *SubscriptionPlan) error

	// GetActivePlans lists active plans for a channel, cheapest first.
	GetActivePlans(ctx context.Context, channelID string) ([]*SubscriptionPlan, error)

	// GetTransactionByHash looks up a payment record by tx hash.
	// Returns (nil, nil) when no record exists.
	GetTransactionByHash(ctx context.Context, txHash string) (*Transaction, error)

	// CreateSubscription persists a subscription and its funding
	// transaction as one atomic unit.
	CreateSubscription(ctx context.Context, sub *Subscription, tx *Transaction) error

	// GetExpiredSubscriptions returns active subscriptions whose
	// non-nil expiry date lies before now, with User and Channel
	// preloaded.
	GetExpiredSubscriptions(ctx context.Context, now time.Time) ([]*Subscription, error)

	// ExpireSubscription transitions a subscription to expired.
	ExpireSubscription(ctx context.Context, subscriptionID string) error
}
