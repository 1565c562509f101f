package models

import "time"

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	// SubscriptionActive grants channel access.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired is set by the expiry sweep once the expiry
	// date has passed.
	SubscriptionExpired SubscriptionStatus = "expired"
	// SubscriptionCancelled is reserved. No operation produces it yet.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription records paid access of a user to a channel. It is created
// only as a side effect of a verified payment.
type Subscription struct {
	// ID is the unique identifier of the subscription.
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// UserID is the subscribing user record ID.
	UserID string `json:"user_id" gorm:"column:user_id;index;not null"`
	// ChannelID is the channel record ID.
	ChannelID string `json:"channel_id" gorm:"column:channel_id;index;not null"`
	// PlanID is the plan the subscription was bought under.
	PlanID string `json:"plan_id" gorm:"column:plan_id;not null"`
	// Status is the lifecycle state. The only defined transition is
	// active -> expired via the expiry sweep.
	Status SubscriptionStatus `json:"status" gorm:"column:status;index;not null"`
	// ExpiryDate is when access ends. Nil means lifetime access.
	ExpiryDate *time.Time `json:"expiry_date" gorm:"column:expiry_date;index"`
	// CreatedAt is the date when the subscription was created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`

	// User is preloaded for the expiry sweep. Nil when unresolvable.
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	// Channel is preloaded for the expiry sweep. Nil when unresolvable.
	Channel *Channel `json:"channel,omitempty" gorm:"belongsTo;foreignKey:ChannelID;references:ID"`
}
