package models

import "time"

// SubscriptionPlan is a purchasable access tier for a channel.
type SubscriptionPlan struct {
	// ID is the unique identifier of the plan.
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// ChannelID is the owning channel record ID.
	ChannelID string `json:"channel_id" gorm:"column:channel_id;index;not null"`
	// Name is the plan name shown to subscribers.
	Name string `json:"name" gorm:"column:name;not null"`
	// Price is the plan price in MNEE human units. Always positive.
	Price float64 `json:"price_mnee" gorm:"column:price_mnee;not null"`
	// DurationDays is the subscription length in calendar days.
	// Nil means lifetime access.
	DurationDays *int `json:"duration_days" gorm:"column:duration_days"`
	// IsActive indicates whether the plan can still be purchased.
	IsActive bool `json:"is_active" gorm:"column:is_active;default:true"`
	// CreatedAt is the date when the plan was created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}
