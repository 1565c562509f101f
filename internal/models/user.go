package models

import "time"

// User represents a Telegram user known to the system.
type User struct {
	// ID is the unique identifier of the user record.
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// TelegramID is the Telegram user identifier. Unique.
	TelegramID string `json:"telegram_id" gorm:"column:telegram_id;unique;not null"`
	// WalletAddress is the last wallet the user paid from.
	// Set on the first verified payment and rebound whenever the user
	// pays from a new address.
	WalletAddress *string `json:"wallet_address" gorm:"column:wallet_address"`
	// CreatedAt is the date when the user was first seen.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}
