package models

import "time"

// Channel represents a private Telegram channel registered for paid access.
type Channel struct {
	// ID is the unique identifier of the channel record.
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// ChannelID is the Telegram channel identifier (e.g. -1001234567890).
	// Unique across all registered channels.
	ChannelID string `json:"channel_id" gorm:"column:channel_id;unique;not null"`
	// ChannelName is the display name of the channel.
	ChannelName string `json:"channel_name" gorm:"column:channel_name"`
	// AdminTelegramID is the Telegram user ID of the owning administrator.
	// One admin may own multiple channels.
	AdminTelegramID string `json:"admin_telegram_id" gorm:"column:admin_telegram_id;index;not null"`
	// WalletAddress is the receiving wallet, lowercase 0x-prefixed hex.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;not null"`
	// CreatedAt is the date when the channel was registered.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}
