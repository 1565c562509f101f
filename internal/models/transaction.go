package models

import "time"

// TransactionStatus is the state of an on-chain payment record.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction records the on-chain payment that funded a subscription.
// Exactly one transaction exists per subscription.
type Transaction struct {
	// ID is the unique identifier of the transaction record.
	ID string `json:"id" gorm:"column:id;primaryKey"`
	// SubscriptionID is the subscription this payment funded.
	SubscriptionID string `json:"subscription_id" gorm:"column:subscription_id;index;not null"`
	// TxHash is the on-chain transaction hash. The unique constraint is
	// the authoritative guard against crediting the same hash twice.
	TxHash string `json:"tx_hash" gorm:"column:tx_hash;unique;not null"`
	// FromAddress is the verified sender of the transfer.
	FromAddress string `json:"from_address" gorm:"column:from_address"`
	// ToAddress is the channel wallet that received the transfer.
	ToAddress string `json:"to_address" gorm:"column:to_address"`
	// Amount is the plan price in MNEE human units.
	Amount float64 `json:"amount" gorm:"column:amount"`
	// Status is the payment state.
	Status TransactionStatus `json:"status" gorm:"column:status;not null"`
	// CreatedAt is the date when the record was created.
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}
