package models

import (
	"errors"
	"fmt"
)

// Errors the payment flow and admin commands branch on.
var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrChannelNotFound  = errors.New("channel not found")
	ErrChannelExists    = errors.New("channel already registered")
	ErrAlreadyProcessed = errors.New("transaction already processed")
)

// VerificationReason classifies why an on-chain transfer could not be
// verified. Callers surface the specific reason to the user.
type VerificationReason string

const (
	// TxNotFound means no receipt exists for the hash.
	TxNotFound VerificationReason = "tx_not_found"
	// TxFailed means the transaction reverted on-chain.
	TxFailed VerificationReason = "tx_failed"
	// NoMatchingTransfer means no token transfer to the expected
	// recipient appears in the receipt logs.
	NoMatchingTransfer VerificationReason = "no_matching_transfer"
	// InsufficientAmount means the transfer was below the plan price.
	InsufficientAmount VerificationReason = "insufficient_amount"
)

// VerificationError is a typed chain-verification failure.
type VerificationError struct {
	Reason  VerificationReason
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("transfer verification failed (%s): %s", e.Reason, e.Message)
}

// NewVerificationError builds a VerificationError with a formatted message.
func NewVerificationError(reason VerificationReason, format string, args ...interface{}) *VerificationError {
	return &VerificationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// AsVerificationError unwraps err into a *VerificationError if it is one.
func AsVerificationError(err error) (*VerificationError, bool) {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
