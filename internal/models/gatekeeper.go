package models

import (
	"context"
	"time"
)

// PaymentRequest is a claimed payment submitted by the browser client.
type PaymentRequest struct {
	TxHash     string `json:"txHash"`
	TelegramID string `json:"telegramId"`
	PlanID     string `json:"planId"`
	ChannelID  string `json:"channelId"`
}

// PaymentResult is returned once a payment has been verified and the
// subscription created.
type PaymentResult struct {
	InviteLink     string     `json:"inviteLink"`
	SubscriptionID string     `json:"subscriptionId"`
	ExpiryDate     *time.Time `json:"expiryDate"`
}

// SweepResult summarizes one expiry sweep run.
type SweepResult struct {
	Processed int      `json:"processed"`
	Removed   int      `json:"removed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// GatekeeperI is the payment-verification and subscription-lifecycle
// engine.
type GatekeeperI interface {
	// VerifyPayment turns a claimed transaction hash into a live invite
	// link, or a typed rejection.
	VerifyPayment(ctx context.Context, req *PaymentRequest) (*PaymentResult, error)

	// RunExpirySweep revokes access for subscriptions past expiry and
	// marks them expired. Idempotent and safe to re-run.
	RunExpirySweep(ctx context.Context) (*SweepResult, error)
}

// CommandDispatcher handles inbound operator messages and button clicks.
type CommandDispatcher interface {
	// HandleMessage processes one text command from a chat.
	HandleMessage(ctx context.Context, chatID, userID int64, text string) error

	// HandleCallback processes one inline-keyboard button click.
	HandleCallback(ctx context.Context, callbackID string, chatID int64, data string) error
}
