package gatekeeper

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mnee-gate/gatekeeper/internal/blockchain"
	"github.com/mnee-gate/gatekeeper/internal/models"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
)

// Gatekeeper is the payment-verification and subscription-lifecycle
// engine. It orchestrates the chain verifier, the subscription store and
// the messenger; it holds no state of its own between calls.
type Gatekeeper struct {
	logger *logger.Logger

	repo      models.Repository
	verifier  models.ChainVerifier
	messenger models.Messenger

	// botUsername builds renewal deep links in expiry notices.
	botUsername string

	// now is swapped in tests.
	now func() time.Time
}

// NewGatekeeper creates a new Gatekeeper instance.
func NewGatekeeper(
	repo models.Repository,
	verifier models.ChainVerifier,
	messenger models.Messenger,
	logger *logger.Logger,
	botUsername string,
) *Gatekeeper {
	return &Gatekeeper{
		repo:        repo,
		verifier:    verifier,
		messenger:   messenger,
		logger:      logger,
		botUsername: botUsername,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// VerifyPayment turns a claimed transaction hash into a live invite link.
// Each gate short-circuits with a typed reason; nothing is written before
// the chain verification and idempotency checks have passed.
func (g *Gatekeeper) VerifyPayment(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	if req.TxHash == "" || req.TelegramID == "" || req.PlanID == "" || req.ChannelID == "" {
		return nil, models.ErrMissingFields
	}

	plan, channel, err := g.repo.GetPlanWithChannel(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	minAmount := blockchain.ToWei(plan.Price)
	proof, err := g.verifier.VerifyTransfer(ctx, req.TxHash, channel.WalletAddress, minAmount)
	if err != nil {
		return nil, err
	}

	// Idempotency gate. The unique constraint on tx_hash backstops two
	// requests racing past this check.
	existing, err := g.repo.GetTransactionByHash(ctx, req.TxHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrAlreadyProcessed
	}

	// Bind the user's wallet to the verified sender, not the client claim.
	user, err := g.repo.GetOrCreateUser(ctx, req.TelegramID, proof.From)
	if err != nil {
		return nil, err
	}

	var expiryDate *time.Time
	if plan.DurationDays != nil {
		expiry := g.now().Add(time.Duration(*plan.DurationDays) * 24 * time.Hour)
		expiryDate = &expiry
	}

	sub := &models.Subscription{
		UserID:     user.ID,
		ChannelID:  channel.ID,
		PlanID:     plan.ID,
		Status:     models.SubscriptionActive,
		ExpiryDate: expiryDate,
	}
	txRecord := &models.Transaction{
		TxHash:      req.TxHash,
		FromAddress: proof.From,
		ToAddress:   channel.WalletAddress,
		Amount:      plan.Price,
		Status:      models.TransactionConfirmed,
	}
	if err := g.repo.CreateSubscription(ctx, sub, txRecord); err != nil {
		return nil, err
	}

	inviteLink, err := g.messenger.CreateInviteLink(ctx, channel.ChannelID, "Sub "+shortID(sub.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite link: %w", err)
	}

	// Best effort: the user may have blocked the bot. The invite link is
	// still returned for the client to display.
	if err := g.messenger.SendMessage(ctx, req.TelegramID, paymentConfirmedText(channel.ChannelName, inviteLink, expiryDate)); err != nil {
		g.logger.Warnw("Failed to send invite via Telegram", "telegram_id", req.TelegramID, "error", err)
	}

	return &models.PaymentResult{
		InviteLink:     inviteLink,
		SubscriptionID: sub.ID,
		ExpiryDate:     expiryDate,
	}, nil
}

// RunExpirySweep finds subscriptions past expiry, revokes channel access
// and marks them expired. Subscriptions are processed independently; one
// failure never aborts the batch. A subscription whose user or channel
// cannot be resolved stays active and is retried on the next run, while a
// failed member removal still marks the subscription expired (the expiry
// fact is independent of removal success).
func (g *Gatekeeper) RunExpirySweep(ctx context.Context) (*models.SweepResult, error) {
	subs, err := g.repo.GetExpiredSubscriptions(ctx, g.now())
	if err != nil {
		return nil, err
	}

	result := &models.SweepResult{}
	for _, sub := range subs {
		result.Processed++
		g.sweepOne(ctx, sub, result)
	}

	g.logger.Infow("Expiry sweep completed",
		"processed", result.Processed, "removed", result.Removed, "failed", result.Failed)
	return result, nil
}

func (g *Gatekeeper) sweepOne(ctx context.Context, sub *models.Subscription, result *models.SweepResult) {
	if sub.User == nil || sub.Channel == nil {
		result.Failed++
		result.Errors = append(result.Errors,
			fmt.Sprintf("missing user or channel data for subscription %s", sub.ID))
		return
	}

	removed := false
	userID, err := strconv.ParseInt(sub.User.TelegramID, 10, 64)
	if err == nil {
		err = g.messenger.RemoveChatMember(ctx, sub.Channel.ChannelID, userID)
	}
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors,
			fmt.Sprintf("failed to remove user %s from channel %s: %v", sub.User.TelegramID, sub.Channel.ChannelID, err))
	} else {
		removed = true
		result.Removed++
	}

	if removed {
		if err := g.messenger.SendMessage(ctx, sub.User.TelegramID, subscriptionExpiredText(sub.Channel, g.botUsername)); err != nil {
			// User may have blocked the bot.
			g.logger.Debugw("Failed to send expiry notice", "telegram_id", sub.User.TelegramID, "error", err)
		}
	}

	if err := g.repo.ExpireSubscription(ctx, sub.ID); err != nil {
		result.Failed++
		result.Errors = append(result.Errors,
			fmt.Sprintf("error processing subscription %s: %v", sub.ID, err))
	}
}

// shortID returns a short prefix of a subscription ID for traceability in
// invite link names.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func paymentConfirmedText(channelName, inviteLink string, expiryDate *time.Time) string {
	expiryText := "You have lifetime access!"
	if expiryDate != nil {
		expiryText = fmt.Sprintf("Your subscription is valid until %s.", expiryDate.Format("January 2, 2006"))
	}
	return fmt.Sprintf(
		"🎉 <b>Payment Confirmed!</b>\n\n"+
			"You've subscribed to <b>%s</b>.\n\n"+
			"%s\n\n"+
			"Click the link below to join:\n%s\n\n"+
			"<i>This link expires in 24 hours and can only be used once.</i>",
		channelName, expiryText, inviteLink)
}

func subscriptionExpiredText(channel *models.Channel, botUsername string) string {
	return fmt.Sprintf(
		"⏰ <b>Subscription Expired</b>\n\n"+
			"Your access to <b>%s</b> has expired.\n\n"+
			"To renew, click here:\nhttps://t.me/%s?start=%s",
		channel.ChannelName, botUsername, channel.ID)
}
