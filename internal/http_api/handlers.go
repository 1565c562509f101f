package http_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/mnee-gate/gatekeeper/internal/models"
)

// ChannelResponse is the public channel view consumed by the mini app.
type ChannelResponse struct {
	Channel *models.Channel            `json:"channel"`
	Plans   []*models.SubscriptionPlan `json:"plans"`
}

// verifyPayment is a handler for the /payment/verify endpoint. It runs
// the payment verification flow and maps typed rejections to HTTP
// statuses.
func (s *HTTPServer) verifyPayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := s.gatekeeper.VerifyPayment(c.Request.Context(), &req)
	if err != nil {
		s.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"inviteLink":     result.InviteLink,
		"subscriptionId": result.SubscriptionID,
		"expiryDate":     result.ExpiryDate,
	})
}

func (s *HTTPServer) respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
	case errors.Is(err, models.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
	case errors.Is(err, models.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
	case errors.Is(err, models.ErrAlreadyProcessed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction already processed"})
	default:
		if verr, ok := models.AsVerificationError(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": verificationMessage(verr)})
			return
		}
		s.logger.Errorw("Payment verification error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment verification failed"})
	}
}

func verificationMessage(verr *models.VerificationError) string {
	switch verr.Reason {
	case models.TxNotFound, models.TxFailed:
		return "Transaction not found or failed"
	case models.NoMatchingTransfer:
		return "No valid MNEE transfer found to channel wallet"
	case models.InsufficientAmount:
		return "Insufficient payment amount"
	default:
		return verr.Message
	}
}

// getChannel is a handler for the /channels/:channelId endpoint. It
// resolves a channel by record ID or Telegram channel ID and returns it
// with its active plans.
func (s *HTTPServer) getChannel(c *gin.Context) {
	channelID := c.Param("channelId")

	channel, err := s.repo.FindChannel(c.Request.Context(), channelID)
	if err != nil {
		if errors.Is(err, models.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
			return
		}
		s.logger.Errorw("Error fetching channel", "channel_id", channelID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channel"})
		return
	}

	plans, err := s.repo.GetActivePlans(c.Request.Context(), channel.ID)
	if err != nil {
		s.logger.Errorw("Error fetching plans", "channel_id", channel.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channel"})
		return
	}

	c.JSON(http.StatusOK, ChannelResponse{Channel: channel, Plans: plans})
}

// handleTelegramWebhook processes incoming Telegram webhook updates. It
// always acknowledges with 200 so the platform does not redeliver; any
// internal failure is logged only.
func (s *HTTPServer) handleTelegramWebhook(c *gin.Context) {
	var update tgModels.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.Debugw("Invalid webhook payload", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx := c.Request.Context()

	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		chatID := callbackChatID(query)
		if err := s.dispatcher.HandleCallback(ctx, query.ID, chatID, query.Data); err != nil {
			s.logger.Errorw("Failed to process callback query", "error", err)
		}
	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		if msg.From == nil {
			break
		}
		if err := s.dispatcher.HandleMessage(ctx, msg.Chat.ID, msg.From.ID, msg.Text); err != nil {
			s.logger.Errorw("Failed to process message", "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func callbackChatID(query *tgModels.CallbackQuery) int64 {
	if query.Message.Message != nil {
		return query.Message.Message.Chat.ID
	}
	if query.Message.InaccessibleMessage != nil {
		return query.Message.InaccessibleMessage.Chat.ID
	}
	return 0
}

// checkExpiry is a handler for the /cron/check-expiry endpoint. It is
// guarded by a bearer token when one is configured.
func (s *HTTPServer) checkExpiry(c *gin.Context) {
	if s.cronSecret != "" && c.GetHeader("Authorization") != "Bearer "+s.cronSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := s.gatekeeper.RunExpirySweep(c.Request.Context())
	if err != nil {
		s.logger.Errorw("Cron job error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cron job failed"})
		return
	}

	message := "Expiry check completed"
	if result.Processed == 0 {
		message = "No expired subscriptions"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"processed": result.Processed,
		"removed":   result.Removed,
		"failed":    result.Failed,
		"errors":    result.Errors,
	})
}
