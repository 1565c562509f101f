package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mnee-gate/gatekeeper/internal/models"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
	"github.com/mnee-gate/gatekeeper/pkg/validation"
)

const selectChannelPrefix = "select_channel_"

// Dispatcher executes parsed operator commands. It is stateless: each
// command is fully self-contained in its arguments, and every handler
// verifies caller authorization before any mutation.
type Dispatcher struct {
	logger *logger.Logger

	repo      models.Repository
	messenger models.Messenger

	botUsername string
	appURL      string
}

func NewDispatcher(
	repo models.Repository,
	messenger models.Messenger,
	logger *logger.Logger,
	botUsername, appURL string,
) *Dispatcher {
	return &Dispatcher{
		repo:        repo,
		messenger:   messenger,
		logger:      logger,
		botUsername: botUsername,
		appURL:      appURL,
	}
}

// HandleMessage processes one inbound text command. Parse failures turn
// into usage messages; only store or messenger failures are returned.
func (d *Dispatcher) HandleMessage(ctx context.Context, chatID, userID int64, text string) error {
	chat := strconv.FormatInt(chatID, 10)
	caller := strconv.FormatInt(userID, 10)

	cmd, err := ParseCommand(text)
	if err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			return d.messenger.SendMessage(ctx, chat, usage.Text)
		}
		return err
	}

	switch cmd := cmd.(type) {
	case StartCommand:
		return d.handleStart(ctx, chat, cmd)
	case AdminCommand:
		return d.handleAdmin(ctx, chat, caller)
	case AddChannelCommand:
		return d.handleAddChannel(ctx, chat, userID, caller, cmd)
	case PlansCommand:
		return d.handlePlans(ctx, chat, caller, cmd)
	case AddPlanCommand:
		return d.handleAddPlan(ctx, chat, caller, cmd)
	case HelpCommand:
		return d.messenger.SendMessage(ctx, chat, helpText)
	case UnknownCommand:
		// Not a command for us.
		return nil
	}
	return nil
}

// HandleCallback processes one inline-keyboard button click.
func (d *Dispatcher) HandleCallback(ctx context.Context, callbackID string, chatID int64, data string) error {
	chat := strconv.FormatInt(chatID, 10)

	if channelID, ok := strings.CutPrefix(data, selectChannelPrefix); ok {
		plans, err := d.repo.GetActivePlans(ctx, channelID)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			return nil
		}
		return d.messenger.SendMessageWithKeyboard(ctx, chat,
			"Select a subscription plan:", d.plansKeyboard(plans, channelID))
	}

	d.logger.Debugw("Ignoring unknown callback", "callback_id", callbackID, "data", data)
	return nil
}

func (d *Dispatcher) handleStart(ctx context.Context, chat string, cmd StartCommand) error {
	if cmd.ChannelID != "" {
		channel, err := d.repo.FindChannel(ctx, cmd.ChannelID)
		if err != nil && !errors.Is(err, models.ErrChannelNotFound) {
			return err
		}
		if channel != nil {
			plans, err := d.repo.GetActivePlans(ctx, channel.ID)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				return d.messenger.SendMessage(ctx, chat,
					fmt.Sprintf("No subscription plans available for %s yet.", channel.ChannelName))
			}
			text := fmt.Sprintf("🔐 <b>Welcome to %s Subscription</b>\n\n"+
				"Click the button below to subscribe using MNEE tokens.", channel.ChannelName)
			keyboard := [][]models.InlineButton{{{
				Text:      "💳 Subscribe Now",
				WebAppURL: fmt.Sprintf("%s?channelId=%s", d.appURL, channel.ID),
			}}}
			return d.messenger.SendMessageWithKeyboard(ctx, chat, text, keyboard)
		}
	}

	return d.messenger.SendMessage(ctx, chat, welcomeText)
}

func (d *Dispatcher) handleAdmin(ctx context.Context, chat, caller string) error {
	channels, err := d.repo.GetChannelsByAdmin(ctx, caller)
	if err != nil {
		return err
	}

	if len(channels) == 0 {
		return d.messenger.SendMessage(ctx, chat, adminOnboardingText)
	}

	var b strings.Builder
	b.WriteString("<b>🔧 Admin Panel</b>\n\n<b>Your Channels:</b>\n\n")
	for _, channel := range channels {
		plans, err := d.repo.GetActivePlans(ctx, channel.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "📺 <b>%s</b>\n", channel.ChannelName)
		fmt.Fprintf(&b, "   ID: <code>%s</code>\n", channel.ChannelID)
		fmt.Fprintf(&b, "   Plans: %d\n", len(plans))
		fmt.Fprintf(&b, "   Wallet: <code>%s...</code>\n\n", walletPrefix(channel.WalletAddress))
	}
	b.WriteString("\n<b>Commands:</b>\n")
	b.WriteString("/addchannel - Add new channel\n")
	b.WriteString("/plans [channel_id] - View plans\n")
	b.WriteString("/addplan - Add subscription plan")

	return d.messenger.SendMessage(ctx, chat, b.String())
}

func (d *Dispatcher) handleAddChannel(ctx context.Context, chat string, userID int64, caller string, cmd AddChannelCommand) error {
	wallet, err := validation.ValidateAndNormalizeAddress(cmd.WalletAddress)
	if err != nil {
		return d.messenger.SendMessage(ctx, chat, "❌ Invalid wallet address format.")
	}

	isAdmin, err := d.messenger.IsChannelAdmin(ctx, cmd.ChannelID, userID)
	if err != nil || !isAdmin {
		return d.messenger.SendMessage(ctx, chat,
			"❌ You must be an admin of the channel to register it.\n\n"+
				"Also make sure the bot is an admin in the channel.")
	}

	title, err := d.messenger.GetChannelTitle(ctx, cmd.ChannelID)
	if err != nil {
		return d.messenger.SendMessage(ctx, chat,
			"❌ Could not access channel. Make sure the bot is an admin.")
	}
	if title == "" {
		title = "Unnamed Channel"
	}

	exists, err := d.repo.ChannelExists(ctx, cmd.ChannelID)
	if err != nil {
		return err
	}
	if exists {
		return d.messenger.SendMessage(ctx, chat, "❌ This channel is already registered.")
	}

	channel := &models.Channel{
		ChannelID:       cmd.ChannelID,
		ChannelName:     title,
		AdminTelegramID: caller,
		WalletAddress:   wallet,
	}
	if err := d.repo.CreateChannel(ctx, channel); err != nil {
		if errors.Is(err, models.ErrChannelExists) {
			return d.messenger.SendMessage(ctx, chat, "❌ This channel is already registered.")
		}
		return err
	}

	return d.messenger.SendMessage(ctx, chat, fmt.Sprintf(
		"✅ <b>Channel Registered!</b>\n\n"+
			"<b>%s</b>\nID: <code>%s</code>\n\n"+
			"Now add subscription plans:\n"+
			"<code>/addplan %s \"Plan Name\" [price] [days]</code>\n\n"+
			"Example for 30-day plan at 10 MNEE:\n"+
			"<code>/addplan %s \"30 Day Access\" 10 30</code>",
		title, channel.ID, channel.ID, channel.ID))
}

func (d *Dispatcher) handlePlans(ctx context.Context, chat, caller string, cmd PlansCommand) error {
	channels, err := d.repo.GetChannelsByAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return d.messenger.SendMessage(ctx, chat, "You don't have any registered channels.")
	}

	target := cmd.ChannelID
	if target == "" {
		target = channels[0].ID
	}
	var channel *models.Channel
	for _, c := range channels {
		if c.ID == target || c.ChannelID == target {
			channel = c
			break
		}
	}
	if channel == nil {
		return d.messenger.SendMessage(ctx, chat, "Channel not found.")
	}

	plans, err := d.repo.GetActivePlans(ctx, channel.ID)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return d.messenger.SendMessage(ctx, chat, fmt.Sprintf(
			"<b>%s</b> has no plans yet.\n\n"+
				"Add one with:\n<code>/addplan %s \"Plan Name\" [price] [days]</code>",
			channel.ChannelName, channel.ID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>📋 Plans for %s</b>\n\n", channel.ChannelName)
	for _, plan := range plans {
		fmt.Fprintf(&b, "• <b>%s</b>\n", plan.Name)
		fmt.Fprintf(&b, "  Price: %s MNEE\n", formatPrice(plan.Price))
		fmt.Fprintf(&b, "  Duration: %s\n", formatDuration(plan.DurationDays))
		fmt.Fprintf(&b, "  ID: <code>%s</code>\n\n", plan.ID)
	}
	fmt.Fprintf(&b, "\n<b>Share this link:</b>\n<code>https://t.me/%s?start=%s</code>", d.botUsername, channel.ID)

	return d.messenger.SendMessage(ctx, chat, b.String())
}

func (d *Dispatcher) handleAddPlan(ctx context.Context, chat, caller string, cmd AddPlanCommand) error {
	channel, err := d.repo.FindChannelByAdmin(ctx, cmd.ChannelID, caller)
	if err != nil {
		if errors.Is(err, models.ErrChannelNotFound) {
			return d.messenger.SendMessage(ctx, chat, "❌ Channel not found or you're not the admin.")
		}
		return err
	}

	plan := &models.SubscriptionPlan{
		ChannelID:    channel.ID,
		Name:         cmd.Name,
		Price:        cmd.Price,
		DurationDays: cmd.DurationDays,
		IsActive:     true,
	}
	if err := d.repo.CreatePlan(ctx, plan); err != nil {
		return err
	}

	return d.messenger.SendMessage(ctx, chat, fmt.Sprintf(
		"✅ <b>Plan Created!</b>\n\n"+
			"<b>%s</b>\nPrice: %s MNEE\nDuration: %s\n\n"+
			"Share subscription link:\nhttps://t.me/%s?start=%s",
		cmd.Name, formatPrice(cmd.Price), formatDuration(cmd.DurationDays), d.botUsername, channel.ID))
}

// plansKeyboard renders one web-app button per plan, linking into the
// subscription mini app with the channel and plan preselected.
func (d *Dispatcher) plansKeyboard(plans []*models.SubscriptionPlan, channelID string) [][]models.InlineButton {
	keyboard := make([][]models.InlineButton, 0, len(plans))
	for _, plan := range plans {
		keyboard = append(keyboard, []models.InlineButton{{
			Text:      fmt.Sprintf("%s - %s MNEE", plan.Name, formatPrice(plan.Price)),
			WebAppURL: fmt.Sprintf("%s?channelId=%s&planId=%s", d.appURL, channelID, plan.ID),
		}})
	}
	return keyboard
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func formatDuration(days *int) string {
	if days == nil {
		return "Lifetime"
	}
	return fmt.Sprintf("%d days", *days)
}

func walletPrefix(wallet string) string {
	if len(wallet) > 10 {
		return wallet[:10]
	}
	return wallet
}

const welcomeText = "👋 <b>Welcome to MNEE Gatekeeper!</b>\n\n" +
	"I help Telegram channel owners accept MNEE stablecoin payments for subscriptions.\n\n" +
	"<b>For Subscribers:</b>\n" +
	"Click subscribe links from channel owners to access premium content.\n\n" +
	"<b>For Channel Owners:</b>\n" +
	"/admin - Manage your channels\n" +
	"/help - View all commands"

const adminOnboardingText = "<b>🔧 Admin Panel</b>\n\n" +
	"You haven't registered any channels yet.\n\n" +
	"To add a channel:\n" +
	"1. Add this bot as an admin to your private channel\n" +
	"2. Run: /addchannel [channel_id] [wallet_address]\n\n" +
	"Example:\n<code>/addchannel -1001234567890 0x1234...abcd</code>"

const helpText = "<b>📚 MNEE Gatekeeper Commands</b>\n\n" +
	"<b>For Everyone:</b>\n" +
	"/start - Welcome message\n" +
	"/help - Show this help\n\n" +
	"<b>For Channel Owners:</b>\n" +
	"/admin - View your channels\n" +
	"/addchannel [id] [wallet] - Register channel\n" +
	"/plans [channel_id] - View subscription plans\n" +
	"/addplan - Create subscription plan\n\n" +
	"<b>Setup Steps:</b>\n" +
	"1. Add bot as admin to your channel\n" +
	"2. /addchannel with channel ID and wallet\n" +
	"3. /addplan to create subscription tiers\n" +
	"4. Share the subscription link with users"
