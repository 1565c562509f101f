package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/mnee-gate/gatekeeper/internal/models"
	"github.com/mnee-gate/gatekeeper/pkg/logger"
)

const (
	// InviteLinkTTL is the validity window of a minted invite link.
	InviteLinkTTL = 24 * time.Hour
)

// Messenger implements models.Messenger over the Telegram Bot API.
type Messenger struct {
	logger *logger.Logger
	bot    *bot.Bot
}

func NewMessenger(token string, logger *logger.Logger) (*Messenger, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Messenger{logger: logger, bot: b}, nil
}

// chatIDValue passes numeric chat identifiers as integers, everything
// else (e.g. @usernames) as strings.
func chatIDValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func (m *Messenger) SendMessage(ctx context.Context, chatID, text string) error {
	_, err := m.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatIDValue(chatID),
		Text:      text,
		ParseMode: tgModels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (m *Messenger) SendMessageWithKeyboard(ctx context.Context, chatID, text string, keyboard [][]models.InlineButton) error {
	rows := make([][]tgModels.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgModels.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			button := tgModels.InlineKeyboardButton{Text: b.Text}
			if b.WebAppURL != "" {
				button.WebApp = &tgModels.WebAppInfo{URL: b.WebAppURL}
			} else {
				button.CallbackData = b.CallbackData
			}
			buttons = append(buttons, button)
		}
		rows = append(rows, buttons)
	}

	_, err := m.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatIDValue(chatID),
		Text:        text,
		ParseMode:   tgModels.ParseModeHTML,
		ReplyMarkup: &tgModels.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	if err != nil {
		return fmt.Errorf("failed to send message with keyboard: %w", err)
	}
	return nil
}

// CreateInviteLink mints a named, single-use invite link that expires
// after InviteLinkTTL.
func (m *Messenger) CreateInviteLink(ctx context.Context, channelID, name string) (string, error) {
	link, err := m.bot.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:      chatIDValue(channelID),
		Name:        name,
		ExpireDate:  int(time.Now().Add(InviteLinkTTL).Unix()),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create invite link: %w", err)
	}
	return link.InviteLink, nil
}

// RemoveChatMember bans and immediately unbans the user. The net effect
// is removal from the channel without a permanent ban.
func (m *Messenger) RemoveChatMember(ctx context.Context, channelID string, userID int64) error {
	if _, err := m.bot.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: chatIDValue(channelID),
		UserID: userID,
	}); err != nil {
		return fmt.Errorf("failed to ban chat member: %w", err)
	}
	if _, err := m.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       chatIDValue(channelID),
		UserID:       userID,
		OnlyIfBanned: true,
	}); err != nil {
		return fmt.Errorf("failed to unban chat member: %w", err)
	}
	return nil
}

func (m *Messenger) IsChannelAdmin(ctx context.Context, channelID string, userID int64) (bool, error) {
	member, err := m.bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chatIDValue(channelID),
		UserID: userID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}
	return member.Type == tgModels.ChatMemberTypeOwner ||
		member.Type == tgModels.ChatMemberTypeAdministrator, nil
}

func (m *Messenger) GetChannelTitle(ctx context.Context, channelID string) (string, error) {
	chat, err := m.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatIDValue(channelID)})
	if err != nil {
		return "", fmt.Errorf("failed to get chat: %w", err)
	}
	return chat.Title, nil
}
