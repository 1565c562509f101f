package models

import "context"

// InlineButton is one button of an inline keyboard. Exactly one of
// CallbackData or WebAppURL is set.
type InlineButton struct {
	Text         string
	CallbackData string
	WebAppURL    string
}

// Messenger represents the messaging-platform capability the system
// depends on: delivering messages, minting single-use invites, removing
// members and checking admin privilege.
type Messenger interface {
	// SendMessage delivers an HTML-formatted message to a chat.
	SendMessage(ctx context.Context, chatID, text string) error

	// SendMessageWithKeyboard delivers a message with an inline keyboard.
	SendMessageWithKeyboard(ctx context.Context, chatID, text string, keyboard [][]InlineButton) error

	// CreateInviteLink mints a single-use invite link for a channel,
	// valid for 24 hours.
	CreateInviteLink(ctx context.Context, channelID, name string) (string, error)

	// RemoveChatMember removes a user from a channel without banning
	// them permanently (ban then immediate unban).
	RemoveChatMember(ctx context.Context, channelID string, userID int64) error

	// IsChannelAdmin reports whether the user is a creator or
	// administrator of the channel.
	IsChannelAdmin(ctx context.Context, channelID string, userID int64) (bool, error)

	// GetChannelTitle returns the channel's display title.
	GetChannelTitle(ctx context.Context, channelID string) (string, error)
}
