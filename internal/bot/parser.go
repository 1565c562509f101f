package bot

import (
	"strconv"
	"strings"
)

// Command is one parsed inbound operator command.
type Command interface{ command() }

// StartCommand is /start with an optional channel identifier.
type StartCommand struct{ ChannelID string }

// AdminCommand is /admin.
type AdminCommand struct{}

// HelpCommand is /help.
type HelpCommand struct{}

// AddChannelCommand is /addchannel <channelID> <walletAddress>.
type AddChannelCommand struct {
	ChannelID     string
	WalletAddress string
}

// PlansCommand is /plans with an optional channel identifier.
type PlansCommand struct{ ChannelID string }

// AddPlanCommand is /addplan <channelID> "<name>" <price> [days].
type AddPlanCommand struct {
	ChannelID    string
	Name         string
	Price        float64
	DurationDays *int
}

// UnknownCommand is any message the interpreter ignores.
type UnknownCommand struct{ Text string }

func (StartCommand) command()      {}
func (AdminCommand) command()      {}
func (HelpCommand) command()       {}
func (AddChannelCommand) command() {}
func (PlansCommand) command()      {}
func (AddPlanCommand) command()    {}
func (UnknownCommand) command()    {}

// UsageError carries the corrective chat message for a malformed command.
// It is sent to the operator, never surfaced as an internal error.
type UsageError struct{ Text string }

func (e *UsageError) Error() string { return e.Text }

const (
	addChannelUsage = "<b>Usage:</b>\n<code>/addchannel [channel_id] [wallet_address]</code>\n\n" +
		"Example:\n<code>/addchannel -1001234567890 0x1234...abcd</code>\n\n" +
		"<i>Make sure the bot is an admin in the channel first!</i>"

	addPlanUsage = "<b>Usage:</b>\n<code>/addplan [channel_id] \"Plan Name\" [price] [days]</code>\n\n" +
		"Examples:\n" +
		"30 days: <code>/addplan abc123 \"Monthly\" 10 30</code>\n" +
		"Lifetime: <code>/addplan abc123 \"Lifetime\" 50</code>\n\n" +
		"<i>Omit days for lifetime access.</i>"
)

// quoteNormalizer maps typographic quote variants Telegram clients insert
// back to straight quotes before parsing.
var quoteNormalizer = strings.NewReplacer(
	"“", `"`, // “
	"”", `"`, // ”
	"„", `"`, // „
	"«", `"`, // «
	"»", `"`, // »
	"’", "'", // ’
	"‘", "'", // ‘
	"‚", "'", // ‚
	"‹", "'", // ‹
	"›", "'", // ›
)

// ParseCommand interprets one inbound message. Malformed arguments of a
// recognized command produce a *UsageError whose text is sent back to the
// chat; anything that is not a recognized command parses to
// UnknownCommand.
func ParseCommand(text string) (Command, error) {
	args := strings.Fields(text)
	if len(args) == 0 {
		return UnknownCommand{Text: text}, nil
	}

	switch strings.ToLower(args[0]) {
	case "/start":
		cmd := StartCommand{}
		if len(args) > 1 {
			cmd.ChannelID = args[1]
		}
		return cmd, nil
	case "/admin":
		return AdminCommand{}, nil
	case "/help":
		return HelpCommand{}, nil
	case "/addchannel":
		return parseAddChannel(args[1:])
	case "/plans":
		cmd := PlansCommand{}
		if len(args) > 1 {
			cmd.ChannelID = args[1]
		}
		return cmd, nil
	case "/addplan":
		return parseAddPlan(args[1:])
	default:
		return UnknownCommand{Text: text}, nil
	}
}

func parseAddChannel(args []string) (Command, error) {
	if len(args) < 2 {
		return nil, &UsageError{Text: addChannelUsage}
	}
	return AddChannelCommand{ChannelID: args[0], WalletAddress: args[1]}, nil
}

func parseAddPlan(args []string) (Command, error) {
	if len(args) < 3 {
		return nil, &UsageError{Text: addPlanUsage}
	}

	normalized := make([]string, len(args))
	for i, arg := range args {
		normalized[i] = quoteNormalizer.Replace(arg)
	}

	channelID := normalized[0]

	// A quoted name may span several whitespace-split tokens.
	var name string
	priceIndex := 0
	if strings.HasPrefix(normalized[1], `"`) {
		for i := 1; i < len(normalized); i++ {
			if i > 1 {
				name += " "
			}
			name += normalized[i]
			if strings.HasSuffix(normalized[i], `"`) && len(name) > 1 {
				priceIndex = i + 1
				break
			}
		}
		if priceIndex == 0 {
			return nil, &UsageError{Text: addPlanUsage}
		}
		name = strings.ReplaceAll(name, `"`, "")
	} else {
		name = normalized[1]
		priceIndex = 2
	}

	if priceIndex >= len(normalized) {
		return nil, &UsageError{Text: addPlanUsage}
	}

	price, err := strconv.ParseFloat(normalized[priceIndex], 64)
	if err != nil || price <= 0 {
		return nil, &UsageError{Text: "❌ Invalid price. Must be a positive number."}
	}

	var durationDays *int
	if priceIndex+1 < len(normalized) {
		days, err := strconv.Atoi(normalized[priceIndex+1])
		if err != nil || days <= 0 {
			return nil, &UsageError{Text: "❌ Invalid duration. Must be a positive number of days."}
		}
		durationDays = &days
	}

	return AddPlanCommand{
		ChannelID:    channelID,
		Name:         name,
		Price:        price,
		DurationDays: durationDays,
	}, nil
}
