// Package membership resolves whether a user belongs to the campaign's
// chat group. The result is recorded with the registration but never blocks
// it: a check that cannot be completed yields UNKNOWN, not an error.
package membership

import (
	"context"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promoreg/internal/registration/models"
)

// Checker reports a user's membership status in the campaign group.
type Checker interface {
	Check(ctx context.Context, userID int64) models.MembershipStatus
}

// chatMemberAPI is the slice of the Telegram bot API the checker needs.
type chatMemberAPI interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// TelegramChecker asks the Telegram Bot API for the user's standing in a
// configured group chat.
type TelegramChecker struct {
	api     chatMemberAPI
	groupID int64
	logger  *slog.Logger
}

// NewTelegramChecker constructs a checker against groupID. A zero groupID
// disables the check; every lookup then reports UNKNOWN.
func NewTelegramChecker(api *tgbotapi.BotAPI, groupID int64, logger *slog.Logger) *TelegramChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramChecker{api: api, groupID: groupID, logger: logger}
}

// Check resolves the membership status for userID. Telegram API failures are
// logged and collapsed to UNKNOWN.
func (c *TelegramChecker) Check(ctx context.Context, userID int64) models.MembershipStatus {
	if c.groupID == 0 || c.api == nil {
		return models.MembershipUnknown
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: c.groupID,
			UserID: userID,
		},
	})
	if err != nil {
		c.logger.WarnContext(ctx, "membership check failed",
			"user_id", strconv.FormatInt(userID, 10),
			"group_id", c.groupID,
			"error", err,
		)
		return models.MembershipUnknown
	}

	switch member.Status {
	case "member", "administrator", "creator", "restricted":
		// Restricted users have limited send rights but are still in the group.
		return models.MembershipInGroup
	case "left", "kicked":
		return models.MembershipNotInGroup
	default:
		return models.MembershipUnknown
	}
}

// Static always reports a fixed status. Used when no group is configured and
// in tests.
type Static struct {
	Status models.MembershipStatus
}

func (s Static) Check(context.Context, int64) models.MembershipStatus {
	if s.Status == "" {
		return models.MembershipUnknown
	}
	return s.Status
}
