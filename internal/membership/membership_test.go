package membership

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"promoreg/internal/registration/models"
)

type fakeChatMemberAPI struct {
	status string
	err    error
}

func (f *fakeChatMemberAPI) GetChatMember(tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	if f.err != nil {
		return tgbotapi.ChatMember{}, f.err
	}
	return tgbotapi.ChatMember{Status: f.status}, nil
}

func TestTelegramChecker_StatusMapping(t *testing.T) {
	tests := []struct {
		status string
		want   models.MembershipStatus
	}{
		{"member", models.MembershipInGroup},
		{"administrator", models.MembershipInGroup},
		{"creator", models.MembershipInGroup},
		{"restricted", models.MembershipInGroup},
		{"left", models.MembershipNotInGroup},
		{"kicked", models.MembershipNotInGroup},
		{"something-new", models.MembershipUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			checker := &TelegramChecker{api: &fakeChatMemberAPI{status: tt.status}, groupID: -100200}
			assert.Equal(t, tt.want, checker.Check(context.Background(), 42))
		})
	}
}

func TestTelegramChecker_APIErrorIsUnknown(t *testing.T) {
	checker := &TelegramChecker{api: &fakeChatMemberAPI{err: errors.New("bad gateway")}, groupID: -100200, logger: slog.Default()}
	assert.Equal(t, models.MembershipUnknown, checker.Check(context.Background(), 42))
}

func TestTelegramChecker_DisabledWithoutGroup(t *testing.T) {
	checker := NewTelegramChecker(nil, 0, nil)
	assert.Equal(t, models.MembershipUnknown, checker.Check(context.Background(), 42))
}

func TestStatic(t *testing.T) {
	assert.Equal(t, models.MembershipInGroup, Static{Status: models.MembershipInGroup}.Check(context.Background(), 1))
	assert.Equal(t, models.MembershipUnknown, Static{}.Check(context.Background(), 1))
}
