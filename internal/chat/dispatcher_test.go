package chat

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoreg/internal/ratelimit"
	"promoreg/internal/registration/form"
	"promoreg/internal/registration/models"
	"promoreg/internal/registration/service"
	"promoreg/internal/tracking/destinations"
	domainerrors "promoreg/pkg/domain-errors"
)

const validForm = "ชื่อ นามสกุล: สมชาย ใจดี\n" +
	"เบอร์โทร: 0812345678\n" +
	"ธนาคาร: กสิกรไทย\n" +
	"เลขบัญชี: 1234567890\n" +
	"อีเมล: somchai@example.com\n" +
	"ชื่อเทเลแกรม: Somchai\n" +
	"ยูสเซอร์เทเลแกรม: @somchai"

type fakeBot struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeRecorder struct {
	record  *models.Record
	outcome service.Outcome
	err     error
	errOnce error // returned on the first call only

	gotFields form.Fields
	gotIdent  service.Identity
	calls     int
}

func (f *fakeRecorder) Register(_ context.Context, fields form.Fields, ident service.Identity) (*models.Record, service.Outcome, error) {
	f.calls++
	f.gotFields = fields
	f.gotIdent = ident
	if f.errOnce != nil && f.calls == 1 {
		return nil, 0, f.errOnce
	}
	return f.record, f.outcome, f.err
}

type fakeLimiter struct {
	result ratelimit.Result
}

func (f *fakeLimiter) Allow(context.Context, string) ratelimit.Result {
	return f.result
}

func message(chatID, userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: userID, UserName: "somchai"},
	}
	return tgbotapi.Update{Message: msg}
}

func command(chatID, userID int64, cmd string) tgbotapi.Update {
	u := message(chatID, userID, "/"+cmd)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}}
	return u
}

func newDispatcher(t *testing.T, bot *fakeBot, recorder *fakeRecorder, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := New(bot, recorder, destinations.Default(), "https://promo.example.com", opts...)
	require.NoError(t, err)
	return d
}

func TestHandleUpdate_StartSendsWelcomeWithKeyboard(t *testing.T) {
	bot := &fakeBot{}
	d := newDispatcher(t, bot, &fakeRecorder{})

	d.HandleUpdate(context.Background(), command(10, 1, "start"))

	msg := bot.last(t)
	assert.Contains(t, msg.Text, "ยินดีต้อนรับ")
	assert.Contains(t, msg.Text, form.Template)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, msg.ReplyMarkup)
	assert.True(t, d.Awaiting(10))
}

func TestHandleUpdate_ValidFormConfirmsWithTrackedLinks(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{
		record: &models.Record{
			FullName:         "สมชาย ใจดี",
			PlatformUserID:   "42",
			MembershipStatus: models.MembershipInGroup,
		},
		outcome: service.OutcomeRecorded,
	}
	d := newDispatcher(t, bot, recorder)

	d.HandleUpdate(context.Background(), command(10, 42, "start"))
	d.HandleUpdate(context.Background(), message(10, 42, validForm))

	require.Equal(t, 1, recorder.calls)
	assert.Equal(t, "สมชาย ใจดี", recorder.gotFields[models.FieldFullName])
	assert.Equal(t, int64(42), recorder.gotIdent.UserID)
	assert.Equal(t, "somchai", recorder.gotIdent.Username)

	msg := bot.last(t)
	assert.Contains(t, msg.Text, "ขอบคุณ")
	assert.Contains(t, msg.Text, "อยู่ในกลุ่มแล้ว")

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	var urls []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			require.NotNil(t, btn.URL)
			urls = append(urls, *btn.URL)
		}
	}
	require.Len(t, urls, 5)
	assert.Equal(t, "https://promo.example.com/go?house=ZOMBIE_XO&uid=42", urls[0])
	assert.False(t, d.Awaiting(10), "conversation resets after confirmation")
}

func TestHandleUpdate_IncompleteFormReprompts(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{err: domainerrors.NewIncomplete("missing required fields", []string{"phone"})}
	d := newDispatcher(t, bot, recorder)

	blankPhone := strings.Replace(validForm, "เบอร์โทร: 0812345678", "เบอร์โทร: ", 1)
	d.HandleUpdate(context.Background(), command(10, 1, "start"))
	d.HandleUpdate(context.Background(), message(10, 1, blankPhone))

	assert.Equal(t, 1, recorder.calls, "same field mapping is not retried")
	msg := bot.last(t)
	assert.Contains(t, msg.Text, "ข้อมูลยังไม่ครบ")
	assert.Contains(t, msg.Text, form.Template)
	assert.True(t, d.Awaiting(10), "stays in collection state for the retry")
}

func TestHandleUpdate_WrongLineCountNeverReachesRecorder(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"extra line", validForm + "\nเบอร์โทร: 0899999999"},
		{"missing line", "ชื่อ นามสกุล: สมชาย\nอีเมล: a@b.co"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := &fakeBot{}
			recorder := &fakeRecorder{}
			d := newDispatcher(t, bot, recorder)

			d.HandleUpdate(context.Background(), command(10, 1, "start"))
			d.HandleUpdate(context.Background(), message(10, 1, tt.text))

			assert.Zero(t, recorder.calls, "wrong field line count is malformed, not a registration")
			msg := bot.last(t)
			assert.Contains(t, msg.Text, "รูปแบบไม่ถูกต้อง")
			assert.Contains(t, msg.Text, form.Template)
			assert.True(t, d.Awaiting(10))
		})
	}
}

func TestHandleUpdate_ReorderedFormRetriesWithLabels(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{
		errOnce: domainerrors.NewIncomplete("missing required fields", []string{"phone"}),
		record:  &models.Record{FullName: "สมชาย ใจดี", PlatformUserID: "42"},
		outcome: service.OutcomeRecorded,
	}
	d := newDispatcher(t, bot, recorder)

	lines := strings.Split(validForm, "\n")
	slices.Reverse(lines)
	d.HandleUpdate(context.Background(), message(10, 42, strings.Join(lines, "\n")))

	require.Equal(t, 2, recorder.calls, "rejected positional mapping retries with label matching")
	assert.Equal(t, "0812345678", recorder.gotFields[models.FieldPhone])
	assert.Equal(t, "สมชาย ใจดี", recorder.gotFields[models.FieldFullName])
	assert.Equal(t, "@somchai", recorder.gotFields[models.FieldChatHandle])
	assert.Contains(t, bot.last(t).Text, "ขอบคุณ")
}

func TestHandleUpdate_StoreFailureApologizes(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{err: domainerrors.New(domainerrors.CodeStoreWriteFailed, "append failed")}
	d := newDispatcher(t, bot, recorder)

	d.HandleUpdate(context.Background(), message(10, 1, validForm))

	assert.Contains(t, bot.last(t).Text, "ระบบขัดข้อง")
}

func TestHandleUpdate_RateLimited(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{}
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, RetryAfter: 30 * time.Second}}
	d := newDispatcher(t, bot, recorder, WithLimiter(limiter))

	d.HandleUpdate(context.Background(), message(10, 1, validForm))

	assert.Zero(t, recorder.calls, "limited submissions never reach the recorder")
	assert.Contains(t, bot.last(t).Text, "ถี่เกินไป")
}

func TestHandleUpdate_CancelResetsState(t *testing.T) {
	bot := &fakeBot{}
	d := newDispatcher(t, bot, &fakeRecorder{})

	d.HandleUpdate(context.Background(), command(10, 1, "start"))
	require.True(t, d.Awaiting(10))

	d.HandleUpdate(context.Background(), command(10, 1, "cancel"))
	assert.False(t, d.Awaiting(10))
	assert.Contains(t, bot.last(t).Text, "ยกเลิก")
}

func TestHandleUpdate_IdleChatterGetsWelcome(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{}
	d := newDispatcher(t, bot, recorder)

	d.HandleUpdate(context.Background(), message(10, 1, "สวัสดีครับ"))

	assert.Zero(t, recorder.calls)
	assert.Contains(t, bot.last(t).Text, "ยินดีต้อนรับ")
}

func TestHandleUpdate_PastedFormWithoutStartIsAccepted(t *testing.T) {
	bot := &fakeBot{}
	recorder := &fakeRecorder{
		record:  &models.Record{FullName: "สมชาย", PlatformUserID: "1"},
		outcome: service.OutcomeRecorded,
	}
	d := newDispatcher(t, bot, recorder)

	d.HandleUpdate(context.Background(), message(10, 1, validForm))

	assert.Equal(t, 1, recorder.calls)
}

func TestHandleUpdate_StartButtonRepromptsTemplate(t *testing.T) {
	bot := &fakeBot{}
	d := newDispatcher(t, bot, &fakeRecorder{})

	d.HandleUpdate(context.Background(), message(10, 1, startButtonText))

	assert.Contains(t, bot.last(t).Text, form.Template)
	assert.True(t, d.Awaiting(10))
}

func TestHandleUpdate_IgnoresNonMessageUpdates(t *testing.T) {
	bot := &fakeBot{}
	d := newDispatcher(t, bot, &fakeRecorder{})

	d.HandleUpdate(context.Background(), tgbotapi.Update{})
	assert.Empty(t, bot.sent)
}
