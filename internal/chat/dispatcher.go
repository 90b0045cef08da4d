// Package chat drives the Telegram conversation: welcome, form collection,
// and the confirmation message carrying tracked destination links.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promoreg/internal/ratelimit"
	"promoreg/internal/registration/form"
	"promoreg/internal/registration/metrics"
	"promoreg/internal/registration/models"
	"promoreg/internal/registration/service"
	"promoreg/internal/tracking/destinations"
	domainerrors "promoreg/pkg/domain-errors"
)

const startButtonText = "เริ่มต้นส่งข้อมูล ✅"

// Recorder accepts a parsed submission.
type Recorder interface {
	Register(ctx context.Context, fields form.Fields, ident service.Identity) (*models.Record, service.Outcome, error)
}

// Limiter throttles inbound submissions per user.
type Limiter interface {
	Allow(ctx context.Context, key string) ratelimit.Result
}

// sender is the slice of the Telegram bot API the dispatcher needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Dispatcher routes Telegram updates through the registration pipeline.
type Dispatcher struct {
	bot      sender
	recorder Recorder
	limiter  Limiter
	dests    destinations.Map
	baseURL  string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	mu       sync.Mutex
	awaiting map[int64]bool // chat id -> expecting a form submission
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLimiter attaches a submission rate limiter.
func WithLimiter(limiter Limiter) Option {
	return func(d *Dispatcher) { d.limiter = limiter }
}

// WithMetrics shares the registration metrics set so parse fallbacks are
// counted at the intake surface.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithHandleTimeout bounds the processing of a single update.
func WithHandleTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// New constructs a Dispatcher. baseURL is the public origin prepended to the
// tracked /go links in the confirmation keyboard.
func New(bot sender, recorder Recorder, dests destinations.Map, baseURL string, opts ...Option) (*Dispatcher, error) {
	if bot == nil {
		return nil, fmt.Errorf("bot is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	d := &Dispatcher{
		bot:      bot,
		recorder: recorder,
		dests:    dests,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   slog.Default(),
		timeout:  30 * time.Second,
		awaiting: make(map[int64]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Run consumes the update channel until ctx is cancelled. Each update is
// handled on its own goroutine so one slow store write cannot stall the
// whole conversation surface.
func (d *Dispatcher) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go func() {
				handleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
				defer cancel()
				d.HandleUpdate(handleCtx, update)
			}()
		}
	}
}

// HandleUpdate processes one Telegram update.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		d.setAwaiting(chatID, true)
		d.sendWelcome(ctx, chatID)
	case msg.IsCommand() && msg.Command() == "cancel":
		d.setAwaiting(chatID, false)
		d.reply(ctx, chatID, "❌ ยกเลิกการยืนยันตัวตนแล้ว")
	case msg.IsCommand():
		// Unknown commands restart the conversation.
		d.setAwaiting(chatID, true)
		d.sendWelcome(ctx, chatID)
	case msg.Text == startButtonText:
		d.setAwaiting(chatID, true)
		d.reply(ctx, chatID, "📌 กรุณาส่งข้อมูลตามแบบฟอร์มนี้:\n\n"+form.Template)
	default:
		// Outside the collection state, plain chatter gets the welcome;
		// anything shaped like a form is processed anyway so a user who
		// pastes the form without /start is not turned away.
		if !d.Awaiting(chatID) && !looksLikeForm(msg.Text) {
			d.setAwaiting(chatID, true)
			d.sendWelcome(ctx, chatID)
			return
		}
		d.handleSubmission(ctx, msg)
	}
}

func looksLikeForm(text string) bool {
	return strings.Contains(text, ":") && strings.Contains(text, "\n")
}

// inputRejected reports whether the recorder refused the submission because
// of what the user typed, as opposed to a backend failure.
func inputRejected(err error) bool {
	return domainerrors.HasCode(err, domainerrors.CodeIncomplete) ||
		domainerrors.HasCode(err, domainerrors.CodeMalformedInput)
}

func (d *Dispatcher) sendReprompt(ctx context.Context, chatID int64) {
	d.setAwaiting(chatID, true)
	d.reply(ctx, chatID,
		"❗ ข้อมูลยังไม่ครบหรือรูปแบบไม่ถูกต้อง\n"+
			"กรุณาตรวจสอบให้แน่ใจว่าได้กรอกครบทุกบรรทัดตามตัวอย่างที่ระบุไว้\n\n"+
			"เช่น:\n"+form.Template)
}

func (d *Dispatcher) handleSubmission(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	user := msg.From

	if d.limiter != nil {
		result := d.limiter.Allow(ctx, strconv.FormatInt(user.ID, 10))
		if !result.Allowed {
			wait := int(result.RetryAfter.Seconds()) + 1
			d.reply(ctx, chatID, fmt.Sprintf(
				"⏳ ส่งข้อมูลถี่เกินไป กรุณารอ %d วินาทีแล้วลองใหม่อีกครั้ง", wait))
			return
		}
	}

	// Positional parsing is canonical: a submission whose colon-bearing line
	// count differs from the template is malformed and never reaches the
	// recorder.
	fields, err := form.ParsePositional(msg.Text)
	if err != nil {
		if d.metrics != nil {
			d.metrics.ParseFailures.Inc()
		}
		d.sendReprompt(ctx, chatID)
		return
	}
	form.EnrichEmail(fields)

	ident := service.Identity{UserID: user.ID, Username: user.UserName}
	record, outcome, err := d.recorder.Register(ctx, fields, ident)
	if err != nil && inputRejected(err) {
		// Reordered lines parse positionally into the wrong fields. The line
		// count already checked out, so retry once with label matching.
		labeled := form.ParseLabeled(msg.Text)
		form.EnrichEmail(labeled)
		if len(labeled) == len(models.FieldOrder) && !maps.Equal(labeled, fields) {
			record, outcome, err = d.recorder.Register(ctx, labeled, ident)
		}
	}
	if err != nil {
		if inputRejected(err) {
			d.sendReprompt(ctx, chatID)
			return
		}
		d.logger.ErrorContext(ctx, "registration failed",
			"user_id", user.ID,
			"error", err,
		)
		d.reply(ctx, chatID, "⚠️ ระบบขัดข้องชั่วคราว กรุณาลองใหม่อีกครั้งในภายหลัง")
		return
	}

	d.setAwaiting(chatID, false)
	d.logger.InfoContext(ctx, "registration handled",
		"user_id", user.ID,
		"outcome", outcome.String(),
	)
	d.sendConfirmation(ctx, chatID, record)
}

func (d *Dispatcher) sendWelcome(ctx context.Context, chatID int64) {
	text := "🎉 ยินดีต้อนรับเข้าสู่ระบบยืนยันตัวตน ZOMBIE SLOT - กิจกรรม\n\n" +
		"📌 กรุณาส่งข้อมูลทั้งหมดในรูปแบบข้อความ เช่น:\n\n" +
		form.Template

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(startButtonText)),
	)
	d.send(ctx, reply)
}

func (d *Dispatcher) sendConfirmation(ctx context.Context, chatID int64, record *models.Record) {
	text := fmt.Sprintf(
		"✅ ขอบคุณ 🙏🏻 %s สำหรับการยืนยันตัวตน\n"+
			"สถานะ: %s\n\n"+
			"👑 *ขั้นตอนถัดไป:*\n"+
			"1️⃣ แคปหน้าจอข้อความนี้\n"+
			"2️⃣ แอดไลน์เพื่อแจ้งแอดมิน\n"+
			"⚠️ *สิทธิเครดิตฟรีจะได้รับเฉพาะผู้ที่ทำตามขั้นตอนครบเท่านั้น*",
		record.FullName, membershipText(record.MembershipStatus))

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyMarkup = d.destinationKeyboard(record.PlatformUserID)
	d.send(ctx, reply)
}

// destinationKeyboard lays out the tracked destination links two per row.
// Links route through /go so the selection is recorded before the redirect.
func (d *Dispatcher) destinationKeyboard(userID string) tgbotapi.InlineKeyboardMarkup {
	all := d.dests.All()
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, (len(all)+1)/2)
	for i := 0; i < len(all); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{d.destinationButton(all[i], userID)}
		if i+1 < len(all) {
			row = append(row, d.destinationButton(all[i+1], userID))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (d *Dispatcher) destinationButton(dest destinations.Destination, userID string) tgbotapi.InlineKeyboardButton {
	url := fmt.Sprintf("%s/go?house=%s&uid=%s", d.baseURL, dest.Code, userID)
	return tgbotapi.NewInlineKeyboardButtonURL(dest.Label, url)
}

func membershipText(status models.MembershipStatus) string {
	switch status {
	case models.MembershipInGroup:
		return "✅ อยู่ในกลุ่มแล้ว"
	case models.MembershipNotInGroup:
		return "❌ ยังไม่ได้เข้ากลุ่ม"
	default:
		return "⚠️ ไม่สามารถตรวจสอบสถานะได้"
	}
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	d.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (d *Dispatcher) send(ctx context.Context, msg tgbotapi.MessageConfig) {
	if _, err := d.bot.Send(msg); err != nil {
		d.logger.ErrorContext(ctx, "failed to send telegram message",
			"chat_id", msg.ChatID,
			"error", err,
		)
	}
}

func (d *Dispatcher) setAwaiting(chatID int64, awaiting bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if awaiting {
		d.awaiting[chatID] = true
	} else {
		delete(d.awaiting, chatID)
	}
}

// Awaiting reports whether chatID is in the form-collection state.
func (d *Dispatcher) Awaiting(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.awaiting[chatID]
}
