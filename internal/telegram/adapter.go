// Package telegram is the send-only Telegram implementation of the
// delivery Messenger, built on telebot. The bot never polls for updates;
// it only pushes insight messages to one configured chat.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"insightbot/internal/delivery"
	"insightbot/pkg/logx"
)

type Config struct {
	Token     string
	ChatID    int64
	ParseMode string
	Timeout   time.Duration

	// LinkPreview toggles Telegram link previews on text messages.
	LinkPreview bool
}

type Adapter struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

// New validates the token against the Telegram API (getMe). Failures here
// happen before the batch loop starts and are treated as setup errors.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	log.Debug("telegram bot authorized", logx.String("username", b.Me.Username))
	return &Adapter{cfg: cfg, bot: b, log: log}, nil
}

func (a *Adapter) SendText(ctx context.Context, text string) (delivery.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return delivery.MessageRef{}, err
	}
	msg, err := a.bot.Send(a.chat(), text, &tele.SendOptions{
		ParseMode:             a.cfg.ParseMode,
		DisableWebPagePreview: !a.cfg.LinkPreview,
	})
	if err != nil {
		return delivery.MessageRef{}, err
	}
	return ref(msg), nil
}

func (a *Adapter) SendPhotoURL(ctx context.Context, photoURL, caption string) (delivery.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return delivery.MessageRef{}, err
	}
	photo := &tele.Photo{File: tele.FromURL(photoURL), Caption: caption}
	msg, err := a.bot.Send(a.chat(), photo, &tele.SendOptions{ParseMode: a.cfg.ParseMode})
	if err != nil {
		return delivery.MessageRef{}, err
	}
	return ref(msg), nil
}

func (a *Adapter) SendPhotoData(ctx context.Context, data []byte, caption string) (delivery.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return delivery.MessageRef{}, err
	}
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(data)), Caption: caption}
	msg, err := a.bot.Send(a.chat(), photo, &tele.SendOptions{ParseMode: a.cfg.ParseMode})
	if err != nil {
		return delivery.MessageRef{}, err
	}
	return ref(msg), nil
}

func (a *Adapter) chat() *tele.Chat { return &tele.Chat{ID: a.cfg.ChatID} }

func ref(m *tele.Message) delivery.MessageRef {
	if m == nil {
		return delivery.MessageRef{}
	}
	return delivery.MessageRef{MessageID: m.ID, ChatID: m.Chat.ID}
}

// telebot calls are not context-aware; checking before each send at least
// keeps cancelled runs from starting new network calls.
func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
