// Package telegram publishes notifications to Telegram chats through the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"memberwatch/internal/transport"
	logx "memberwatch/pkg/logx"
	"memberwatch/pkg/tgui"
)

var ErrNoToken = errors.New("telegram: bot token is empty")

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint. Empty uses the telebot default.
	APIURL string
}

// Publisher implements transport.Publisher for telegram:// targets.
type Publisher struct {
	bot *tele.Bot
	log logx.Logger
}

// New builds an offline bot: no getMe round trip and no poller, the bot is
// only used to send and delete messages.
func New(cfg Config, client *http.Client, log logx.Logger) (*Publisher, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrNoToken
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSuffix(strings.TrimSpace(cfg.APIURL), "/"),
		Token:   token,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	return &Publisher{bot: b, log: log}, nil
}

func (p *Publisher) Post(ctx context.Context, to transport.Target, n transport.Notification) (string, error) {
	if to.Kind != transport.KindTelegram || to.ChatID == 0 {
		return "", fmt.Errorf("%w: not a telegram chat", transport.ErrInvalidTarget)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              to.ThreadID,
	}
	msg, err := p.bot.Send(&tele.Chat{ID: to.ChatID}, Render(n), opts)
	if err != nil {
		return "", fmt.Errorf("telegram: send to %s: %w", to, err)
	}
	if msg == nil || msg.ID == 0 {
		return "", transport.ErrEmptyResponse
	}
	id := strconv.Itoa(msg.ID)
	p.log.Debug("telegram message posted", logx.String("target", to.String()), logx.String("message_id", id))
	return id, nil
}

func (p *Publisher) Delete(ctx context.Context, to transport.Target, messageID string) error {
	if to.Kind != transport.KindTelegram || to.ChatID == 0 {
		return fmt.Errorf("%w: not a telegram chat", transport.ErrInvalidTarget)
	}
	messageID = strings.TrimSpace(messageID)
	if _, err := strconv.Atoi(messageID); err != nil {
		return fmt.Errorf("telegram: message id %q: %w", messageID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.bot.Delete(&tele.StoredMessage{MessageID: messageID, ChatID: to.ChatID})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", transport.ErrNotFound, messageID)
		}
		return fmt.Errorf("telegram: delete on %s: %w", to, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, tele.ErrNotFoundToDelete) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "message to delete not found")
}

// descRunes leaves room for the title and fields under tgui.MaxMessageRunes.
const descRunes = tgui.MaxMessageRunes - 512

// Render formats a notification as Telegram HTML.
func Render(n transport.Notification) string {
	var title tgui.H
	if t := strings.TrimSpace(n.Title); t != "" {
		title = tgui.B(t)
	}
	head := tgui.Lines(title, tgui.Esc(tgui.TruncRunes(strings.TrimSpace(n.Description), descRunes)))

	fields := make([]tgui.H, 0, len(n.Fields))
	for _, f := range n.Fields {
		fields = append(fields, tgui.B(f.Name+":")+" "+tgui.Esc(f.Value))
	}
	body := tgui.Lines(fields...)

	switch {
	case head == "":
		return body.String()
	case body == "":
		return head.String()
	default:
		return head.String() + "\n\n" + body.String()
	}
}
