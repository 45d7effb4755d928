package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/warblehq/warble/internal/bus"
	"github.com/warblehq/warble/internal/config"
)

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// Notifier pushes engine events to the operator's Telegram chat. It only
// sends; it never polls for updates.
type Notifier struct {
	token      string
	chatID     int64
	bot        TelegramBot
	botFactory BotFactory
	cancel     context.CancelFunc
}

func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	return NewNotifierWithFactory(cfg, defaultBotFactory)
}

// NewNotifierWithFactory creates a Notifier with a custom bot factory (for testing)
func NewNotifierWithFactory(cfg config.TelegramConfig, factory BotFactory) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	return &Notifier{
		token:      cfg.Token,
		chatID:     cfg.ChatID,
		botFactory: factory,
	}, nil
}

// Start authorizes the bot and consumes events until the context ends.
func (n *Notifier) Start(ctx context.Context, events <-chan bus.Event) error {
	if n.bot == nil {
		bot, err := n.botFactory(n.token, tgbotapi.APIEndpoint, http.DefaultClient)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		n.bot = bot
		log.Printf("[notify] authorized as @%s", bot.GetSelf().UserName)
	}

	ctx, n.cancel = context.WithCancel(ctx)
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				n.handle(ev)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	log.Printf("[notify] stopped")
}

func (n *Notifier) handle(ev bus.Event) {
	text := formatEvent(ev)
	if text == "" {
		return
	}
	if err := n.send(text); err != nil {
		log.Printf("[notify] send failed: %v", err)
	}
}

// SetBot sets the bot (for testing)
func (n *Notifier) SetBot(bot TelegramBot) {
	n.bot = bot
}

func (n *Notifier) send(text string) error {
	if n.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	// Telegram has a 4096 char limit per message
	const maxLen = 4000
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			idx := strings.LastIndex(chunk[:maxLen], "\n")
			if idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:maxLen]
			}
		}
		text = text[len(chunk):]

		msg := tgbotapi.NewMessage(n.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := n.bot.Send(msg); err != nil {
			// Retry without HTML parse mode
			msg.ParseMode = ""
			if _, err2 := n.bot.Send(msg); err2 != nil {
				return fmt.Errorf("send telegram message: %w", err2)
			}
		}
	}
	return nil
}

func formatEvent(ev bus.Event) string {
	switch ev.Type {
	case bus.EventSessionDone:
		s := ev.Session
		if s == nil {
			return ""
		}
		var b strings.Builder
		switch {
		case s.Err != "":
			fmt.Fprintf(&b, "❌ <b>%s</b> %s failed: %s", escapeHTML(s.ProfileID), s.Action, escapeHTML(s.Err))
		case s.Outcome == "no-action":
			fmt.Fprintf(&b, "⏭ <b>%s</b> %s: no usable post found", escapeHTML(s.ProfileID), s.Action)
		default:
			fmt.Fprintf(&b, "✅ <b>%s</b> %s (%s)", escapeHTML(s.ProfileID), s.Action, s.Outcome)
		}
		if s.PostRef != "" {
			fmt.Fprintf(&b, "\n%s", escapeHTML(s.PostRef))
		}
		if s.CommentText != "" {
			fmt.Fprintf(&b, "\n<i>%s</i>", escapeHTML(s.CommentText))
		}
		if s.Duration > 0 {
			fmt.Fprintf(&b, "\ntook %s", s.Duration.Round(time.Second))
		}
		return b.String()
	case bus.EventAlerts:
		a := ev.Alerts
		if a == nil || a.Added == 0 {
			return ""
		}
		return fmt.Sprintf("🔔 %d new keyword match(es), %d total\nkeywords: %s",
			a.Added, a.Total, escapeHTML(strings.Join(a.Keywords, ", ")))
	case bus.EventSchedule:
		sc := ev.Schedule
		if sc == nil {
			return ""
		}
		return fmt.Sprintf("📅 new schedule: %d sessions across %d profiles, expires %s",
			sc.Sessions, sc.Profiles, sc.ExpiresAt.Format("15:04 Jan 2"))
	}
	return ""
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
