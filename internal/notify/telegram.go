package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v4"

	"github.com/mind-engage/testcheck/internal/exam"
)

const sendTimeout = 10 * time.Second

// Sender is the part of *telebot.Bot used for outbound messages.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Telegram sends examinees their score through the bot they submitted from.
type Telegram struct {
	bot Sender
}

// NewTelegram builds an offline bot: it only sends, it never polls for updates.
func NewTelegram(token string) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram: bot token required")
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: sendTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

func NewTelegramWithSender(s Sender) *Telegram { return &Telegram{bot: s} }

// NotifyScore sends the score message. It returns when ctx ends even if the
// Telegram API has not answered yet.
func (t *Telegram) NotifyScore(ctx context.Context, test exam.Test, r exam.Response) error {
	chatID, err := strconv.ParseInt(strings.TrimSpace(r.TelegramID), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram id %q is not numeric: %w", r.TelegramID, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(&telebot.User{ID: chatID}, ScoreMessage(test, r), &telebot.SendOptions{
			ParseMode: telebot.ModeHTML,
		})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

// ScoreMessage renders the result text sent to the examinee.
func ScoreMessage(test exam.Test, r exam.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s %s</b>, your answers to test <b>%s</b> were received.\n",
		html.EscapeString(r.FirstName), html.EscapeString(r.LastName), html.EscapeString(test.TestID))
	if subj := subjects(test); subj != "" {
		fmt.Fprintf(&b, "Subjects: %s\n", html.EscapeString(subj))
	}
	fmt.Fprintf(&b, "Score: <b>%.2f</b>", r.Score)
	return b.String()
}

func subjects(t exam.Test) string {
	var parts []string
	for _, s := range []string{t.Subject1, t.Subject2} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
