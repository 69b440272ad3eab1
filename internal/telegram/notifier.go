// Package telegram posts operator alerts about payments to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/resumegate/internal/events"
	"github.com/digkill/resumegate/internal/models"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func NewNotifier(api Sender, chatID int64, log *slog.Logger) *Notifier {
	return &Notifier{api: api, chatID: chatID, log: log}
}

const requestTimeout = 10 * time.Second

// Connect authenticates the bot token and returns a notifier for chatID. Every
// Bot API call is bounded by requestTimeout.
func Connect(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	return connect(token, tgbotapi.APIEndpoint, &http.Client{Timeout: requestTimeout}, chatID, log)
}

func connect(token, endpoint string, client tgbotapi.HTTPClient, chatID int64, log *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	if log != nil {
		log.Info("telegram notifier authorized", "bot", api.Self.UserName)
	}
	return NewNotifier(api, chatID, log), nil
}

// Publish implements events.Sink. Only payment events are forwarded.
func (n *Notifier) Publish(ctx context.Context, evt events.Event) error {
	if evt.Type != events.TypePaymentVerified {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, formatPayment(evt))
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatPayment(evt events.Event) string {
	var b strings.Builder
	b.WriteString("💳 Payment verified\n")
	if price, ok := models.Pricing[evt.PackageType]; ok {
		fmt.Fprintf(&b, "Package: %s (₹%d)\n", price.Label, price.AmountPaise/100)
	} else {
		fmt.Fprintf(&b, "Package: %s\n", evt.PackageType)
	}
	fmt.Fprintf(&b, "Payment: %s\n", evt.PaymentID)
	if evt.VerificationPath != "" {
		fmt.Fprintf(&b, "Verified via: %s\n", evt.VerificationPath)
	}
	fmt.Fprintf(&b, "Account: %s…\n", shortHash(evt.HashedID))
	fmt.Fprintf(&b, "Credits: %d", evt.Credits)
	return b.String()
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
