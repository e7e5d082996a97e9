package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sudo-simon/amazon-scraper-bot/internal/models"

	"gopkg.in/gomail.v2"
)

type Consumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error
}

// Mailer consumes digest events from the queue and delivers them by mail.
type Mailer struct {
	log    *slog.Logger
	dialer *gomail.Dialer
	from   string
	to     string
}

func New(log *slog.Logger, host string, port int, user, password, from, to string) *Mailer {
	return &Mailer{
		log:    log,
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		to:     to,
	}
}

// Run starts consuming digest events until ctx is cancelled.
func (m *Mailer) Run(ctx context.Context, consumer Consumer) error {
	return consumer.Consume(ctx, m.handleMessage)
}

func (m *Mailer) handleMessage(_ context.Context, body []byte) error {
	const op = "mailer.handleMessage"

	var event models.DigestEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%s: invalid message format: %w", op, err)
	}

	if event.Digest == "" {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", fmt.Sprintf("Watchlist updates for user %d", event.UserID))
	msg.SetBody("text/plain", event.Digest)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.log.Info("digest mail sent", slog.Int64("user_id", event.UserID))

	return nil
}
