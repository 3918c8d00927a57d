// Package notify delivers invitation and submission notices to people.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
)

// Message kinds.
const (
	KindInvitation = "invitation"
	KindSubmission = "submission"
)

// Message is one notice for one recipient.
type Message struct {
	To      string
	Subject string
	Body    string // HTML
	Kind    string
}

// Receipt acknowledges a sent message.
type Receipt struct {
	To     string    `json:"to"`
	Kind   string    `json:"kind"`
	SentAt time.Time `json:"sent_at"`
}

// Notifier sends a message.
type Notifier interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// LogNotifier only logs messages. It is used when no SMTP host is set.
type LogNotifier struct {
	log *logrus.Entry
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("notify")}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	n.log.WithFields(logrus.Fields{
		"to":   msg.To,
		"kind": msg.Kind,
	}).Infof("📧 %s", msg.Subject)
	return &Receipt{To: msg.To, Kind: msg.Kind, SentAt: time.Now().UTC()}, nil
}

// SMTPNotifier sends messages as HTML email through an SMTP server.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPNotifier creates an SMTPNotifier.
func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return nil, fmt.Errorf("send %s to %s: %w", msg.Kind, msg.To, err)
	}
	return &Receipt{To: msg.To, Kind: msg.Kind, SentAt: time.Now().UTC()}, nil
}
