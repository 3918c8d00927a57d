package notify

import (
	"context"
	"fmt"
	"html"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
)

// Dispatcher builds domain notices and hands them to a Notifier.
type Dispatcher struct {
	notifier Notifier
	appURL   string
	log      *logrus.Entry
}

// NewDispatcher creates a Dispatcher. appURL is the web client's base URL,
// used for invitation links.
func NewDispatcher(n Notifier, appURL string) *Dispatcher {
	return &Dispatcher{notifier: n, appURL: appURL, log: logger.WithComponent("notify")}
}

// InviteLink is the link an invitee follows to record a video.
func (d *Dispatcher) InviteLink(r *models.ContentRequest, inv *models.Invitee) string {
	return fmt.Sprintf("%s/invite/%s?invitee=%s", d.appURL, url.PathEscape(r.InviteToken), url.QueryEscape(inv.InviteToken))
}

// SendInvitations notifies every invitee. A failure for one invitee is
// logged and does not stop the others. Returns the receipts that succeeded.
func (d *Dispatcher) SendInvitations(ctx context.Context, r *models.ContentRequest, creator *models.User, invitees []models.Invitee) []Receipt {
	from := "Someone"
	if creator != nil {
		from = creator.Name
	}

	var receipts []Receipt
	for i := range invitees {
		inv := &invitees[i]
		msg := Message{
			To:      inv.Email,
			Kind:    KindInvitation,
			Subject: fmt.Sprintf("%s invited you to record: %s", from, r.Title),
			Body: fmt.Sprintf(`<p>Hi %s,</p><p>%s asked you to record a %s.</p><p>%s</p><p><a href="%s">Start recording</a></p>`,
				html.EscapeString(inv.Name), html.EscapeString(from), html.EscapeString(r.Type.Display()),
				html.EscapeString(r.Description), d.InviteLink(r, inv)),
		}

		receipt, err := d.notifier.Send(ctx, msg)
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"request_id": r.ID,
				"invitee_id": inv.ID,
			}).Warn("⚠️  Failed to send invitation")
			continue
		}
		receipts = append(receipts, *receipt)
	}

	d.log.WithField("request_id", r.ID).Infof("📨 Sent %d/%d invitations", len(receipts), len(invitees))
	return receipts
}

// NotifySubmission tells the creator that an invitee submitted a video.
func (d *Dispatcher) NotifySubmission(ctx context.Context, creator *models.User, r *models.ContentRequest, inv *models.Invitee, v *models.Video) (*Receipt, error) {
	msg := Message{
		To:      creator.Email,
		Kind:    KindSubmission,
		Subject: fmt.Sprintf("New submission for %s", r.Title),
		Body: fmt.Sprintf(`<p>%s submitted "%s" for your request "%s".</p><p>Completion is now %.2f%%.</p>`,
			html.EscapeString(inv.Name), html.EscapeString(v.Title), html.EscapeString(r.Title), r.CompletionPercentage),
	}
	receipt, err := d.notifier.Send(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("notify creator: %w", err)
	}
	return receipt, nil
}
