package notification

import (
	"fmt"

	"github.com/kswpuk/portal-api/config"
	"github.com/kswpuk/portal-api/utils"
)

// Channel delivers a rendered notification to a list of recipients
type Channel interface {
	Send(recipients []string, subject, body string) error
}

// EmailChannel delivers notifications over SMTP with the events team as the
// reply-to address.
type EmailChannel struct {
	replyTo string
}

func NewEmailChannel(cfg *config.Config) Channel {
	return &EmailChannel{replyTo: cfg.EventsEmail}
}

func (e *EmailChannel) Send(recipients []string, subject, body string) error {
	var firstErr error
	for _, recipient := range recipients {
		if err := utils.SendEmail(recipient, e.replyTo, subject, body); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send to %s: %w", recipient, err)
		}
	}
	return firstErr
}

// renderAllocationEmail builds the member-facing allocation email
func renderAllocationEmail(firstName, eventName string, text allocationText) (subject, body string) {
	subject = fmt.Sprintf("%s: %s", eventName, text.Title)
	body = fmt.Sprintf(`Hi %s,

Event: %s
Status: %s

%s

If you have any questions about this event, please reply to this e-mail.

The KSWP Portal`, firstName, eventName, text.Title, text.Body)
	return subject, body
}
