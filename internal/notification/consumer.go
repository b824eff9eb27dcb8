package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kswpuk/portal-api/internal/auditlog"
	"github.com/kswpuk/portal-api/internal/events"
	"github.com/kswpuk/portal-api/internal/member"
	"github.com/kswpuk/portal-api/utils"
)

// dedupeTTL keeps replayed messages suppressed for long enough to cover any
// realistic redelivery window.
const dedupeTTL = 24 * time.Hour

// Consumer drains the allocations topic and fans each message out to the
// member over email and push.
type Consumer struct {
	reader     *kafka.Reader
	repo       Repository
	members    member.Lookup
	eventsRepo events.Store
	email      Channel
	push       Channel
	audit      auditlog.Service
}

func NewConsumer(reader *kafka.Reader, repo Repository, members member.Lookup, eventsRepo events.Store, email, push Channel, audit auditlog.Service) *Consumer {
	return &Consumer{
		reader:     reader,
		repo:       repo,
		members:    members,
		eventsRepo: eventsRepo,
		email:      email,
		push:       push,
		audit:      audit,
	}
}

// Run consumes until the context is cancelled. Messages are committed after
// processing; a processing failure leaves the message uncommitted for
// redelivery, and the dedupe key stops a processed message from being sent
// twice when only the commit was lost.
func (c *Consumer) Run(ctx context.Context) {
	if c.reader == nil {
		log.Println("⚠️ Kafka not configured, allocation notification consumer not started")
		return
	}

	log.Println("📨 Allocation notification consumer started")

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("Allocation notification consumer stopped")
				return
			}
			log.Printf("❌ Unable to fetch allocation message: %v", err)
			continue
		}

		var payload AllocationMessage
		if err := json.Unmarshal(message.Value, &payload); err != nil {
			log.Printf("⚠️ Skipping malformed allocation message: %v", err)
			c.commit(ctx, message)
			continue
		}

		fresh, err := utils.AcquireLock(ctx, "portal:notify:"+payload.MessageID, dedupeTTL)
		if err != nil {
			log.Printf("⚠️ Dedupe check failed for %s, sending anyway: %v", payload.MessageID, err)
		} else if !fresh {
			log.Printf("Duplicate allocation message %s - skipping", payload.MessageID)
			c.commit(ctx, message)
			continue
		}

		if err := c.process(ctx, payload); err != nil {
			log.Printf("❌ Unable to process allocation notification for %s on %s: %v",
				payload.MembershipNumber, payload.CombinedEventID, err)
			// Allow redelivery to retry
			utils.ReleaseLock(ctx, "portal:notify:"+payload.MessageID)
			continue
		}

		c.commit(ctx, message)
	}
}

func (c *Consumer) process(ctx context.Context, payload AllocationMessage) error {
	text, ok := allocationTexts[payload.Allocation]
	if !ok {
		log.Printf("New allocation status is %s - notification will not be sent", payload.Allocation)
		return nil
	}

	m, err := c.members.GetByMembershipNumber(ctx, payload.MembershipNumber)
	if err != nil {
		return fmt.Errorf("member lookup: %w", err)
	}

	eventName := payload.CombinedEventID
	if seriesID, _, ok := strings.Cut(payload.CombinedEventID, "/"); ok {
		if series, err := c.eventsRepo.GetSeries(ctx, seriesID); err == nil {
			eventName = series.Name
		}
	}

	firstName := m.PreferredName
	if firstName == "" {
		firstName = m.FirstName
	}

	subject, body := renderAllocationEmail(firstName, eventName, text)

	c.deliver(ctx, payload, "email", []string{m.Email}, subject, body, c.email)

	tokens, err := c.repo.GetDeviceTokens(ctx, payload.MembershipNumber)
	if err != nil {
		log.Printf("⚠️ Unable to load device tokens for %s: %v", payload.MembershipNumber, err)
	} else if len(tokens) > 0 {
		c.deliver(ctx, payload, "push", tokens, fmt.Sprintf("%s: %s", eventName, text.Title), text.Body, c.push)
	}

	if c.audit != nil {
		target := payload.CombinedEventID
		err := c.audit.LogAction(ctx, nil, &target, auditlog.ActionNotificationSent,
			map[string]interface{}{
				"membershipNumber": payload.MembershipNumber,
				"allocation":       payload.Allocation,
			}, "", "success")
		if err != nil {
			log.Printf("⚠️ Failed to write audit log for notification: %v", err)
		}
	}

	log.Printf("✅ Finished sending allocation notification for %s on %s",
		payload.MembershipNumber, payload.CombinedEventID)
	return nil
}

// deliver sends over one channel and records the outcome. Channel failures
// are logged, never fatal: notification is best-effort.
func (c *Consumer) deliver(ctx context.Context, payload AllocationMessage, channel string, recipients []string, subject, body string, ch Channel) {
	entry := &NotificationLog{
		MembershipNumber: payload.MembershipNumber,
		CombinedEventID:  payload.CombinedEventID,
		Allocation:       payload.Allocation,
		Channel:          channel,
		Status:           "sent",
	}

	if err := ch.Send(recipients, subject, body); err != nil {
		log.Printf("❌ Unable to send %s notification to %s for %s: %v",
			channel, payload.MembershipNumber, payload.CombinedEventID, err)
		entry.Status = "failed"
		entry.Error = err.Error()
	}

	if err := c.repo.LogNotification(ctx, entry); err != nil {
		log.Printf("⚠️ Unable to record %s notification for %s: %v", channel, payload.MembershipNumber, err)
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		log.Printf("⚠️ Unable to commit allocation message: %v", err)
	}
}
