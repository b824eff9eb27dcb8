package notification

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"

	"github.com/kswpuk/portal-api/utils"
)

// FCMChannel delivers push notifications through Firebase Cloud Messaging.
// Recipients are device tokens from the device_tokens table.
type FCMChannel struct{}

func NewFCMChannel() Channel {
	return &FCMChannel{}
}

func (f *FCMChannel) Send(recipients []string, subject, body string) error {
	client := utils.GetFCMClient()
	if client == nil {
		return fmt.Errorf("FCM client not initialized")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no FCM tokens provided")
	}

	ctx := context.Background()

	if len(recipients) == 1 {
		message := &messaging.Message{
			Token: recipients[0],
			Notification: &messaging.Notification{
				Title: subject,
				Body:  body,
			},
		}
		_, err := client.Send(ctx, message)
		return err
	}

	message := &messaging.MulticastMessage{
		Tokens: recipients,
		Notification: &messaging.Notification{
			Title: subject,
			Body:  body,
		},
	}

	response, err := client.SendEachForMulticast(ctx, message)
	if err != nil {
		return err
	}
	if response.FailureCount > 0 {
		log.Printf("⚠️ FCM delivered %d/%d push notifications", response.SuccessCount, len(recipients))
	}
	return nil
}
