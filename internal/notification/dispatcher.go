package notification

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kswpuk/portal-api/utils"
)

// Dispatcher publishes allocation changes to the allocations topic. Sending
// is best-effort: a failed publish is logged and the allocation write that
// triggered it stands.
type Dispatcher struct {
	writer *kafka.Writer
}

func NewDispatcher(writer *kafka.Writer) *Dispatcher {
	return &Dispatcher{writer: writer}
}

// Dispatch publishes one allocation change, keyed by membership number so a
// member's notifications stay ordered.
func (d *Dispatcher) Dispatch(ctx context.Context, membershipNumber, combinedEventID, newState string) {
	if d.writer == nil {
		log.Printf("⚠️ Kafka not configured, dropping allocation notification for %s on %s", membershipNumber, combinedEventID)
		return
	}

	message := AllocationMessage{
		MessageID:        uuid.NewString(),
		MembershipNumber: membershipNumber,
		CombinedEventID:  combinedEventID,
		Allocation:       newState,
		Timestamp:        time.Now().UTC(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Unable to marshal allocation notification for %s on %s: %v", membershipNumber, combinedEventID, err)
		return
	}

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(membershipNumber),
		Value: payload,
	})
	if err != nil {
		log.Printf("❌ Unable to publish allocation notification for %s on %s: %v", membershipNumber, combinedEventID, err)
		return
	}

	log.Printf("📧 Queued %s notification for %s on %s", newState, membershipNumber, combinedEventID)
}

// NewDefaultDispatcher wires the dispatcher to the shared allocations writer
func NewDefaultDispatcher() *Dispatcher {
	return NewDispatcher(utils.AllocationsWriter)
}
