package utils

import (
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kswpuk/portal-api/config"
)

// AllocationsWriter publishes allocation-change events; set by InitializeKafka.
// Nil when Kafka is not configured, in which case dispatch falls back to
// logging only (allocation writes never fail because of notification fan-out).
var AllocationsWriter *kafka.Writer

// InitializeKafka sets up the shared writer for the allocations topic
func InitializeKafka(cfg *config.Config) {
	if cfg.KafkaBrokers == "" {
		log.Println("⚠️ KAFKA_BROKERS not set - allocation notifications disabled")
		return
	}

	AllocationsWriter = &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
		Topic:        cfg.KafkaAllocationsTopic,
		Balancer:     &kafka.Hash{}, // keep one member's events on one partition
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}

	log.Printf("✅ Kafka writer ready (topic %s)", cfg.KafkaAllocationsTopic)
}

// NewAllocationsReader builds a consumer-group reader for the allocations topic
func NewAllocationsReader(cfg *config.Config, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.KafkaBrokers, ","),
		GroupID:        groupID,
		Topic:          cfg.KafkaAllocationsTopic,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		CommitInterval: time.Second,
	})
}

// CloseKafka flushes and closes the shared writer
func CloseKafka() {
	if AllocationsWriter != nil {
		if err := AllocationsWriter.Close(); err != nil {
			log.Printf("⚠️ Failed to close Kafka writer: %v", err)
		}
	}
}
