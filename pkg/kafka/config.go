package kafka

import (
	"time"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
	WriteTimeout time.Duration

	// MaxAttempts bounds delivery attempts per message; TopicMaxAttempts overrides it per topic
	MaxAttempts      int
	TopicMaxAttempts map[string]int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "transfer-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  10,
		// robot commands are sent once; a failure goes back to the operator
		TopicMaxAttempts: map[string]int{Topics.AMRCommands: 1},
	}
}

func (c *Config) maxAttempts(topic string) int {
	if n, ok := c.TopicMaxAttempts[topic]; ok {
		return n
	}
	return c.MaxAttempts
}

// Topics contains the Kafka topics this service writes to
var Topics = struct {
	TransferEvents string
	AMRCommands    string
}{
	TransferEvents: "wms.transfer.events",
	AMRCommands:    "wms.amr.commands",
}
