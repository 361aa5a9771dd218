// Package events publishes verification outcomes to downstream consumers.
package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	TypeVerificationCompleted = "verification.completed"
	TypeVerificationApproved  = "verification.approved"
	TypeVerificationRejected  = "verification.rejected"
	TypeVerificationRetried   = "verification.retried"
	TypeKycSubmitted          = "kyc.submitted"
	TypeKycReviewed           = "kyc.reviewed"
)

type VerificationEvent struct {
	Type       string    `json:"type"`
	DriverID   uint      `json:"driver_id"`
	AttemptID  uint      `json:"attempt_id,omitempty"`
	Status     string    `json:"status"`
	Score      *float64  `json:"score,omitempty"`
	ActorID    *uint     `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event VerificationEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, VerificationEvent) error { return nil }

// Fanout delivers to every publisher and returns the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event VerificationEvent) error {
	var first error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic, username, password string) *KafkaPublisher {
	var transport *kafka.Transport
	if username != "" {
		transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: username, Password: password},
			TLS:  &tls.Config{},
		}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	if transport != nil {
		w.Transport = transport
	}
	return &KafkaPublisher{writer: w}
}

// Publish keys messages by driver id so one driver's events stay ordered on a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event VerificationEvent) error {
	if p == nil || p.writer == nil {
		logger.Warn("Kafka publisher not ready, skipping event", map[string]interface{}{
			"type": event.Type,
		})
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.DriverID), 10)),
		Value: value,
		Time:  event.OccurredAt,
	}); err != nil {
		logger.Error("Failed to publish verification event", err, map[string]interface{}{
			"type":      event.Type,
			"driver_id": event.DriverID,
		})
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
