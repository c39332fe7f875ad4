// Package events publishes wallet session lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "events").Logger()
}

// Type is the kind of session change.
type Type string

const (
	WalletConnected    Type = "wallet_connected"
	WalletDisconnected Type = "wallet_disconnected"
	// WalletResynced means a restored session was replaced by the one the provider reports now.
	WalletResynced Type = "wallet_resynced"
	// WalletExpired means a restored session was dropped because the provider no longer knows it.
	WalletExpired Type = "wallet_expired"
)

// Event describes one change of the session store.
type Event struct {
	Type       Type      `json:"type"`
	WalletID   string    `json:"wallet_id"`
	ProviderID string    `json:"provider_id"`
	ChainID    string    `json:"chain_id"`
	Address    string    `json:"address"`
	PreviousID string    `json:"previous_id,omitempty"`
	Time       time.Time `json:"time"`
}

// NewEvent builds an event for a connection.
func NewEvent(typ Type, w models.WalletConnection) Event {
	return Event{
		Type:       typ,
		WalletID:   w.Key(),
		ProviderID: w.ProviderID,
		ChainID:    w.Network.ChainID,
		Address:    w.Account.Address,
		Time:       time.Now().UTC(),
	}
}

// Publisher delivers events. Failures are reported but never undo the change they describe.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher logs through the package logger.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event", string(e.Type)).
		Str("wallet", e.WalletID).
		Str("provider", e.ProviderID).
		Str("chain", e.ChainID).
		Str("previous", e.PreviousID).
		Msg("session event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON, keyed by wallet id so one wallet's events stay ordered.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter configures a writer for the topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
	}
}

// NewKafkaPublisher wraps a writer, usually one from NewKafkaWriter.
func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.WalletID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("event", string(e.Type)).Str("wallet", e.WalletID).Msg("kafka publish failed")
		return fmt.Errorf("failed to publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
