package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet/gateway/events"
	"github.com/Cogwheel-Validator/spectra-wallet/gateway/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var pion = models.Network{ChainID: "pion-1"}

func TestNewEvent(t *testing.T) {
	w := models.NewWalletConnection("keplr", "Keplr", pion, models.WalletAccount{Address: "neutron1a"}, "")
	e := NewEvent(WalletConnected, w)
	assert.Equal(t, e.WalletID, "keplr-pion-1-neutron1a")
	assert.Equal(t, e.ProviderID, "keplr")
	assert.Equal(t, e.ChainID, "pion-1")
	assert.Equal(t, e.Address, "neutron1a")
	assert.False(t, e.Time.IsZero())
}

func TestKafkaPublisher(t *testing.T) {
	writer := &fakeWriter{}
	p := NewKafkaPublisher(writer)
	w := models.NewWalletConnection("leap", "Leap", pion, models.WalletAccount{Address: "neutron1b"}, "")

	require.NoError(t, p.Publish(context.Background(), NewEvent(WalletDisconnected, w)))
	require.Equal(t, 1, len(writer.msgs))

	msg := writer.msgs[0]
	assert.Equal(t, string(msg.Key), w.ID)
	assert.Equal(t, string(msg.Headers[0].Value), string(WalletDisconnected))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, decoded.Type, WalletDisconnected)
	assert.Equal(t, decoded.WalletID, w.ID)

	assert.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{err: errors.New("leader not available")})
	err := p.Publish(context.Background(), Event{Type: WalletConnected, WalletID: "x"})
	assert.Error(t, err)
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher()
	assert.NoError(t, p.Publish(context.Background(), Event{Type: WalletExpired, WalletID: "x"}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "wallet-sessions")
	assert.Equal(t, w.Topic, "wallet-sessions")
	assert.Equal(t, w.RequiredAcks, kafka.RequireAll)
}
