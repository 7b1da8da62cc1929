package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	msgs []Message
}

func (p *recordingPublisher) Publish(topic string, payload []byte) {
	p.msgs = append(p.msgs, Message{Topic: topic, Payload: payload})
}

func TestMqttLogWriter_PublishesCopy(t *testing.T) {
	pub := &recordingPublisher{}
	w := NewMqttLogWriter(pub, "web-dashboard")

	buf := []byte(`{"msg":"one"}`)
	n, err := w.Write(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	copy(buf, "XXXX")

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "logs/web-dashboard", pub.msgs[0].Topic)
	assert.Equal(t, `{"msg":"one"}`, string(pub.msgs[0].Payload))
}

func TestMqttLogWriter_ThroughTransport(t *testing.T) {
	dialer := &fakeDialer{}
	tr := newTestTransport(dialer)
	logger := slog.New(slog.NewJSONHandler(NewMqttLogWriter(tr, "web-dashboard"), nil))

	// Bez relace se záznam zahodí.
	logger.Info("před připojením")

	require.NoError(t, tr.Connect(context.Background()))
	logger.Info("po připojení", "layout", "multi")

	published := dialer.last().published
	require.Len(t, published, 1)
	assert.Equal(t, "logs/web-dashboard", published[0].Topic)
	assert.Contains(t, string(published[0].Payload), `"msg":"po připojení"`)
}
