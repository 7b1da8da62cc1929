package main

import (
	"fmt"
)

// publisher je cokoliv, co umí poslat zprávu do MQTT bez čekání (Transport).
type publisher interface {
	Publish(topic string, payload []byte)
}

// MqttLogWriter implementuje rozhraní io.Writer.
// Vše, co se do něj zapíše, se odešle do MQTT na logs/<služba>.
// Když transport není připojen, řádek se tiše zahodí (stdout ho má i tak).
type MqttLogWriter struct {
	pub   publisher
	topic string
}

func NewMqttLogWriter(pub publisher, serviceName string) *MqttLogWriter {
	return &MqttLogWriter{
		pub:   pub,
		topic: fmt.Sprintf("logs/%s", serviceName),
	}
}

// Write volá slog pro každý záznam.
func (w *MqttLogWriter) Write(p []byte) (n int, err error) {
	// Payload musíme zkopírovat, protože 'p' handler po návratu znovu použije.
	payload := make([]byte, len(p))
	copy(payload, p)

	w.pub.Publish(w.topic, payload)
	return len(p), nil
}
