package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var testTime = time.Date(2025, 4, 12, 14, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// fakeSession nahrazuje MQTT relaci. deliver simuluje zprávu od brokeru.
type fakeSession struct {
	mu           sync.Mutex
	filters      []string
	onMessage    func(topic string, payload []byte)
	closed       bool
	published    []Message
	subscribeErr error
}

// Subscribe si callback uloží i při chybě: broker mohl část filtrů přijmout.
func (s *fakeSession) Subscribe(filters []string, onMessage func(topic string, payload []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = onMessage
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.filters = append([]string(nil), filters...)
	return nil
}

func (s *fakeSession) Publish(topic string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, Message{Topic: topic, Payload: payload})
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) deliver(topic, payload string) {
	s.mu.Lock()
	on := s.onMessage
	s.mu.Unlock()
	if on != nil {
		on(topic, []byte(payload))
	}
}

type fakeDialer struct {
	mu           sync.Mutex
	sessions     []*fakeSession
	hooks        []SessionHooks
	configs      []BrokerConfig
	err          error
	subscribeErr error
}

func (d *fakeDialer) Dial(_ context.Context, cfg BrokerConfig, hooks SessionHooks) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs = append(d.configs, cfg)
	if d.err != nil {
		return nil, d.err
	}
	s := &fakeSession{subscribeErr: d.subscribeErr}
	d.sessions = append(d.sessions, s)
	d.hooks = append(d.hooks, hooks)
	return s, nil
}

func (d *fakeDialer) last() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

// fail nastaví chybu pro všechna další Dial volání.
func (d *fakeDialer) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.configs)
}

func (d *fakeDialer) lastHooks() SessionHooks {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hooks[len(d.hooks)-1]
}

// open vrací relace, které nejsou zavřené.
func (d *fakeDialer) open() []*fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*fakeSession
	for _, s := range d.sessions {
		if !s.isClosed() {
			out = append(out, s)
		}
	}
	return out
}

func mustLayout(t *testing.T, name string) Layout {
	t.Helper()
	l, err := NewLayout(name, "weather")
	if err != nil {
		t.Fatalf("NewLayout(%q): %v", name, err)
	}
	return l
}

// newTestDashboard sestaví dashboard nad falešným dialerem s pevnými hodinami.
func newTestDashboard(t *testing.T, layoutName string) (*Dashboard, *fakeDialer) {
	t.Helper()
	layout := mustLayout(t, layoutName)
	dialer := &fakeDialer{}
	logger := discardLogger()
	transport := NewTransport(dialer, BrokerConfig{URL: "tcp://broker:1883", ClientID: "test"}, layout.Topics(), logger)
	dash := NewDashboard(layout, transport, NewStore(), newTestMetrics(), time.UTC, logger)
	dash.now = func() time.Time { return testTime }
	t.Cleanup(dash.Close)
	return dash, dialer
}
