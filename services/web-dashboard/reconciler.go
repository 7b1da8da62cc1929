package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownTopic: topic nemá očekávaný tvar nebo ho žádná skupina nezná.
	ErrUnknownTopic = errors.New("neznámý topic")

	// ErrMalformedPayload: payload nejde převést na hodnotu daného kanálu.
	ErrMalformedPayload = errors.New("neplatný payload")
)

func unknownMeasurement(g GroupID, measurement string) error {
	return fmt.Errorf("%w: skupina %s nezná veličinu %q", ErrUnknownTopic, g, measurement)
}

// parseReading převede textový payload (např. "24.5") na číslo.
// NaN a nekonečna odmítáme, na kartě by nedávaly smysl.
func parseReading(payload []byte) (float64, error) {
	raw := strings.TrimSpace(string(payload))
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: hodnota '%s' není platné číslo", ErrMalformedPayload, raw)
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, fmt.Errorf("%w: hodnota '%s' není konečné číslo", ErrMalformedPayload, raw)
	}
	return val, nil
}

// decodeSummary přečte souhrnný JSON objekt. Chybějící klíče zůstanou nil.
func decodeSummary(payload []byte) (Update, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: souhrn musí být JSON objekt", ErrMalformedPayload)
	}
	var data SummaryData
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return SummaryUpdate{Data: data}, nil
}

// Reconciler převádí příchozí zprávy na aktualizace snapshotu.
// Chybná zpráva se jen zaloguje a zahodí, ostatní pole zůstanou netknutá.
type Reconciler struct {
	layout  Layout
	store   *Store
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewReconciler(layout Layout, store *Store, metrics *Metrics, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		layout:  layout,
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleMessage je handler, který se registruje u transportu.
func (r *Reconciler) HandleMessage(msg Message) {
	at := r.now()

	update, err := r.layout.Decode(msg.Topic, msg.Payload, at)
	if err != nil {
		r.logger.Warn("Zpráva zahozena", "topic", msg.Topic, "důvod", err)
		r.metrics.MessageDropped()
		return
	}

	if su, ok := update.(StrikeUpdate); ok && !su.IsStrike() && su.Flag != "0" {
		r.logger.Debug("Neočekávaný příznak úderu, beru jako bez úderu", "flag", su.Flag)
	}

	r.store.Apply(update, at)
	r.metrics.MessageApplied()
	r.logger.Debug("Zpráva aplikována", "topic", msg.Topic, "group", update.Group())
}
