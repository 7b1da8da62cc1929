package main

import (
	"fmt"
	"strings"
	"time"
)

const (
	LayoutSingle = "single"
	LayoutMulti  = "multi"
)

// Layout popisuje jednu variantu dashboardu: jaké topicy odebírá,
// jak z nich dekóduje aktualizace a jak vypadají karty.
type Layout interface {
	Name() string
	Topics() []string
	Decode(topic string, payload []byte, at time.Time) (Update, error)
	Cards(s Snapshot, loc *time.Location) []Card
}

// NewLayout vybere variantu podle konfigurace.
func NewLayout(name, root string) (Layout, error) {
	root = strings.Trim(root, "/")
	if root == "" {
		return nil, fmt.Errorf("prázdný kořen topiců")
	}
	switch name {
	case LayoutSingle:
		return newSingleLayout(root), nil
	case LayoutMulti:
		return &multiLayout{root: root}, nil
	}
	return nil, fmt.Errorf("neznámý layout %q (povoleno: %s, %s)", name, LayoutSingle, LayoutMulti)
}

// --- single-metric ---

type singleLayout struct {
	root   string
	topics []string
	fields map[string]WeatherField
}

func newSingleLayout(root string) *singleLayout {
	channels := []struct {
		name  string
		field WeatherField
	}{
		{"temperature", FieldTemperature},
		{"humidity", FieldHumidity},
		{"pressure", FieldPressure},
		{"air-quality", FieldAirQuality},
		{"light-level", FieldLightLevel},
		{"lightning", FieldLightning},
	}

	l := &singleLayout{root: root, fields: make(map[string]WeatherField, len(channels))}
	for _, ch := range channels {
		topic := root + "/" + ch.name
		l.topics = append(l.topics, topic)
		l.fields[topic] = ch.field
	}
	return l
}

func (l *singleLayout) Name() string { return LayoutSingle }

func (l *singleLayout) Topics() []string {
	return append([]string(nil), l.topics...)
}

func (l *singleLayout) Decode(topic string, payload []byte, _ time.Time) (Update, error) {
	field, ok := l.fields[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	v, err := parseReading(payload)
	if err != nil {
		return nil, err
	}
	return WeatherUpdate{Field: field, Value: v}, nil
}

// --- multi-sensor ---

type multiLayout struct {
	root string
}

// groupOrder určuje pořadí odběrů i karet.
var groupOrder = []GroupID{GroupCombo, GroupBME280, GroupBME680, GroupLight, GroupLightning}

func (l *multiLayout) Name() string { return LayoutMulti }

func (l *multiLayout) Topics() []string {
	topics := make([]string, 0, len(groupOrder)+1)
	for _, g := range groupOrder {
		topics = append(topics, fmt.Sprintf("%s/%s/+", l.root, g))
	}
	return append(topics, fmt.Sprintf("%s/%s", l.root, GroupSummary))
}

// Decode: topic je buď <root>/summary, nebo <root>/<group>/<measurement>.
func (l *multiLayout) Decode(topic string, payload []byte, at time.Time) (Update, error) {
	rest, ok := strings.CutPrefix(topic, l.root+"/")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		if GroupID(parts[0]) == GroupSummary {
			return decodeSummary(payload)
		}
	case 2:
		group, measurement := GroupID(parts[0]), parts[1]
		switch group {
		case GroupCombo:
			return NewComboUpdate(measurement, payload)
		case GroupBME280:
			return NewBME280Update(measurement, payload)
		case GroupBME680:
			return NewBME680Update(measurement, payload)
		case GroupLight:
			return NewLightUpdate(measurement, payload)
		case GroupLightning:
			return NewLightningUpdate(measurement, payload, at)
		}
		return nil, fmt.Errorf("%w: neznámá skupina %q", ErrUnknownTopic, group)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}
