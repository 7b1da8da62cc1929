package main

import (
	"strconv"
	"time"
)

// Placeholder se zobrazí místo hodnoty, která ještě nepřišla.
const Placeholder = "N/A"

const (
	clockFormat     = "15:04:05"
	timestampFormat = "2006-01-02 15:04:05"
)

// Row je jeden řádek karty. Hodnota je už naformátovaný text.
type Row struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
}

type Card struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// View je vše, co šablona nebo WebSocket klient potřebuje k vykreslení.
type View struct {
	Title       string `json:"title"`
	Layout      string `json:"layout"`
	Status      Status `json:"status"`
	StatusText  string `json:"status_text"`
	Error       string `json:"error,omitempty"`
	Clock       string `json:"clock"`
	LastUpdated string `json:"last_updated"`
	LastStrike  string `json:"last_strike"`
	Cards       []Card `json:"cards"`
}

// Render je čistá funkce: stejný vstup dá vždy stejný View.
func Render(layout Layout, snap Snapshot, status StatusInfo, now time.Time, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}
	return View{
		Title:       "Weather Station Dashboard",
		Layout:      layout.Name(),
		Status:      status.Status,
		StatusText:  statusText(status.Status),
		Error:       status.Error,
		Clock:       now.In(loc).Format(clockFormat),
		LastUpdated: formatTime(snap.UpdatedAt, loc),
		LastStrike:  formatTime(snap.LastStrike, loc),
		Cards:       layout.Cards(snap, loc),
	}
}

func statusText(s Status) string {
	switch s {
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	}
	return "Disconnected"
}

// formatValue: decimals < 0 znamená nejkratší přesný zápis.
func formatValue(v *float64, decimals int) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func formatText(v *string) string {
	if v == nil {
		return Placeholder
	}
	return *v
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return Placeholder
	}
	return t.In(loc).Format(timestampFormat)
}

// describe vrací slovní zařazení hodnoty; bez hodnoty nic.
func describe(v *float64, classify func(float64) string) string {
	if v == nil {
		return ""
	}
	return classify(*v)
}

func metric(label string, v *float64, decimals int, unit string) Row {
	return Row{Label: label, Value: formatValue(v, decimals), Unit: unit}
}

func airQualityRow(label string, v *float64) Row {
	r := metric(label, v, 0, "AQI")
	r.Description = describe(v, ClassifyAirQuality)
	return r
}

func lightRow(label string, v *float64) Row {
	r := metric(label, v, 0, "lux")
	r.Description = describe(v, ClassifyLight)
	return r
}

// Cards pro single layout: jedna karta na metriku.
func (l *singleLayout) Cards(s Snapshot, _ *time.Location) []Card {
	w := s.Weather
	one := func(r Row) Card { return Card{Title: r.Label, Rows: []Row{r}} }

	return []Card{
		one(metric("Temperature", w.Temperature, 1, "°C")),
		one(metric("Humidity", w.Humidity, 1, "%")),
		one(metric("Air Pressure", w.Pressure, 0, "hPa")),
		one(metric("Lightning Strikes", w.Lightning, -1, "strikes/min")),
		one(airQualityRow("Air Quality", w.AirQuality)),
		one(lightRow("Light Level", w.LightLevel)),
	}
}

// Cards pro multi layout: jedna karta na senzor plus souhrn.
func (l *multiLayout) Cards(s Snapshot, loc *time.Location) []Card {
	return []Card{
		{Title: "Air Quality (ENS160)", Rows: []Row{
			airQualityRow("Air Quality Index", s.Combo.AQI),
			metric("Total VOC", s.Combo.TVOC, 0, "ppb"),
			metric("CO2 Concentration", s.Combo.ECO2, 0, "ppm"),
			metric("Temperature", s.Combo.TemperatureF, 1, "°F"),
		}},
		{Title: "Atmosphere (BME280)", Rows: []Row{
			metric("Humidity", s.BME280.Humidity, 1, "%"),
			metric("Pressure", s.BME280.Pressure, 1, "hPa"),
			metric("Altitude", s.BME280.Altitude, 1, "m"),
		}},
		{Title: "Environment (BME680)", Rows: []Row{
			metric("Temperature (°F)", s.BME680.TemperatureF, 1, "°F"),
			metric("Temperature (°C)", s.BME680.Temperature, 1, "°C"),
			metric("Pressure", s.BME680.Pressure, 1, "hPa"),
			metric("Humidity", s.BME680.Humidity, 1, "%"),
			metric("Dewpoint", s.BME680.DewPointC, 1, "°C"),
			metric("Gas", s.BME680.Gas, 2, "kΩ"),
			metric("Altitude", s.BME680.Altitude, 1, "m"),
		}},
		{Title: "Light", Rows: []Row{
			lightRow("Visible + IR", s.Light.VisibleIR),
			metric("Infrared", s.Light.Infrared, 0, "lux"),
		}},
		{Title: "Lightning", Rows: []Row{
			metric("Distance", s.Lightning.Distance, 1, "km"),
			{Label: "Strike", Value: formatText(s.Lightning.Strike)},
			{Label: "Last Strike", Value: formatTime(s.LastStrike, loc)},
		}},
		{Title: "Summary", Rows: []Row{
			metric("Temperature", s.Summary.TemperatureF, 1, "°F"),
			metric("Humidity", s.Summary.Humidity, 1, "%"),
			metric("Pressure", s.Summary.Pressure, 1, "hPa"),
			metric("Total VOC", s.Summary.TVOC, 0, "ppb"),
			metric("CO2 Concentration", s.Summary.ECO2, 0, "ppm"),
			airQualityRow("Air Quality Index", s.Summary.AQI),
			lightRow("Light Level", s.Summary.LightLevel),
			metric("Lightning Distance", s.Summary.LightningDistance, 1, "km"),
		}},
	}
}
