package main

import "time"

// GroupID je název skupiny senzorů tak, jak přichází v prostředním segmentu topicu
// (weather/<group>/<measurement>).
type GroupID string

const (
	GroupWeather   GroupID = "weather" // plochý model single layoutu
	GroupCombo     GroupID = "ens160"
	GroupBME280    GroupID = "bme280"
	GroupBME680    GroupID = "bme680"
	GroupLight     GroupID = "light"
	GroupLightning GroupID = "lightning"
	GroupSummary   GroupID = "summary"
)

// Status je stav spojení s brokerem. Mění ho jen události transportu, nikdy obsah zpráv.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// StatusInfo je stav spojení i s poslední chybou (pokud nějaká nastala).
type StatusInfo struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Message je jedna zpráva doručená z brokeru.
type Message struct {
	Topic   string
	Payload []byte
}

// --- ZÁZNAMY SKUPIN ---
// Všechny hodnoty jsou pointery: nil znamená "ještě nepřišlo", ne nulu.

// WeatherData je plochý model single-metric dashboardu.
type WeatherData struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	AirQuality  *float64 `json:"air_quality"`
	LightLevel  *float64 `json:"light_level"`
	Lightning   *float64 `json:"lightning"`
}

// ComboData pochází ze senzoru ENS160 (kvalita vzduchu).
type ComboData struct {
	AQI          *float64 `json:"aqi"`
	TVOC         *float64 `json:"tvoc"`
	ECO2         *float64 `json:"eco2"`
	TemperatureF *float64 `json:"temperatureF"`
}

type BME280Data struct {
	Humidity *float64 `json:"humidity"`
	Pressure *float64 `json:"pressure"`
	Altitude *float64 `json:"altitude"`
}

type BME680Data struct {
	Temperature  *float64 `json:"temperature"`
	TemperatureF *float64 `json:"temperatureF"`
	Pressure     *float64 `json:"pressure"`
	Humidity     *float64 `json:"humidity"`
	DewPointC    *float64 `json:"dew_point_c"`
	Gas          *float64 `json:"gas"`
	Altitude     *float64 `json:"altitude"`
}

type LightData struct {
	VisibleIR *float64 `json:"visible_ir"`
	Infrared  *float64 `json:"infrared"`
}

// LightningData drží vzdálenost bouřky a poslední hodnotu příznaku úderu.
// Strike je uložen tak, jak přišel ("1", "0", ...), neparsuje se na číslo.
type LightningData struct {
	Distance *float64 `json:"distance"`
	Strike   *string  `json:"strike"`
}

// SummaryData je souhrnná JSON zpráva z topicu <root>/summary.
type SummaryData struct {
	TemperatureF      *float64 `json:"temperatureF"`
	Humidity          *float64 `json:"humidity"`
	Pressure          *float64 `json:"pressure"`
	TVOC              *float64 `json:"tvoc"`
	ECO2              *float64 `json:"eco2"`
	AQI               *float64 `json:"aqi"`
	LightLevel        *float64 `json:"light_level"`
	LightningDistance *float64 `json:"lightning_distance"`
}

// Snapshot je poslední známý stav všech sledovaných metrik (Display Snapshot).
//
// Pointery uvnitř se nikdy nemění na místě, každá aktualizace alokuje novou hodnotu.
// Mělká kopie struktury je proto bezpečná pro čtenáře mimo zámek.
type Snapshot struct {
	Weather   WeatherData   `json:"weather"`
	Combo     ComboData     `json:"ens160"`
	BME280    BME280Data    `json:"bme280"`
	BME680    BME680Data    `json:"bme680"`
	Light     LightData     `json:"light"`
	Lightning LightningData `json:"lightning"`
	Summary   SummaryData   `json:"summary"`

	// LastStrike je značka posledního úderu blesku (strike == "1").
	LastStrike *time.Time `json:"last_strike"`

	// UpdatedAt je čas příchodu poslední aplikované zprávy.
	UpdatedAt *time.Time `json:"updated_at"`
}

// lightningRecord je záznam bleskové skupiny doplněný o značku posledního úderu.
type lightningRecord struct {
	LightningData
	LastStrike *time.Time `json:"last_strike"`
}

// Group vrací záznam jedné skupiny (pro zrcadlení do Valkey).
func (s Snapshot) Group(g GroupID) (any, bool) {
	switch g {
	case GroupWeather:
		return s.Weather, true
	case GroupCombo:
		return s.Combo, true
	case GroupBME280:
		return s.BME280, true
	case GroupBME680:
		return s.BME680, true
	case GroupLight:
		return s.Light, true
	case GroupLightning:
		return lightningRecord{LightningData: s.Lightning, LastStrike: s.LastStrike}, true
	case GroupSummary:
		return s.Summary, true
	}
	return nil, false
}

func f64(v float64) *float64 { return &v }
