package main

import "time"

// Update je částečná aktualizace jedné skupiny senzorů.
// Každá skupina má vlastní typ, takže do snapshotu nelze zapsat pole, které skupina nezná.
type Update interface {
	Group() GroupID
	applyTo(s *Snapshot)
}

// --- single layout ---

type WeatherField int

const (
	FieldTemperature WeatherField = iota
	FieldHumidity
	FieldPressure
	FieldAirQuality
	FieldLightLevel
	FieldLightning
)

type WeatherUpdate struct {
	Field WeatherField
	Value float64
}

func (u WeatherUpdate) Group() GroupID { return GroupWeather }

func (u WeatherUpdate) applyTo(s *Snapshot) {
	v := f64(u.Value)
	switch u.Field {
	case FieldTemperature:
		s.Weather.Temperature = v
	case FieldHumidity:
		s.Weather.Humidity = v
	case FieldPressure:
		s.Weather.Pressure = v
	case FieldAirQuality:
		s.Weather.AirQuality = v
	case FieldLightLevel:
		s.Weather.LightLevel = v
	case FieldLightning:
		s.Weather.Lightning = v
	}
}

// --- ENS160 ---

type ComboField int

const (
	ComboAQI ComboField = iota
	ComboTVOC
	ComboECO2
	ComboTemperatureF
)

var comboFields = map[string]ComboField{
	"aqi":          ComboAQI,
	"tvoc":         ComboTVOC,
	"eco2":         ComboECO2,
	"temperatureF": ComboTemperatureF,
}

type ComboUpdate struct {
	Field ComboField
	Value float64
}

// NewComboUpdate sestaví aktualizaci ENS160 podle posledního segmentu topicu.
func NewComboUpdate(measurement string, payload []byte) (Update, error) {
	field, ok := comboFields[measurement]
	if !ok {
		return nil, unknownMeasurement(GroupCombo, measurement)
	}
	v, err := parseReading(payload)
	if err != nil {
		return nil, err
	}
	return ComboUpdate{Field: field, Value: v}, nil
}

func (u ComboUpdate) Group() GroupID { return GroupCombo }

func (u ComboUpdate) applyTo(s *Snapshot) {
	v := f64(u.Value)
	switch u.Field {
	case ComboAQI:
		s.Combo.AQI = v
	case ComboTVOC:
		s.Combo.TVOC = v
	case ComboECO2:
		s.Combo.ECO2 = v
	case ComboTemperatureF:
		s.Combo.TemperatureF = v
	}
}

// --- BME280 ---

type BME280Field int

const (
	BME280Humidity BME280Field = iota
	BME280Pressure
	BME280Altitude
)

var bme280Fields = map[string]BME280Field{
	"humidity": BME280Humidity,
	"pressure": BME280Pressure,
	"altitude": BME280Altitude,
}

type BME280Update struct {
	Field BME280Field
	Value float64
}

func NewBME280Update(measurement string, payload []byte) (Update, error) {
	field, ok := bme280Fields[measurement]
	if !ok {
		return nil, unknownMeasurement(GroupBME280, measurement)
	}
	v, err := parseReading(payload)
	if err != nil {
		return nil, err
	}
	return BME280Update{Field: field, Value: v}, nil
}

func (u BME280Update) Group() GroupID { return GroupBME280 }

func (u BME280Update) applyTo(s *Snapshot) {
	v := f64(u.Value)
	switch u.Field {
	case BME280Humidity:
		s.BME280.Humidity = v
	case BME280Pressure:
		s.BME280.Pressure = v
	case BME280Altitude:
		s.BME280.Altitude = v
	}
}

// --- BME680 ---

type BME680Field int

const (
	BME680Temperature BME680Field = iota
	BME680TemperatureF
	BME680Pressure
	BME680Humidity
	BME680DewPoint
	BME680Gas
	BME680Altitude
)

// Firmware stanice posílá teplotu i rosný bod pod dvěma různými jmény,
// teplotu navíc i ve stupních Fahrenheita.
var bme680Fields = map[string]BME680Field{
	"temperature":  BME680Temperature,
	"temperatureC": BME680Temperature,
	"temperatureF": BME680TemperatureF,
	"pressure":     BME680Pressure,
	"humidity":     BME680Humidity,
	"dewpoint":     BME680DewPoint,
	"dew_point_c":  BME680DewPoint,
	"gas":          BME680Gas,
	"altitude":     BME680Altitude,
}

type BME680Update struct {
	Field BME680Field
	Value float64
}

func NewBME680Update(measurement string, payload []byte) (Update, error) {
	field, ok := bme680Fields[measurement]
	if !ok {
		return nil, unknownMeasurement(GroupBME680, measurement)
	}
	v, err := parseReading(payload)
	if err != nil {
		return nil, err
	}
	return BME680Update{Field: field, Value: v}, nil
}

func (u BME680Update) Group() GroupID { return GroupBME680 }

func (u BME680Update) applyTo(s *Snapshot) {
	v := f64(u.Value)
	switch u.Field {
	case BME680Temperature:
		s.BME680.Temperature = v
	case BME680TemperatureF:
		s.BME680.TemperatureF = v
	case BME680Pressure:
		s.BME680.Pressure = v
	case BME680Humidity:
		s.BME680.Humidity = v
	case BME680DewPoint:
		s.BME680.DewPointC = v
	case BME680Gas:
		s.BME680.Gas = v
	case BME680Altitude:
		s.BME680.Altitude = v
	}
}

// --- světlo ---

type LightField int

const (
	LightVisibleIR LightField = iota
	LightInfrared
)

var lightFields = map[string]LightField{
	"visible_ir": LightVisibleIR,
	"infrared":   LightInfrared,
}

type LightUpdate struct {
	Field LightField
	Value float64
}

func NewLightUpdate(measurement string, payload []byte) (Update, error) {
	field, ok := lightFields[measurement]
	if !ok {
		return nil, unknownMeasurement(GroupLight, measurement)
	}
	v, err := parseReading(payload)
	if err != nil {
		return nil, err
	}
	return LightUpdate{Field: field, Value: v}, nil
}

func (u LightUpdate) Group() GroupID { return GroupLight }

func (u LightUpdate) applyTo(s *Snapshot) {
	v := f64(u.Value)
	switch u.Field {
	case LightVisibleIR:
		s.Light.VisibleIR = v
	case LightInfrared:
		s.Light.Infrared = v
	}
}

// --- blesky ---

// StrikeSentinel je hodnota příznaku, která znamená zaznamenaný úder.
const StrikeSentinel = "1"

type LightningDistanceUpdate struct {
	Value float64
}

func (u LightningDistanceUpdate) Group() GroupID { return GroupLightning }

func (u LightningDistanceUpdate) applyTo(s *Snapshot) {
	s.Lightning.Distance = f64(u.Value)
}

// StrikeUpdate nese surový příznak úderu a čas příchodu zprávy.
// Jakákoliv hodnota kromě "1" znamená "bez úderu": příznak se uloží, značka času zůstane.
type StrikeUpdate struct {
	Flag string
	At   time.Time
}

func (u StrikeUpdate) IsStrike() bool { return u.Flag == StrikeSentinel }

func (u StrikeUpdate) Group() GroupID { return GroupLightning }

func (u StrikeUpdate) applyTo(s *Snapshot) {
	flag := u.Flag
	s.Lightning.Strike = &flag
	if u.IsStrike() {
		at := u.At
		s.LastStrike = &at
	}
}

// NewLightningUpdate rozlišuje číselnou vzdálenost a textový příznak úderu.
func NewLightningUpdate(measurement string, payload []byte, at time.Time) (Update, error) {
	switch measurement {
	case "distance":
		v, err := parseReading(payload)
		if err != nil {
			return nil, err
		}
		return LightningDistanceUpdate{Value: v}, nil
	case "strike":
		return StrikeUpdate{Flag: string(payload), At: at}, nil
	}
	return nil, unknownMeasurement(GroupLightning, measurement)
}

// --- souhrn ---

// SummaryUpdate nahrazuje celý záznam souhrnu, nic se neslučuje.
type SummaryUpdate struct {
	Data SummaryData
}

func (u SummaryUpdate) Group() GroupID { return GroupSummary }

func (u SummaryUpdate) applyTo(s *Snapshot) {
	s.Summary = u.Data
}
