package main

// threshold je jedna hranice stupnice a popisek pro hodnoty pod ní.
type threshold struct {
	limit float64
	label string
}

// scale je vzestupná stupnice. inclusive určuje, zda hodnota rovná hranici
// ještě patří pod ni (<=) nebo už nad ni (<).
type scale struct {
	steps     []threshold
	inclusive bool
	worst     string
}

func (s scale) classify(v float64) string {
	for _, t := range s.steps {
		if v < t.limit || (s.inclusive && v == t.limit) {
			return t.label
		}
	}
	return s.worst
}

// Index kvality vzduchu (US EPA AQI).
var airQualityScale = scale{
	steps: []threshold{
		{50, "Good"},
		{100, "Moderate"},
		{150, "Unhealthy for Sensitive Groups"},
		{200, "Unhealthy"},
		{300, "Very Unhealthy"},
	},
	inclusive: true,
	worst:     "Hazardous",
}

// Intenzita osvětlení v luxech.
var lightScale = scale{
	steps: []threshold{
		{50, "Dark"},
		{1000, "Indoor Light"},
		{10000, "Overcast"},
		{30000, "Daylight"},
	},
	inclusive: false,
	worst:     "Direct Sunlight",
}

func ClassifyAirQuality(v float64) string { return airQualityScale.classify(v) }

func ClassifyLight(v float64) string { return lightScale.classify(v) }
