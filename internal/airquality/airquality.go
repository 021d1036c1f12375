// Package airquality classifies pollutant concentrations into the five
// OpenWeather air quality index bands and renders the report text. Pure
// functions, no I/O.
package airquality

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pogodabot/weatherbot/internal/weather"
)

// band is a half-open concentration range [Low, High); the last band of
// every pollutant is open-ended above Low.
type band struct {
	Low  float64
	High float64
}

var inf = math.Inf(1)

// bands holds the per-pollutant concentration ranges for severity levels
// 1..5, in µg/m³.
var bands = map[string][5]band{
	"so2":   {{0, 20}, {20, 80}, {80, 250}, {250, 350}, {350, inf}},
	"no2":   {{0, 40}, {40, 70}, {70, 150}, {150, 200}, {200, inf}},
	"pm10":  {{0, 20}, {20, 50}, {50, 100}, {100, 200}, {200, inf}},
	"pm2_5": {{0, 10}, {10, 25}, {25, 50}, {50, 75}, {75, inf}},
	"o3":    {{0, 60}, {60, 100}, {100, 140}, {140, 180}, {180, inf}},
	"co":    {{0, 4400}, {4400, 9400}, {9400, 12400}, {12400, 15400}, {15400, inf}},
}

// pollutantOrder fixes report ordering; map iteration must not leak into the
// output.
var pollutantOrder = []string{"so2", "no2", "pm10", "pm2_5", "o3", "co"}

var pollutantNames = map[string]string{
	"so2":   "SO₂",
	"no2":   "NO₂",
	"pm10":  "PM₁₀",
	"pm2_5": "PM₂.₅",
	"o3":    "O₃",
	"co":    "CO",
}

var levelNames = [6]string{"", "Good", "Fair", "Moderate", "Poor", "Very Poor"}
var levelNamesRU = [6]string{"", "Хорошо", "Удовлетворительно", "Умеренное", "Плохое", "Очень плохое"}

// LevelNameRU returns the Russian label for a severity level 1..5.
func LevelNameRU(level int) string {
	if level < 1 || level > 5 {
		return ""
	}
	return levelNamesRU[level]
}

// PollutantReading is one classified pollutant in an extended report.
type PollutantReading struct {
	Code     string  `json:"code"`
	Name     string  `json:"pollutant"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	Level    int     `json:"level"`
	Status   string  `json:"status"`
	StatusRU string  `json:"status_ru"`
}

// Report is the result of classifying a component map. Components, BelowNorm
// and AboveNorm are filled only for extended reports. BelowNorm holds
// pollutants under their band-1 ceiling, AboveNorm the rest.
type Report struct {
	OverallLevel  int                `json:"overall_level"`
	OverallName   string             `json:"overall_status"`
	OverallNameRU string             `json:"overall_status_ru"`
	Components    []PollutantReading `json:"all_components,omitempty"`
	BelowNorm     []PollutantReading `json:"below_norm,omitempty"`
	AboveNorm     []PollutantReading `json:"above_norm,omitempty"`
}

// Classify maps each recognized pollutant to its severity band and takes the
// maximum as the overall level, defaulting to 1 when nothing is recognized.
// Deterministic for identical input.
func Classify(components weather.Components, extended bool) Report {
	levels := make(map[string]int)
	for code, value := range components {
		ranges, known := bands[code]
		if !known {
			continue
		}
		for i, b := range ranges {
			if value >= b.Low && (math.IsInf(b.High, 1) || value < b.High) {
				levels[code] = i + 1
				break
			}
		}
	}

	overall := 1
	for _, level := range levels {
		if level > overall {
			overall = level
		}
	}

	report := Report{
		OverallLevel:  overall,
		OverallName:   levelNames[overall],
		OverallNameRU: levelNamesRU[overall],
	}
	if !extended {
		return report
	}

	for _, code := range pollutantOrder {
		level, ok := levels[code]
		if !ok {
			continue
		}
		value := math.Round(components[code]*100) / 100
		reading := PollutantReading{
			Code:     code,
			Name:     pollutantNames[code],
			Value:    value,
			Unit:     "µg/m³",
			Level:    level,
			Status:   levelNames[level],
			StatusRU: levelNamesRU[level],
		}
		report.Components = append(report.Components, reading)

		if value < bands[code][0].High {
			report.BelowNorm = append(report.BelowNorm, reading)
		} else {
			report.AboveNorm = append(report.AboveNorm, reading)
		}
	}
	return report
}

// FormatReport renders the report in Russian for chat delivery.
func FormatReport(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Общий статус воздуха: %s\n", r.OverallNameRU)

	if r.Components == nil {
		return b.String()
	}

	if len(r.AboveNorm) == 0 {
		b.WriteString("Все показатели в пределах нормы:\n")
	} else {
		b.WriteString("Показатели выше нормы:\n")
		for _, item := range r.AboveNorm {
			fmt.Fprintf(&b, "  %s: %s мкг/м³\n", item.Name, formatValue(item.Value))
		}
		b.WriteString("Все показатели:\n")
	}

	for _, item := range r.Components {
		fmt.Fprintf(&b, "%s: %s мкг/м³ - %s\n", item.Name, formatValue(item.Value), item.StatusRU)
	}
	return b.String()
}

// formatValue prints a concentration without trailing zeros (0.54, 201.9, 15).
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
