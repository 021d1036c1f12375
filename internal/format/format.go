// Package format renders weather data into the Russian chat messages the
// bot sends. No I/O; callers fetch, this package only writes text.
package format

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pogodabot/weatherbot/internal/weather"
)

var windDirections = [8]string{"С", "СВ", "В", "ЮВ", "Ю", "ЮЗ", "З", "СЗ"}

var dayNames = map[time.Weekday]string{
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
	time.Sunday:    "Воскресенье",
}

var weatherIcons = []struct {
	key  string
	icon string
}{
	{"clear", "☀️"},
	{"clouds", "☁️"},
	{"rain", "🌧️"},
	{"drizzle", "🌦️"},
	{"thunderstorm", "⛈️"},
	{"snow", "❄️"},
	{"mist", "🌫️"},
	{"fog", "🌫️"},
}

// WeatherIcon picks an emoji for a coarse condition category ("Rain",
// "Clouds"). Defaults to the clear-sky icon.
func WeatherIcon(category string) string {
	lower := strings.ToLower(category)
	for _, m := range weatherIcons {
		if strings.Contains(lower, m.key) {
			return m.icon
		}
	}
	return "☀️"
}

// num prints a float the way the API returned it, without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// windDirection converts degrees to a compass point label, empty for a
// zero reading.
func windDirection(deg float64) string {
	if deg == 0 {
		return ""
	}
	return windDirections[int((deg+22.5)/45)%8]
}

// capitalize upper-cases the first rune only; descriptions arrive all
// lower-case from the API.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// description returns the primary condition text, capitalized.
func description(conditions []weather.Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	return capitalize(conditions[0].Description)
}

// CurrentWeather renders the standard current-weather report. cityName
// overrides the payload's own name when non-empty.
func CurrentWeather(w *weather.CurrentWeather, cityName string) string {
	city := cityName
	if city == "" {
		city = w.Name
	}
	if city == "" {
		city = "Неизвестно"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌤️ Погода в %s\n\n", city)
	fmt.Fprintf(&b, "🌡️ Температура: %s°C (ощущается как %s°C)\n", num(w.Main.Temp), num(w.Main.FeelsLike))
	fmt.Fprintf(&b, "☁️ %s\n", description(w.Weather))
	fmt.Fprintf(&b, "💧 Влажность: %d%%\n", w.Main.Humidity)
	fmt.Fprintf(&b, "🌬️ Ветер: %s м/с %s\n", num(w.Wind.Speed), windDirection(w.Wind.Deg))
	fmt.Fprintf(&b, "📊 Давление: %d гПа\n", w.Main.Pressure)
	return b.String()
}

// ExtendedWeather appends cloud cover, visibility, sun times and an
// optional air quality section to the standard report.
func ExtendedWeather(w *weather.CurrentWeather, cityName, airReport string) string {
	var b strings.Builder
	b.WriteString(CurrentWeather(w, cityName))

	b.WriteString("\n📈 Расширенные данные:\n")
	fmt.Fprintf(&b, "☁️ Облачность: %d%%\n", w.Clouds.All)
	if w.Visibility > 0 {
		fmt.Fprintf(&b, "👁️ Видимость: %s км\n", num(float64(w.Visibility)/1000))
	}
	if w.Sys.Sunrise > 0 {
		fmt.Fprintf(&b, "🌅 Восход солнца: %s\n", time.Unix(w.Sys.Sunrise, 0).Format("15:04"))
	}
	if w.Sys.Sunset > 0 {
		fmt.Fprintf(&b, "🌇 Закат солнца: %s\n", time.Unix(w.Sys.Sunset, 0).Format("15:04"))
	}

	if airReport != "" {
		b.WriteString("\n")
		b.WriteString(airReport)
	} else {
		b.WriteString("\n⚠️ Данные о загрязнении воздуха недоступны\n")
	}
	return b.String()
}

// ForecastDay aggregates one calendar day of 3-hour forecast entries.
type ForecastDay struct {
	Date         time.Time
	Name         string
	Items        []weather.ForecastEntry
	MinTemp      float64
	MaxTemp      float64
	AvgTemp      float64
	AvgFeelsLike float64
	Icon         string
}

// ForecastDays groups forecast entries by local calendar date, keeping the
// first five days in order.
func ForecastDays(f *weather.Forecast) []ForecastDay {
	byDate := make(map[string][]weather.ForecastEntry)
	var order []string
	for _, item := range f.List {
		day := time.Unix(item.DT, 0).Format("2006-01-02")
		if _, seen := byDate[day]; !seen {
			order = append(order, day)
		}
		byDate[day] = append(byDate[day], item)
	}
	sort.Strings(order)
	if len(order) > 5 {
		order = order[:5]
	}

	days := make([]ForecastDay, 0, len(order))
	for _, key := range order {
		items := byDate[key]
		date, _ := time.ParseInLocation("2006-01-02", key, time.Local)

		day := ForecastDay{
			Date:    date,
			Name:    dayNames[date.Weekday()],
			Items:   items,
			MinTemp: math.Inf(1),
			MaxTemp: math.Inf(-1),
		}
		var tempSum, feelsSum float64
		for _, item := range items {
			day.MinTemp = math.Min(day.MinTemp, item.Main.Temp)
			day.MaxTemp = math.Max(day.MaxTemp, item.Main.Temp)
			tempSum += item.Main.Temp
			feelsSum += item.Main.FeelsLike
		}
		day.AvgTemp = tempSum / float64(len(items))
		day.AvgFeelsLike = feelsSum / float64(len(items))

		// Midday entry decides the day's icon.
		midday := items[len(items)/2]
		if len(midday.Weather) > 0 {
			day.Icon = WeatherIcon(midday.Weather[0].Main)
		}
		days = append(days, day)
	}
	return days
}

// ForecastOverview renders the 5-day forecast prompt.
func ForecastOverview(f *weather.Forecast) string {
	return fmt.Sprintf("📅 Прогноз погоды на 5 дней в %s\n\nВыберите день для подробного прогноза:", f.City.Name)
}

// DayDetails renders every 3-hour step of one forecast day.
func DayDetails(day ForecastDay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📆 %s, %s\n\n", day.Name, day.Date.Format("02.01"))

	for _, item := range day.Items {
		fmt.Fprintf(&b, "🕐 %s\n", time.Unix(item.DT, 0).Format("15:04"))
		fmt.Fprintf(&b, "   🌡️ %s°C (ощущается как %s°C)\n", num(item.Main.Temp), num(item.Main.FeelsLike))
		fmt.Fprintf(&b, "   ☁️ %s\n", description(item.Weather))
		fmt.Fprintf(&b, "   💧 Влажность: %d%%\n", item.Main.Humidity)
		fmt.Fprintf(&b, "   🌬️ Ветер: %s м/с\n", num(item.Wind.Speed))
		fmt.Fprintf(&b, "   📊 Давление: %d гПа\n\n", item.Main.Pressure)
	}
	return b.String()
}

// Comparison renders a line-by-line comparison of two cities' current
// weather, ending with the temperature difference when it matters.
func Comparison(city1 string, w1 *weather.CurrentWeather, city2 string, w2 *weather.CurrentWeather) string {
	var b strings.Builder
	b.WriteString("📊 Сравнение городов\n\n")
	fmt.Fprintf(&b, "🏙️ %s vs %s\n\n", city1, city2)

	fmt.Fprintf(&b, "🌡️ Температура:\n   %s: %s°C\n   %s: %s°C\n\n", city1, num(w1.Main.Temp), city2, num(w2.Main.Temp))
	fmt.Fprintf(&b, "🌡️ Ощущается как:\n   %s: %s°C\n   %s: %s°C\n\n", city1, num(w1.Main.FeelsLike), city2, num(w2.Main.FeelsLike))
	fmt.Fprintf(&b, "☁️ Погода:\n   %s: %s\n   %s: %s\n\n", city1, description(w1.Weather), city2, description(w2.Weather))
	fmt.Fprintf(&b, "💧 Влажность:\n   %s: %d%%\n   %s: %d%%\n\n", city1, w1.Main.Humidity, city2, w2.Main.Humidity)
	fmt.Fprintf(&b, "🌬️ Ветер:\n   %s: %.1f м/с\n   %s: %.1f м/с\n\n", city1, w1.Wind.Speed, city2, w2.Wind.Speed)
	fmt.Fprintf(&b, "📊 Давление:\n   %s: %d гПа\n   %s: %d гПа\n", city1, w1.Main.Pressure, city2, w2.Main.Pressure)

	diff := w1.Main.Temp - w2.Main.Temp
	if math.Abs(diff) > 0.1 {
		fmt.Fprintf(&b, "\n💡 Разница температур: %.1f°C\n", math.Abs(diff))
		if diff > 0 {
			fmt.Fprintf(&b, "   В %s теплее на %.1f°C\n", city1, diff)
		} else {
			fmt.Fprintf(&b, "   В %s теплее на %.1f°C\n", city2, math.Abs(diff))
		}
	}
	return b.String()
}
