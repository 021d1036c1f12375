// Package httpapi is the inbound surface standing in for the chat gateway:
// weather queries, city comparison and notification settings, exposed over
// HTTP. Handlers translate between the gateway's request/response shapes and
// the core's absence-result operations.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pogodabot/weatherbot/internal/airquality"
	"github.com/pogodabot/weatherbot/internal/format"
	"github.com/pogodabot/weatherbot/internal/registry"
	"github.com/pogodabot/weatherbot/internal/weather"
)

// WeatherService is the slice of the weather client the handlers need.
type WeatherService interface {
	Geocode(ctx context.Context, city string) (float64, float64, bool)
	CurrentWeather(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, bool)
	Forecast5d3h(ctx context.Context, lat, lon float64) (*weather.Forecast, bool)
	AirPollution(ctx context.Context, lat, lon float64) (weather.Components, bool)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weather  WeatherService
	registry *registry.Registry
	logger   *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(ws WeatherService, reg *registry.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{weather: ws, registry: reg, logger: logger}
}

// resolveCity geocodes the path city and writes the error response itself
// when the city is missing or unknown.
func (h *Handler) resolveCity(w http.ResponseWriter, r *http.Request, city string) (lat, lon float64, ok bool) {
	city = strings.TrimSpace(city)
	if city == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", "city is required")
		return 0, 0, false
	}
	lat, lon, ok = h.weather.Geocode(r.Context(), city)
	if !ok {
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", "no such city: "+city)
		return 0, 0, false
	}
	return lat, lon, true
}

// GetWeather handles GET /weather/{city}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	lat, lon, ok := h.resolveCity(w, r, city)
	if !ok {
		return
	}

	current, ok := h.weather.CurrentWeather(r.Context(), lat, lon)
	if !ok {
		writeUpstreamError(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"city": city,
		"text": format.CurrentWeather(current, city),
		"data": current,
	})
}

// GetExtendedWeather handles GET /weather/{city}/extended. The air quality
// section degrades to a fallback line when pollution data is unavailable.
func (h *Handler) GetExtendedWeather(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	lat, lon, ok := h.resolveCity(w, r, city)
	if !ok {
		return
	}

	current, ok := h.weather.CurrentWeather(r.Context(), lat, lon)
	if !ok {
		writeUpstreamError(w, r)
		return
	}

	airReport := ""
	if components, ok := h.weather.AirPollution(r.Context(), lat, lon); ok {
		airReport = airquality.FormatReport(airquality.Classify(components, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"city": city,
		"text": format.ExtendedWeather(current, city, airReport),
	})
}

// GetForecast handles GET /forecast/{city}: the 5-day overview plus per-day
// detail texts, one response instead of the bot's day-picker round trip.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	lat, lon, ok := h.resolveCity(w, r, city)
	if !ok {
		return
	}

	forecast, ok := h.weather.Forecast5d3h(r.Context(), lat, lon)
	if !ok {
		writeUpstreamError(w, r)
		return
	}

	days := format.ForecastDays(forecast)
	type dayResponse struct {
		Date    string  `json:"date"`
		Name    string  `json:"name"`
		Icon    string  `json:"icon"`
		MinTemp float64 `json:"minTemp"`
		MaxTemp float64 `json:"maxTemp"`
		Text    string  `json:"text"`
	}
	out := make([]dayResponse, 0, len(days))
	for _, day := range days {
		out = append(out, dayResponse{
			Date:    day.Date.Format("2006-01-02"),
			Name:    day.Name,
			Icon:    day.Icon,
			MinTemp: day.MinTemp,
			MaxTemp: day.MaxTemp,
			Text:    format.DayDetails(day),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"city": city,
		"text": format.ForecastOverview(forecast),
		"days": out,
	})
}

// GetAirQuality handles GET /air/{city}. Always the extended analysis; the
// short form exists for the extended weather report only.
func (h *Handler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	city := mux.Vars(r)["city"]
	lat, lon, ok := h.resolveCity(w, r, city)
	if !ok {
		return
	}

	components, ok := h.weather.AirPollution(r.Context(), lat, lon)
	if !ok {
		writeUpstreamError(w, r)
		return
	}
	report := airquality.Classify(components, true)
	writeJSON(w, http.StatusOK, map[string]any{
		"city":    city,
		"level":   report.OverallLevel,
		"levelRu": report.OverallNameRU,
		"text":    airquality.FormatReport(report),
	})
}

// GetComparison handles GET /compare/{city1}/{city2}.
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	city1, city2 := vars["city1"], vars["city2"]

	lat1, lon1, ok := h.resolveCity(w, r, city1)
	if !ok {
		return
	}
	lat2, lon2, ok := h.resolveCity(w, r, city2)
	if !ok {
		return
	}

	w1, ok := h.weather.CurrentWeather(r.Context(), lat1, lon1)
	if !ok {
		writeUpstreamError(w, r)
		return
	}
	w2, ok := h.weather.CurrentWeather(r.Context(), lat2, lon2)
	if !ok {
		writeUpstreamError(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text": format.Comparison(city1, w1, city2, w2),
	})
}

// locationRequest is the POST /users/{id}/location body: either a city name
// to geocode or a shared coordinate pair to reverse-resolve.
type locationRequest struct {
	City string   `json:"city,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
}

// PostLocation handles POST /users/{id}/location.
func (h *Handler) PostLocation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	var body locationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}

	var loc registry.Location
	switch {
	case body.Lat != nil && body.Lon != nil:
		// Shared coordinates: the display name comes from the current
		// weather payload for that point.
		loc = registry.Location{Lat: *body.Lat, Lon: *body.Lon}
		if current, ok := h.weather.CurrentWeather(r.Context(), loc.Lat, loc.Lon); ok {
			loc.City = current.Name
		}
		if loc.City == "" {
			loc.City = "Неизвестно"
		}
	case strings.TrimSpace(body.City) != "":
		city := strings.TrimSpace(body.City)
		lat, lon, ok := h.weather.Geocode(r.Context(), city)
		if !ok {
			writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", "no such city: "+city)
			return
		}
		loc = registry.Location{Lat: lat, Lon: lon, City: city}
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "city or lat/lon required")
		return
	}

	h.registry.SetLocation(userID, loc)
	writeJSON(w, http.StatusOK, map[string]any{
		"city": loc.City,
		"lat":  loc.Lat,
		"lon":  loc.Lon,
	})
}

// GetSettings handles GET /users/{id}/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	enabled, intervalHours := h.registry.Preferences(userID)
	resp := map[string]any{
		"notificationsEnabled": enabled,
		"intervalHours":        intervalHours,
	}
	if loc, ok := h.registry.Location(userID); ok {
		resp["city"] = loc.City
		resp["lat"] = loc.Lat
		resp["lon"] = loc.Lon
	}
	writeJSON(w, http.StatusOK, resp)
}

// PostEnableNotifications handles POST /users/{id}/notifications/enable.
// On success it primes the weather snapshot so the first scheduled check
// compares against enable-time conditions rather than always firing.
func (h *Handler) PostEnableNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	if err := h.registry.EnableNotifications(userID); err != nil {
		writeError(w, r, http.StatusConflict, "NO_LOCATION", "set a location before enabling notifications")
		return
	}

	if loc, ok := h.registry.Location(userID); ok {
		if current, ok := h.weather.CurrentWeather(r.Context(), loc.Lat, loc.Lon); ok {
			h.registry.UpdateSnapshot(userID, current)
		}
	}

	_, intervalHours := h.registry.Preferences(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"notificationsEnabled": true,
		"intervalHours":        intervalHours,
	})
}

// PostDisableNotifications handles POST /users/{id}/notifications/disable.
func (h *Handler) PostDisableNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	h.registry.DisableNotifications(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"notificationsEnabled": false,
	})
}

// intervalRequest is the PUT /users/{id}/notifications/interval body.
type intervalRequest struct {
	Hours int `json:"hours"`
}

// PutInterval handles PUT /users/{id}/notifications/interval.
func (h *Handler) PutInterval(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDVar(w, r)
	if !ok {
		return
	}

	var body intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return
	}
	if err := h.registry.SetInterval(userID, body.Hours); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_INTERVAL", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"intervalHours": body.Hours,
	})
}

// GetHealth handles GET /health. The service has no hard dependencies to
// probe synchronously; upstream trouble shows up in metrics, not here.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "weatherbot",
	})
}

// userIDVar parses the {id} path variable, writing the error response on
// failure.
func userIDVar(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_USER_ID", "user id must be an integer")
		return 0, false
	}
	return id, true
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with
// code, message and the request's correlation id when present.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value(correlationIDKey); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeUpstreamError maps an absent upstream result to 503.
func writeUpstreamError(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "unable to fetch weather data")
}
