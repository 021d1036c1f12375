package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pogodabot/weatherbot/internal/registry"
	"github.com/pogodabot/weatherbot/internal/storage"
	"github.com/pogodabot/weatherbot/internal/weather"
)

// fakeWeather resolves a fixed set of cities and serves canned payloads.
type fakeWeather struct {
	cities     map[string][2]float64
	current    *weather.CurrentWeather
	currentOK  bool
	forecast   *weather.Forecast
	forecastOK bool
	air        weather.Components
	airOK      bool
}

func (f *fakeWeather) Geocode(ctx context.Context, city string) (float64, float64, bool) {
	coords, ok := f.cities[city]
	if !ok {
		return 0, 0, false
	}
	return coords[0], coords[1], true
}

func (f *fakeWeather) CurrentWeather(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, bool) {
	return f.current, f.currentOK
}

func (f *fakeWeather) Forecast5d3h(ctx context.Context, lat, lon float64) (*weather.Forecast, bool) {
	return f.forecast, f.forecastOK
}

func (f *fakeWeather) AirPollution(ctx context.Context, lat, lon float64) (weather.Components, bool) {
	return f.air, f.airOK
}

func sampleCurrent(temp float64) *weather.CurrentWeather {
	return &weather.CurrentWeather{
		Weather: []weather.Condition{{Main: "Clear", Description: "ясно"}},
		Main:    &weather.MainBlock{Temp: temp, FeelsLike: temp - 1, Pressure: 1013, Humidity: 55},
		Wind:    weather.Wind{Speed: 3, Deg: 180},
		Name:    "Москва",
	}
}

func newTestServer(t *testing.T, fake *fakeWeather) (*httptest.Server, *registry.Registry) {
	t.Helper()
	store := storage.NewStore(filepath.Join(t.TempDir(), "User_Data.json"), nil)
	reg := registry.New(store, nil)
	router := NewRouter(NewHandler(fake, reg, nil), RouterConfig{RequestTimeout: 5 * time.Second}, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, reg
}

func defaultFake() *fakeWeather {
	return &fakeWeather{
		cities: map[string][2]float64{
			"Москва": {55.75, 37.62},
			"Сочи":   {43.59, 39.73},
		},
		current:    sampleCurrent(8),
		currentOK:  true,
		forecast:   &weather.Forecast{City: weather.ForecastCity{Name: "Москва"}},
		forecastOK: true,
		air:        weather.Components{"so2": 3, "no2": 10, "pm10": 12, "pm2_5": 5, "o3": 40, "co": 300},
		airOK:      true,
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestGetWeather(t *testing.T) {
	srv, _ := newTestServer(t, defaultFake())

	resp, err := http.Get(srv.URL + "/weather/Москва")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Correlation-ID"); got == "" {
		t.Error("missing X-Correlation-ID header")
	}
	body := decodeBody(t, resp)
	text, _ := body["text"].(string)
	if !strings.Contains(text, "Погода в Москва") {
		t.Errorf("text = %q, want weather report", text)
	}
}

func TestGetWeather_Errors(t *testing.T) {
	tests := []struct {
		name       string
		fake       func() *fakeWeather
		path       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown city",
			fake:       defaultFake,
			path:       "/weather/Атлантида",
			wantStatus: http.StatusNotFound,
			wantCode:   "CITY_NOT_FOUND",
		},
		{
			name: "upstream unavailable",
			fake: func() *fakeWeather {
				f := defaultFake()
				f.currentOK = false
				return f
			},
			path:       "/weather/Москва",
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "UPSTREAM_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.fake())

			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body := decodeBody(t, resp)
			errObj, _ := body["error"].(map[string]any)
			if errObj["code"] != tt.wantCode {
				t.Errorf("error code = %v, want %s", errObj["code"], tt.wantCode)
			}
			if errObj["requestId"] == "" {
				t.Error("error response missing requestId")
			}
		})
	}
}

func TestGetExtendedWeather_AirFallback(t *testing.T) {
	fake := defaultFake()
	fake.airOK = false
	srv, _ := newTestServer(t, fake)

	resp, err := http.Get(srv.URL + "/weather/Москва/extended")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite missing air data", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	text, _ := body["text"].(string)
	if !strings.Contains(text, "Данные о загрязнении воздуха недоступны") {
		t.Errorf("text missing air fallback:\n%s", text)
	}
}

func TestGetAirQuality(t *testing.T) {
	srv, _ := newTestServer(t, defaultFake())

	resp, err := http.Get(srv.URL + "/air/Москва")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, resp)
	if body["level"] != float64(1) {
		t.Errorf("level = %v, want 1 for clean readings", body["level"])
	}
	if body["levelRu"] != "Хорошо" {
		t.Errorf("levelRu = %v", body["levelRu"])
	}
}

func TestGetComparison(t *testing.T) {
	srv, _ := newTestServer(t, defaultFake())

	resp, err := http.Get(srv.URL + "/compare/Москва/Сочи")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	text, _ := body["text"].(string)
	if !strings.Contains(text, "Москва vs Сочи") {
		t.Errorf("text = %q, want comparison", text)
	}
}

func TestPostLocation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCity   string
	}{
		{"by city name", `{"city": "Сочи"}`, http.StatusOK, "Сочи"},
		{"by shared coordinates", `{"lat": 55.75, "lon": 37.62}`, http.StatusOK, "Москва"},
		{"unknown city", `{"city": "Атлантида"}`, http.StatusNotFound, ""},
		{"empty body", `{}`, http.StatusBadRequest, ""},
		{"malformed body", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reg := newTestServer(t, defaultFake())

			resp, err := http.Post(srv.URL+"/users/42/location", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			loc, ok := reg.Location(42)
			if !ok {
				t.Fatal("location not stored")
			}
			if loc.City != tt.wantCity {
				t.Errorf("stored city = %q, want %q", loc.City, tt.wantCity)
			}
		})
	}
}

func TestNotificationLifecycle(t *testing.T) {
	srv, reg := newTestServer(t, defaultFake())

	// Enabling without a location is refused.
	resp, err := http.Post(srv.URL+"/users/7/notifications/enable", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("enable without location: status = %d, want 409", resp.StatusCode)
	}

	reg.SetLocation(7, registry.Location{Lat: 55.75, Lon: 37.62, City: "Москва"})

	resp, err = http.Post(srv.URL+"/users/7/notifications/enable", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("enable: status = %d, want 200", resp.StatusCode)
	}

	// Enable primes the snapshot so the first tick has a baseline.
	targets := reg.NotificationTargets()
	if len(targets) != 1 || targets[0].Snapshot == nil {
		t.Error("snapshot not primed on enable")
	}

	resp, err = http.Post(srv.URL+"/users/7/notifications/disable", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("disable: status = %d, want 200", resp.StatusCode)
	}
	if enabled, _ := reg.Preferences(7); enabled {
		t.Error("notifications still enabled after disable")
	}
}

func TestPutInterval(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"hours": 6}`, http.StatusOK},
		{"below minimum", `{"hours": 0}`, http.StatusBadRequest},
		{"above maximum", `{"hours": 25}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reg := newTestServer(t, defaultFake())

			req, err := http.NewRequest(http.MethodPut, srv.URL+"/users/9/notifications/interval", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if _, hours := reg.Preferences(9); hours != 6 {
					t.Errorf("interval = %d, want 6", hours)
				}
			}
		})
	}
}

func TestInvalidUserID(t *testing.T) {
	srv, _ := newTestServer(t, defaultFake())

	resp, err := http.Post(srv.URL+"/users/abc/notifications/enable", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric user id", resp.StatusCode)
	}
}

func TestGetSettings(t *testing.T) {
	srv, reg := newTestServer(t, defaultFake())
	reg.SetLocation(5, registry.Location{Lat: 43.59, Lon: 39.73, City: "Сочи"})

	resp, err := http.Get(srv.URL + "/users/5/settings")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, resp)
	if body["notificationsEnabled"] != false {
		t.Errorf("notificationsEnabled = %v, want false", body["notificationsEnabled"])
	}
	if body["intervalHours"] != float64(registry.DefaultIntervalHours) {
		t.Errorf("intervalHours = %v, want default", body["intervalHours"])
	}
	if body["city"] != "Сочи" {
		t.Errorf("city = %v, want Сочи", body["city"])
	}
}

func TestRateLimit(t *testing.T) {
	store := storage.NewStore(filepath.Join(t.TempDir(), "User_Data.json"), nil)
	reg := registry.New(store, nil)
	router := NewRouter(NewHandler(defaultFake(), reg, nil), RouterConfig{
		RateLimiter: rate.NewLimiter(rate.Limit(0.001), 1),
	}, nil)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	errObj, _ := body["error"].(map[string]any)
	if errObj["code"] != "RATE_LIMITED" {
		t.Errorf("error code = %v, want RATE_LIMITED", errObj["code"])
	}
}

func TestCorrelationIDPropagated(t *testing.T) {
	srv, _ := newTestServer(t, defaultFake())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Correlation-ID", "test-corr-id")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Correlation-ID"); got != "test-corr-id" {
		t.Errorf("X-Correlation-ID = %q, want caller's id echoed", got)
	}
}
