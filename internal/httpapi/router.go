package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pogodabot/weatherbot/internal/observability"
)

// RouterConfig carries the middleware knobs.
type RouterConfig struct {
	RequestTimeout time.Duration
	RateLimiter    *rate.Limiter // nil disables limiting
}

// NewRouter wires all routes and middleware. Order matters: recovery wraps
// everything, correlation id before metrics so denied requests still carry
// an id, rate limiting before the timeout so denied requests are cheap.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(cfg.RateLimiter))
	r.Use(TimeoutMiddleware(cfg.RequestTimeout))

	r.HandleFunc("/weather/{city}", h.GetWeather).Methods(http.MethodGet)
	r.HandleFunc("/weather/{city}/extended", h.GetExtendedWeather).Methods(http.MethodGet)
	r.HandleFunc("/forecast/{city}", h.GetForecast).Methods(http.MethodGet)
	r.HandleFunc("/air/{city}", h.GetAirQuality).Methods(http.MethodGet)
	r.HandleFunc("/compare/{city1}/{city2}", h.GetComparison).Methods(http.MethodGet)

	r.HandleFunc("/users/{id}/location", h.PostLocation).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/settings", h.GetSettings).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/notifications/enable", h.PostEnableNotifications).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/notifications/disable", h.PostDisableNotifications).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}/notifications/interval", h.PutInterval).Methods(http.MethodPut)

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(zapRecoveryLogger{logger}),
		handlers.PrintRecoveryStack(true),
	)(r)
}

// zapRecoveryLogger adapts zap to the recovery handler's Println interface.
type zapRecoveryLogger struct {
	logger *zap.Logger
}

func (l zapRecoveryLogger) Println(v ...interface{}) {
	l.logger.Sugar().Error(v...)
}
