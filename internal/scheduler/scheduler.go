// Package scheduler runs the background notification loop: once a minute it
// scans the user registry, evaluates trigger conditions for users whose
// interval has elapsed and dispatches messages. A single user's failure
// never stops the loop.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/pogodabot/weatherbot/internal/format"
	"github.com/pogodabot/weatherbot/internal/notify"
	"github.com/pogodabot/weatherbot/internal/observability"
	"github.com/pogodabot/weatherbot/internal/registry"
	"github.com/pogodabot/weatherbot/internal/weather"
)

// tempShiftThreshold is the temperature delta in °C beyond which a shift
// notification fires.
const tempShiftThreshold = 5.0

// WeatherAPI is the slice of the weather client the scheduler needs.
type WeatherAPI interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (*weather.CurrentWeather, bool)
	Forecast5d3h(ctx context.Context, lat, lon float64) (*weather.Forecast, bool)
}

// Scheduler owns the periodic notification job.
type Scheduler struct {
	registry *registry.Registry
	api      WeatherAPI
	sender   notify.Sender
	interval time.Duration
	logger   *zap.Logger

	cron *gocron.Scheduler
	now  func() time.Time
}

// New creates a Scheduler ticking every interval (one minute in
// production).
func New(reg *registry.Registry, api WeatherAPI, sender notify.Sender, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		registry: reg,
		api:      api,
		sender:   sender,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start schedules the periodic job. SingletonMode keeps a slow scan from
// overlapping the next tick; suspension happens only at tick boundaries.
func (s *Scheduler) Start() error {
	s.cron = gocron.NewScheduler(time.Local)
	if _, err := s.cron.Every(s.interval).SingletonMode().Do(s.Tick); err != nil {
		return err
	}
	s.cron.StartAsync()
	s.logger.Info("notification scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop stops the periodic job. A tick in progress finishes.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Tick runs one scan over the registry. Exported so one scan can be driven
// directly.
func (s *Scheduler) Tick() {
	observability.SchedulerTicksTotal.Inc()
	now := s.now()

	for _, target := range s.registry.NotificationTargets() {
		// Re-check per user: a disable racing the scan must win.
		if !s.registry.Enabled(target.UserID) {
			continue
		}

		interval := time.Duration(target.IntervalHours) * time.Hour
		if !target.LastCheck.IsZero() && now.Sub(target.LastCheck) < interval {
			continue
		}

		// Mark before fetching so a failing upstream cannot cause tight
		// re-triggering on every subsequent tick.
		s.registry.MarkChecked(target.UserID, now)
		observability.SchedulerUsersChecked.Inc()

		s.processUser(target, now)
	}
}

// processUser fetches fresh data for one due user, evaluates the triggers
// and dispatches at most one message. Fetch failure abandons the user for
// this tick without rolling back the check timestamp.
func (s *Scheduler) processUser(target registry.NotificationTarget, now time.Time) {
	ctx := context.Background()
	loc := target.Location

	current, ok := s.api.CurrentWeather(ctx, loc.Lat, loc.Lon)
	if !ok {
		s.logger.Debug("current weather unavailable, skipping user", zap.Int64("user_id", target.UserID))
		return
	}
	forecast, ok := s.api.Forecast5d3h(ctx, loc.Lat, loc.Lon)
	if !ok {
		s.logger.Debug("forecast unavailable, skipping user", zap.Int64("user_id", target.UserID))
		return
	}

	var (
		text    strings.Builder
		send    bool
		reasons []string
	)
	fmt.Fprintf(&text, "🔔 Уведомление о погоде в %s\n\n", loc.City)

	if rainTomorrow(forecast, now) {
		text.WriteString("⚠️ Завтра ожидается дождь! Не забудьте зонт.\n\n")
		send = true
		reasons = append(reasons, "rain_tomorrow")
	}

	if target.Snapshot != nil && target.Snapshot.Main != nil {
		diff := current.Main.Temp - target.Snapshot.Main.Temp
		if math.Abs(diff) > tempShiftThreshold {
			if diff > 0 {
				fmt.Fprintf(&text, "📈 Температура повысилась на %.1f°C\n", diff)
			} else {
				fmt.Fprintf(&text, "📉 Температура понизилась на %.1f°C\n", math.Abs(diff))
			}
			send = true
			reasons = append(reasons, "temp_shift")
		}
	}

	if target.Snapshot == nil {
		// First contact: always notify with the full report, which also
		// seeds the baseline for future shift comparisons.
		text.Reset()
		fmt.Fprintf(&text, "🔔 Уведомления активированы для %s\n\n", loc.City)
		text.WriteString(format.CurrentWeather(current, loc.City))
		send = true
		reasons = []string{"first_contact"}
	}

	if send {
		if err := s.sender.Send(ctx, target.UserID, text.String()); err != nil {
			// Blocked bot or gateway trouble; never aborts the loop.
			observability.NotificationSendErrorsTotal.Inc()
			s.logger.Debug("notification delivery failed", zap.Int64("user_id", target.UserID), zap.Error(err))
		} else {
			for _, reason := range reasons {
				observability.NotificationsSentTotal.WithLabelValues(reason).Inc()
			}
		}
	}

	s.registry.UpdateSnapshot(target.UserID, current)
}

// rainTomorrow reports whether any forecast entry on tomorrow's calendar
// date (local process time) carries a rain-like condition category.
func rainTomorrow(f *weather.Forecast, now time.Time) bool {
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	for _, item := range f.List {
		if time.Unix(item.DT, 0).Format("2006-01-02") != tomorrow {
			continue
		}
		if len(item.Weather) == 0 {
			continue
		}
		category := strings.ToLower(item.Weather[0].Main)
		if strings.Contains(category, "rain") || strings.Contains(category, "drizzle") || strings.Contains(category, "storm") {
			return true
		}
	}
	return false
}
