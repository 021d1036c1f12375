// Package weather implements the typed OpenWeather client: geocoding,
// current weather, the 5-day/3-hour forecast and air pollution, behind the
// TTL response cache. Every operation reports failure as an absence result.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pogodabot/weatherbot/internal/cache"
	"github.com/pogodabot/weatherbot/internal/fetch"
	"github.com/pogodabot/weatherbot/internal/observability"
)

// Endpoint names double as cache key components; changing them invalidates
// existing cache entries.
const (
	endpointWeather  = "weather"
	endpointForecast = "forecast"
	endpointAir      = "air_pollution"
	endpointGeocode  = "geocode"
)

// Client is the typed weather API client. All operations are idempotent and
// safe to call repeatedly; repeated calls within the cache TTL do not
// increase upstream call volume.
type Client struct {
	fetcher *fetch.Fetcher
	cache   cache.Cache
	ttl     time.Duration

	apiKey  string
	baseURL string
	geoURL  string
	lang    string

	flights *flightGroup
	logger  *zap.Logger
}

// New creates a Client. baseURL covers the data/2.5 endpoints, geoURL the
// geo/1.0 ones.
func New(fetcher *fetch.Fetcher, c cache.Cache, ttl time.Duration, apiKey, baseURL, geoURL, lang string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		fetcher: fetcher,
		cache:   c,
		ttl:     ttl,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		geoURL:  strings.TrimRight(geoURL, "/"),
		lang:    lang,
		flights: newFlightGroup(),
		logger:  logger,
	}
}

// Geocode resolves a free-text city name to coordinates. Empty or
// whitespace-only input is absent without a network call, as is an empty
// result array or a result missing lat/lon.
func (c *Client) Geocode(ctx context.Context, city string) (float64, float64, bool) {
	city = strings.TrimSpace(city)
	if city == "" {
		return 0, 0, false
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("limit", "1")
	params.Set("appid", c.apiKey)

	body, ok := c.fetcher.Fetch(endpointGeocode, c.geoURL+"/direct?"+params.Encode())
	if !ok {
		return 0, 0, false
	}

	var results []geoResult
	if err := json.Unmarshal(body, &results); err != nil || len(results) == 0 {
		return 0, 0, false
	}
	first := results[0]
	if first.Lat == nil || first.Lon == nil {
		return 0, 0, false
	}
	return *first.Lat, *first.Lon, true
}

// CurrentWeather returns the current weather at the coordinates. The
// payload is validated (temperature block required), its primary condition
// description localized, and the result cached for the TTL window.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (*CurrentWeather, bool) {
	key := cache.Key(lat, lon, endpointWeather)

	if raw, ok := c.cacheGet(ctx, key, endpointWeather); ok {
		var cached CurrentWeather
		if err := json.Unmarshal(raw, &cached); err == nil && cached.Main != nil {
			return &cached, true
		}
	}

	val, ok := c.flights.do(key, func() (any, bool) {
		body, ok := c.fetcher.Fetch(endpointWeather, c.dataURL(endpointWeather, lat, lon, true))
		if !ok {
			return nil, false
		}

		var w CurrentWeather
		if err := json.Unmarshal(body, &w); err != nil || w.Main == nil {
			// Malformed or empty payload: absent, and never cached.
			return nil, false
		}
		if len(w.Weather) > 0 && w.Weather[0].Description != "" {
			w.Weather[0].Description = TranslateDescription(w.Weather[0].Description)
		}

		c.cacheSet(ctx, key, endpointWeather, &w)
		return &w, true
	})
	if !ok {
		return nil, false
	}
	return val.(*CurrentWeather), true
}

// Forecast5d3h returns the 5-day forecast at 3-hour steps. Each entry's
// condition description is localized independently; descriptions missing
// from the lookup table are left untouched.
func (c *Client) Forecast5d3h(ctx context.Context, lat, lon float64) (*Forecast, bool) {
	key := cache.Key(lat, lon, endpointForecast)

	if raw, ok := c.cacheGet(ctx, key, endpointForecast); ok {
		var cached Forecast
		if err := json.Unmarshal(raw, &cached); err == nil && cached.List != nil {
			return &cached, true
		}
	}

	val, ok := c.flights.do(key, func() (any, bool) {
		body, ok := c.fetcher.Fetch(endpointForecast, c.dataURL(endpointForecast, lat, lon, true))
		if !ok {
			return nil, false
		}

		var f Forecast
		if err := json.Unmarshal(body, &f); err != nil || f.List == nil {
			return nil, false
		}
		for i := range f.List {
			entry := &f.List[i]
			if len(entry.Weather) == 0 {
				continue
			}
			if t, known := lookupDescription(entry.Weather[0].Description); known {
				entry.Weather[0].Description = t
			}
		}

		c.cacheSet(ctx, key, endpointForecast, &f)
		return &f, true
	})
	if !ok {
		return nil, false
	}
	return val.(*Forecast), true
}

// AirPollution returns the pollutant component map at the coordinates. The
// component map itself is cached, not the raw envelope.
func (c *Client) AirPollution(ctx context.Context, lat, lon float64) (Components, bool) {
	key := cache.Key(lat, lon, endpointAir)

	if raw, ok := c.cacheGet(ctx, key, endpointAir); ok {
		var cached Components
		if err := json.Unmarshal(raw, &cached); err == nil && len(cached) > 0 {
			return cached, true
		}
	}

	val, ok := c.flights.do(key, func() (any, bool) {
		body, ok := c.fetcher.Fetch(endpointAir, c.dataURL(endpointAir, lat, lon, false))
		if !ok {
			return nil, false
		}

		var resp airPollutionResponse
		if err := json.Unmarshal(body, &resp); err != nil || len(resp.List) == 0 {
			return nil, false
		}
		components := resp.List[0].Components
		if len(components) == 0 {
			return nil, false
		}

		c.cacheSet(ctx, key, endpointAir, components)
		return components, true
	})
	if !ok {
		return nil, false
	}
	return val.(Components), true
}

// dataURL builds a data/2.5 endpoint URL. metric adds units/lang parameters,
// which the air pollution endpoint does not accept.
func (c *Client) dataURL(endpoint string, lat, lon float64, metric bool) string {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("appid", c.apiKey)
	if metric {
		params.Set("units", "metric")
		params.Set("lang", c.lang)
	}
	return c.baseURL + "/" + endpoint + "?" + params.Encode()
}

// cacheGet reads a raw payload, degrading every failure to a miss.
func (c *Client) cacheGet(ctx context.Context, key, endpoint string) (json.RawMessage, bool) {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		c.logger.Debug("cache get failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, false
	}
	if ok {
		observability.CacheHitsTotal.WithLabelValues(endpoint).Inc()
	}
	return raw, ok
}

// cacheSet stores a validated payload, swallowing persistence failures.
func (c *Client) cacheSet(ctx context.Context, key, endpoint string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		c.logger.Debug("cache set failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
}
