package weather

// Payload types mirror the OpenWeather response shapes. JSON field names are
// kept verbatim so cached entries stay compatible with the documented
// on-disk cache format.

// Coord is a coordinate pair as returned by the API.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MainBlock carries the temperature group of a weather payload.
type MainBlock struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min,omitempty"`
	TempMax   float64 `json:"temp_max,omitempty"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

// Condition is one entry of the weather[] array. Main is the coarse category
// ("Rain", "Clouds"), Description the human-readable text that gets
// localized.
type Condition struct {
	ID          int    `json:"id,omitempty"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// Wind carries speed in m/s and direction in degrees.
type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg,omitempty"`
	Gust  float64 `json:"gust,omitempty"`
}

// Clouds carries cloud cover percent.
type Clouds struct {
	All int `json:"all"`
}

// Sys carries sunrise/sunset as unix seconds.
type Sys struct {
	Sunrise int64 `json:"sunrise,omitempty"`
	Sunset  int64 `json:"sunset,omitempty"`
}

// CurrentWeather is the /data/2.5/weather payload. Main is a pointer so a
// response missing its temperature block can be told apart from zero values
// and rejected.
type CurrentWeather struct {
	Coord      *Coord      `json:"coord,omitempty"`
	Weather    []Condition `json:"weather"`
	Main       *MainBlock  `json:"main"`
	Visibility int         `json:"visibility,omitempty"`
	Wind       Wind        `json:"wind"`
	Clouds     Clouds      `json:"clouds"`
	DT         int64       `json:"dt,omitempty"`
	Sys        Sys         `json:"sys"`
	Name       string      `json:"name"`
}

// ForecastEntry is one 3-hour step of the 5-day forecast.
type ForecastEntry struct {
	DT      int64       `json:"dt"`
	Main    MainBlock   `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    Wind        `json:"wind"`
}

// ForecastCity identifies the city a forecast belongs to.
type ForecastCity struct {
	Name string `json:"name"`
}

// Forecast is the /data/2.5/forecast payload at 3-hour steps.
type Forecast struct {
	City ForecastCity    `json:"city"`
	List []ForecastEntry `json:"list"`
}

// Components maps pollutant code (so2, no2, pm10, pm2_5, o3, co) to
// concentration in µg/m³. This is what gets cached for the air_pollution
// endpoint, not the raw envelope.
type Components map[string]float64

// airPollutionResponse is the raw /data/2.5/air_pollution envelope.
type airPollutionResponse struct {
	List []struct {
		Components Components `json:"components"`
	} `json:"list"`
}

// geoResult is one element of the geocoding response array.
type geoResult struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}
