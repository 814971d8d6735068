package weather

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/AbdulWasayUl/go-weather-chat/internal/api"
)

const (
	msToKPH     = 3.6
	clockLayout = "03:04 PM"
	dateLayout  = "2006-01-02"
	iconURLFmt  = "https://openweathermap.org/img/wn/%s@2x.png"
	defaultIcon = "🌤️"
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

var conditionGlyphs = map[int]string{
	200: "⚡", 201: "⚡", 202: "⚡", 210: "⚡", 211: "⚡", 212: "⚡", 221: "⚡", 230: "⚡", 231: "⚡", 232: "⚡",
	300: "🌦️", 301: "🌦️", 302: "🌦️", 310: "🌦️", 311: "🌦️", 312: "🌦️", 313: "🌦️", 314: "🌦️", 321: "🌦️",
	500: "🌧️", 501: "🌧️", 502: "🌧️", 503: "🌧️", 504: "🌧️", 511: "🌨️", 520: "🌧️", 521: "🌧️", 522: "🌧️", 531: "🌧️",
	600: "🌨️", 601: "🌨️", 602: "🌨️", 611: "🌨️", 612: "🌨️", 613: "🌨️", 615: "🌨️", 616: "🌨️", 620: "🌨️", 621: "🌨️", 622: "🌨️",
	701: "🌫️", 711: "🌫️", 721: "🌫️", 731: "🌫️", 741: "🌫️", 751: "🌫️", 761: "🌫️", 762: "🌫️", 771: "🌫️", 781: "🌫️",
	800: "☀️",
	801: "⛅", 802: "☁️", 803: "☁️", 804: "☁️",
}

// round rounds halves toward positive infinity, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func kph(ms float64) int {
	return round(ms * msToKPH)
}

// CompassDirection maps a bearing in degrees onto the 16-point compass,
// each point covering a 22.5° arc centred on it.
func CompassDirection(deg float64) string {
	idx := round(deg/22.5) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// ConditionGlyph returns the display glyph for an OpenWeatherMap condition code.
func ConditionGlyph(code int) string {
	if g, ok := conditionGlyphs[code]; ok {
		return g
	}
	return defaultIcon
}

func iconURL(icon string) string {
	return fmt.Sprintf(iconURLFmt, icon)
}

// zoneFor builds a fixed zone from the provider's UTC offset in seconds.
func zoneFor(offset int) *time.Location {
	return time.FixedZone(timezoneID(offset), offset)
}

func timezoneID(offset int) string {
	if offset == 0 {
		return "UTC"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}

func clock(unix int64, zone *time.Location) string {
	return time.Unix(unix, 0).In(zone).Format(clockLayout)
}

func parseCurrent(data []byte) (CurrentWeather, error) {
	var resp currentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return CurrentWeather{}, api.Malformed("decode current weather", err)
	}
	if len(resp.Weather) == 0 {
		return CurrentWeather{}, api.Malformed("current weather has no condition", nil)
	}
	if resp.Dt == 0 {
		return CurrentWeather{}, api.Malformed("current weather has no observation time", nil)
	}

	zone := zoneFor(resp.Timezone)
	cond := resp.Weather[0]

	var precip float64
	if resp.Rain != nil {
		precip = resp.Rain.OneHour
	}

	return CurrentWeather{
		Location: Location{
			Name:       resp.Name,
			Country:    resp.Sys.Country,
			Region:     resp.Name,
			Lat:        resp.Coord.Lat,
			Lon:        resp.Coord.Lon,
			TimezoneID: timezoneID(resp.Timezone),
			LocalTime:  time.Unix(resp.Dt, 0).In(zone).Format(time.RFC3339),
		},
		Current: CurrentConditions{
			ObservationTime:     clock(resp.Dt, zone),
			Temperature:         round(resp.Main.Temp),
			WeatherCode:         cond.ID,
			WeatherIcons:        []string{iconURL(cond.Icon)},
			WeatherDescriptions: []string{cond.Description},
			WindSpeed:           kph(resp.Wind.Speed),
			WindDegree:          resp.Wind.Deg,
			WindDir:             CompassDirection(resp.Wind.Deg),
			Pressure:            resp.Main.Pressure,
			Precip:              precip,
			Humidity:            resp.Main.Humidity,
			CloudCover:          resp.Clouds.All,
			FeelsLike:           round(resp.Main.FeelsLike),
			UVIndex:             0,
			Visibility:          resp.Visibility / 1000,
			IsDay:               resp.Dt > resp.Sys.Sunrise && resp.Dt < resp.Sys.Sunset,
		},
	}, nil
}

func decodeForecast(data []byte) (forecastResponse, error) {
	var resp forecastResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, api.Malformed("decode forecast", err)
	}
	if len(resp.List) == 0 {
		return resp, api.Malformed("forecast has no samples", nil)
	}
	for i, s := range resp.List {
		if len(s.Weather) == 0 {
			return resp, api.Malformed(fmt.Sprintf("forecast sample %d has no condition", i), nil)
		}
	}
	return resp, nil
}

func parseSearch(data []byte, weatherBaseURL string) ([]SearchLocation, error) {
	var results []geoResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, api.Malformed("decode geocoding results", err)
	}

	locations := make([]SearchLocation, 0, len(results))
	for i, r := range results {
		locations = append(locations, SearchLocation{
			ID:      i + 1,
			Name:    r.Name,
			Region:  r.State,
			Country: r.Country,
			Lat:     r.Lat,
			Lon:     r.Lon,
			URL:     weatherBaseURL + "/weather?" + url.Values{"q": {r.Name}, "units": {"metric"}}.Encode(),
		})
	}
	return locations, nil
}
