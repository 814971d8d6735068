package weather

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OpenWeatherMap payloads. Only the fields the normalizers read are declared.

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmPrecip struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}

type owmCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type currentResponse struct {
	Coord   owmCoord       `json:"coord"`
	Weather []owmCondition `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  float64 `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility float64 `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Rain *owmPrecip `json:"rain,omitempty"`
	Dt   int64      `json:"dt"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

type forecastSample struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []owmCondition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain *owmPrecip `json:"rain,omitempty"`
}

type forecastResponse struct {
	List []forecastSample `json:"list"`
	City struct {
		Name     string   `json:"name"`
		Country  string   `json:"country"`
		Coord    owmCoord `json:"coord"`
		Timezone int      `json:"timezone"`
		Sunrise  int64    `json:"sunrise"`
		Sunset   int64    `json:"sunset"`
	} `json:"city"`
}

type geoResult struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Normalized shapes handed to callers and archived by the collector.

type Location struct {
	Name       string  `json:"name" bson:"name"`
	Country    string  `json:"country" bson:"country"`
	Region     string  `json:"region" bson:"region"`
	Lat        float64 `json:"lat" bson:"lat"`
	Lon        float64 `json:"lon" bson:"lon"`
	TimezoneID string  `json:"timezone_id" bson:"timezone_id"`
	LocalTime  string  `json:"localtime" bson:"localtime"`
}

type CurrentConditions struct {
	ObservationTime     string   `json:"observation_time" bson:"observation_time"`
	Temperature         int      `json:"temperature" bson:"temperature"`
	WeatherCode         int      `json:"weather_code" bson:"weather_code"`
	WeatherIcons        []string `json:"weather_icons" bson:"weather_icons"`
	WeatherDescriptions []string `json:"weather_descriptions" bson:"weather_descriptions"`
	WindSpeed           int      `json:"wind_speed" bson:"wind_speed"`
	WindDegree          float64  `json:"wind_degree" bson:"wind_degree"`
	WindDir             string   `json:"wind_dir" bson:"wind_dir"`
	Pressure            float64  `json:"pressure" bson:"pressure"`
	Precip              float64  `json:"precip" bson:"precip"`
	Humidity            int      `json:"humidity" bson:"humidity"`
	CloudCover          int      `json:"cloudcover" bson:"cloudcover"`
	FeelsLike           int      `json:"feelslike" bson:"feelslike"`
	UVIndex             int      `json:"uv_index" bson:"uv_index"`
	Visibility          float64  `json:"visibility" bson:"visibility"`
	IsDay               bool     `json:"is_day" bson:"is_day"`
}

type CurrentWeather struct {
	Location Location          `json:"location" bson:"location"`
	Current  CurrentConditions `json:"current" bson:"current"`
}

type Condition struct {
	Text string `json:"text" bson:"text"`
	Icon string `json:"icon" bson:"icon"`
	Code int    `json:"code" bson:"code"`
}

type Astro struct {
	Sunrise string `json:"sunrise" bson:"sunrise"`
	Sunset  string `json:"sunset" bson:"sunset"`
}

type DailyForecast struct {
	Date          string    `json:"date" bson:"date"`
	MaxTempC      int       `json:"maxtemp_c" bson:"maxtemp_c"`
	MinTempC      int       `json:"mintemp_c" bson:"mintemp_c"`
	AvgTempC      int       `json:"avgtemp_c" bson:"avgtemp_c"`
	MaxWindKPH    int       `json:"maxwind_kph" bson:"maxwind_kph"`
	TotalPrecipMM int       `json:"totalprecip_mm" bson:"totalprecip_mm"`
	AvgHumidity   int       `json:"avghumidity" bson:"avghumidity"`
	Condition     Condition `json:"condition" bson:"condition"`
	Astro         Astro     `json:"astro" bson:"astro"`
}

type Forecast struct {
	Location Location        `json:"location" bson:"location"`
	Days     []DailyForecast `json:"forecastday" bson:"forecastday"`
}

type HourlySample struct {
	Time      string `json:"time" bson:"time"`
	Temp      int    `json:"temp" bson:"temp"`
	Icon      string `json:"icon" bson:"icon"`
	Condition string `json:"condition" bson:"condition"`
	Humidity  int    `json:"humidity" bson:"humidity"`
	WindSpeed int    `json:"windSpeed" bson:"wind_speed"`
}

type SearchLocation struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	URL     string  `json:"url"`
}

// Report is the combined result of the three lookups a weather screen needs.
type Report struct {
	Current  CurrentWeather `json:"current"`
	Forecast Forecast       `json:"forecast"`
	Hourly   []HourlySample `json:"hourly"`
}

const (
	SnapshotCurrent  = "current"
	SnapshotForecast = "forecast"
)

// Snapshot is one archived collector result.
type Snapshot struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Kind      string             `bson:"kind"`
	City      string             `bson:"city"`
	Current   *CurrentWeather    `bson:"current,omitempty"`
	Forecast  *Forecast          `bson:"forecast,omitempty"`
	FetchedAt time.Time          `bson:"fetched_at"`
}
