package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
)

const (
	defaultWeatherBaseURL  = "https://api.openweathermap.org/data/2.5"
	defaultGeoBaseURL      = "https://api.openweathermap.org/geo/1.0"
	defaultGeminiURL       = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	defaultRefreshInterval = 30
	defaultWorkerCount     = 5
	defaultHTTPTimeout     = 10
)

// Config holds the application configuration
type Config struct {
	WeatherAPIKey         string
	WeatherAPIBaseURL     string
	GeoAPIBaseURL         string
	GeminiAPIKey          string
	GeminiAPIURL          string
	MongoURI              string
	MongoAuthDB           string
	MongoUser             string
	MongoPass             string
	DBWeather             string
	CollectionFetchParams string
	CollectionSnapshots   string
	RefreshInterval       time.Duration
	WorkerCount           int
	HTTPTimeout           time.Duration
}

// Load reads the .env file when present and loads the configuration from the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded (%v), using process environment", err)
	}

	return &Config{
		WeatherAPIKey:         os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIBaseURL:     getEnv("OPENWEATHER_BASE_URL", defaultWeatherBaseURL),
		GeoAPIBaseURL:         getEnv("OPENWEATHER_GEO_URL", defaultGeoBaseURL),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GeminiAPIURL:          getEnv("GEMINI_API_URL", defaultGeminiURL),
		MongoURI:              getMongoURI(),
		MongoAuthDB:           getEnv("MONGO_AUTH_DB", "admin"),
		MongoUser:             os.Getenv("MONGO_USER"),
		MongoPass:             os.Getenv("MONGO_PASS"),
		DBWeather:             getEnv("DB_WEATHER_NAME", "weather"),
		CollectionFetchParams: getEnv("COLLECTION_FETCH_PARAMS", "fetch_params"),
		CollectionSnapshots:   getEnv("COLLECTION_SNAPSHOTS", "snapshots"),
		RefreshInterval:       time.Duration(getEnvInt("REFRESH_INTERVAL_MINUTES", defaultRefreshInterval)) * time.Minute,
		WorkerCount:           getEnvInt("WORKER_COUNT", defaultWorkerCount),
		HTTPTimeout:           time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", defaultHTTPTimeout)) * time.Second,
	}
}

// Validate reports the provider credentials that are required but unset.
func (c *Config) Validate(needWeather, needChat bool) error {
	var missing []string
	if needWeather && c.WeatherAPIKey == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if needChat && c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// getMongoURI constructs the MongoDB URI from environment variables
func getMongoURI() string {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}
	host := getEnv("MONGO_HOST", "localhost")
	port := getEnv("MONGO_PORT", "27017")

	return "mongodb://" + host + ":" + port
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warn("Ignoring invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}
