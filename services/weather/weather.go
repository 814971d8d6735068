package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/AbdulWasayUl/go-weather-chat/internal/api"
	"github.com/AbdulWasayUl/go-weather-chat/internal/channels"
	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/internal/db"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
	"github.com/AbdulWasayUl/go-weather-chat/models"
)

const serviceName = "weather"

// ErrFetchFailed matches every FetchError via errors.Is.
var ErrFetchFailed = errors.New("weather fetch failed")

// Op names the lookup that failed; its string is the message shown to users.
type Op string

const (
	OpCurrent  Op = "failed to fetch weather data"
	OpForecast Op = "failed to fetch forecast data"
	OpHourly   Op = "failed to fetch hourly forecast data"
	OpSearch   Op = "failed to search location"
)

// FetchError is the single error every lookup returns. Its message never
// includes the provider's response; the cause is kept for logging.
type FetchError struct {
	Op  Op
	Err error
}

func (e *FetchError) Error() string { return string(e.Op) }

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

type Service struct {
	Config *config.Config
	Client *api.Client
	DBName string
	now    func() time.Time
}

func NewService(cfg *config.Config) *Service {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		Config: cfg,
		Client: api.NewClient(timeout),
		DBName: cfg.DBWeather,
		now:    time.Now,
	}
}

func (s *Service) fail(op Op, query string, err error) error {
	logger.Error("[%s] %s for %q: %v", serviceName, op, query, err)
	return &FetchError{Op: op, Err: err}
}

func (s *Service) query(extra map[string]string) map[string]string {
	q := map[string]string{
		"appid": s.Config.WeatherAPIKey,
		"units": "metric",
	}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

func (s *Service) fetchCurrentRaw(ctx context.Context, params map[string]string) ([]byte, error) {
	return s.Client.Get(ctx, s.Config.WeatherAPIBaseURL+"/weather", s.query(params))
}

func (s *Service) fetchForecastRaw(ctx context.Context, location string) ([]byte, error) {
	return s.Client.Get(ctx, s.Config.WeatherAPIBaseURL+"/forecast", s.query(map[string]string{"q": location}))
}

// FetchCurrent looks up current conditions by free-text place name.
func (s *Service) FetchCurrent(ctx context.Context, location string) (CurrentWeather, error) {
	data, err := s.fetchCurrentRaw(ctx, map[string]string{"q": location})
	if err != nil {
		return CurrentWeather{}, s.fail(OpCurrent, location, err)
	}
	cw, err := parseCurrent(data)
	if err != nil {
		return CurrentWeather{}, s.fail(OpCurrent, location, err)
	}
	return cw, nil
}

// FetchCurrentByCoords looks up current conditions at a coordinate pair.
func (s *Service) FetchCurrentByCoords(ctx context.Context, lat, lon float64) (CurrentWeather, error) {
	params := map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(lon, 'f', -1, 64),
	}
	label := params["lat"] + "," + params["lon"]

	data, err := s.fetchCurrentRaw(ctx, params)
	if err != nil {
		return CurrentWeather{}, s.fail(OpCurrent, label, err)
	}
	cw, err := parseCurrent(data)
	if err != nil {
		return CurrentWeather{}, s.fail(OpCurrent, label, err)
	}
	return cw, nil
}

// FetchForecast returns up to five daily aggregates starting the day after
// today, where days are calendar dates in the location's own UTC offset.
func (s *Service) FetchForecast(ctx context.Context, location string) (Forecast, error) {
	data, err := s.fetchForecastRaw(ctx, location)
	if err != nil {
		return Forecast{}, s.fail(OpForecast, location, err)
	}
	resp, err := decodeForecast(data)
	if err != nil {
		return Forecast{}, s.fail(OpForecast, location, err)
	}
	return buildForecast(resp, s.now()), nil
}

// FetchHourly returns the first eight 3-hour samples of the forecast feed.
func (s *Service) FetchHourly(ctx context.Context, location string) ([]HourlySample, error) {
	data, err := s.fetchForecastRaw(ctx, location)
	if err != nil {
		return nil, s.fail(OpHourly, location, err)
	}
	resp, err := decodeForecast(data)
	if err != nil {
		return nil, s.fail(OpHourly, location, err)
	}
	return buildHourly(resp), nil
}

// SearchLocation resolves free text to at most five candidate places.
func (s *Service) SearchLocation(ctx context.Context, query string) ([]SearchLocation, error) {
	params := map[string]string{
		"q":     query,
		"limit": "5",
		"appid": s.Config.WeatherAPIKey,
	}
	data, err := s.Client.Get(ctx, s.Config.GeoAPIBaseURL+"/direct", params)
	if err != nil {
		return nil, s.fail(OpSearch, query, err)
	}
	locations, err := parseSearch(data, s.Config.WeatherAPIBaseURL)
	if err != nil {
		return nil, s.fail(OpSearch, query, err)
	}
	return locations, nil
}

// FetchReport runs the current, daily and hourly lookups concurrently. It
// returns all three or the first error; partial results are discarded.
func (s *Service) FetchReport(ctx context.Context, location string) (Report, error) {
	var report Report
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cw, err := s.FetchCurrent(gctx, location)
		report.Current = cw
		return err
	})
	g.Go(func() error {
		fc, err := s.FetchForecast(gctx, location)
		report.Forecast = fc
		return err
	})
	g.Go(func() error {
		hourly, err := s.FetchHourly(gctx, location)
		report.Hourly = hourly
		return err
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return report, nil
}

// Collector pipeline: raw fetch, normalize, archive.

func (s *Service) FetchData(ctx context.Context, city string) ([]byte, error) {
	return s.fetchCurrentRaw(ctx, map[string]string{"q": city})
}

func (s *Service) ParseData(data []byte) (interface{}, error) {
	cw, err := parseCurrent(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse weather data: %w", err)
	}
	return Snapshot{
		Kind:      SnapshotCurrent,
		City:      cw.Location.Name,
		Current:   &cw,
		FetchedAt: s.now(),
	}, nil
}

func (s *Service) FetchForecastData(ctx context.Context, city string) ([]byte, error) {
	return s.fetchForecastRaw(ctx, city)
}

func (s *Service) ParseForecastData(data []byte) (interface{}, error) {
	resp, err := decodeForecast(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse forecast data: %w", err)
	}
	fc := buildForecast(resp, s.now())
	return Snapshot{
		Kind:      SnapshotForecast,
		City:      fc.Location.Name,
		Forecast:  &fc,
		FetchedAt: s.now(),
	}, nil
}

func (s *Service) StoreData(ctx context.Context, client *mongo.Client, data interface{}) error {
	if client == nil {
		return fmt.Errorf("mongo client is nil")
	}

	snapshot, ok := data.(Snapshot)
	if !ok {
		return fmt.Errorf("invalid data type for storing weather snapshot: %T", data)
	}

	coll := client.Database(s.DBName).Collection(s.Config.CollectionSnapshots)
	_, err := coll.InsertOne(ctx, snapshot)
	return err
}

// RunBatchJob queues a current and a forecast request for every tracked location.
func (s *Service) RunBatchJob(ctx context.Context, client *mongo.Client, chans *channels.Channels) error {
	logger.Info("[%s] Starting batch job...", s.DBName)

	params, err := db.GetFetchParams(ctx, client, s.DBName, s.Config.CollectionFetchParams)
	if err != nil {
		logger.Error("[%s] Failed to get fetch parameters: %v", s.DBName, err)
		return err
	}

	store := func(ctx context.Context, data interface{}) error {
		return s.StoreData(ctx, client, data)
	}

	submitted := 0
	for _, param := range params {
		if param.City == "" {
			logger.Error("[%s] Skipping fetch parameter without city: %+v", s.DBName, param)
			continue
		}
		chans.Submit(models.DataRequest{
			ID:        param.City,
			Service:   serviceName + ":" + SnapshotCurrent,
			FetchFunc: s.FetchData,
			ParseFunc: s.ParseData,
			StoreFunc: store,
		})
		chans.Submit(models.DataRequest{
			ID:        param.City,
			Service:   serviceName + ":" + SnapshotForecast,
			FetchFunc: s.FetchForecastData,
			ParseFunc: s.ParseForecastData,
			StoreFunc: store,
		})
		submitted += 2
	}

	logger.Info("[%s] Submitted %d requests to the worker pool.", s.DBName, submitted)
	return nil
}
