package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AbdulWasayUl/go-weather-chat/internal/api"
	"github.com/AbdulWasayUl/go-weather-chat/internal/channels"
	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
	"github.com/AbdulWasayUl/go-weather-chat/models"
)

var (
	fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	sunrise  = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC).Unix()
	sunset   = time.Date(2024, 1, 15, 16, 0, 0, 0, time.UTC).Unix()
)

const currentFixture = `{
	"coord": {"lon": -0.1257, "lat": 51.5085},
	"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
	"main": {"temp": 8.5, "feels_like": 5.4, "pressure": 1013, "humidity": 72},
	"visibility": 8500,
	"wind": {"speed": 4.2, "deg": 200},
	"clouds": {"all": 75},
	"rain": {"1h": 0.3},
	"dt": %d,
	"sys": {"country": "GB", "sunrise": %d, "sunset": %d},
	"timezone": 0,
	"name": "London"
}`

func forecastFixture() []byte {
	var list []map[string]interface{}
	for at := fixedNow.Add(2 * time.Hour); at.Before(time.Date(2024, 1, 23, 0, 0, 0, 0, time.UTC)); at = at.Add(3 * time.Hour) {
		list = append(list, map[string]interface{}{
			"dt":      at.Unix(),
			"main":    map[string]interface{}{"temp": 10.0, "temp_min": 8.0, "temp_max": 12.0, "humidity": 60},
			"weather": []interface{}{map[string]interface{}{"id": 800, "description": "clear sky", "icon": "01d"}},
			"wind":    map[string]interface{}{"speed": 3.0},
		})
	}
	data, _ := json.Marshal(map[string]interface{}{
		"list": list,
		"city": map[string]interface{}{
			"name": "London", "country": "GB",
			"coord":    map[string]float64{"lat": 51.5085, "lon": -0.1257},
			"timezone": 0, "sunrise": sunrise, "sunset": sunset,
		},
	})
	return data
}

type providerStub struct {
	mu       sync.Mutex
	queries  map[string][]string
	statuses map[string]int
}

func (p *providerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	if p.queries == nil {
		p.queries = make(map[string][]string)
	}
	p.queries[r.URL.Path] = append(p.queries[r.URL.Path], r.URL.RawQuery)
	status := p.statuses[r.URL.Path]
	p.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"cod":"500","message":"upstream detail"}`)
		return
	}

	switch r.URL.Path {
	case "/data/2.5/weather":
		fmt.Fprintf(w, currentFixture, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Unix(), sunrise, sunset)
	case "/data/2.5/forecast":
		w.Write(forecastFixture())
	case "/geo/1.0/direct":
		fmt.Fprint(w, `[{"name":"London","state":"England","country":"GB","lat":51.5073,"lon":-0.1276},{"name":"London","state":"Ontario","country":"CA","lat":42.98,"lon":-81.24}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestService(t *testing.T, stub *providerStub) *Service {
	t.Helper()
	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)

	s := NewService(&config.Config{
		WeatherAPIKey:       "test_key",
		WeatherAPIBaseURL:   ts.URL + "/data/2.5",
		GeoAPIBaseURL:       ts.URL + "/geo/1.0",
		DBWeather:           "test_db",
		CollectionSnapshots: "snapshots",
		HTTPTimeout:         5 * time.Second,
	})
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestNewService(t *testing.T) {
	cfg := &config.Config{DBWeather: "test_db", WeatherAPIKey: "test_key"}

	service := NewService(cfg)

	assert.NotNil(t, service)
	assert.Equal(t, cfg, service.Config)
	assert.NotNil(t, service.Client)
	assert.Equal(t, "test_db", service.DBName)
}

func TestFetchCurrent(t *testing.T) {
	stub := &providerStub{}
	s := newTestService(t, stub)

	cw, err := s.FetchCurrent(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, Location{
		Name: "London", Country: "GB", Region: "London",
		Lat: 51.5085, Lon: -0.1257,
		TimezoneID: "UTC", LocalTime: "2024-01-15T12:00:00Z",
	}, cw.Location)

	c := cw.Current
	assert.Equal(t, "12:00 PM", c.ObservationTime)
	assert.Equal(t, 9, c.Temperature)
	assert.Equal(t, 803, c.WeatherCode)
	assert.Equal(t, []string{"https://openweathermap.org/img/wn/04d@2x.png"}, c.WeatherIcons)
	assert.Equal(t, []string{"broken clouds"}, c.WeatherDescriptions)
	assert.Equal(t, 15, c.WindSpeed)
	assert.Equal(t, 200.0, c.WindDegree)
	assert.Equal(t, "SSW", c.WindDir)
	assert.Equal(t, 1013.0, c.Pressure)
	assert.Equal(t, 0.3, c.Precip)
	assert.Equal(t, 72, c.Humidity)
	assert.Equal(t, 75, c.CloudCover)
	assert.Equal(t, 5, c.FeelsLike)
	assert.Equal(t, 0, c.UVIndex)
	assert.Equal(t, 8.5, c.Visibility)
	assert.True(t, c.IsDay)

	require.Len(t, stub.queries["/data/2.5/weather"], 1)
	assert.Equal(t, "appid=test_key&q=London&units=metric", stub.queries["/data/2.5/weather"][0])
}

func TestParseCurrent_DayNightBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		dt    int64
		isDay bool
	}{
		{"at sunrise", sunrise, false},
		{"just after sunrise", sunrise + 1, true},
		{"just before sunset", sunset - 1, true},
		{"at sunset", sunset, false},
		{"night", sunset + 3600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cw, err := parseCurrent([]byte(fmt.Sprintf(currentFixture, tt.dt, sunrise, sunset)))
			require.NoError(t, err)
			assert.Equal(t, tt.isDay, cw.Current.IsDay)
		})
	}
}

func TestParseCurrent_MissingRain(t *testing.T) {
	cw, err := parseCurrent([]byte(`{"weather":[{"id":800,"description":"clear sky","icon":"01d"}],"dt":1705320000,"visibility":10000,"wind":{"speed":0,"deg":0}}`))

	require.NoError(t, err)
	assert.Equal(t, 0.0, cw.Current.Precip)
	assert.Equal(t, 10.0, cw.Current.Visibility)
	assert.Equal(t, "N", cw.Current.WindDir)
}

func TestParseCurrent_WindDegreeUnrounded(t *testing.T) {
	cw, err := parseCurrent([]byte(`{"weather":[{"id":800,"description":"clear sky","icon":"01d"}],"dt":1705320000,"wind":{"speed":1,"deg":247.6}}`))

	require.NoError(t, err)
	assert.Equal(t, 247.6, cw.Current.WindDegree)
	assert.Equal(t, "WSW", cw.Current.WindDir)
}

func TestFetchCurrent_TransportErrorKeepsKeyOutOfLogs(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()

	s := NewService(&config.Config{WeatherAPIKey: "SUPERSECRETKEY", WeatherAPIBaseURL: ts.URL, HTTPTimeout: time.Second})
	_, err := s.FetchCurrent(context.Background(), "London")

	require.Error(t, err)
	var te *api.TransportError
	require.True(t, errors.As(err, &te))
	assert.NotContains(t, te.Error(), "SUPERSECRETKEY")
	assert.NotEmpty(t, buf.String())
	assert.NotContains(t, buf.String(), "SUPERSECRETKEY")
}

func TestFetchCurrentByCoords(t *testing.T) {
	stub := &providerStub{}
	s := newTestService(t, stub)

	cw, err := s.FetchCurrentByCoords(context.Background(), 51.5085, -0.1257)

	require.NoError(t, err)
	assert.Equal(t, "London", cw.Location.Name)
	assert.Equal(t, "appid=test_key&lat=51.5085&lon=-0.1257&units=metric", stub.queries["/data/2.5/weather"][0])
}

func TestFetchCurrent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr interface{}
	}{
		{"provider error", "", http.StatusUnauthorized, &api.StatusError{}},
		{"invalid json", `{invalid json}`, 0, &api.MalformedResponseError{}},
		{"no condition", `{"weather":[],"dt":1705320000}`, 0, &api.MalformedResponseError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, `{"message":"Invalid API key"}`)
					return
				}
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			s := NewService(&config.Config{WeatherAPIBaseURL: ts.URL})
			_, err := s.FetchCurrent(context.Background(), "London")

			require.Error(t, err)
			assert.Equal(t, "failed to fetch weather data", err.Error())
			assert.NotContains(t, err.Error(), "Invalid API key")
			assert.ErrorIs(t, err, ErrFetchFailed)

			var fe *FetchError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, OpCurrent, fe.Op)
			switch tt.wantErr.(type) {
			case *api.StatusError:
				var se *api.StatusError
				assert.True(t, errors.As(err, &se))
			case *api.MalformedResponseError:
				var me *api.MalformedResponseError
				assert.True(t, errors.As(err, &me))
			}
		})
	}
}

func TestFetchForecast(t *testing.T) {
	stub := &providerStub{}
	s := newTestService(t, stub)

	fc, err := s.FetchForecast(context.Background(), "London")
	require.NoError(t, err)

	require.Len(t, fc.Days, 5)
	assert.Equal(t, "2024-01-16", fc.Days[0].Date)
	assert.Equal(t, "2024-01-20", fc.Days[4].Date)

	day := fc.Days[0]
	assert.Equal(t, 12, day.MaxTempC)
	assert.Equal(t, 8, day.MinTempC)
	assert.Equal(t, 10, day.AvgTempC)
	assert.Equal(t, 11, day.MaxWindKPH)
	assert.Equal(t, 0, day.TotalPrecipMM)
	assert.Equal(t, 60, day.AvgHumidity)
	assert.Equal(t, Condition{Text: "clear sky", Icon: "https://openweathermap.org/img/wn/01d@2x.png", Code: 800}, day.Condition)
	assert.Equal(t, Astro{Sunrise: "08:00 AM", Sunset: "04:00 PM"}, day.Astro)
	assert.Equal(t, "2024-01-15T10:00:00Z", fc.Location.LocalTime)
}

func TestFetchForecast_Errors(t *testing.T) {
	stub := &providerStub{statuses: map[string]int{"/data/2.5/forecast": http.StatusInternalServerError}}
	s := newTestService(t, stub)

	_, err := s.FetchForecast(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, "failed to fetch forecast data", err.Error())

	_, err = s.FetchHourly(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, "failed to fetch hourly forecast data", err.Error())
}

func TestDecodeForecast_Validation(t *testing.T) {
	_, err := decodeForecast([]byte(`{"list":[]}`))
	assert.Error(t, err)

	_, err = decodeForecast([]byte(`{"list":[{"dt":1705320000,"weather":[]}]}`))
	assert.Error(t, err)

	var me *api.MalformedResponseError
	assert.True(t, errors.As(err, &me))
}

func TestFetchHourly(t *testing.T) {
	s := newTestService(t, &providerStub{})

	hourly, err := s.FetchHourly(context.Background(), "London")
	require.NoError(t, err)

	require.Len(t, hourly, 8)
	assert.Equal(t, HourlySample{Time: "12:00 PM", Temp: 10, Icon: "☀️", Condition: "clear sky", Humidity: 60, WindSpeed: 11}, hourly[0])
	assert.Equal(t, "03:00 PM", hourly[1].Time)
	assert.Equal(t, "09:00 AM", hourly[7].Time)
}

func TestSearchLocation(t *testing.T) {
	stub := &providerStub{}
	s := newTestService(t, stub)

	results, err := s.SearchLocation(context.Background(), "London")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].ID)
	assert.Equal(t, "England", results[0].Region)
	assert.Equal(t, 2, results[1].ID)
	assert.Equal(t, "CA", results[1].Country)
	assert.Equal(t, s.Config.WeatherAPIBaseURL+"/weather?q=London&units=metric", results[0].URL)
	assert.NotContains(t, results[0].URL, "test_key")
	assert.Equal(t, "appid=test_key&limit=5&q=London", stub.queries["/geo/1.0/direct"][0])
}

func TestSearchLocation_Error(t *testing.T) {
	stub := &providerStub{statuses: map[string]int{"/geo/1.0/direct": http.StatusBadGateway}}
	s := newTestService(t, stub)

	_, err := s.SearchLocation(context.Background(), "London")

	require.Error(t, err)
	assert.Equal(t, "failed to search location", err.Error())
}

func TestFetchReport(t *testing.T) {
	stub := &providerStub{}
	s := newTestService(t, stub)

	report, err := s.FetchReport(context.Background(), "London")

	require.NoError(t, err)
	assert.Equal(t, "London", report.Current.Location.Name)
	assert.Len(t, report.Forecast.Days, 5)
	assert.Len(t, report.Hourly, 8)
	assert.Len(t, stub.queries["/data/2.5/weather"], 1)
	assert.Len(t, stub.queries["/data/2.5/forecast"], 2)
}

func TestFetchReport_AllOrNothing(t *testing.T) {
	stub := &providerStub{statuses: map[string]int{"/data/2.5/weather": http.StatusInternalServerError}}
	s := newTestService(t, stub)

	report, err := s.FetchReport(context.Background(), "London")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, Report{}, report, "partial results must not be surfaced")
}

func TestParseData(t *testing.T) {
	s := newTestService(t, &providerStub{})

	tests := []struct {
		name        string
		input       string
		expectError bool
	}{
		{"valid response", fmt.Sprintf(currentFixture, sunrise+60, sunrise, sunset), false},
		{"empty input", ``, true},
		{"invalid json", `{invalid json}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := s.ParseData([]byte(tt.input))
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			snap, ok := data.(Snapshot)
			require.True(t, ok, "expected Snapshot type")
			assert.Equal(t, SnapshotCurrent, snap.Kind)
			assert.Equal(t, "London", snap.City)
			require.NotNil(t, snap.Current)
			assert.Nil(t, snap.Forecast)
			assert.Equal(t, fixedNow, snap.FetchedAt)
		})
	}
}

func TestParseForecastData(t *testing.T) {
	s := newTestService(t, &providerStub{})

	data, err := s.ParseForecastData(forecastFixture())
	require.NoError(t, err)

	snap := data.(Snapshot)
	assert.Equal(t, SnapshotForecast, snap.Kind)
	assert.Equal(t, "London", snap.City)
	require.NotNil(t, snap.Forecast)
	assert.Len(t, snap.Forecast.Days, 5)

	_, err = s.ParseForecastData([]byte(`{"list":[]}`))
	assert.Error(t, err)
}

func TestStoreData_Validation(t *testing.T) {
	s := newTestService(t, &providerStub{})

	err := s.StoreData(context.Background(), nil, Snapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo client is nil")
}

type mongoContainer struct {
	tc.Container
	URI string
}

func setupMongoContainer(ctx context.Context) (*mongoContainer, error) {
	req := tc.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port("27017"))
	if err != nil {
		return nil, err
	}

	return &mongoContainer{
		Container: container,
		URI:       fmt.Sprintf("mongodb://%s:%s", host, mappedPort.Port()),
	}, nil
}

func setupTestDB(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func TestStoreData(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoC, err := setupMongoContainer(ctx)
	require.NoError(t, err)
	defer mongoC.Terminate(ctx)

	client, err := setupTestDB(ctx, mongoC.URI)
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	s := newTestService(t, &providerStub{})

	tests := []struct {
		name        string
		data        interface{}
		expectError bool
		errorMsg    string
	}{
		{"current snapshot", mustParse(t, s.ParseData, []byte(fmt.Sprintf(currentFixture, sunrise+60, sunrise, sunset))), false, ""},
		{"forecast snapshot", mustParse(t, s.ParseForecastData, forecastFixture()), false, ""},
		{"invalid data type", "invalid data", true, "invalid data type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.StoreData(ctx, client, tt.data)
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
		})
	}

	coll := client.Database("test_db").Collection("snapshots")
	count, err := coll.CountDocuments(ctx, bson.M{"city": "London"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var stored Snapshot
	require.NoError(t, coll.FindOne(ctx, bson.M{"kind": SnapshotForecast}).Decode(&stored))
	require.NotNil(t, stored.Forecast)
	assert.Equal(t, "2024-01-16", stored.Forecast.Days[0].Date)
}

func mustParse(t *testing.T, parse func([]byte) (interface{}, error), data []byte) interface{} {
	t.Helper()
	v, err := parse(data)
	require.NoError(t, err)
	return v
}

func TestRunBatchJob(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoC, err := setupMongoContainer(ctx)
	require.NoError(t, err)
	defer mongoC.Terminate(ctx)

	client, err := setupTestDB(ctx, mongoC.URI)
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	s := newTestService(t, &providerStub{})
	s.Config.CollectionFetchParams = "fetch_params"
	params := client.Database("test_db").Collection("fetch_params")

	tests := []struct {
		name          string
		setup         func() error
		expectedCount int
	}{
		{
			name: "two requests per tracked city",
			setup: func() error {
				_, err := params.InsertMany(ctx, []interface{}{
					models.FetchParam{City: "London", Country: "GB"},
					models.FetchParam{City: "Paris", Country: "FR"},
					bson.M{"country": "XX"},
				})
				return err
			},
			expectedCount: 4,
		},
		{
			name: "no tracked cities",
			setup: func() error {
				_, err := params.DeleteMany(ctx, bson.M{})
				return err
			},
			expectedCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.setup())

			chans := channels.New()
			var kinds []string
			var mu sync.Mutex
			done := make(chan struct{})
			go func() {
				defer close(done)
				for req := range chans.DataRequest {
					mu.Lock()
					kinds = append(kinds, req.Service)
					mu.Unlock()
					chans.WG.Done()
				}
			}()

			err := s.RunBatchJob(ctx, client, chans)
			close(chans.DataRequest)
			<-done

			require.NoError(t, err)
			assert.Len(t, kinds, tt.expectedCount)
			if tt.expectedCount > 0 {
				assert.Equal(t, "weather:current", kinds[0])
				assert.Equal(t, "weather:forecast", kinds[1])
			}
		})
	}
}
