package migrations

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/models"
)

//go:embed data/*.json
var dataFS embed.FS

const dataDir = "data"

func loadFetchParams(fileName string) ([]interface{}, error) {
	filePath := path.Join(dataDir, fileName)

	data, err := dataFS.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	var params []models.FetchParam
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON data from %s: %w", filePath, err)
	}

	documents := make([]interface{}, 0, len(params))
	for _, p := range params {
		if p.City == "" {
			return nil, fmt.Errorf("entry without city in %s", filePath)
		}
		documents = append(documents, p)
	}

	return documents, nil
}

func createCollectionIfNotExists(ctx context.Context, db *mongo.Database, name string) error {
	if err := db.CreateCollection(ctx, name); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == 48 { // 48 = NamespaceExists
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return nil
}

func seedCollection(ctx context.Context, client *mongo.Client, dbName, paramsColl, snapshotsColl, filename string) error {
	db := client.Database(dbName)

	if err := createCollectionIfNotExists(ctx, db, paramsColl); err != nil {
		return err
	}
	if err := createCollectionIfNotExists(ctx, db, snapshotsColl); err != nil {
		return err
	}

	data, err := loadFetchParams(filename)
	if err != nil {
		return fmt.Errorf("failed to load JSON: %w", err)
	}

	coll := db.Collection(paramsColl)
	if len(data) > 0 {
		if _, err := coll.InsertMany(ctx, data); err != nil {
			return fmt.Errorf("failed to insert data: %w", err)
		}
	}

	// Archive browsing is per city, newest first.
	_, err = db.Collection(snapshotsColl).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "city", Value: 1}, {Key: "kind", Value: 1}, {Key: "fetched_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", snapshotsColl, err)
	}

	return nil
}

func MigrateWeatherData(cfg *config.Config) func(ctx context.Context, client *mongo.Client) error {
	return func(ctx context.Context, client *mongo.Client) error {
		return seedCollection(ctx, client, cfg.DBWeather, cfg.CollectionFetchParams, cfg.CollectionSnapshots, "weather_params.json")
	}
}
