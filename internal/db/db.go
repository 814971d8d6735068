package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AbdulWasayUl/go-weather-chat/internal/config"
	"github.com/AbdulWasayUl/go-weather-chat/internal/db/migrations"
	"github.com/AbdulWasayUl/go-weather-chat/internal/logger"
	"github.com/AbdulWasayUl/go-weather-chat/models"
)

const migrationCollectionName = "migrations_history"

func ConnectMongoDB(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	if cfg.MongoUser != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   cfg.MongoUser,
			Password:   cfg.MongoPass,
			AuthSource: cfg.MongoAuthDB,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctxTimeout, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("Successfully connected to MongoDB!")
	return client, nil
}

func DisconnectMongoDB(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return err
	}
	logger.Info("Disconnected from MongoDB.")
	return nil
}

func RunMigrations(ctx context.Context, client *mongo.Client, cfg *config.Config) error {
	return applyMigrations(ctx, client, cfg.DBWeather, []models.Migration{
		{Name: "initial_data_weather", Func: migrations.MigrateWeatherData(cfg)},
	})
}

func applyMigrations(ctx context.Context, client *mongo.Client, dbName string, list []models.Migration) error {
	coll := client.Database(dbName).Collection(migrationCollectionName)

	for _, m := range list {
		var result struct{ Name string }
		err := coll.FindOne(ctx, bson.M{"name": m.Name}).Decode(&result)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			logger.Info("Running migration: %s", m.Name)
			if err := m.Func(ctx, client); err != nil {
				logger.Error("Error applying migration %s: %v", m.Name, err)
				return err
			}
			if _, err := coll.InsertOne(ctx, bson.M{"name": m.Name, "applied_at": time.Now()}); err != nil {
				return err
			}
			logger.Info("Migration %s applied successfully.", m.Name)
		case err != nil:
			return err
		default:
			logger.Info("Migration %s already applied, skipping.", m.Name)
		}
	}

	return nil
}

// GetFetchParams returns every tracked location in the collection.
func GetFetchParams(ctx context.Context, client *mongo.Client, dbName, collectionName string) ([]models.FetchParam, error) {
	if client == nil {
		return nil, errors.New("mongo client is nil")
	}

	coll := client.Database(dbName).Collection(collectionName)

	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []models.FetchParam{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	return results, nil
}
