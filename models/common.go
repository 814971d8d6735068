package models

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// DataRequest is one unit of collector work: fetch raw bytes, normalize them, archive the result.
type DataRequest struct {
	ID        string
	Service   string
	FetchFunc func(ctx context.Context, id string) ([]byte, error)
	ParseFunc func([]byte) (interface{}, error)
	StoreFunc func(ctx context.Context, data interface{}) error
}

type Migration struct {
	Name string
	Func func(ctx context.Context, client *mongo.Client) error
}

// FetchParam is one tracked location the collector refreshes on every run.
type FetchParam struct {
	City    string  `bson:"city" json:"city"`
	Country string  `bson:"country" json:"country"`
	Lat     float64 `bson:"lat" json:"lat"`
	Lon     float64 `bson:"lon" json:"lon"`
}
