package clients

import (
	"context"
	"time"

	config "github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/jimlawless/whereami"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type MongoClient struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoClient(cfg *config.MongoCfg) (*MongoClient, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &MongoClient{
		Client:   client,
		Database: client.Database(cfg.Database),
	}, nil
}

func (m *MongoClient) Ping(ctx context.Context) error {
	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (m *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.Client.Disconnect(ctx)
}
