package repository

import (
	"context"
	"fmt"

	"user-account-service/internal/config"
	"user-account-service/internal/db"
)

// Open connects the store selected by cfg.StoreDriver and returns the repository with a closer
// for the underlying connection. Mongo stores get their unique email index created.
func Open(ctx context.Context, cfg *config.Config) (Repository, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresRepository(conn), func(context.Context) error { return conn.Close() }, nil
	case config.StoreMongo:
		client, err := db.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := NewMongoRepository(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return repo, client.Disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
