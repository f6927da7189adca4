package mongo

import (
	"context"
	"fmt"
	"time"

	"settings-service/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type Connection struct {
	Client   *mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

func Connect(cfg config.MongoDBConfig, logger *zap.Logger) (*Connection, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(60 * time.Second).
		SetMaxConnecting(2).
		SetConnectTimeout(cfg.Timeout).
		SetCompressors([]string{"zstd", "snappy", "zlib"}).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		logger.Warn("Could not verify MongoDB connection", zap.Error(err))
	} else {
		logger.Info("Successfully connected to MongoDB")
	}

	logger.Info("MongoDB initialized",
		zap.String("database", cfg.Database),
		zap.Uint64("maxPoolSize", cfg.MaxPoolSize))

	return &Connection{
		Client:   client,
		Database: client.Database(cfg.Database),
		logger:   logger,
	}, nil
}

func (c *Connection) Disconnect() {
	if c == nil || c.Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Error disconnecting from MongoDB", zap.Error(err))
	} else {
		c.logger.Info("Successfully disconnected from MongoDB")
	}
}
