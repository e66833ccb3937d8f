package database

import (
	"context"
	"fmt"
	"time"

	"maternal-triage-backend/config"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connect establishes database connection based on config
func Connect(cfg *config.Config, logger *zap.Logger) error {
	switch cfg.Database.Type {
	case "mongodb":
		return ConnectMongoDB(cfg, logger)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// Disconnect closes database connection
func Disconnect() error {
	return DisconnectMongoDB()
}

// Connected reports whether a database connection is available
func Connected() bool {
	return mongoClient != nil
}

// HealthCheck performs a database health check
func HealthCheck(ctx context.Context) error {
	if mongoClient == nil {
		return fmt.Errorf("database not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return mongoClient.Ping(ctx, readpref.Primary())
}
