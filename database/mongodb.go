package database

import (
	"context"
	"fmt"
	"time"

	"maternal-triage-backend/config"
	"maternal-triage-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const triageLogsCollection = "triage_logs"

var (
	mongoClient *mongo.Client
	mongoDB     *mongo.Database
)

// ConnectMongoDB establishes connection to MongoDB
func ConnectMongoDB(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Set client options
	clientOptions := options.Client().
		ApplyURI(cfg.BuildDatabaseURI()).
		SetMaxPoolSize(uint64(cfg.Database.MaxConnections)).
		SetMinPoolSize(uint64(cfg.Database.MinConnections)).
		SetMaxConnIdleTime(cfg.Database.MaxIdleTime)

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", cfg.Database.Name))

	return useClient(ctx, client, cfg.Database.Name, logger)
}

// useClient publishes client as the package connection once its indexes exist.
// On failure the client is disconnected and nothing is published.
func useClient(ctx context.Context, client *mongo.Client, name string, logger *zap.Logger) error {
	mongoClient = client
	mongoDB = client.Database(name)

	if err := createIndexes(ctx, logger); err != nil {
		_ = client.Disconnect(context.Background())
		mongoClient = nil
		mongoDB = nil
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// GetMongoDB returns the MongoDB database instance, or nil when not connected
func GetMongoDB() *mongo.Database {
	return mongoDB
}

// createIndexes creates necessary indexes
func createIndexes(ctx context.Context, logger *zap.Logger) error {
	logIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "event_id", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "alert_level", Value: 1}},
		},
	}

	if _, err := mongoDB.Collection(triageLogsCollection).Indexes().CreateMany(ctx, logIndexes); err != nil {
		return fmt.Errorf("failed to create triage log indexes: %w", err)
	}

	logger.Info("database indexes created", zap.String("collection", triageLogsCollection))
	return nil
}

// DisconnectMongoDB closes the MongoDB connection
func DisconnectMongoDB() error {
	if mongoClient == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mongoClient.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	mongoClient = nil
	mongoDB = nil

	return nil
}

// TriageLogStore writes triage outcomes to the triage_logs collection
type TriageLogStore struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewTriageLogStore(db *mongo.Database) *TriageLogStore {
	return &TriageLogStore{
		collection: db.Collection(triageLogsCollection),
		timeout:    5 * time.Second,
	}
}

// Record inserts one audit entry
func (s *TriageLogStore) Record(ctx context.Context, record models.TriageRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert triage record: %w", err)
	}
	return nil
}
