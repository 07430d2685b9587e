package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/sheepfold/internal/domain/models"
)

// Repository defines the interface for feed report archiving.
type Repository interface {
	SaveFeedReport(ctx context.Context, report models.FeedReport) error
	ListFeedReports(ctx context.Context, userID string, limit int64) ([]models.FeedReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "feed_reports",
	}

	index := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}}
	if _, err := repo.collection().Indexes().CreateOne(ctx, index); err != nil {
		return nil, fmt.Errorf("failed to create feed report index: %w", err)
	}

	return repo, nil
}

// SaveFeedReport stores a report, replacing any report with the same id.
func (r *MongoDBRepository) SaveFeedReport(ctx context.Context, report models.FeedReport) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection().ReplaceOne(ctx, bson.M{"_id": report.ID}, report, opts); err != nil {
		return fmt.Errorf("failed to save feed report: %w", err)
	}
	return nil
}

// ListFeedReports returns the latest reports of a tenant, newest first.
func (r *MongoDBRepository) ListFeedReports(ctx context.Context, userID string, limit int64) ([]models.FeedReport, error) {
	if limit <= 0 {
		limit = 30
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed reports: %w", err)
	}

	var reports []models.FeedReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode feed reports: %w", err)
	}
	return reports, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}
