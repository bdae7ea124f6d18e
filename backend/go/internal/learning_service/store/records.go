package store

import (
	"context"

	"github.com/aimankahim/mcqsbank/backend/go/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordStore defines the interface for generation audit records.
type RecordStore interface {
	Insert(ctx context.Context, rec *models.GenerationRecord) error
	Recent(ctx context.Context, userID uint, limit int) ([]*models.GenerationRecord, error)
}

// MongoRecordStore is an implementation of RecordStore using MongoDB.
type MongoRecordStore struct {
	collection *mongo.Collection
}

// NewMongoRecordStore creates a new MongoRecordStore.
func NewMongoRecordStore(collection *mongo.Collection) *MongoRecordStore {
	return &MongoRecordStore{collection: collection}
}

// Insert stores a generation record.
func (s *MongoRecordStore) Insert(ctx context.Context, rec *models.GenerationRecord) error {
	_, err := s.collection.InsertOne(ctx, rec)
	return err
}

// Recent returns the latest records of a user, newest first.
func (s *MongoRecordStore) Recent(ctx context.Context, userID uint, limit int) ([]*models.GenerationRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.GenerationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
