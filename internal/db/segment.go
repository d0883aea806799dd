package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightops/haulage-console/internal/models"
)

// MongoSegmentCollection implements SegmentCollection for MongoDB.
type MongoSegmentCollection struct {
	Collection *mongo.Collection
}

// mongoSegmentCursor wraps a MongoDB cursor for segment queries.
type mongoSegmentCursor struct {
	cursor *mongo.Cursor
}

// All retrieves all results from the cursor.
func (c *mongoSegmentCursor) All(ctx context.Context, out interface{}) error {
	return c.cursor.All(ctx, out)
}

// Close closes the cursor.
func (c *mongoSegmentCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}

// InsertSegment inserts a segment record and returns it with its assigned ID.
func (c *MongoSegmentCollection) InsertSegment(ctx context.Context, segment models.Segment) (*models.Segment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	segment.CreatedAt = time.Now()
	segment.UpdatedAt = time.Now()

	result, err := c.Collection.InsertOne(ctx, segment)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		segment.ID = oid
	}
	return &segment, nil
}

// FindSegmentByID finds a segment by its ID.
func (c *MongoSegmentCollection) FindSegmentByID(ctx context.Context, id string) (*models.Segment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid segment ID: %w", err)
	}

	var segment models.Segment
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&segment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("segment not found")
		}
		return nil, err
	}
	return &segment, nil
}

// FindSegments queries segment records from the collection.
func (c *MongoSegmentCollection) FindSegments(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (SegmentCursor, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoSegmentCursor{cursor: cursor}, nil
}

// UpdateSegmentFields applies a partial $set update and returns the updated
// segment. Only the given fields change; updated_at is always refreshed.
func (c *MongoSegmentCollection) UpdateSegmentFields(ctx context.Context, id string, fields bson.M) (*models.Segment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid segment ID: %w", err)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	after := options.After
	var segment models.Segment
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": set},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&segment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("segment not found")
		}
		return nil, err
	}
	return &segment, nil
}

// DeleteSegment deletes a segment by its ID.
func (c *MongoSegmentCollection) DeleteSegment(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid segment ID: %w", err)
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("segment not found")
	}
	return nil
}
