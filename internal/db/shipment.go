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

// MongoShipmentCollection implements ShipmentCollection for MongoDB.
type MongoShipmentCollection struct {
	Collection *mongo.Collection
}

type mongoShipmentCursor struct {
	cursor *mongo.Cursor
}

func (c *mongoShipmentCursor) All(ctx context.Context, out interface{}) error {
	return c.cursor.All(ctx, out)
}

func (c *mongoShipmentCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}

// InsertShipment inserts a shipment record and returns it with its assigned ID.
func (c *MongoShipmentCollection) InsertShipment(ctx context.Context, shipment models.Shipment) (*models.Shipment, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	shipment.CreatedAt = time.Now()
	shipment.UpdatedAt = time.Now()

	result, err := c.Collection.InsertOne(ctx, shipment)
	if err != nil {
		return nil, err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		shipment.ID = oid
	}
	return &shipment, nil
}

// FindShipmentByID finds a shipment by its ID.
func (c *MongoShipmentCollection) FindShipmentByID(ctx context.Context, id string) (*models.Shipment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid shipment ID: %w", err)
	}

	var shipment models.Shipment
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&shipment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("shipment not found")
		}
		return nil, err
	}
	return &shipment, nil
}

// FindShipments queries shipment records from the collection.
func (c *MongoShipmentCollection) FindShipments(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (ShipmentCursor, error) {
	cursor, err := c.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoShipmentCursor{cursor: cursor}, nil
}

// UpdateShipmentFields applies a partial $set update and returns the updated
// shipment.
func (c *MongoShipmentCollection) UpdateShipmentFields(ctx context.Context, id string, fields bson.M) (*models.Shipment, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid shipment ID: %w", err)
	}

	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	after := options.After
	var shipment models.Shipment
	err = c.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": set},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&shipment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("shipment not found")
		}
		return nil, err
	}
	return &shipment, nil
}

// DeleteShipment deletes a shipment by its ID. Callers are responsible for
// removing the child segments; a shipment's segments are invalid once the
// shipment is gone.
func (c *MongoShipmentCollection) DeleteShipment(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid shipment ID: %w", err)
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("shipment not found")
	}
	return nil
}
