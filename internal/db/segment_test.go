package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/freightops/haulage-console/internal/models"
)

func TestMongoSegmentCollection_InsertAndFind(t *testing.T) {
	client, err := ConnectMongo("")
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_haulage")
	collection := db.Collection("segments")
	collection.Drop(context.Background())

	segmentCollection := &MongoSegmentCollection{Collection: collection}

	segment := models.Segment{
		ShipmentID:    "shp-1",
		Order:         1,
		OriginCity:    "Hamburg",
		OriginCountry: "DE",
		Status:        models.StatusPendingAssignment,
	}

	inserted, err := segmentCollection.InsertSegment(context.Background(), segment)
	require.NoError(t, err)
	require.False(t, inserted.ID.IsZero())
	assert.NotZero(t, inserted.CreatedAt)

	found, err := segmentCollection.FindSegmentByID(context.Background(), inserted.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "shp-1", found.ShipmentID)
	assert.Equal(t, models.StatusPendingAssignment, found.Status)

	// Invalid ID
	_, err = segmentCollection.FindSegmentByID(context.Background(), "invalid-id")
	assert.Error(t, err)
}

func TestMongoSegmentCollection_UpdateSegmentFields(t *testing.T) {
	client, err := ConnectMongo("")
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_haulage")
	collection := db.Collection("segments")
	collection.Drop(context.Background())

	segmentCollection := &MongoSegmentCollection{Collection: collection}

	inserted, err := segmentCollection.InsertSegment(context.Background(), models.Segment{
		ShipmentID: "shp-1",
		Order:      1,
		Status:     models.StatusPendingAssignment,
	})
	require.NoError(t, err)

	updated, err := segmentCollection.UpdateSegmentFields(context.Background(), inserted.ID.Hex(), bson.M{
		"status":     models.StatusAssigned,
		"company_id": "co-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, updated.Status)
	assert.Equal(t, "co-1", updated.CompanyID)
	assert.Equal(t, "shp-1", updated.ShipmentID, "untouched fields survive a partial update")
	assert.True(t, updated.UpdatedAt.After(inserted.UpdatedAt) || updated.UpdatedAt.Equal(inserted.UpdatedAt))

	// Unknown segment
	_, err = segmentCollection.UpdateSegmentFields(context.Background(), "ffffffffffffffffffffffff", bson.M{"status": models.StatusAssigned})
	assert.Error(t, err)
}

func TestMongoSegmentCollection_FindSegmentsByShipment(t *testing.T) {
	client, err := ConnectMongo("")
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_haulage")
	collection := db.Collection("segments")
	collection.Drop(context.Background())

	segmentCollection := &MongoSegmentCollection{Collection: collection}

	for i := 1; i <= 3; i++ {
		_, err := segmentCollection.InsertSegment(context.Background(), models.Segment{
			ShipmentID: "shp-1",
			Order:      i,
			Status:     models.StatusPendingAssignment,
		})
		require.NoError(t, err)
	}
	_, err = segmentCollection.InsertSegment(context.Background(), models.Segment{
		ShipmentID: "shp-2",
		Order:      1,
		Status:     models.StatusPendingAssignment,
	})
	require.NoError(t, err)

	cursor, err := segmentCollection.FindSegments(context.Background(), bson.M{"shipment_id": "shp-1"})
	require.NoError(t, err)
	defer cursor.Close(context.Background())

	var segments []models.Segment
	require.NoError(t, cursor.All(context.Background(), &segments))
	assert.Len(t, segments, 3)
}

func TestMongoSegmentCollection_DeleteSegment(t *testing.T) {
	client, err := ConnectMongo("")
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_haulage")
	collection := db.Collection("segments")
	collection.Drop(context.Background())

	segmentCollection := &MongoSegmentCollection{Collection: collection}

	inserted, err := segmentCollection.InsertSegment(context.Background(), models.Segment{
		ShipmentID: "shp-1",
		Order:      1,
		Status:     models.StatusPendingAssignment,
	})
	require.NoError(t, err)

	require.NoError(t, segmentCollection.DeleteSegment(context.Background(), inserted.ID.Hex()))

	_, err = segmentCollection.FindSegmentByID(context.Background(), inserted.ID.Hex())
	assert.Error(t, err)

	// Deleting again reports not found
	assert.Error(t, segmentCollection.DeleteSegment(context.Background(), inserted.ID.Hex()))
}

func TestMongoAnnouncementCollection_Lifecycle(t *testing.T) {
	client, err := ConnectMongo("")
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database("test_haulage")
	collection := db.Collection("announcements")
	collection.Drop(context.Background())

	announcementCollection := &MongoAnnouncementCollection{Collection: collection}

	batch := []models.Announcement{
		{ID: "ann-1", SegmentID: "seg-1", CompanyID: "co-a", Status: models.AnnouncementPending},
		{ID: "ann-2", SegmentID: "seg-1", CompanyID: "co-b", Status: models.AnnouncementPending},
	}
	require.NoError(t, announcementCollection.InsertAnnouncements(context.Background(), batch))

	// Empty batch is rejected
	assert.Error(t, announcementCollection.InsertAnnouncements(context.Background(), nil))

	found, err := announcementCollection.FindAnnouncementsBySegment(context.Background(), "seg-1")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	accepted, err := announcementCollection.CountAccepted(context.Background(), "seg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), accepted)

	require.NoError(t, announcementCollection.UpdateAnnouncementStatus(context.Background(), "ann-1", models.AnnouncementAccepted))

	accepted, err = announcementCollection.CountAccepted(context.Background(), "seg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), accepted)

	one, err := announcementCollection.FindAnnouncementByID(context.Background(), "ann-1")
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementAccepted, one.Status)
	assert.True(t, one.UpdatedAt.After(time.Time{}))

	require.NoError(t, announcementCollection.DeleteAnnouncementsBySegment(context.Background(), "seg-1"))
	found, err = announcementCollection.FindAnnouncementsBySegment(context.Background(), "seg-1")
	require.NoError(t, err)
	assert.Empty(t, found)
}
