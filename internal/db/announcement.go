package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/freightops/haulage-console/internal/models"
)

// MongoAnnouncementCollection implements AnnouncementCollection for MongoDB.
type MongoAnnouncementCollection struct {
	Collection *mongo.Collection
}

// InsertAnnouncements inserts a broadcast batch in one call.
func (c *MongoAnnouncementCollection) InsertAnnouncements(ctx context.Context, announcements []models.Announcement) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if len(announcements) == 0 {
		return fmt.Errorf("empty announcement batch")
	}

	docs := make([]interface{}, 0, len(announcements))
	now := time.Now()
	for i := range announcements {
		announcements[i].CreatedAt = now
		announcements[i].UpdatedAt = now
		docs = append(docs, announcements[i])
	}
	_, err := c.Collection.InsertMany(ctx, docs)
	return err
}

// FindAnnouncementByID finds an announcement by its ID.
func (c *MongoAnnouncementCollection) FindAnnouncementByID(ctx context.Context, id string) (*models.Announcement, error) {
	var announcement models.Announcement
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&announcement)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("announcement not found")
		}
		return nil, err
	}
	return &announcement, nil
}

// FindAnnouncementsBySegment returns every announcement for a segment, oldest
// first.
func (c *MongoAnnouncementCollection) FindAnnouncementsBySegment(ctx context.Context, segmentID string) ([]models.Announcement, error) {
	cursor, err := c.Collection.Find(ctx, bson.M{"segment_id": segmentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var announcements []models.Announcement
	if err := cursor.All(ctx, &announcements); err != nil {
		return nil, err
	}
	return announcements, nil
}

// UpdateAnnouncementStatus transitions one announcement's response status.
func (c *MongoAnnouncementCollection) UpdateAnnouncementStatus(ctx context.Context, id string, status models.AnnouncementStatus) error {
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("announcement not found")
	}
	return nil
}

// CountAccepted counts accepted announcements for a segment. The protocol
// requires this to stay at or below one.
func (c *MongoAnnouncementCollection) CountAccepted(ctx context.Context, segmentID string) (int64, error) {
	return c.Collection.CountDocuments(ctx, bson.M{
		"segment_id": segmentID,
		"status":     models.AnnouncementAccepted,
	})
}

// DeleteAnnouncementsBySegment removes all announcements for a segment.
func (c *MongoAnnouncementCollection) DeleteAnnouncementsBySegment(ctx context.Context, segmentID string) error {
	_, err := c.Collection.DeleteMany(ctx, bson.M{"segment_id": segmentID})
	return err
}
