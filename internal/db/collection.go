package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightops/haulage-console/internal/models"
)

// SegmentCollection defines the interface for segment data operations.
type SegmentCollection interface {
	InsertSegment(ctx context.Context, segment models.Segment) (*models.Segment, error)
	FindSegmentByID(ctx context.Context, id string) (*models.Segment, error)
	FindSegments(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (SegmentCursor, error)
	UpdateSegmentFields(ctx context.Context, id string, fields bson.M) (*models.Segment, error)
	DeleteSegment(ctx context.Context, id string) error
}

// SegmentCursor defines the interface for segment cursor operations.
type SegmentCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// ShipmentCollection defines the interface for shipment data operations.
type ShipmentCollection interface {
	InsertShipment(ctx context.Context, shipment models.Shipment) (*models.Shipment, error)
	FindShipmentByID(ctx context.Context, id string) (*models.Shipment, error)
	FindShipments(ctx context.Context, filter bson.M, opts ...*options.FindOptions) (ShipmentCursor, error)
	UpdateShipmentFields(ctx context.Context, id string, fields bson.M) (*models.Shipment, error)
	DeleteShipment(ctx context.Context, id string) error
}

// ShipmentCursor defines the interface for shipment cursor operations.
type ShipmentCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

// AnnouncementCollection defines the interface for announcement data operations.
type AnnouncementCollection interface {
	InsertAnnouncements(ctx context.Context, announcements []models.Announcement) error
	FindAnnouncementByID(ctx context.Context, id string) (*models.Announcement, error)
	FindAnnouncementsBySegment(ctx context.Context, segmentID string) ([]models.Announcement, error)
	UpdateAnnouncementStatus(ctx context.Context, id string, status models.AnnouncementStatus) error
	CountAccepted(ctx context.Context, segmentID string) (int64, error)
	DeleteAnnouncementsBySegment(ctx context.Context, segmentID string) error
}
