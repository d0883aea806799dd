package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShipmentStatus is the coarse shipment-level state.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// IsValidShipmentStatus checks if a shipment status is recognized.
func IsValidShipmentStatus(status ShipmentStatus) bool {
	switch status {
	case ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentCancelled:
		return true
	default:
		return false
	}
}

// Shipment is an ordered sequence of segments representing one end-to-end
// delivery. Deleting a shipment invalidates all of its segments.
type Shipment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title        string             `bson:"title" json:"title"`
	Status       ShipmentStatus     `bson:"status" json:"status"`
	SegmentCount int                `bson:"segment_count" json:"segment_count"`

	// CurrentSegmentIndex is the 1-based order of the active leg, -1 when no
	// leg is active yet.
	CurrentSegmentIndex int `bson:"current_segment_index" json:"current_segment_index"`

	// IsNew marks a shipment the dispatcher has not yet acted on.
	IsNew bool `bson:"is_new" json:"is_new"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
