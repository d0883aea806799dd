package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Segment represents one leg of a shipment between two places.
type Segment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ShipmentID string             `bson:"shipment_id" json:"shipment_id"`
	Order      int                `bson:"order" json:"order"` // 1-based position within the shipment

	OriginCountry      string `bson:"origin_country,omitempty" json:"origin_country,omitempty"`
	OriginCity         string `bson:"origin_city,omitempty" json:"origin_city,omitempty"`
	DestinationCountry string `bson:"destination_country,omitempty" json:"destination_country,omitempty"`
	DestinationCity    string `bson:"destination_city,omitempty" json:"destination_city,omitempty"`

	CompanyID   string `bson:"company_id,omitempty" json:"company_id,omitempty"`
	CompanyName string `bson:"company_name,omitempty" json:"company_name,omitempty"`
	DriverID    string `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	DriverName  string `bson:"driver_name,omitempty" json:"driver_name,omitempty"`

	Status SegmentStatus `bson:"status" json:"status"`

	StartedAt            *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	ArrivedOriginAt      *time.Time `bson:"arrived_origin_at,omitempty" json:"arrived_origin_at,omitempty"`
	StartLoadingAt       *time.Time `bson:"start_loading_at,omitempty" json:"start_loading_at,omitempty"`
	LoadingCompletedAt   *time.Time `bson:"loading_completed_at,omitempty" json:"loading_completed_at,omitempty"`
	EnterCustomsAt       *time.Time `bson:"enter_customs_at,omitempty" json:"enter_customs_at,omitempty"`
	CustomsClearedAt     *time.Time `bson:"customs_cleared_at,omitempty" json:"customs_cleared_at,omitempty"`
	ArrivedDestinationAt *time.Time `bson:"arrived_destination_at,omitempty" json:"arrived_destination_at,omitempty"`
	DeliveredAt          *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`

	EstimatedStartTime  *time.Time `bson:"estimated_start_time,omitempty" json:"estimated_start_time,omitempty"`
	EstimatedFinishTime *time.Time `bson:"estimated_finish_time,omitempty" json:"estimated_finish_time,omitempty"`
	ETA                 *time.Time `bson:"eta,omitempty" json:"eta,omitempty"`
	ETAToOrigin         *time.Time `bson:"eta_to_origin,omitempty" json:"eta_to_origin,omitempty"`
	ETAToDestination    *time.Time `bson:"eta_to_destination,omitempty" json:"eta_to_destination,omitempty"`

	OriginDetails      string  `bson:"origin_details,omitempty" json:"origin_details,omitempty"`
	DestinationDetails string  `bson:"destination_details,omitempty" json:"destination_details,omitempty"`
	Fee                float64 `bson:"fee,omitempty" json:"fee,omitempty"`

	// Cached operational fields maintained by the protocol and tracking layers.
	// Explicit overrides here take precedence over the derived flag engine.
	HasPendingAnnouncements bool  `bson:"has_pending_announcements" json:"has_pending_announcements"`
	HasDisruption           *bool `bson:"has_disruption,omitempty" json:"has_disruption,omitempty"`
	IsCompleted             *bool `bson:"is_completed,omitempty" json:"is_completed,omitempty"`
	AlertCount              int   `bson:"alert_count" json:"alert_count"`
	DelaysInMinutes         int   `bson:"delays_in_minutes" json:"delays_in_minutes"`
	PendingDocuments        int   `bson:"pending_documents" json:"pending_documents"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Place renders the origin as "City, Country" for search and display.
func (s *Segment) Place() string {
	return joinPlace(s.OriginCity, s.OriginCountry)
}

// NextPlace renders the destination as "City, Country".
func (s *Segment) NextPlace() string {
	return joinPlace(s.DestinationCity, s.DestinationCountry)
}

// AssigneeName is the display name of whoever services the leg, driver first.
func (s *Segment) AssigneeName() string {
	if s.DriverName != "" {
		return s.DriverName
	}
	return s.CompanyName
}

func joinPlace(city, country string) string {
	switch {
	case city == "":
		return country
	case country == "":
		return city
	default:
		return city + ", " + country
	}
}

// Validate checks the invariants a segment document must satisfy before it is
// accepted into the store.
func (s *Segment) Validate() error {
	if s.ShipmentID == "" {
		return errors.New("segment shipment_id is required")
	}
	if s.Order < 1 {
		return errors.New("segment order must be 1-based")
	}
	if !s.Status.IsValid() {
		return errors.New("unrecognized segment status")
	}
	if s.Status == StatusPendingAssignment && (s.CompanyID != "" || s.DriverID != "") {
		return errors.New("unassigned segment cannot carry a company or driver")
	}
	if s.Status.AtOrPast(StatusAssigned) && s.CompanyID == "" {
		return errors.New("assigned segment requires a company")
	}
	if (s.DeliveredAt != nil) != (s.Status == StatusDelivered) {
		return errors.New("delivered_at must be set exactly when status is delivered")
	}
	return nil
}

// UpdateSegmentRequest carries the partial route/time/fee fields a dispatcher
// may edit. Nil pointers are left untouched.
type UpdateSegmentRequest struct {
	OriginCountry       *string    `json:"origin_country,omitempty"`
	OriginCity          *string    `json:"origin_city,omitempty"`
	DestinationCountry  *string    `json:"destination_country,omitempty"`
	DestinationCity     *string    `json:"destination_city,omitempty"`
	EstimatedStartTime  *time.Time `json:"estimated_start_time,omitempty"`
	EstimatedFinishTime *time.Time `json:"estimated_finish_time,omitempty"`
	ETA                 *time.Time `json:"eta,omitempty"`
	ETAToOrigin         *time.Time `json:"eta_to_origin,omitempty"`
	ETAToDestination    *time.Time `json:"eta_to_destination,omitempty"`
	Fee                 *float64   `json:"fee,omitempty"`
}

// IsEmpty reports whether the request would change nothing.
func (r *UpdateSegmentRequest) IsEmpty() bool {
	return r.OriginCountry == nil && r.OriginCity == nil &&
		r.DestinationCountry == nil && r.DestinationCity == nil &&
		r.EstimatedStartTime == nil && r.EstimatedFinishTime == nil &&
		r.ETA == nil && r.ETAToOrigin == nil && r.ETAToDestination == nil &&
		r.Fee == nil
}

// UpdateSegmentDetailsRequest carries the free-form pickup/dropoff notes.
type UpdateSegmentDetailsRequest struct {
	OriginDetails      *string `json:"origin_details,omitempty"`
	DestinationDetails *string `json:"destination_details,omitempty"`
}

// CreateSegmentRequest appends a new leg to an existing shipment.
type CreateSegmentRequest struct {
	ShipmentID string `json:"shipment_id"`
}
