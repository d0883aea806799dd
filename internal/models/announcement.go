package models

import "time"

// AnnouncementStatus tracks one company's response to an offered segment.
type AnnouncementStatus string

const (
	AnnouncementPending  AnnouncementStatus = "pending"
	AnnouncementAccepted AnnouncementStatus = "accepted"
	AnnouncementRejected AnnouncementStatus = "rejected"
)

// IsValid reports whether the response status is recognized.
func (s AnnouncementStatus) IsValid() bool {
	switch s {
	case AnnouncementPending, AnnouncementAccepted, AnnouncementRejected:
		return true
	default:
		return false
	}
}

func (s AnnouncementStatus) String() string {
	return string(s)
}

// Announcement is one offer of a segment to one haulage company. A batch is
// created together when a segment is broadcast; each entry is answered
// independently until one is accepted.
type Announcement struct {
	ID             string             `bson:"_id" json:"id"`
	SegmentID      string             `bson:"segment_id" json:"segment_id"`
	CompanyID      string             `bson:"company_id" json:"company_id"`
	CompanyName    string             `bson:"company_name,omitempty" json:"company_name,omitempty"`
	CompanyLogoURL string             `bson:"company_logo_url,omitempty" json:"company_logo_url,omitempty"`
	DriverID       string             `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	DriverName     string             `bson:"driver_name,omitempty" json:"driver_name,omitempty"`
	Status         AnnouncementStatus `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// AnnounceSegmentRequest broadcasts a segment to a set of candidate companies.
type AnnounceSegmentRequest struct {
	CompanyIDs []string `json:"company_ids"`
}

// AssignSegmentRequest commits an accepted offer to the segment.
type AssignSegmentRequest struct {
	CompanyID string `json:"company_id"`
	DriverID  string `json:"driver_id,omitempty"`
}
