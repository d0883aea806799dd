// Package assign implements the broadcast-and-accept workflow that binds a
// segment to a haulage company and driver.
package assign

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/freightops/haulage-console/internal/cache"
	"github.com/freightops/haulage-console/internal/db"
	"github.com/freightops/haulage-console/internal/models"
)

var (
	ErrSegmentNotFound = errors.New("segment not found")
	ErrNoCompanies     = errors.New("broadcast requires at least one company")
	ErrNotPending      = errors.New("segment is not pending assignment")
	ErrAlreadyAccepted = errors.New("segment already has an accepted announcement")
	ErrNoPendingOffer  = errors.New("no pending announcement for this company")
	ErrNotRespondable  = errors.New("announcement is not pending")
)

// Service runs the announcement protocol over the segment and announcement
// stores.
type Service struct {
	segments      db.SegmentCollection
	announcements db.AnnouncementCollection
}

// NewService creates a new assignment service.
func NewService(segments db.SegmentCollection, announcements db.AnnouncementCollection) *Service {
	return &Service{
		segments:      segments,
		announcements: announcements,
	}
}

// Result is the outcome of a protocol step: the segment's confirmed state and
// the exact cache keys the step invalidates.
type Result struct {
	Segment       *models.Segment
	Announcements []models.Announcement
	Invalidate    []cache.Key
}

func invalidationsFor(seg *models.Segment) []cache.Key {
	return []cache.Key{
		cache.ShipmentKey(seg.ShipmentID),
		cache.SegmentListKey(seg.ShipmentID),
		cache.AnnouncementListKey(seg.ID.Hex()),
	}
}

// Broadcast offers a segment to a set of candidate companies, creating one
// pending announcement per company. The segment must still be pending
// assignment; its status does not change until an offer is accepted.
//
// Broadcasts are additive: prior still-pending announcements stay valid, and
// avoiding duplicate offers to the same company is the caller's
// responsibility. A duplicate is logged but not rejected.
func (s *Service) Broadcast(ctx context.Context, segmentID string, companyIDs []string) (*Result, error) {
	if len(companyIDs) == 0 {
		return nil, ErrNoCompanies
	}

	seg, err := s.segments.FindSegmentByID(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}
	if seg.Status != models.StatusPendingAssignment {
		return nil, ErrNotPending
	}

	existing, err := s.announcements.FindAnnouncementsBySegment(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load announcements: %w", err)
	}
	pendingByCompany := make(map[string]bool)
	for _, a := range existing {
		if a.Status == models.AnnouncementPending {
			pendingByCompany[a.CompanyID] = true
		}
	}

	batch := make([]models.Announcement, 0, len(companyIDs))
	for _, companyID := range companyIDs {
		if pendingByCompany[companyID] {
			log.WithFields(log.Fields{
				"segment_id": segmentID,
				"company_id": companyID,
			}).Warn("Broadcast to company with a pending announcement")
		}
		batch = append(batch, models.Announcement{
			ID:        uuid.NewString(),
			SegmentID: segmentID,
			CompanyID: companyID,
			Status:    models.AnnouncementPending,
		})
	}

	if err := s.announcements.InsertAnnouncements(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create announcements: %w", err)
	}

	updated, err := s.segments.UpdateSegmentFields(ctx, segmentID, bson.M{
		"has_pending_announcements": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to flag pending announcements: %w", err)
	}

	log.WithFields(log.Fields{
		"segment_id": segmentID,
		"companies":  len(companyIDs),
	}).Info("Segment broadcast")

	return &Result{
		Segment:       updated,
		Announcements: batch,
		Invalidate:    invalidationsFor(updated),
	}, nil
}

// Accept commits one company's acceptance: the matching pending announcement
// becomes accepted, and the segment advances to assigned with the company and
// optional driver bound to it.
//
// Sibling announcements are left pending; the protocol does not auto-reject
// them.
func (s *Service) Accept(ctx context.Context, segmentID, companyID, driverID string) (*Result, error) {
	if companyID == "" {
		return nil, ErrNoCompanies
	}

	seg, err := s.segments.FindSegmentByID(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}
	if seg.Status != models.StatusPendingAssignment {
		return nil, ErrNotPending
	}

	accepted, err := s.announcements.CountAccepted(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check accepted announcements: %w", err)
	}
	if accepted > 0 {
		return nil, ErrAlreadyAccepted
	}

	offer, err := s.pendingOfferFor(ctx, segmentID, companyID)
	if err != nil {
		return nil, err
	}

	if err := s.announcements.UpdateAnnouncementStatus(ctx, offer.ID, models.AnnouncementAccepted); err != nil {
		return nil, fmt.Errorf("failed to accept announcement: %w", err)
	}

	fields := bson.M{
		"status":                    models.StatusAssigned,
		"company_id":                companyID,
		"has_pending_announcements": false,
	}
	if offer.CompanyName != "" {
		fields["company_name"] = offer.CompanyName
	}
	if driverID != "" {
		fields["driver_id"] = driverID
	}
	if offer.DriverName != "" {
		fields["driver_name"] = offer.DriverName
	}

	updated, err := s.segments.UpdateSegmentFields(ctx, segmentID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to assign segment: %w", err)
	}

	log.WithFields(log.Fields{
		"segment_id": segmentID,
		"company_id": companyID,
		"driver_id":  driverID,
	}).Info("Segment assigned")

	return &Result{
		Segment:    updated,
		Invalidate: invalidationsFor(updated),
	}, nil
}

// Reject records one company's refusal. If no pending announcements remain,
// the segment's pending flag is cleared; it stays pending_assignment and must
// be re-broadcast.
func (s *Service) Reject(ctx context.Context, segmentID, announcementID string) (*Result, error) {
	seg, err := s.segments.FindSegmentByID(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}

	offer, err := s.announcements.FindAnnouncementByID(ctx, announcementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load announcement: %w", err)
	}
	if offer.SegmentID != segmentID {
		return nil, fmt.Errorf("announcement does not belong to segment")
	}
	if offer.Status != models.AnnouncementPending {
		return nil, ErrNotRespondable
	}

	if err := s.announcements.UpdateAnnouncementStatus(ctx, announcementID, models.AnnouncementRejected); err != nil {
		return nil, fmt.Errorf("failed to reject announcement: %w", err)
	}

	remaining, err := s.announcements.FindAnnouncementsBySegment(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load announcements: %w", err)
	}
	stillPending := false
	for _, a := range remaining {
		if a.Status == models.AnnouncementPending {
			stillPending = true
			break
		}
	}

	updated := seg
	if !stillPending && seg.HasPendingAnnouncements {
		updated, err = s.segments.UpdateSegmentFields(ctx, segmentID, bson.M{
			"has_pending_announcements": false,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to clear pending flag: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"segment_id":      segmentID,
		"announcement_id": announcementID,
		"still_pending":   stillPending,
	}).Info("Announcement rejected")

	return &Result{
		Segment:       updated,
		Announcements: remaining,
		Invalidate:    invalidationsFor(updated),
	}, nil
}

func (s *Service) pendingOfferFor(ctx context.Context, segmentID, companyID string) (*models.Announcement, error) {
	announcements, err := s.announcements.FindAnnouncementsBySegment(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load announcements: %w", err)
	}
	for i := range announcements {
		if announcements[i].CompanyID == companyID && announcements[i].Status == models.AnnouncementPending {
			return &announcements[i], nil
		}
	}
	return nil, ErrNoPendingOffer
}
