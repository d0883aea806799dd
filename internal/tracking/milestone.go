// Package tracking ingests GPS/milestone events from drivers and applies them
// to segments as forward-only status advances.
package tracking

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/freightops/haulage-console/internal/models"
)

var (
	ErrUnknownMilestone = errors.New("unknown milestone event")
	ErrUnassigned       = errors.New("segment has no assigned company")
	ErrTerminalSegment  = errors.New("segment is in a terminal state")
	ErrRegression       = errors.New("milestone would move the segment backwards")
)

// Milestone is one lifecycle event reported from the road.
type Milestone string

const (
	MilestoneStarted            Milestone = "started"
	MilestoneArrivedOrigin      Milestone = "arrived_origin"
	MilestoneLoadingStarted     Milestone = "loading_started"
	MilestoneLoadingCompleted   Milestone = "loading_completed"
	MilestoneEnteredCustoms     Milestone = "entered_customs"
	MilestoneCustomsCleared     Milestone = "customs_cleared"
	MilestoneArrivedDestination Milestone = "arrived_destination"
	MilestoneDelivered          Milestone = "delivered"
)

// milestoneSpec binds an event to the status it advances to and the timestamp
// field it stamps. An empty status means the event only records a timestamp.
type milestoneSpec struct {
	status models.SegmentStatus
	field  string
}

var milestones = map[Milestone]milestoneSpec{
	MilestoneStarted:            {models.StatusToOrigin, "started_at"},
	MilestoneArrivedOrigin:      {models.StatusAtOrigin, "arrived_origin_at"},
	MilestoneLoadingStarted:     {models.StatusLoading, "start_loading_at"},
	MilestoneLoadingCompleted:   {"", "loading_completed_at"},
	MilestoneEnteredCustoms:     {models.StatusInCustoms, "enter_customs_at"},
	MilestoneCustomsCleared:     {models.StatusToDestination, "customs_cleared_at"},
	MilestoneArrivedDestination: {models.StatusAtDestination, "arrived_destination_at"},
	MilestoneDelivered:          {models.StatusDelivered, "delivered_at"},
}

// Event is the wire payload published on the segment event topic.
type Event struct {
	SegmentID string           `json:"segment_id"`
	Milestone Milestone        `json:"milestone"`
	At        time.Time        `json:"at"`
	Location  *models.Location `json:"location,omitempty"`
}

// Validate checks the event before it touches any segment.
func (e *Event) Validate() error {
	if e.SegmentID == "" {
		return errors.New("event segment_id is required")
	}
	if _, ok := milestones[e.Milestone]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMilestone, e.Milestone)
	}
	return nil
}

// ApplyMilestone computes the partial update a milestone produces for the
// given segment snapshot. Progression is forward-only: a stale or replayed
// event that would move the segment backwards is rejected, as is any event on
// a terminal segment. An unassigned segment rejects every milestone — a leg
// leaves pending_assignment through an accepted announcement, never from the
// road. The returned fields are empty only on error.
func ApplyMilestone(seg *models.Segment, m Milestone, at time.Time) (bson.M, error) {
	spec, ok := milestones[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMilestone, m)
	}
	if seg.Status == models.StatusPendingAssignment {
		return nil, ErrUnassigned
	}
	if seg.Status.IsTerminal() {
		return nil, ErrTerminalSegment
	}
	if at.IsZero() {
		at = time.Now()
	}

	fields := bson.M{spec.field: at}
	if spec.status == "" {
		return fields, nil
	}
	if spec.status == seg.Status {
		// Replay of the current milestone: refresh the timestamp only.
		return fields, nil
	}
	if !seg.Status.CanTransitionTo(spec.status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrRegression, seg.Status, spec.status)
	}
	fields["status"] = spec.status
	return fields, nil
}
