package models

// SegmentStatus is the lifecycle state of a single shipment leg.
type SegmentStatus string

const (
	StatusPendingAssignment SegmentStatus = "pending_assignment"
	StatusAssigned          SegmentStatus = "assigned"
	StatusToOrigin          SegmentStatus = "to_origin"
	StatusAtOrigin          SegmentStatus = "at_origin"
	StatusLoading           SegmentStatus = "loading"
	StatusInCustoms         SegmentStatus = "in_customs"
	StatusToDestination     SegmentStatus = "to_destination"
	StatusAtDestination     SegmentStatus = "at_destination"
	StatusDelivered         SegmentStatus = "delivered"

	// StatusCancelled is terminal and sits outside the ordered progression.
	StatusCancelled SegmentStatus = "cancelled"

	// StatusUnknown is what unrecognized wire values parse to.
	StatusUnknown SegmentStatus = "unknown"
)

// statusOrder is the canonical in-progress path. Cancelled and Unknown have no
// position here.
var statusOrder = []SegmentStatus{
	StatusPendingAssignment,
	StatusAssigned,
	StatusToOrigin,
	StatusAtOrigin,
	StatusLoading,
	StatusInCustoms,
	StatusToDestination,
	StatusAtDestination,
	StatusDelivered,
}

var statusIndex = func() map[SegmentStatus]int {
	m := make(map[SegmentStatus]int, len(statusOrder))
	for i, s := range statusOrder {
		m[s] = i
	}
	return m
}()

// ParseSegmentStatus maps a wire value onto the closed enum. Unrecognized
// values become StatusUnknown rather than passing through unchecked.
func ParseSegmentStatus(raw string) SegmentStatus {
	s := SegmentStatus(raw)
	if s.IsValid() {
		return s
	}
	return StatusUnknown
}

// IsValid reports whether s is a recognized status (Unknown is not).
func (s SegmentStatus) IsValid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusIndex[s]
	return ok
}

// StepIndex returns the position of s on the ordered progression. Cancelled
// and Unknown fall back to 0 so progress rendering never faults on them.
func (s SegmentStatus) StepIndex() int {
	if i, ok := statusIndex[s]; ok {
		return i
	}
	return 0
}

// IsTerminal reports whether no further transition is permitted.
func (s SegmentStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// AtOrPast reports whether s has reached other on the ordered progression.
func (s SegmentStatus) AtOrPast(other SegmentStatus) bool {
	return s.StepIndex() >= other.StepIndex()
}

// CanTransitionTo reports whether moving from s to next is a legal status
// change: cancellation is allowed from any non-terminal state, and otherwise
// the progression is forward-only.
func (s SegmentStatus) CanTransitionTo(next SegmentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	if !next.IsValid() || next == StatusUnknown {
		return false
	}
	return next.StepIndex() > s.StepIndex()
}

func (s SegmentStatus) String() string {
	return string(s)
}
