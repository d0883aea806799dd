// Package lifecycle derives the operational flags and progress stages the
// console computes from raw segment state. Everything here is a pure function
// of a segment snapshot; nothing reads or writes storage.
package lifecycle

import (
	"time"

	"github.com/freightops/haulage-console/internal/models"
)

// Engine evaluates derived flags for segment snapshots.
type Engine struct {
	// OriginDwellThreshold bounds how long a segment may sit at_origin before
	// it counts as disrupted. Zero keeps the legacy rule: at_origin is always
	// a disruption signal.
	OriginDwellThreshold time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Flags is the full derived view of one segment.
type Flags struct {
	IsCompleted   bool `json:"is_completed"`
	HasDisruption bool `json:"has_disruption"`
	NeedToAction  bool `json:"need_to_action"`
	HasAlerts     bool `json:"has_alerts"`
	IsCurrent     bool `json:"is_current"`
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// IsCompleted reports whether the leg is done. An explicit override on the
// segment wins over the status check.
func (e *Engine) IsCompleted(seg *models.Segment) bool {
	if seg.IsCompleted != nil {
		return *seg.IsCompleted
	}
	return seg.Status == models.StatusDelivered
}

// HasDisruption reports whether the leg carries a disruption signal:
// cancelled, or dwelling at origin. An explicit override wins.
func (e *Engine) HasDisruption(seg *models.Segment) bool {
	if seg.HasDisruption != nil {
		return *seg.HasDisruption
	}
	switch seg.Status {
	case models.StatusCancelled:
		return true
	case models.StatusAtOrigin:
		return e.originDwellExceeded(seg)
	default:
		return false
	}
}

func (e *Engine) originDwellExceeded(seg *models.Segment) bool {
	if e.OriginDwellThreshold <= 0 {
		return true
	}
	if seg.ArrivedOriginAt == nil {
		return true
	}
	return e.now().Sub(*seg.ArrivedOriginAt) > e.OriginDwellThreshold
}

// NeedToAction reports whether the leg requires dispatcher intervention:
// it still needs a company, or movement has not been kicked off.
func (e *Engine) NeedToAction(seg *models.Segment) bool {
	if e.IsCompleted(seg) {
		return false
	}
	return seg.Status == models.StatusPendingAssignment || seg.Status == models.StatusAssigned
}

// HasAlerts reports whether the leg should surface on the alert tab.
func (e *Engine) HasAlerts(seg *models.Segment) bool {
	if e.IsCompleted(seg) {
		return false
	}
	switch seg.Status {
	case models.StatusCancelled:
		return true
	case models.StatusAtOrigin:
		return e.originDwellExceeded(seg)
	default:
		return false
	}
}

// IsCurrent reports whether this leg is the shipment's active one.
func (e *Engine) IsCurrent(seg *models.Segment, shipment *models.Shipment) bool {
	if shipment == nil || shipment.CurrentSegmentIndex < 0 {
		return false
	}
	return seg.Order == shipment.CurrentSegmentIndex
}

// Derive evaluates all flags at once. shipment may be nil when no shipment
// context is available; IsCurrent is then false.
func (e *Engine) Derive(seg *models.Segment, shipment *models.Shipment) Flags {
	return Flags{
		IsCompleted:   e.IsCompleted(seg),
		HasDisruption: e.HasDisruption(seg),
		NeedToAction:  e.NeedToAction(seg),
		HasAlerts:     e.HasAlerts(seg),
		IsCurrent:     e.IsCurrent(seg, shipment),
	}
}
