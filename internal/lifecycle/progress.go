package lifecycle

import "github.com/freightops/haulage-console/internal/models"

// Stage is the coarse, human-facing bucket shown by summary widgets.
type Stage string

const (
	StageNone      Stage = ""
	StageStart     Stage = "start"
	StageToOrigin  Stage = "to_origin"
	StageInOrigin  Stage = "in_origin"
	StageLoading   Stage = "loading"
	StageInCustoms Stage = "in_customs"
	StageToDest    Stage = "to_dest"
	StageDelivered Stage = "delivered"
)

// shipmentStage maps a shipment-level status onto a stage.
var shipmentStage = map[models.ShipmentStatus]Stage{
	models.ShipmentPending:   StageStart,
	models.ShipmentInTransit: StageToDest,
	models.ShipmentDelivered: StageDelivered,
}

// segmentStage maps a segment status onto a stage.
var segmentStage = map[models.SegmentStatus]Stage{
	models.StatusPendingAssignment: StageStart,
	models.StatusAssigned:          StageStart,
	models.StatusToOrigin:          StageToOrigin,
	models.StatusAtOrigin:          StageInOrigin,
	models.StatusLoading:           StageLoading,
	models.StatusInCustoms:         StageInCustoms,
	models.StatusToDestination:     StageToDest,
	models.StatusAtDestination:     StageToDest,
	models.StatusDelivered:         StageDelivered,
}

// ProjectShipment maps a shipment's state to its progress stage. A brand-new
// shipment, or one with no active leg, always projects to start.
func ProjectShipment(shipment *models.Shipment) Stage {
	if shipment.IsNew || shipment.CurrentSegmentIndex < 0 {
		return StageStart
	}
	if stage, ok := shipmentStage[shipment.Status]; ok {
		return stage
	}
	return fallbackStage(shipment.CurrentSegmentIndex)
}

// ProjectSegment maps one segment to its progress stage. Only the shipment's
// current leg carries a stage; every other leg projects to StageNone so a
// single active indicator shows at a time.
func (e *Engine) ProjectSegment(seg *models.Segment, shipment *models.Shipment) Stage {
	if !e.IsCurrent(seg, shipment) {
		return StageNone
	}
	if seg.Status == models.StatusCancelled {
		return StageNone
	}
	if stage, ok := segmentStage[seg.Status]; ok {
		return stage
	}
	return fallbackStage(seg.Order)
}

// fallbackStage handles unrecognized statuses: legs past the first one are
// assumed under way.
func fallbackStage(index int) Stage {
	if index > 0 {
		return StageToOrigin
	}
	return StageStart
}
