package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/freightops/haulage-console/internal/models"
)

func TestProjectShipment(t *testing.T) {
	tests := []struct {
		name     string
		shipment models.Shipment
		expected Stage
	}{
		{
			"new shipment always starts",
			models.Shipment{IsNew: true, Status: models.ShipmentInTransit, CurrentSegmentIndex: 3},
			StageStart,
		},
		{
			"no active leg always starts",
			models.Shipment{Status: models.ShipmentInTransit, CurrentSegmentIndex: -1},
			StageStart,
		},
		{
			"pending shipment",
			models.Shipment{Status: models.ShipmentPending, CurrentSegmentIndex: 1},
			StageStart,
		},
		{
			"in transit",
			models.Shipment{Status: models.ShipmentInTransit, CurrentSegmentIndex: 2},
			StageToDest,
		},
		{
			"delivered",
			models.Shipment{Status: models.ShipmentDelivered, CurrentSegmentIndex: 3},
			StageDelivered,
		},
		{
			"unrecognized status with active leg",
			models.Shipment{Status: "mislabeled", CurrentSegmentIndex: 2},
			StageToOrigin,
		},
		{
			"unrecognized status at index zero",
			models.Shipment{Status: "mislabeled", CurrentSegmentIndex: 0},
			StageStart,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ProjectShipment(&tt.shipment))
		})
	}
}

func TestEngine_ProjectSegment(t *testing.T) {
	e := &Engine{}
	shipment := &models.Shipment{CurrentSegmentIndex: 2}

	tests := []struct {
		name     string
		segment  models.Segment
		expected Stage
	}{
		{"non-current leg has no stage", models.Segment{Order: 1, Status: models.StatusLoading}, StageNone},
		{"current pending", models.Segment{Order: 2, Status: models.StatusPendingAssignment}, StageStart},
		{"current assigned", models.Segment{Order: 2, Status: models.StatusAssigned}, StageStart},
		{"current to origin", models.Segment{Order: 2, Status: models.StatusToOrigin}, StageToOrigin},
		{"current at origin", models.Segment{Order: 2, Status: models.StatusAtOrigin}, StageInOrigin},
		{"current loading", models.Segment{Order: 2, Status: models.StatusLoading}, StageLoading},
		{"current in customs", models.Segment{Order: 2, Status: models.StatusInCustoms}, StageInCustoms},
		{"current to destination", models.Segment{Order: 2, Status: models.StatusToDestination}, StageToDest},
		{"current at destination", models.Segment{Order: 2, Status: models.StatusAtDestination}, StageToDest},
		{"current delivered", models.Segment{Order: 2, Status: models.StatusDelivered}, StageDelivered},
		{"current cancelled has no stage", models.Segment{Order: 2, Status: models.StatusCancelled}, StageNone},
		{"current unrecognized falls back", models.Segment{Order: 2, Status: "mislabeled"}, StageToOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.ProjectSegment(&tt.segment, shipment))
		})
	}
}

func TestEngine_ProjectSegment_SingleActiveIndicator(t *testing.T) {
	e := &Engine{}
	shipment := &models.Shipment{CurrentSegmentIndex: 2}

	segments := []models.Segment{
		{Order: 1, Status: models.StatusDelivered},
		{Order: 2, Status: models.StatusInCustoms},
		{Order: 3, Status: models.StatusPendingAssignment},
	}

	staged := 0
	for i := range segments {
		if e.ProjectSegment(&segments[i], shipment) != StageNone {
			staged++
		}
	}
	assert.Equal(t, 1, staged, "exactly one leg shows an active indicator")
}
