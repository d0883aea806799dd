package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightops/haulage-console/internal/board"
	"github.com/freightops/haulage-console/internal/cache"
	"github.com/freightops/haulage-console/internal/db"
	"github.com/freightops/haulage-console/internal/lifecycle"
	"github.com/freightops/haulage-console/internal/models"
)

// BoardHandler serves the aggregated dispatcher board.
type BoardHandler struct {
	segments  db.SegmentCollection
	shipments db.ShipmentCollection
	engine    *lifecycle.Engine
	store     *cache.Store
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(segments db.SegmentCollection, shipments db.ShipmentCollection, engine *lifecycle.Engine, store *cache.Store) *BoardHandler {
	return &BoardHandler{
		segments:  segments,
		shipments: shipments,
		engine:    engine,
		store:     store,
	}
}

// GetBoard handles GET /api/board?shipment_id=&filter=&q=. Cached per-shipment
// lists are merged with a fresh store query; fresh data wins on collision so a
// not-yet-invalidated cache entry can never mask a newer write.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shipmentID := r.URL.Query().Get("shipment_id")

	filter := bson.M{}
	if shipmentID != "" {
		filter["shipment_id"] = shipmentID
	}
	opts := options.Find().SetSort(bson.D{{Key: "shipment_id", Value: 1}, {Key: "order", Value: 1}})
	cursor, err := h.segments.FindSegments(r.Context(), filter, opts)
	if err != nil {
		log.WithError(err).Error("Failed to query segments for board")
		http.Error(w, "Failed to build board", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	fresh := []models.Segment{}
	if err := cursor.All(r.Context(), &fresh); err != nil {
		log.WithError(err).Error("Failed to decode segments for board")
		http.Error(w, "Failed to build board", http.StatusInternalServerError)
		return
	}

	merged := board.Merge(h.cachedSegments(shipmentID, fresh), fresh)
	shipments, err := h.shipmentsFor(r, merged)
	if err != nil {
		log.WithError(err).Error("Failed to load shipments for board")
		http.Error(w, "Failed to build board", http.StatusInternalServerError)
		return
	}

	view := board.Build(h.engine, merged, shipments, board.Query{
		Mode: board.ParseFilterMode(r.URL.Query().Get("filter")),
		Text: r.URL.Query().Get("q"),
	})

	writeJSON(w, http.StatusOK, view)
}

// cachedSegments collects the cached per-shipment lists covering the request.
func (h *BoardHandler) cachedSegments(shipmentID string, fresh []models.Segment) []models.Segment {
	ids := []string{}
	if shipmentID != "" {
		ids = append(ids, shipmentID)
	} else {
		seen := map[string]bool{}
		for _, seg := range fresh {
			if !seen[seg.ShipmentID] {
				seen[seg.ShipmentID] = true
				ids = append(ids, seg.ShipmentID)
			}
		}
	}

	cached := []models.Segment{}
	for _, id := range ids {
		value, ok := h.store.Get(cache.SegmentListKey(id))
		if !ok {
			continue
		}
		if segments, ok := value.([]models.Segment); ok {
			cached = append(cached, segments...)
		}
	}
	return cached
}

func (h *BoardHandler) shipmentsFor(r *http.Request, segments []models.Segment) (map[string]*models.Shipment, error) {
	ids := []primitive.ObjectID{}
	seen := map[string]bool{}
	for _, seg := range segments {
		if seen[seg.ShipmentID] {
			continue
		}
		seen[seg.ShipmentID] = true
		oid, err := primitive.ObjectIDFromHex(seg.ShipmentID)
		if err != nil {
			continue
		}
		ids = append(ids, oid)
	}
	if len(ids) == 0 {
		return map[string]*models.Shipment{}, nil
	}

	cursor, err := h.shipments.FindShipments(r.Context(), bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(r.Context())

	found := []models.Shipment{}
	if err := cursor.All(r.Context(), &found); err != nil {
		return nil, err
	}

	shipments := make(map[string]*models.Shipment, len(found))
	for i := range found {
		shipments[found[i].ID.Hex()] = &found[i]
	}
	return shipments, nil
}
