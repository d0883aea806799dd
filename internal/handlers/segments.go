package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/freightops/haulage-console/internal/assign"
	"github.com/freightops/haulage-console/internal/cache"
	"github.com/freightops/haulage-console/internal/db"
	"github.com/freightops/haulage-console/internal/models"
)

// SegmentHandler handles segment CRUD and the assignment protocol endpoints.
type SegmentHandler struct {
	segments      db.SegmentCollection
	shipments     db.ShipmentCollection
	announcements db.AnnouncementCollection
	assigner      *assign.Service
	store         *cache.Store
}

// NewSegmentHandler creates a new segment handler.
func NewSegmentHandler(segments db.SegmentCollection, shipments db.ShipmentCollection, announcements db.AnnouncementCollection, assigner *assign.Service, store *cache.Store) *SegmentHandler {
	return &SegmentHandler{
		segments:      segments,
		shipments:     shipments,
		announcements: announcements,
		assigner:      assigner,
		store:         store,
	}
}

// Collection routes /api/segments: list on GET, create on POST.
func (h *SegmentHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listSegments(w, r)
	case http.MethodPost:
		h.createSegment(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Item routes /api/segments/{id} and its sub-resources.
func (h *SegmentHandler) Item(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/segments/"), "/"), "/")
	if parts[0] == "" {
		http.Error(w, "Segment ID required", http.StatusBadRequest)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodPatch:
			h.updateSegment(w, r, id)
		case http.MethodDelete:
			h.deleteSegment(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "details":
			if r.Method != http.MethodPatch {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.updateSegmentDetails(w, r, id)
		case "announce":
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.announceSegment(w, r, id)
		case "announcements":
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.getSegmentAnnouncements(w, r, id)
		case "assign":
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.assignSegment(w, r, id)
		case "cancel":
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.cancelSegment(w, r, id)
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

// ShipmentSegments routes /api/shipments/{id}/segments.
func (h *SegmentHandler) ShipmentSegments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/shipments/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "segments" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	h.getShipmentSegments(w, r, parts[0])
}

func (h *SegmentHandler) listSegments(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if shipmentID := r.URL.Query().Get("shipment_id"); shipmentID != "" {
		filter["shipment_id"] = shipmentID
	}
	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		filter["company_id"] = companyID
	}

	opts := options.Find().SetSort(bson.D{{Key: "shipment_id", Value: 1}, {Key: "order", Value: 1}})
	cursor, err := h.segments.FindSegments(r.Context(), filter, opts)
	if err != nil {
		log.WithError(err).Error("Failed to query segments")
		http.Error(w, "Failed to retrieve segments", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	segments := []models.Segment{}
	if err := cursor.All(r.Context(), &segments); err != nil {
		log.WithError(err).Error("Failed to decode segments")
		http.Error(w, "Failed to retrieve segments", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, segments)
}

// getShipmentSegments serves the per-shipment segment list through the keyed
// cache; the poller keeps the entry fresh between invalidations.
func (h *SegmentHandler) getShipmentSegments(w http.ResponseWriter, r *http.Request, shipmentID string) {
	key := cache.SegmentListKey(shipmentID)
	if cached, ok := h.store.Get(key); ok {
		if segments, ok := cached.([]models.Segment); ok {
			writeJSON(w, http.StatusOK, segments)
			return
		}
	}

	segments, err := h.loadShipmentSegments(r, shipmentID)
	if err != nil {
		log.WithError(err).WithField("shipment_id", shipmentID).Error("Failed to load shipment segments")
		http.Error(w, "Failed to retrieve segments", http.StatusInternalServerError)
		return
	}

	h.store.Put(key, segments)
	writeJSON(w, http.StatusOK, segments)
}

func (h *SegmentHandler) loadShipmentSegments(r *http.Request, shipmentID string) ([]models.Segment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cursor, err := h.segments.FindSegments(r.Context(), bson.M{"shipment_id": shipmentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(r.Context())

	segments := []models.Segment{}
	if err := cursor.All(r.Context(), &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// createSegment appends a fresh pending leg to the end of a shipment.
func (h *SegmentHandler) createSegment(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSegmentRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if req.ShipmentID == "" {
		http.Error(w, "shipment_id is required", http.StatusBadRequest)
		return
	}

	shipment, err := h.shipments.FindShipmentByID(r.Context(), req.ShipmentID)
	if err != nil {
		http.Error(w, "Shipment not found", http.StatusNotFound)
		return
	}

	segment := models.Segment{
		ShipmentID: req.ShipmentID,
		Order:      shipment.SegmentCount + 1,
		Status:     models.StatusPendingAssignment,
	}
	if err := segment.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.segments.InsertSegment(r.Context(), segment)
	if err != nil {
		log.WithError(err).Error("Failed to create segment")
		http.Error(w, "Failed to create segment", http.StatusInternalServerError)
		return
	}

	if _, err := h.shipments.UpdateShipmentFields(r.Context(), req.ShipmentID, bson.M{
		"segment_count": shipment.SegmentCount + 1,
	}); err != nil {
		log.WithError(err).WithField("shipment_id", req.ShipmentID).Error("Failed to bump segment count")
	}

	h.store.Invalidate(cache.ShipmentKey(req.ShipmentID), cache.SegmentListKey(req.ShipmentID))

	log.WithFields(log.Fields{
		"segment_id":  created.ID.Hex(),
		"shipment_id": created.ShipmentID,
		"order":       created.Order,
	}).Info("Segment created")

	writeJSON(w, http.StatusCreated, created)
}

// updateSegment applies a partial route/time/fee edit. An empty or unknown
// field set is rejected before any write so the update is never half-applied.
func (h *SegmentHandler) updateSegment(w http.ResponseWriter, r *http.Request, id string) {
	var req models.UpdateSegmentRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if req.IsEmpty() {
		http.Error(w, "Update contains no fields", http.StatusBadRequest)
		return
	}

	fields := bson.M{}
	if req.OriginCountry != nil {
		fields["origin_country"] = *req.OriginCountry
	}
	if req.OriginCity != nil {
		fields["origin_city"] = *req.OriginCity
	}
	if req.DestinationCountry != nil {
		fields["destination_country"] = *req.DestinationCountry
	}
	if req.DestinationCity != nil {
		fields["destination_city"] = *req.DestinationCity
	}
	if req.EstimatedStartTime != nil {
		fields["estimated_start_time"] = *req.EstimatedStartTime
	}
	if req.EstimatedFinishTime != nil {
		fields["estimated_finish_time"] = *req.EstimatedFinishTime
	}
	if req.ETA != nil {
		fields["eta"] = *req.ETA
	}
	if req.ETAToOrigin != nil {
		fields["eta_to_origin"] = *req.ETAToOrigin
	}
	if req.ETAToDestination != nil {
		fields["eta_to_destination"] = *req.ETAToDestination
	}
	if req.Fee != nil {
		fields["fee"] = *req.Fee
	}

	updated, err := h.segments.UpdateSegmentFields(r.Context(), id, fields)
	if err != nil {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}

	h.store.Invalidate(cache.ShipmentKey(updated.ShipmentID), cache.SegmentListKey(updated.ShipmentID))
	writeJSON(w, http.StatusOK, updated)
}

func (h *SegmentHandler) updateSegmentDetails(w http.ResponseWriter, r *http.Request, id string) {
	var req models.UpdateSegmentDetailsRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if req.OriginDetails == nil && req.DestinationDetails == nil {
		http.Error(w, "Update contains no fields", http.StatusBadRequest)
		return
	}

	fields := bson.M{}
	if req.OriginDetails != nil {
		fields["origin_details"] = *req.OriginDetails
	}
	if req.DestinationDetails != nil {
		fields["destination_details"] = *req.DestinationDetails
	}

	updated, err := h.segments.UpdateSegmentFields(r.Context(), id, fields)
	if err != nil {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}

	h.store.Invalidate(cache.ShipmentKey(updated.ShipmentID), cache.SegmentListKey(updated.ShipmentID))
	writeJSON(w, http.StatusOK, updated)
}

func (h *SegmentHandler) announceSegment(w http.ResponseWriter, r *http.Request, id string) {
	var req models.AnnounceSegmentRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	result, err := h.assigner.Broadcast(r.Context(), id, req.CompanyIDs)
	if err != nil {
		writeAssignError(w, err)
		return
	}

	h.store.Invalidate(result.Invalidate...)
	writeJSON(w, http.StatusCreated, result.Announcements)
}

func (h *SegmentHandler) getSegmentAnnouncements(w http.ResponseWriter, r *http.Request, id string) {
	key := cache.AnnouncementListKey(id)
	if cached, ok := h.store.Get(key); ok {
		if announcements, ok := cached.([]models.Announcement); ok {
			writeJSON(w, http.StatusOK, announcements)
			return
		}
	}

	announcements, err := h.announcements.FindAnnouncementsBySegment(r.Context(), id)
	if err != nil {
		log.WithError(err).WithField("segment_id", id).Error("Failed to load announcements")
		http.Error(w, "Failed to retrieve announcements", http.StatusInternalServerError)
		return
	}

	h.store.Put(key, announcements)
	writeJSON(w, http.StatusOK, announcements)
}

func (h *SegmentHandler) assignSegment(w http.ResponseWriter, r *http.Request, id string) {
	var req models.AssignSegmentRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if req.CompanyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.assigner.Accept(r.Context(), id, req.CompanyID, req.DriverID)
	if err != nil {
		writeAssignError(w, err)
		return
	}

	h.store.Invalidate(result.Invalidate...)
	writeJSON(w, http.StatusOK, result.Segment)
}

// cancelSegment performs the terminal cancelled transition; the document stays
// in history. Delivered and already-cancelled segments cannot be cancelled.
func (h *SegmentHandler) cancelSegment(w http.ResponseWriter, r *http.Request, id string) {
	segment, err := h.segments.FindSegmentByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}
	if !segment.Status.CanTransitionTo(models.StatusCancelled) {
		http.Error(w, "Segment cannot be cancelled", http.StatusConflict)
		return
	}

	// Outstanding offers are moot once the leg is cancelled.
	updated, err := h.segments.UpdateSegmentFields(r.Context(), id, bson.M{
		"status":                    models.StatusCancelled,
		"has_pending_announcements": false,
	})
	if err != nil {
		log.WithError(err).WithField("segment_id", id).Error("Failed to cancel segment")
		http.Error(w, "Failed to cancel segment", http.StatusInternalServerError)
		return
	}

	h.store.Invalidate(cache.ShipmentKey(updated.ShipmentID), cache.SegmentListKey(updated.ShipmentID))

	log.WithFields(log.Fields{
		"segment_id":  id,
		"shipment_id": updated.ShipmentID,
	}).Info("Segment cancelled")

	writeJSON(w, http.StatusOK, updated)
}

// deleteSegment removes the document and its announcements outright.
func (h *SegmentHandler) deleteSegment(w http.ResponseWriter, r *http.Request, id string) {
	segment, err := h.segments.FindSegmentByID(r.Context(), id)
	if err != nil {
		http.Error(w, "Segment not found", http.StatusNotFound)
		return
	}

	if err := h.segments.DeleteSegment(r.Context(), id); err != nil {
		log.WithError(err).WithField("segment_id", id).Error("Failed to delete segment")
		http.Error(w, "Failed to delete segment", http.StatusInternalServerError)
		return
	}
	if err := h.announcements.DeleteAnnouncementsBySegment(r.Context(), id); err != nil {
		log.WithError(err).WithField("segment_id", id).Error("Failed to delete announcements")
	}

	h.store.Invalidate(
		cache.ShipmentKey(segment.ShipmentID),
		cache.SegmentListKey(segment.ShipmentID),
		cache.AnnouncementListKey(id),
	)

	log.WithFields(log.Fields{
		"segment_id":  id,
		"shipment_id": segment.ShipmentID,
	}).Info("Segment deleted")

	w.WriteHeader(http.StatusNoContent)
}

// decodeStrict decodes the request body into dst, rejecting unknown fields.
// It writes the error response itself and reports whether decoding succeeded.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeAssignError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assign.ErrSegmentNotFound):
		http.Error(w, "Segment not found", http.StatusNotFound)
	case errors.Is(err, assign.ErrNoCompanies):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, assign.ErrNotPending),
		errors.Is(err, assign.ErrAlreadyAccepted),
		errors.Is(err, assign.ErrNoPendingOffer),
		errors.Is(err, assign.ErrNotRespondable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		// Backend failures are not the caller's fault.
		log.WithError(err).Error("Assignment operation failed")
		http.Error(w, "Failed to process assignment", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
