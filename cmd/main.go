package main

import (
	"context"
	"net/http"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/freightops/haulage-console/internal/assign"
	"github.com/freightops/haulage-console/internal/auth"
	"github.com/freightops/haulage-console/internal/cache"
	"github.com/freightops/haulage-console/internal/config"
	"github.com/freightops/haulage-console/internal/db"
	"github.com/freightops/haulage-console/internal/handlers"
	"github.com/freightops/haulage-console/internal/lifecycle"
	"github.com/freightops/haulage-console/internal/middleware"
	"github.com/freightops/haulage-console/internal/models"
	"github.com/freightops/haulage-console/internal/tracking"
)

func main() {
	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	database := client.Database(cfg.DatabaseName)
	log.WithField("database", cfg.DatabaseName).Info("Connected to MongoDB")

	segments := &db.MongoSegmentCollection{Collection: database.Collection("segments")}
	shipments := &db.MongoShipmentCollection{Collection: database.Collection("shipments")}
	announcements := &db.MongoAnnouncementCollection{Collection: database.Collection("announcements")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	store := cache.NewStore()
	engine := &lifecycle.Engine{OriginDwellThreshold: cfg.OriginDwellThreshold}
	assigner := assign.NewService(segments, announcements)

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize auth service")
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	authHandler := handlers.NewAuthHandler(authService, users)
	segmentHandler := handlers.NewSegmentHandler(segments, shipments, announcements, assigner, store)
	boardHandler := handlers.NewBoardHandler(segments, shipments, engine, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := cache.NewPoller(store, cfg.PollInterval, refreshFunc(segments, shipments, announcements))
	go poller.Run(ctx)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true)
	consumer := tracking.NewConsumer(mqtt.NewClient(opts), segments, store)
	if err := consumer.Start(); err != nil {
		// The console still serves reads and manual updates without tracking.
		log.WithError(err).Warn("Tracking consumer unavailable")
	} else {
		defer consumer.Stop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			authHandler.GetProfile(w, r)
		case http.MethodPut:
			authHandler.UpdateProfile(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/auth/change-password", authHandler.ChangePassword)
	mux.HandleFunc("/api/segments", segmentHandler.Collection)
	mux.HandleFunc("/api/segments/", segmentHandler.Item)
	mux.HandleFunc("/api/shipments/", segmentHandler.ShipmentSegments)
	mux.HandleFunc("/api/board", boardHandler.GetBoard)
	mux.HandleFunc("/health", healthHandler)

	handler := rateLimiter.RateLimit(300, 60)(authMiddleware.Authenticate(mux))

	log.WithField("port", cfg.Port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.WithError(err).Fatal("HTTP server stopped")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// refreshFunc re-fetches the view behind a cache key so the poller can keep
// primed entries fresh between invalidations.
func refreshFunc(segments db.SegmentCollection, shipments db.ShipmentCollection, announcements db.AnnouncementCollection) cache.RefreshFunc {
	return func(ctx context.Context, key cache.Key) (interface{}, error) {
		if shipmentID, ok := strings.CutPrefix(string(key), "segments:"); ok {
			cursor, err := segments.FindSegments(ctx, bson.M{"shipment_id": shipmentID})
			if err != nil {
				return nil, err
			}
			defer cursor.Close(ctx)
			list := []models.Segment{}
			if err := cursor.All(ctx, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		if shipmentID, ok := strings.CutPrefix(string(key), "shipment:"); ok {
			return shipments.FindShipmentByID(ctx, shipmentID)
		}
		if segmentID, ok := strings.CutPrefix(string(key), "announcements:"); ok {
			return announcements.FindAnnouncementsBySegment(ctx, segmentID)
		}
		return nil, nil
	}
}
