package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/freightops/haulage-console/internal/models"
	"github.com/freightops/haulage-console/internal/tracking"
)

// milestoneSequence is the order a leg walks through on the road.
var milestoneSequence = []tracking.Milestone{
	tracking.MilestoneStarted,
	tracking.MilestoneArrivedOrigin,
	tracking.MilestoneLoadingStarted,
	tracking.MilestoneLoadingCompleted,
	tracking.MilestoneEnteredCustoms,
	tracking.MilestoneCustomsCleared,
	tracking.MilestoneArrivedDestination,
	tracking.MilestoneDelivered,
}

// Waypoints along common road-freight corridors.
var cities = []models.Location{
	{Lat: 41.0082, Lon: 28.9784}, // Istanbul
	{Lat: 42.6977, Lon: 23.3219}, // Sofia
	{Lat: 44.4268, Lon: 26.1025}, // Bucharest
	{Lat: 47.4979, Lon: 19.0402}, // Budapest
	{Lat: 48.2082, Lon: 16.3738}, // Vienna
	{Lat: 50.0755, Lon: 14.4378}, // Prague
	{Lat: 52.5200, Lon: 13.4050}, // Berlin
	{Lat: 53.5511, Lon: 9.9937},  // Hamburg
	{Lat: 51.2277, Lon: 6.7735},  // Düsseldorf
	{Lat: 52.3676, Lon: 4.9041},  // Amsterdam
}

// segmentState tracks one simulated leg's progress between two cities.
type segmentState struct {
	SegmentID string
	Origin    models.Location
	Dest      models.Location
	Step      int
}

func jitterLocation(base models.Location, meters float64) models.Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return models.Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func lerp(a, b models.Location, t float64) models.Location {
	return models.Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

func newSegmentState(segmentID string) *segmentState {
	origin := cities[rand.Intn(len(cities))]
	dest := cities[rand.Intn(len(cities))]
	for dest == origin {
		dest = cities[rand.Intn(len(cities))]
	}
	return &segmentState{
		SegmentID: segmentID,
		Origin:    jitterLocation(origin, 500),
		Dest:      jitterLocation(dest, 500),
	}
}

// done reports whether the leg has published its full milestone sequence.
func (s *segmentState) done() bool {
	return s.Step >= len(milestoneSequence)
}

// nextEvent builds the next milestone event and advances the leg. The location
// moves from origin to destination proportionally to lifecycle progress.
func (s *segmentState) nextEvent() *tracking.Event {
	if s.done() {
		return nil
	}
	milestone := milestoneSequence[s.Step]
	progress := float64(s.Step) / float64(len(milestoneSequence)-1)
	location := jitterLocation(lerp(s.Origin, s.Dest, progress), 200)
	s.Step++

	return &tracking.Event{
		SegmentID: s.SegmentID,
		Milestone: milestone,
		At:        time.Now(),
		Location:  &location,
	}
}

func eventTopic(segmentID string) string {
	return "haulage/segments/" + segmentID + "/events"
}

func publishEvent(client mqtt.Client, event *tracking.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Error("Failed to marshal event")
		return
	}
	token := client.Publish(eventTopic(event.SegmentID), 1, false, payload)
	if token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).WithField("segment_id", event.SegmentID).Error("Failed to publish event")
		return
	}
	log.WithFields(log.Fields{
		"segment_id": event.SegmentID,
		"milestone":  event.Milestone,
	}).Info("Published milestone")
}

func parseSegmentIDs(raw string) []string {
	ids := []string{}
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func main() {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}

	segmentIDs := parseSegmentIDs(os.Getenv("SIM_SEGMENT_IDS"))
	if len(segmentIDs) == 0 {
		log.Fatal("SIM_SEGMENT_IDS is required (comma-separated IDs of assigned segments)")
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"broker":   broker,
		"segments": len(segmentIDs),
		"interval": interval,
	}).Info("Starting milestone simulation")

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("haulage-simulator").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
	}
	defer client.Disconnect(250)

	states := make([]*segmentState, 0, len(segmentIDs))
	for _, id := range segmentIDs {
		states = append(states, newSegmentState(id))
	}

	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		remaining := 0
		for _, state := range states {
			if event := state.nextEvent(); event != nil {
				publishEvent(client, event)
			}
			if !state.done() {
				remaining++
			}
		}
		if remaining == 0 {
			log.Info("All segments delivered, simulation complete")
			return
		}
	}
}
