package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/freightops/haulage-console/internal/cache"
	"github.com/freightops/haulage-console/internal/db"
)

// EventTopic is the subscription filter for segment milestone events; the
// wildcard level carries the segment ID.
const EventTopic = "haulage/segments/+/events"

const applyTimeout = 10 * time.Second

// Consumer subscribes to the milestone topic and applies events to the
// segment store.
type Consumer struct {
	client   mqtt.Client
	segments db.SegmentCollection
	store    *cache.Store
}

// NewConsumer creates a consumer over an already-configured MQTT client.
func NewConsumer(client mqtt.Client, segments db.SegmentCollection, store *cache.Store) *Consumer {
	return &Consumer{client: client, segments: segments, store: store}
}

// Start connects and subscribes. Events are handled one at a time per the
// client's default ordered delivery.
func (c *Consumer) Start() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect failed: %w", token.Error())
	}
	if token := c.client.Subscribe(EventTopic, 1, c.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe failed: %w", token.Error())
	}
	log.WithField("topic", EventTopic).Info("Tracking consumer started")
	return nil
}

// Stop disconnects the MQTT client.
func (c *Consumer) Stop() {
	c.client.Disconnect(250)
}

func (c *Consumer) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var event Event
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		log.WithError(err).WithField("topic", msg.Topic()).Error("Invalid milestone payload")
		return
	}
	if err := c.Apply(context.Background(), &event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"segment_id": event.SegmentID,
			"milestone":  event.Milestone,
		}).Warn("Milestone not applied")
	}
}

// Apply validates and applies one event: load the segment, compute the
// forward-only update, persist it, and invalidate the affected cache keys.
func (c *Consumer) Apply(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()

	seg, err := c.segments.FindSegmentByID(ctx, event.SegmentID)
	if err != nil {
		return fmt.Errorf("failed to load segment: %w", err)
	}

	fields, err := ApplyMilestone(seg, event.Milestone, event.At)
	if err != nil {
		return err
	}

	updated, err := c.segments.UpdateSegmentFields(ctx, event.SegmentID, fields)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}

	if c.store != nil {
		c.store.Invalidate(
			cache.ShipmentKey(updated.ShipmentID),
			cache.SegmentListKey(updated.ShipmentID),
		)
	}

	log.WithFields(log.Fields{
		"segment_id": event.SegmentID,
		"milestone":  event.Milestone,
		"status":     updated.Status,
	}).Info("Milestone applied")
	return nil
}
