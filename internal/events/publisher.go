// Package events publishes trip lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pkordes/carless/internal/domain"
)

// RoutingTripLogged is the routing key of TripLogged events.
const RoutingTripLogged = "trip.logged"

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// TripLogged is the body of a trip.logged message.
type TripLogged struct {
	TripID         uuid.UUID  `json:"trip_id"`
	LogType        string     `json:"log_type"`
	Mode           string     `json:"mode"`
	DistanceMeters float64    `json:"distance_meters"`
	StartTimestamp time.Time  `json:"start_timestamp"`
	EndTimestamp   *time.Time `json:"end_timestamp,omitempty"`
	Category       *string    `json:"category,omitempty"`
	VehicleID      *uuid.UUID `json:"vehicle_id,omitempty"`
	MoneySaved     *string    `json:"money_saved,omitempty"`
	FuelSaved      *float64   `json:"fuel_saved_gallons,omitempty"`
	Waypoints      int        `json:"waypoints"`
}

// NewTripLogged builds the event body for a saved trip.
func NewTripLogged(trip *domain.Trip) TripLogged {
	ev := TripLogged{
		TripID:         trip.ID,
		LogType:        string(trip.LogType()),
		Mode:           string(trip.Mode()),
		DistanceMeters: trip.Meters(),
		StartTimestamp: trip.StartTimestamp,
		EndTimestamp:   trip.EndTimestamp,
		Waypoints:      len(trip.Waypoints),
	}
	if trip.Category != nil {
		c := trip.Category.String()
		ev.Category = &c
	}
	if trip.Vehicle != nil {
		id := trip.Vehicle.ID
		ev.VehicleID = &id
	}
	if m, ok := trip.MoneySaved(); ok {
		s := m.StringFixed(2)
		ev.MoneySaved = &s
	}
	if g, ok := trip.FuelSaved(); ok {
		ev.FuelSaved = &g
	}
	return ev
}

// Publisher sends persistent JSON messages to a topic exchange.
// It implements store.Notifier.
type Publisher struct {
	ch       Channel
	exchange string
	now      func() time.Time
}

// NewPublisher declares exchange as a durable topic exchange and returns a
// publisher bound to it.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("events.NewPublisher: declare %q: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, now: time.Now}, nil
}

// TripSaved publishes a trip.logged event.
func (p *Publisher) TripSaved(ctx context.Context, trip *domain.Trip) error {
	body, err := json.Marshal(NewTripLogged(trip))
	if err != nil {
		return fmt.Errorf("events.Publisher.TripSaved: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingTripLogged, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    trip.ID.String(),
		Timestamp:    p.now(),
		Type:         RoutingTripLogged,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events.Publisher.TripSaved: %w", err)
	}
	return nil
}

// Close closes the channel.
func (p *Publisher) Close() error { return p.ch.Close() }

// Dial connects to url and opens a publisher on a fresh channel. Closing the
// returned connection closes the channel too.
func Dial(url, exchange string) (*Publisher, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("events.Dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("events.Dial: channel: %w", err)
	}
	p, err := NewPublisher(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return p, conn, nil
}
