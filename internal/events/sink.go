// Package events carries domain events to interested clients. Services emit
// through the Sink interface; the websocket hub is one implementation, and
// tests substitute their own.
package events

import (
	"fmt"

	"github.com/google/uuid"
)

// Event names published by the trip and fuel services.
const (
	TripCreated       = "trip:created"
	TripStarted       = "trip:started"
	TripMilestone     = "trip:milestone:updated"
	TripCompleted     = "trip:completed"
	TripAutoActivated = "trip:auto-activated"
	FuelFlagged       = "fuel:transaction:flagged"
)

// Sink receives domain events addressed to a channel. Emit must not block
// the caller and must never return an error to it; delivery is best effort.
type Sink interface {
	Emit(channel, event string, payload any)
}

// TransporterChannel is the channel key for a transporter account.
func TransporterChannel(id uuid.UUID) string {
	return fmt.Sprintf("transporter:%s", id)
}

// DriverChannel is the channel key for a driver.
func DriverChannel(id uuid.UUID) string {
	return fmt.Sprintf("driver:%s", id)
}

// VehicleChannel is the channel key for a vehicle.
func VehicleChannel(id uuid.UUID) string {
	return fmt.Sprintf("vehicle:%s", id)
}

// TripChannel is the channel key for watchers of a single trip.
func TripChannel(id uuid.UUID) string {
	return fmt.Sprintf("trip:%s", id)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(channel, event string, payload any) {}
