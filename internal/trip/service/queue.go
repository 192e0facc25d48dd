package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
	"github.com/developerakkoo/Porttivo-API/internal/events"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// QueueService promotes queued trips when a vehicle frees up.
type QueueService struct {
	trips  TripRepository
	events events.Sink
	clock  clock.Clock
}

// NewQueueService creates a QueueService.
func NewQueueService(trips TripRepository, sink events.Sink, clk clock.Clock) *QueueService {
	return &QueueService{trips: trips, events: sink, clock: clk}
}

// ActivateNextTrip activates the oldest planned trip of the vehicle. It
// returns nil without error when the queue is empty, when the vehicle is
// still busy, or when a concurrent activation won the race.
func (s *QueueService) ActivateNextTrip(ctx context.Context, vehicleID uuid.UUID) (*model.Trip, error) {
	next, err := s.trips.OldestPlanned(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if next == nil {
		slog.Info("no queued trips to activate", "vehicleId", vehicleID)
		return nil, nil
	}

	active, err := s.trips.CountByVehicle(ctx, vehicleID, model.StatusActive)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		slog.Warn("vehicle still has an active trip, skipping auto-activation", "vehicleId", vehicleID)
		return nil, nil
	}

	now := s.clock.Now().UTC()
	ok, err := s.trips.ActivateExclusive(ctx, next.ID, vehicleID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Warn("queued trip no longer activatable", "vehicleId", vehicleID, "tripId", next.ID)
		return nil, nil
	}

	next.Status = model.StatusActive
	next.StartedAt = &now
	slog.Info("auto-activated queued trip", "vehicleId", vehicleID, "tripId", next.ID, "tripCode", next.TripCode)

	payload := map[string]any{"trip": next}
	if next.DriverID != nil {
		s.events.Emit(events.DriverChannel(*next.DriverID), events.TripAutoActivated, payload)
	}
	s.events.Emit(events.TransporterChannel(next.TransporterID), events.TripAutoActivated, payload)
	return next, nil
}

// QueueStatus describes the workload of a vehicle.
type QueueStatus struct {
	VehicleID   uuid.UUID    `json:"vehicleId"`
	ActiveTrip  *model.Trip  `json:"activeTrip,omitempty"`
	QueuedTrips []model.Trip `json:"queuedTrips"`
	QueueLength int          `json:"queueLength"`
}

// Status reports the active trip and the pending queue of a vehicle, oldest
// first.
func (s *QueueService) Status(ctx context.Context, vehicleID uuid.UUID) (*QueueStatus, error) {
	active, err := s.trips.ListByVehicle(ctx, vehicleID, model.StatusActive)
	if err != nil {
		return nil, err
	}
	queued, err := s.trips.ListByVehicle(ctx, vehicleID, model.StatusPlanned)
	if err != nil {
		return nil, err
	}

	status := &QueueStatus{
		VehicleID:   vehicleID,
		QueuedTrips: queued,
		QueueLength: len(queued),
	}
	if len(active) > 0 {
		status.ActiveTrip = &active[0]
	}
	return status, nil
}
