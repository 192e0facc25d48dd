package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// AvailabilityState classifies a vehicle's workload.
type AvailabilityState string

const (
	VehicleBusy      AvailabilityState = "ACTIVE"
	VehicleQueued    AvailabilityState = "QUEUED"
	VehicleAvailable AvailabilityState = "AVAILABLE"
)

// Availability is the derived workload report of a vehicle.
type Availability struct {
	VehicleID      uuid.UUID         `json:"vehicleId"`
	State          AvailabilityState `json:"state"`
	HasActiveTrip  bool              `json:"hasActiveTrip"`
	QueuedTrips    int64             `json:"queuedTrips"`
	HasTripHistory bool              `json:"hasTripHistory"`
	IsAvailable    bool              `json:"isAvailable"`
}

// AvailabilityService derives vehicle availability from trip state. Nothing
// is stored; the answer is always computed from the trips table.
type AvailabilityService struct {
	trips TripRepository
}

// NewAvailabilityService creates an AvailabilityService.
func NewAvailabilityService(trips TripRepository) *AvailabilityService {
	return &AvailabilityService{trips: trips}
}

// Resolve computes the availability of a vehicle.
func (s *AvailabilityService) Resolve(ctx context.Context, vehicleID uuid.UUID) (*Availability, error) {
	active, err := s.trips.CountByVehicle(ctx, vehicleID, model.StatusActive)
	if err != nil {
		return nil, err
	}
	queued, err := s.trips.CountByVehicle(ctx, vehicleID, model.StatusPlanned)
	if err != nil {
		return nil, err
	}
	history, err := s.trips.CountByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	availability := &Availability{
		VehicleID:      vehicleID,
		HasActiveTrip:  active > 0,
		QueuedTrips:    queued,
		HasTripHistory: history > 0,
	}
	switch {
	case active > 0:
		availability.State = VehicleBusy
	case queued > 0:
		availability.State = VehicleQueued
	default:
		availability.State = VehicleAvailable
		availability.IsAvailable = true
	}
	return availability, nil
}

// CanHardDelete reports whether a vehicle may be removed outright. Vehicles
// with any trip history must be soft-deleted to keep records intact.
func (s *AvailabilityService) CanHardDelete(ctx context.Context, vehicleID uuid.UUID) (bool, error) {
	history, err := s.trips.CountByVehicle(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	return history == 0, nil
}
