package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
	"github.com/developerakkoo/Porttivo-API/internal/events"
	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// Start moves a planned trip to ACTIVE. The activation update is guarded so
// a vehicle can never carry two active trips.
func (s *TripService) Start(ctx context.Context, actor domain.Actor, tripID uuid.UUID) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOperate(actor, trip); err != nil {
		return nil, err
	}
	if trip.Status != model.StatusPlanned {
		return nil, domain.NewConflictError(fmt.Sprintf("only planned trips can be started, trip is %s", trip.Status))
	}
	if trip.VehicleID == nil {
		return nil, domain.NewValidationError("vehicleId", "trip has no vehicle assigned")
	}
	if trip.DriverID == nil {
		return nil, domain.NewValidationError("driverId", "trip has no driver assigned")
	}

	vehicle, err := s.fleet.GetVehicle(ctx, *trip.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != fleetmodel.VehicleActive {
		return nil, domain.NewConflictError("vehicle is not active")
	}

	now := s.clock.Now().UTC()
	ok, err := s.trips.ActivateExclusive(ctx, trip.ID, *trip.VehicleID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("vehicle already has an active trip")
	}

	trip.Status = model.StatusActive
	trip.StartedAt = &now

	payload := map[string]any{
		"trip":             trip,
		"currentMilestone": trip.CurrentMilestone(),
	}
	s.emitToTripParties(trip, events.TripStarted, payload)
	return trip, nil
}

// RecordMilestone appends the next milestone of an active trip. Only the
// assigned driver may record, and only in strict sequence.
func (s *TripService) RecordMilestone(ctx context.Context, actor domain.Actor, tripID uuid.UUID, req *model.RecordMilestoneDTO) (*model.Trip, error) {
	if req == nil {
		return nil, fmt.Errorf("milestone request cannot be nil")
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleDriver || trip.DriverID == nil || *trip.DriverID != actor.ID {
		return nil, domain.NewAccessError("only the assigned driver can record milestones")
	}
	if trip.Status != model.StatusActive {
		return nil, domain.NewConflictError(fmt.Sprintf("milestones can only be recorded on active trips, trip is %s", trip.Status))
	}

	expected := trip.NextMilestoneNumber()
	if req.Number != expected {
		return nil, domain.NewSequenceError(expected, req.Number)
	}
	if err := req.Location.Validate(); err != nil {
		return nil, domain.NewValidationError("location", err.Error())
	}

	milestoneType, err := model.MilestoneTypeByNumber(req.Number)
	if err != nil {
		return nil, domain.NewValidationError("milestoneNumber", err.Error())
	}
	meaning, err := model.BackendMeaning(milestoneType, trip.TripType)
	if err != nil {
		return nil, domain.NewValidationError("tripType", err.Error())
	}

	milestone := model.Milestone{
		Type:           milestoneType,
		Number:         req.Number,
		Timestamp:      s.clock.Now().UTC(),
		Location:       req.Location,
		Photo:          req.Photo,
		DriverID:       actor.ID,
		BackendMeaning: meaning,
	}

	priorCount := len(trip.Milestones)
	updated := append(model.MilestoneList{}, trip.Milestones...)
	updated = append(updated, milestone)

	ok, err := s.trips.ReplaceMilestones(ctx, trip.ID, priorCount, updated)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another submission won the race or the trip left ACTIVE.
		return nil, domain.NewSequenceError(expected, req.Number)
	}

	trip.Milestones = updated
	s.emitToTripParties(trip, events.TripMilestone, map[string]any{
		"trip":             trip,
		"milestone":        milestone,
		"currentMilestone": trip.CurrentMilestone(),
	})
	return trip, nil
}

// Complete finishes an active trip once all milestones are recorded, then
// tries to activate the next queued trip of the same vehicle. Activation
// failures are logged and never fail the completion.
func (s *TripService) Complete(ctx context.Context, actor domain.Actor, tripID uuid.UUID) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOperate(actor, trip); err != nil {
		return nil, err
	}
	if trip.Status != model.StatusActive {
		return nil, domain.NewConflictError(fmt.Sprintf("only active trips can be completed, trip is %s", trip.Status))
	}
	if !trip.AllMilestonesCompleted() {
		return nil, domain.NewConflictError(fmt.Sprintf("all %d milestones must be recorded before completing, %d recorded",
			model.MilestoneCount, len(trip.Milestones)))
	}

	now := s.clock.Now().UTC()
	ok, err := s.trips.CompleteIfFinished(ctx, trip.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("trip status changed, completion rejected")
	}

	trip.Status = model.StatusCompleted
	trip.CompletedAt = &now

	s.events.Emit(events.TransporterChannel(trip.TransporterID), events.TripCompleted, map[string]any{"trip": trip})
	if trip.VehicleID != nil {
		s.events.Emit(events.VehicleChannel(*trip.VehicleID), events.TripCompleted, map[string]any{"trip": trip})
	}
	s.events.Emit(events.TripChannel(trip.ID), events.TripCompleted, map[string]any{"trip": trip})

	if trip.VehicleID != nil {
		if _, err := s.queue.ActivateNextTrip(ctx, *trip.VehicleID); err != nil {
			slog.Error("failed to auto-activate next queued trip",
				"vehicleId", *trip.VehicleID,
				"completedTripId", trip.ID,
				"error", err,
			)
		}
	}
	return trip, nil
}

// UploadPOD attaches a proof-of-delivery photo to a completed trip and moves
// it to POD_PENDING until the transporter approves it.
func (s *TripService) UploadPOD(ctx context.Context, actor domain.Actor, tripID uuid.UUID, photoURL string) (*model.Trip, error) {
	if photoURL == "" {
		return nil, domain.NewValidationError("photo", "proof of delivery photo is required")
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOperate(actor, trip); err != nil {
		return nil, err
	}
	if trip.Status != model.StatusCompleted {
		return nil, domain.NewConflictError(fmt.Sprintf("proof of delivery can only be uploaded on completed trips, trip is %s", trip.Status))
	}

	now := s.clock.Now().UTC()
	uploadedBy := actor.ID
	trip.POD = model.POD{
		Photo:      photoURL,
		UploadedAt: &now,
		UploadedBy: &uploadedBy,
	}
	trip.Status = model.StatusPODPending

	if err := s.trips.Save(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// ApprovePOD accepts the uploaded proof of delivery and settles the trip
// back to COMPLETED.
func (s *TripService) ApprovePOD(ctx context.Context, actor domain.Actor, tripID uuid.UUID) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleDriver || !actor.ActsForTransporter(trip.TransporterID) {
		return nil, domain.NewAccessError("only the transporter can approve proof of delivery")
	}
	if trip.Status != model.StatusPODPending {
		return nil, domain.NewConflictError(fmt.Sprintf("no proof of delivery pending approval, trip is %s", trip.Status))
	}

	now := s.clock.Now().UTC()
	approvedBy := actor.ID
	trip.POD.ApprovedAt = &now
	trip.POD.ApprovedBy = &approvedBy
	trip.Status = model.StatusCompleted

	if err := s.trips.Save(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// authorizeOperate allows the owning transporter side or the assigned
// driver.
func (s *TripService) authorizeOperate(actor domain.Actor, trip *model.Trip) error {
	if actor.Role == domain.RoleDriver {
		if trip.DriverID != nil && *trip.DriverID == actor.ID {
			return nil
		}
		return domain.NewAccessError("not the assigned driver of this trip")
	}
	if actor.ActsForTransporter(trip.TransporterID) {
		return nil
	}
	return domain.NewAccessError("not allowed to operate this trip")
}

// emitToTripParties publishes the event on the transporter, driver, vehicle
// and trip channels.
func (s *TripService) emitToTripParties(trip *model.Trip, event string, payload map[string]any) {
	s.events.Emit(events.TransporterChannel(trip.TransporterID), event, payload)
	if trip.DriverID != nil {
		s.events.Emit(events.DriverChannel(*trip.DriverID), event, payload)
	}
	if trip.VehicleID != nil {
		s.events.Emit(events.VehicleChannel(*trip.VehicleID), event, payload)
	}
	s.events.Emit(events.TripChannel(trip.ID), event, payload)
}
