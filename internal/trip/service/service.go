package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
	"github.com/developerakkoo/Porttivo-API/internal/domain"
	"github.com/developerakkoo/Porttivo-API/internal/events"
	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// Named permission grants checked for company users.
const (
	PermTripsCreate = "trips.create"
	PermTripsUpdate = "trips.update"
	PermTripsCancel = "trips.cancel"
)

// DefaultShareExpiry is the share-link lifetime applied when neither the
// configuration nor the request chooses one.
const DefaultShareExpiry = 168 * time.Hour

// TripService implements the trip lifecycle: creation, planning updates,
// the milestone state machine, proof of delivery and share links.
type TripService struct {
	trips    TripRepository
	fleet    FleetRepository
	queue    *QueueService
	events   events.Sink
	clock    clock.Clock
	shareTTL time.Duration
}

// NewTripService creates a TripService. A non-positive shareTTL falls back
// to DefaultShareExpiry.
func NewTripService(trips TripRepository, fleet FleetRepository, queue *QueueService, sink events.Sink, clk clock.Clock, shareTTL time.Duration) *TripService {
	if shareTTL <= 0 {
		shareTTL = DefaultShareExpiry
	}
	return &TripService{
		trips:    trips,
		fleet:    fleet,
		queue:    queue,
		events:   sink,
		clock:    clk,
		shareTTL: shareTTL,
	}
}

// Create validates and stores a new trip in PLANNED state.
func (s *TripService) Create(ctx context.Context, actor domain.Actor, createReq *model.CreateTripDTO) (*model.Trip, error) {
	if createReq == nil {
		return nil, fmt.Errorf("create request cannot be nil")
	}
	if actor.Role != domain.RoleTransporter && actor.Role != domain.RoleCompanyUser {
		return nil, domain.NewAccessError("only transporters can create trips")
	}
	if !actor.HasPermission(PermTripsCreate) {
		return nil, domain.NewAccessError("missing permission to create trips")
	}
	if !model.ValidTripType(createReq.TripType) {
		return nil, domain.NewValidationError("tripType", "must be IMPORT or EXPORT")
	}

	transporterID := actor.TransporterID
	if actor.Role == domain.RoleTransporter {
		transporterID = actor.ID
	}

	if err := s.validateLocations(createReq.PickupLocation, createReq.DropLocation); err != nil {
		return nil, err
	}
	if err := s.validateAssignment(ctx, transporterID, createReq.VehicleID, createReq.DriverID); err != nil {
		return nil, err
	}

	trip := &model.Trip{
		TripCode:        model.NewTripCode(),
		TransporterID:   transporterID,
		VehicleID:       createReq.VehicleID,
		DriverID:        createReq.DriverID,
		ContainerNumber: strings.ToUpper(strings.TrimSpace(createReq.ContainerNumber)),
		Reference:       strings.TrimSpace(createReq.Reference),
		PickupLocation:  createReq.PickupLocation,
		DropLocation:    createReq.DropLocation,
		TripType:        createReq.TripType,
		Status:          model.StatusPlanned,
		Milestones:      model.MilestoneList{},
	}

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.events.Emit(events.TransporterChannel(trip.TransporterID), events.TripCreated, map[string]any{
		"trip": trip,
	})
	return trip, nil
}

// Get returns a trip the actor is allowed to see.
func (s *TripService) Get(ctx context.Context, actor domain.Actor, tripID uuid.UUID) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(actor, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// List returns trips matching the filter, scoped to what the actor may see.
func (s *TripService) List(ctx context.Context, actor domain.Actor, filter model.TripFilter, limit, offset int) ([]model.Trip, int64, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		// admins see everything
	case domain.RoleDriver:
		id := actor.ID
		filter.DriverID = &id
	default:
		transporterID := actor.TransporterID
		if actor.Role == domain.RoleTransporter {
			transporterID = actor.ID
		}
		filter.TransporterID = &transporterID
	}
	return s.trips.List(ctx, filter, limit, offset)
}

// Update modifies a trip while it is still planned.
func (s *TripService) Update(ctx context.Context, actor domain.Actor, tripID uuid.UUID, updateReq *model.UpdateTripDTO) (*model.Trip, error) {
	if updateReq == nil {
		return nil, fmt.Errorf("update request cannot be nil")
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !actor.ActsForTransporter(trip.TransporterID) || actor.Role == domain.RoleDriver {
		return nil, domain.NewAccessError("not allowed to update this trip")
	}
	if !actor.HasPermission(PermTripsUpdate) {
		return nil, domain.NewAccessError("missing permission to update trips")
	}
	if trip.Status != model.StatusPlanned {
		return nil, domain.NewConflictError(fmt.Sprintf("only planned trips can be updated, trip is %s", trip.Status))
	}

	if updateReq.PickupLocation != nil {
		if err := updateReq.PickupLocation.Coordinates.Validate(); err != nil {
			return nil, domain.NewValidationError("pickupLocation", err.Error())
		}
		trip.PickupLocation = updateReq.PickupLocation
	}
	if updateReq.DropLocation != nil {
		if err := updateReq.DropLocation.Coordinates.Validate(); err != nil {
			return nil, domain.NewValidationError("dropLocation", err.Error())
		}
		trip.DropLocation = updateReq.DropLocation
	}

	vehicleID := trip.VehicleID
	driverID := trip.DriverID
	if updateReq.VehicleID != nil {
		vehicleID = updateReq.VehicleID
	}
	if updateReq.DriverID != nil {
		driverID = updateReq.DriverID
	}
	if err := s.validateAssignment(ctx, trip.TransporterID, vehicleID, driverID); err != nil {
		return nil, err
	}
	trip.VehicleID = vehicleID
	trip.DriverID = driverID

	if updateReq.ContainerNumber != nil {
		trip.ContainerNumber = strings.ToUpper(strings.TrimSpace(*updateReq.ContainerNumber))
	}
	if updateReq.Reference != nil {
		trip.Reference = strings.TrimSpace(*updateReq.Reference)
	}

	if err := s.trips.Save(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// Cancel abandons a trip. Planned trips can be cancelled by their
// transporter; once a trip is active only an admin can cancel it.
func (s *TripService) Cancel(ctx context.Context, actor domain.Actor, tripID uuid.UUID, cancelReq *model.CancelTripDTO) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	switch trip.Status {
	case model.StatusPlanned:
		if !actor.ActsForTransporter(trip.TransporterID) {
			return nil, domain.NewAccessError("not allowed to cancel this trip")
		}
		if !actor.HasPermission(PermTripsCancel) {
			return nil, domain.NewAccessError("missing permission to cancel trips")
		}
	case model.StatusActive:
		if !actor.IsAdmin() {
			return nil, domain.NewAccessError("active trips can only be cancelled by an admin")
		}
	default:
		return nil, domain.NewConflictError(fmt.Sprintf("cannot cancel a %s trip", trip.Status))
	}

	now := s.clock.Now().UTC()
	reason := ""
	if cancelReq != nil {
		reason = strings.TrimSpace(cancelReq.Reason)
	}
	ok, err := s.trips.Transition(ctx, trip.ID, trip.Status, model.StatusCancelled, map[string]any{
		"cancelled_at":  now,
		"cancelled_by":  actor.ID,
		"cancel_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("trip status changed, cancellation rejected")
	}

	trip.Status = model.StatusCancelled
	trip.CancelledAt = &now
	cancelledBy := actor.ID
	trip.CancelledBy = &cancelledBy
	trip.CancelReason = reason
	return trip, nil
}

// Share mints a public share link token for the trip.
func (s *TripService) Share(ctx context.Context, actor domain.Actor, tripID uuid.UUID, shareReq *model.ShareTripDTO) (*model.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !actor.ActsForTransporter(trip.TransporterID) {
		return nil, domain.NewAccessError("not allowed to share this trip")
	}

	ttl := s.shareTTL
	if shareReq != nil && shareReq.ExpiryHours > 0 {
		ttl = time.Duration(shareReq.ExpiryHours) * time.Hour
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}
	expiry := s.clock.Now().UTC().Add(ttl)
	trip.ShareToken = &token
	trip.ShareTokenExp = &expiry

	if err := s.trips.Save(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

// GetShared resolves a trip by share token. Expired and unknown tokens are
// both reported as not found.
func (s *TripService) GetShared(ctx context.Context, token string) (*model.Trip, error) {
	trip, err := s.trips.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !trip.ShareTokenValid(token, s.clock.Now()) {
		return nil, domain.NewNotFoundError("trip")
	}
	return trip, nil
}

// Timeline returns all five milestone slots of a trip with their completion
// details.
func (s *TripService) Timeline(ctx context.Context, actor domain.Actor, tripID uuid.UUID) ([]model.TimelineEntry, error) {
	trip, err := s.Get(ctx, actor, tripID)
	if err != nil {
		return nil, err
	}
	return buildTimeline(trip), nil
}

func buildTimeline(trip *model.Trip) []model.TimelineEntry {
	entries := make([]model.TimelineEntry, 0, model.MilestoneCount)
	for n := 1; n <= model.MilestoneCount; n++ {
		mt, _ := model.MilestoneTypeByNumber(n)
		meaning, _ := model.BackendMeaning(mt, trip.TripType)
		entry := model.TimelineEntry{
			Number:  n,
			Type:    mt,
			Label:   model.DriverLabel(mt),
			Meaning: meaning,
		}
		if n <= len(trip.Milestones) {
			entry.Completed = true
			m := trip.Milestones[n-1]
			entry.Milestone = &m
		}
		entries = append(entries, entry)
	}
	return entries
}

// authorizeView checks read access to a trip.
func (s *TripService) authorizeView(actor domain.Actor, trip *model.Trip) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == domain.RoleDriver {
		if trip.DriverID != nil && *trip.DriverID == actor.ID {
			return nil
		}
		return domain.NewAccessError("not allowed to view this trip")
	}
	if actor.ActsForTransporter(trip.TransporterID) {
		return nil
	}
	return domain.NewAccessError("not allowed to view this trip")
}

// validateLocations checks the coordinates of both trip endpoints.
func (s *TripService) validateLocations(pickup, drop *model.Location) error {
	if pickup != nil {
		if err := pickup.Coordinates.Validate(); err != nil {
			return domain.NewValidationError("pickupLocation", err.Error())
		}
	}
	if drop != nil {
		if err := drop.Coordinates.Validate(); err != nil {
			return domain.NewValidationError("dropLocation", err.Error())
		}
	}
	return nil
}

// validateAssignment checks that the referenced vehicle and driver exist,
// are active and are usable by the transporter.
func (s *TripService) validateAssignment(ctx context.Context, transporterID uuid.UUID, vehicleID, driverID *uuid.UUID) error {
	if vehicleID != nil {
		vehicle, err := s.fleet.GetVehicle(ctx, *vehicleID)
		if err != nil {
			return err
		}
		if !vehicle.UsableBy(transporterID) {
			return domain.NewAccessError("vehicle does not belong to this transporter")
		}
		if vehicle.Status != fleetmodel.VehicleActive {
			return domain.NewConflictError("vehicle is not active")
		}
	}
	if driverID != nil {
		driver, err := s.fleet.GetDriver(ctx, *driverID)
		if err != nil {
			return err
		}
		if driver.TransporterID != transporterID {
			return domain.NewAccessError("driver does not belong to this transporter")
		}
		if driver.Status != fleetmodel.DriverActive {
			return domain.NewValidationError("driverId", "driver is not active")
		}
	}
	return nil
}

func newShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
