package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// TripRepository is the persistence boundary of the trip services. The
// conditional methods return false instead of an error when the guarded
// update matched no row, leaving the interpretation to the caller.
type TripRepository interface {
	Create(ctx context.Context, trip *model.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	GetByShareToken(ctx context.Context, token string) (*model.Trip, error)
	Save(ctx context.Context, trip *model.Trip) error
	List(ctx context.Context, filter model.TripFilter, limit, offset int) ([]model.Trip, int64, error)

	// Transition moves a trip from one status to another in a single
	// guarded update, applying the extra column assignments alongside.
	Transition(ctx context.Context, tripID uuid.UUID, from, to model.Status, assign map[string]any) (bool, error)

	// ActivateExclusive moves a planned trip to ACTIVE only while no other
	// trip of the same vehicle is ACTIVE.
	ActivateExclusive(ctx context.Context, tripID, vehicleID uuid.UUID, at time.Time) (bool, error)

	// ReplaceMilestones overwrites the milestone list only while the trip
	// is ACTIVE and still holds exactly priorCount milestones.
	ReplaceMilestones(ctx context.Context, tripID uuid.UUID, priorCount int, milestones model.MilestoneList) (bool, error)

	// CompleteIfFinished moves an ACTIVE trip with all milestones recorded
	// to COMPLETED.
	CompleteIfFinished(ctx context.Context, tripID uuid.UUID, at time.Time) (bool, error)

	OldestPlanned(ctx context.Context, vehicleID uuid.UUID) (*model.Trip, error)
	CountByVehicle(ctx context.Context, vehicleID uuid.UUID, statuses ...model.Status) (int64, error)
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID, status model.Status) ([]model.Trip, error)
}

// FleetRepository resolves the fleet entities a trip references.
type FleetRepository interface {
	GetTransporter(ctx context.Context, id uuid.UUID) (*fleetmodel.Transporter, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*fleetmodel.Vehicle, error)
	GetDriver(ctx context.Context, id uuid.UUID) (*fleetmodel.Driver, error)
}
