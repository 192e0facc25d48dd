package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// MockTripRepository is a mock implementation of TripRepository
type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) Create(ctx context.Context, trip *model.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Trip), args.Error(1)
}

func (m *MockTripRepository) GetByShareToken(ctx context.Context, token string) (*model.Trip, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Trip), args.Error(1)
}

func (m *MockTripRepository) Save(ctx context.Context, trip *model.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) List(ctx context.Context, filter model.TripFilter, limit, offset int) ([]model.Trip, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Trip), args.Get(1).(int64), args.Error(2)
}

func (m *MockTripRepository) Transition(ctx context.Context, tripID uuid.UUID, from, to model.Status, assign map[string]any) (bool, error) {
	args := m.Called(ctx, tripID, from, to, assign)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripRepository) ActivateExclusive(ctx context.Context, tripID, vehicleID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, tripID, vehicleID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripRepository) ReplaceMilestones(ctx context.Context, tripID uuid.UUID, priorCount int, milestones model.MilestoneList) (bool, error) {
	args := m.Called(ctx, tripID, priorCount, milestones)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripRepository) CompleteIfFinished(ctx context.Context, tripID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, tripID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTripRepository) OldestPlanned(ctx context.Context, vehicleID uuid.UUID) (*model.Trip, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Trip), args.Error(1)
}

func (m *MockTripRepository) CountByVehicle(ctx context.Context, vehicleID uuid.UUID, statuses ...model.Status) (int64, error) {
	callArgs := make([]any, 0, 2+len(statuses))
	callArgs = append(callArgs, ctx, vehicleID)
	for _, s := range statuses {
		callArgs = append(callArgs, s)
	}
	args := m.Called(callArgs...)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTripRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, status model.Status) ([]model.Trip, error) {
	args := m.Called(ctx, vehicleID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Trip), args.Error(1)
}

// MockFleetRepository is a mock implementation of FleetRepository
type MockFleetRepository struct {
	mock.Mock
}

func (m *MockFleetRepository) GetTransporter(ctx context.Context, id uuid.UUID) (*fleetmodel.Transporter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleetmodel.Transporter), args.Error(1)
}

func (m *MockFleetRepository) GetVehicle(ctx context.Context, id uuid.UUID) (*fleetmodel.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleetmodel.Vehicle), args.Error(1)
}

func (m *MockFleetRepository) GetDriver(ctx context.Context, id uuid.UUID) (*fleetmodel.Driver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleetmodel.Driver), args.Error(1)
}

// recordedEvent is one emission captured by recorderSink.
type recordedEvent struct {
	Channel string
	Event   string
	Payload any
}

// recorderSink captures emitted events for assertions.
type recorderSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorderSink) Emit(channel, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Channel: channel, Event: event, Payload: payload})
}

func (r *recorderSink) has(channel, event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Channel == channel && e.Event == event {
			return true
		}
	}
	return false
}

func (r *recorderSink) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event == event {
			n++
		}
	}
	return n
}
