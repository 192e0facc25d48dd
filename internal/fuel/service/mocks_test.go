package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
)

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.FuelTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FuelTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FuelTransaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByCodeAndQR(ctx context.Context, code, qrCode string) (*model.FuelTransaction, error) {
	args := m.Called(ctx, code, qrCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FuelTransaction), args.Error(1)
}

func (m *MockTransactionRepository) Save(ctx context.Context, txn *model.FuelTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter model.TransactionFilter, limit, offset int) ([]model.FuelTransaction, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.FuelTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) Transition(ctx context.Context, txnID uuid.UUID, from, to model.TransactionStatus, assign map[string]any) (bool, error) {
	args := m.Called(ctx, txnID, from, to, assign)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SubmitCompletion(ctx context.Context, txnID, cardID uuid.UUID, amount float64, assign map[string]any) (SubmitOutcome, error) {
	args := m.Called(ctx, txnID, cardID, amount, assign)
	return args.Get(0).(SubmitOutcome), args.Error(1)
}

func (m *MockTransactionRepository) ReceiptsByPhoto(ctx context.Context, driverID uuid.UUID, photo string) ([]model.FuelTransaction, error) {
	args := m.Called(ctx, driverID, photo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FuelTransaction), args.Error(1)
}

func (m *MockTransactionRepository) CountReceiptsSince(ctx context.Context, driverID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, driverID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) RecentCompletedAmounts(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]float64, error) {
	args := m.Called(ctx, driverID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockTransactionRepository) FraudStats(ctx context.Context, from, to *time.Time) (*model.FraudStats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FraudStats), args.Error(1)
}

type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FuelCard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FuelCard), args.Error(1)
}

func (m *MockCardRepository) GetActiveForDriver(ctx context.Context, driverID uuid.UUID) (*model.FuelCard, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FuelCard), args.Error(1)
}

func (m *MockCardRepository) Save(ctx context.Context, card *model.FuelCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

type MockPartyRepository struct {
	mock.Mock
}

func (m *MockPartyRepository) GetPumpOwner(ctx context.Context, id uuid.UUID) (*model.PumpOwner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PumpOwner), args.Error(1)
}

func (m *MockPartyRepository) GetDriver(ctx context.Context, id uuid.UUID) (*fleetmodel.Driver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleetmodel.Driver), args.Error(1)
}

type recordedEvent struct {
	channel string
	event   string
	payload any
}

type recorderSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorderSink) Emit(channel, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{channel: channel, event: event, payload: payload})
}

func (r *recorderSink) has(channel, event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.channel == channel && e.event == event {
			return true
		}
	}
	return false
}
