package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
)

// SubmitOutcome reports how a guarded settlement attempt ended.
type SubmitOutcome int

const (
	// SubmitCompleted means the transaction was claimed and the card balance
	// deducted in the same database transaction.
	SubmitCompleted SubmitOutcome = iota
	// SubmitConflict means the transaction was not in the confirmed state,
	// typically because another pump submit won the race.
	SubmitConflict
	// SubmitInsufficientBalance means the card balance could not cover the
	// settlement amount. Nothing was changed.
	SubmitInsufficientBalance
)

// TransactionRepository persists fuel transactions.
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.FuelTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.FuelTransaction, error)
	// GetByCodeAndQR resolves a transaction only when both the transaction
	// code and the exact QR token match.
	GetByCodeAndQR(ctx context.Context, code, qrCode string) (*model.FuelTransaction, error)
	Save(ctx context.Context, txn *model.FuelTransaction) error
	List(ctx context.Context, filter model.TransactionFilter, limit, offset int) ([]model.FuelTransaction, int64, error)

	// Transition moves the transaction from one status to another with a
	// single conditional update. It reports whether a row was changed.
	Transition(ctx context.Context, txnID uuid.UUID, from, to model.TransactionStatus, assign map[string]any) (bool, error)

	// SubmitCompletion claims a confirmed transaction and deducts the card
	// balance atomically. Both updates are guarded so a double submit or an
	// underfunded card leaves the database untouched.
	SubmitCompletion(ctx context.Context, txnID, cardID uuid.UUID, amount float64, assign map[string]any) (SubmitOutcome, error)

	// ReceiptsByPhoto returns the driver's transactions whose receipt carries
	// the given photo reference.
	ReceiptsByPhoto(ctx context.Context, driverID uuid.UUID, photo string) ([]model.FuelTransaction, error)
	// CountReceiptsSince counts the driver's completed transactions whose
	// receipt was uploaded at or after the given instant.
	CountReceiptsSince(ctx context.Context, driverID uuid.UUID, since time.Time) (int64, error)
	// RecentCompletedAmounts returns up to limit amounts of the driver's most
	// recent completed transactions since the given instant, newest first.
	RecentCompletedAmounts(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]float64, error)

	FraudStats(ctx context.Context, from, to *time.Time) (*model.FraudStats, error)
}

// CardRepository persists fuel cards.
type CardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.FuelCard, error)
	// GetActiveForDriver returns the driver's active card, or a not found
	// error when none is assigned.
	GetActiveForDriver(ctx context.Context, driverID uuid.UUID) (*model.FuelCard, error)
	Save(ctx context.Context, card *model.FuelCard) error
}

// PartyRepository resolves the parties referenced by a transaction.
type PartyRepository interface {
	GetPumpOwner(ctx context.Context, id uuid.UUID) (*model.PumpOwner, error)
	GetDriver(ctx context.Context, id uuid.UUID) (*fleetmodel.Driver, error)
}
