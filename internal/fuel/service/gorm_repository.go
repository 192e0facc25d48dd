package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
)

// GormTransactionRepository implements TransactionRepository on PostgreSQL.
type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

func (r *GormTransactionRepository) Create(ctx context.Context, txn *model.FuelTransaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create fuel transaction: %w", err)
	}
	return nil
}

func (r *GormTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FuelTransaction, error) {
	var txn model.FuelTransaction
	err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("fuel transaction")
		}
		return nil, fmt.Errorf("failed to get fuel transaction: %w", err)
	}
	return &txn, nil
}

func (r *GormTransactionRepository) GetByCodeAndQR(ctx context.Context, code, qrCode string) (*model.FuelTransaction, error) {
	var txn model.FuelTransaction
	err := r.db.WithContext(ctx).
		First(&txn, "transaction_code = ? AND qr_code = ?", code, qrCode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("fuel transaction")
		}
		return nil, fmt.Errorf("failed to get fuel transaction by code: %w", err)
	}
	return &txn, nil
}

func (r *GormTransactionRepository) Save(ctx context.Context, txn *model.FuelTransaction) error {
	if err := r.db.WithContext(ctx).Save(txn).Error; err != nil {
		return fmt.Errorf("failed to save fuel transaction: %w", err)
	}
	return nil
}

func (r *GormTransactionRepository) List(ctx context.Context, filter model.TransactionFilter, limit, offset int) ([]model.FuelTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.FuelTransaction{})

	if filter.TransporterID != nil {
		query = query.Where(
			"fuel_card_id IN (SELECT id FROM fuel_cards WHERE transporter_id = ?)",
			*filter.TransporterID,
		)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.PumpOwnerID != nil {
		query = query.Where("pump_owner_id = ?", *filter.PumpOwnerID)
	}
	if filter.FuelCardID != nil {
		query = query.Where("fuel_card_id = ?", *filter.FuelCardID)
	}
	if filter.VehicleNumber != "" {
		query = query.Where("vehicle_number = ?", strings.ToUpper(strings.TrimSpace(filter.VehicleNumber)))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OnlyFlagged {
		query = query.Where("status = ?", model.TxnFlagged)
	}
	if filter.OnlyUnresolved {
		query = query.Where("(fraud_flags ->> 'resolved')::boolean IS NOT TRUE")
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count fuel transactions: %w", err)
	}

	var txns []model.FuelTransaction
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fuel transactions: %w", err)
	}
	return txns, total, nil
}

func (r *GormTransactionRepository) Transition(ctx context.Context, txnID uuid.UUID, from, to model.TransactionStatus, assign map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range assign {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&model.FuelTransaction{}).
		Where("id = ? AND status = ?", txnID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition fuel transaction: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// errSettlementAborted rolls back the settlement transaction when one of the
// guards fails. The outcome captured alongside it tells the caller which one.
var errSettlementAborted = errors.New("settlement aborted")

// SubmitCompletion runs both guarded updates inside one database transaction.
// The card deduction is conditional on the balance covering the amount, and
// the status claim is conditional on the transaction still being confirmed.
// Either guard failing rolls back the whole settlement.
func (r *GormTransactionRepository) SubmitCompletion(ctx context.Context, txnID, cardID uuid.UUID, amount float64, assign map[string]any) (SubmitOutcome, error) {
	outcome := SubmitCompleted
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": model.TxnCompleted, "amount": amount}
		for k, v := range assign {
			updates[k] = v
		}
		claim := tx.Model(&model.FuelTransaction{}).
			Where("id = ? AND status = ?", txnID, model.TxnConfirmed).
			Updates(updates)
		if claim.Error != nil {
			return fmt.Errorf("failed to claim fuel transaction: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			outcome = SubmitConflict
			return errSettlementAborted
		}

		deduct := tx.Model(&model.FuelCard{}).
			Where("id = ? AND balance >= ?", cardID, amount).
			Updates(map[string]any{
				"balance":      gorm.Expr("balance - ?", amount),
				"last_used_at": updates["completed_at"],
			})
		if deduct.Error != nil {
			return fmt.Errorf("failed to deduct fuel card balance: %w", deduct.Error)
		}
		if deduct.RowsAffected == 0 {
			outcome = SubmitInsufficientBalance
			return errSettlementAborted
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errSettlementAborted) {
			return outcome, nil
		}
		return SubmitConflict, err
	}
	return SubmitCompleted, nil
}

func (r *GormTransactionRepository) ReceiptsByPhoto(ctx context.Context, driverID uuid.UUID, photo string) ([]model.FuelTransaction, error) {
	var txns []model.FuelTransaction
	err := r.db.WithContext(ctx).
		Where("driver_id = ? AND receipt ->> 'photo' = ?", driverID, photo).
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up receipts by photo: %w", err)
	}
	return txns, nil
}

func (r *GormTransactionRepository) CountReceiptsSince(ctx context.Context, driverID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.FuelTransaction{}).
		Where("driver_id = ? AND status = ? AND (receipt ->> 'uploadedAt')::timestamptz >= ?",
			driverID, model.TxnCompleted, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count recent receipts: %w", err)
	}
	return count, nil
}

func (r *GormTransactionRepository) RecentCompletedAmounts(ctx context.Context, driverID uuid.UUID, since time.Time, limit int) ([]float64, error) {
	var amounts []float64
	err := r.db.WithContext(ctx).
		Model(&model.FuelTransaction{}).
		Where("driver_id = ? AND status = ? AND created_at >= ?", driverID, model.TxnCompleted, since).
		Order("created_at DESC").
		Limit(limit).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent amounts: %w", err)
	}
	return amounts, nil
}

func (r *GormTransactionRepository) FraudStats(ctx context.Context, from, to *time.Time) (*model.FraudStats, error) {
	base := r.db.WithContext(ctx).
		Model(&model.FuelTransaction{}).
		Where("status = ?", model.TxnFlagged)
	if from != nil {
		base = base.Where("created_at >= ?", *from)
	}
	if to != nil {
		base = base.Where("created_at <= ?", *to)
	}

	stats := &model.FraudStats{}
	if err := base.Session(&gorm.Session{}).Count(&stats.TotalFlagged).Error; err != nil {
		return nil, fmt.Errorf("failed to count flagged transactions: %w", err)
	}

	flagCounts := map[string]*int64{
		"duplicateReceipt": &stats.DuplicateReceipt,
		"gpsMismatch":      &stats.GPSMismatch,
		"expressUploads":   &stats.ExpressUploads,
		"unusualPattern":   &stats.UnusualPattern,
	}
	for flag, dest := range flagCounts {
		err := base.Session(&gorm.Session{}).
			Where("(fraud_flags ->> ?)::boolean IS TRUE", flag).
			Count(dest).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count %s flags: %w", flag, err)
		}
	}
	return stats, nil
}

// GormCardRepository implements CardRepository on PostgreSQL.
type GormCardRepository struct {
	db *gorm.DB
}

func NewGormCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

func (r *GormCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FuelCard, error) {
	var card model.FuelCard
	err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("fuel card")
		}
		return nil, fmt.Errorf("failed to get fuel card: %w", err)
	}
	return &card, nil
}

func (r *GormCardRepository) GetActiveForDriver(ctx context.Context, driverID uuid.UUID) (*model.FuelCard, error) {
	var card model.FuelCard
	err := r.db.WithContext(ctx).
		First(&card, "driver_id = ? AND status = ?", driverID, model.CardActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("active fuel card")
		}
		return nil, fmt.Errorf("failed to get active fuel card: %w", err)
	}
	return &card, nil
}

func (r *GormCardRepository) Save(ctx context.Context, card *model.FuelCard) error {
	if err := r.db.WithContext(ctx).Save(card).Error; err != nil {
		return fmt.Errorf("failed to save fuel card: %w", err)
	}
	return nil
}

// GormPartyRepository implements PartyRepository on PostgreSQL.
type GormPartyRepository struct {
	db *gorm.DB
}

func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

func (r *GormPartyRepository) GetPumpOwner(ctx context.Context, id uuid.UUID) (*model.PumpOwner, error) {
	var owner model.PumpOwner
	err := r.db.WithContext(ctx).First(&owner, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("pump owner")
		}
		return nil, fmt.Errorf("failed to get pump owner: %w", err)
	}
	return &owner, nil
}

func (r *GormPartyRepository) GetDriver(ctx context.Context, id uuid.UUID) (*fleetmodel.Driver, error) {
	var driver fleetmodel.Driver
	err := r.db.WithContext(ctx).First(&driver, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("driver")
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	return &driver, nil
}
