package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
	"github.com/developerakkoo/Porttivo-API/internal/domain"
	"github.com/developerakkoo/Porttivo-API/internal/events"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/qrtoken"
)

// SubmitResult is returned to pump staff after a settlement. FraudDetected
// tells the pump UI to hold the printed receipt for review.
type SubmitResult struct {
	Transaction   *model.FuelTransaction `json:"transaction"`
	FraudDetected bool                   `json:"fraudDetected"`
}

// FuelService drives the fuel transaction lifecycle from QR generation
// through settlement and fraud review.
type FuelService struct {
	txns   TransactionRepository
	cards  CardRepository
	pumps  PartyRepository
	fraud  *FraudEngine
	codec  *qrtoken.Codec
	events events.Sink
	clock  clock.Clock
}

func NewFuelService(
	txns TransactionRepository,
	cards CardRepository,
	pumps PartyRepository,
	fraud *FraudEngine,
	codec *qrtoken.Codec,
	sink events.Sink,
	clk clock.Clock,
) *FuelService {
	return &FuelService{
		txns:   txns,
		cards:  cards,
		pumps:  pumps,
		fraud:  fraud,
		codec:  codec,
		events: sink,
		clock:  clk,
	}
}

// GenerateQR creates a pending transaction and an encrypted QR token for it.
// The balance is checked up front but not deducted; deduction happens once at
// settlement.
func (s *FuelService) GenerateQR(ctx context.Context, actor domain.Actor, dto model.GenerateQRDTO) (*model.FuelTransaction, error) {
	if actor.Role != domain.RoleDriver {
		return nil, domain.NewAccessError("only drivers can generate fuel QR codes")
	}
	if dto.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	vehicleNumber := strings.ToUpper(strings.TrimSpace(dto.VehicleNumber))
	if vehicleNumber == "" {
		return nil, domain.NewValidationError("vehicleNumber", "vehicle number is required")
	}
	if err := dto.Location.Validate(); err != nil {
		return nil, domain.NewValidationError("location", err.Error())
	}

	card, err := s.cards.GetActiveForDriver(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if card.Balance < dto.Amount {
		return nil, domain.NewInsufficientBalanceError(card.Balance, dto.Amount)
	}

	now := s.clock.Now()
	txn := &model.FuelTransaction{
		TransactionCode: model.NewTransactionCode(),
		VehicleNumber:   vehicleNumber,
		DriverID:        actor.ID,
		FuelCardID:      card.ID,
		Amount:          dto.Amount,
		QRCodeExpiry:    now.Add(s.codec.Validity()),
		Location:        &dto.Location,
		Status:          model.TxnPending,
		Notes:           strings.TrimSpace(dto.Notes),
	}

	token, err := s.codec.Encode(qrtoken.Payload{
		TransactionID: txn.TransactionCode,
		DriverID:      actor.ID,
		FuelCardID:    card.ID,
		Amount:        dto.Amount,
		VehicleNumber: vehicleNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR token: %w", err)
	}
	txn.QRCode = token

	if err := s.txns.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// ValidateQR decrypts a scanned token and resolves the matching pending
// transaction. Both the payload timestamp and the stored expiry must still
// be fresh.
func (s *FuelService) ValidateQR(ctx context.Context, token string) (*model.FuelTransaction, error) {
	payload, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, qrtoken.ErrExpired) {
			return nil, domain.NewExpiredError("QR code")
		}
		return nil, domain.NewValidationError("qrCode", "invalid QR code")
	}

	txn, err := s.txns.GetByCodeAndQR(ctx, payload.TransactionID, token)
	if err != nil {
		return nil, err
	}
	if txn.QRExpired(s.clock.Now()) {
		return nil, domain.NewExpiredError("QR code")
	}
	if txn.Status != model.TxnPending {
		return nil, domain.NewConflictError(
			fmt.Sprintf("transaction is already %s", txn.Status))
	}
	return txn, nil
}

// Confirm moves the driver's pending transaction to confirmed so a pump can
// settle it. A revised amount is re-checked against the card balance.
func (s *FuelService) Confirm(ctx context.Context, actor domain.Actor, txnID uuid.UUID, dto model.ConfirmDTO) (*model.FuelTransaction, error) {
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleDriver || txn.DriverID != actor.ID {
		return nil, domain.NewAccessError("only the transaction's driver can confirm it")
	}
	if txn.Status != model.TxnPending {
		return nil, domain.NewConflictError(
			fmt.Sprintf("only pending transactions can be confirmed, transaction is %s", txn.Status))
	}
	now := s.clock.Now()
	if txn.QRExpired(now) {
		return nil, domain.NewExpiredError("QR code")
	}

	amount := txn.Amount
	if dto.Amount != nil {
		if *dto.Amount <= 0 {
			return nil, domain.NewValidationError("amount", "amount must be greater than zero")
		}
		card, err := s.cards.GetByID(ctx, txn.FuelCardID)
		if err != nil {
			return nil, err
		}
		if card.Balance < *dto.Amount {
			return nil, domain.NewInsufficientBalanceError(card.Balance, *dto.Amount)
		}
		amount = *dto.Amount
	}

	ok, err := s.txns.Transition(ctx, txn.ID, model.TxnPending, model.TxnConfirmed, map[string]any{
		"amount":       amount,
		"confirmed_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("transaction is no longer pending")
	}

	txn.Status = model.TxnConfirmed
	txn.Amount = amount
	txn.ConfirmedAt = &now
	return txn, nil
}

// Cancel aborts a pending or confirmed transaction. The card was never
// charged, so there is nothing to refund.
func (s *FuelService) Cancel(ctx context.Context, actor domain.Actor, txnID uuid.UUID, dto model.CancelDTO) (*model.FuelTransaction, error) {
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.Role == domain.RoleDriver && txn.DriverID == actor.ID) {
		return nil, domain.NewAccessError("only the transaction's driver can cancel it")
	}
	if txn.Status != model.TxnPending && txn.Status != model.TxnConfirmed {
		return nil, domain.NewConflictError(
			fmt.Sprintf("a %s transaction cannot be cancelled", txn.Status))
	}

	now := s.clock.Now()
	assign := map[string]any{
		"cancelled_at": now,
		"cancelled_by": actor.ID,
	}
	if reason := strings.TrimSpace(dto.Reason); reason != "" {
		assign["notes"] = reason
	}
	ok, err := s.txns.Transition(ctx, txn.ID, txn.Status, model.TxnCancelled, assign)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewConflictError("transaction status changed, cancel rejected")
	}

	txn.Status = model.TxnCancelled
	txn.CancelledAt = &now
	txn.CancelledBy = &actor.ID
	return txn, nil
}

// Submit settles a confirmed transaction at the pump. The status claim and
// the card balance deduction happen in a single guarded database transaction,
// so the card is charged exactly once even under a double scan. Fraud checks
// run after settlement; a tripped check flags the transaction but the
// deduction stands pending review.
func (s *FuelService) Submit(ctx context.Context, actor domain.Actor, dto model.SubmitDTO) (*SubmitResult, error) {
	if actor.Role != domain.RolePumpStaff && actor.Role != domain.RolePumpOwner {
		return nil, domain.NewAccessError("only pump staff can submit fuel transactions")
	}
	if actor.PumpOwnerID == uuid.Nil {
		return nil, domain.NewAccessError("pump staff account is not linked to a pump")
	}
	if dto.Amount <= 0 {
		return nil, domain.NewValidationError("amount", "amount must be greater than zero")
	}
	if err := dto.Location.Validate(); err != nil {
		return nil, domain.NewValidationError("location", err.Error())
	}

	payload, err := s.codec.Decode(dto.QRCode)
	if err != nil {
		if errors.Is(err, qrtoken.ErrExpired) {
			return nil, domain.NewExpiredError("QR code")
		}
		return nil, domain.NewValidationError("qrCode", "invalid QR code")
	}
	txn, err := s.txns.GetByCodeAndQR(ctx, payload.TransactionID, dto.QRCode)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if txn.QRExpired(now) {
		return nil, domain.NewExpiredError("QR code")
	}
	if txn.Status != model.TxnConfirmed {
		return nil, domain.NewConflictError(
			fmt.Sprintf("only confirmed transactions can be submitted, transaction is %s", txn.Status))
	}

	outcome, err := s.txns.SubmitCompletion(ctx, txn.ID, txn.FuelCardID, dto.Amount, map[string]any{
		"pump_owner_id": actor.PumpOwnerID,
		"pump_staff_id": actor.ID,
		"completed_at":  now,
	})
	if err != nil {
		return nil, err
	}
	switch outcome {
	case SubmitConflict:
		return nil, domain.NewConflictError("transaction was already settled")
	case SubmitInsufficientBalance:
		card, cardErr := s.cards.GetByID(ctx, txn.FuelCardID)
		if cardErr != nil {
			return nil, cardErr
		}
		return nil, domain.NewInsufficientBalanceError(card.Balance, dto.Amount)
	}

	pumpOwnerID := actor.PumpOwnerID
	staffID := actor.ID
	txn.Status = model.TxnCompleted
	txn.Amount = dto.Amount
	txn.PumpOwnerID = &pumpOwnerID
	txn.PumpStaffID = &staffID
	txn.CompletedAt = &now

	flags := s.fraud.Run(ctx, txn, &dto.Location)
	fraudDetected := flags.Any()
	if fraudDetected {
		txn.FraudFlags = flags
		txn.Status = model.TxnFlagged
		if err := s.txns.Save(ctx, txn); err != nil {
			return nil, err
		}
		s.notifyFlagged(ctx, txn)
	}

	return &SubmitResult{Transaction: txn, FraudDetected: fraudDetected}, nil
}

// UploadReceipt attaches the fuel receipt photo after settlement and re-runs
// the fraud checks against it.
func (s *FuelService) UploadReceipt(ctx context.Context, actor domain.Actor, txnID uuid.UUID, photo string) (*model.FuelTransaction, error) {
	if photo == "" {
		return nil, domain.NewValidationError("photo", "receipt photo is required")
	}
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleDriver || txn.DriverID != actor.ID {
		return nil, domain.NewAccessError("only the transaction's driver can upload the receipt")
	}
	if txn.Status != model.TxnCompleted {
		return nil, domain.NewConflictError(
			fmt.Sprintf("receipts can only be uploaded for completed transactions, transaction is %s", txn.Status))
	}

	now := s.clock.Now()
	txn.Receipt = model.Receipt{
		Photo:      photo,
		UploadedAt: &now,
		UploadedBy: &actor.ID,
	}

	flags := s.fraud.Run(ctx, txn, nil)
	if flags.Any() {
		txn.FraudFlags = flags
		txn.Status = model.TxnFlagged
	}
	if err := s.txns.Save(ctx, txn); err != nil {
		return nil, err
	}
	if txn.Status == model.TxnFlagged {
		s.notifyFlagged(ctx, txn)
	}
	return txn, nil
}

// FlagTransaction lets an admin flag a settled transaction manually.
func (s *FuelService) FlagTransaction(ctx context.Context, actor domain.Actor, txnID uuid.UUID, dto model.FlagDTO) (*model.FuelTransaction, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAccessError("only admins can flag transactions")
	}
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Status != model.TxnCompleted && txn.Status != model.TxnFlagged {
		return nil, domain.NewConflictError(
			fmt.Sprintf("only settled transactions can be flagged, transaction is %s", txn.Status))
	}

	switch dto.Flag {
	case model.FlagDuplicateReceipt:
		txn.FraudFlags.DuplicateReceipt = true
	case model.FlagGPSMismatch:
		txn.FraudFlags.GPSMismatch = true
	case model.FlagExpressUploads:
		txn.FraudFlags.ExpressUploads = true
	case model.FlagUnusualPattern:
		txn.FraudFlags.UnusualPattern = true
	case model.FlagAll:
		txn.FraudFlags.DuplicateReceipt = true
		txn.FraudFlags.GPSMismatch = true
		txn.FraudFlags.ExpressUploads = true
		txn.FraudFlags.UnusualPattern = true
	default:
		return nil, domain.NewValidationError("flagType", fmt.Sprintf("unknown flag type %q", dto.Flag))
	}

	now := s.clock.Now()
	txn.FraudFlags.FlaggedBy = &actor.ID
	txn.FraudFlags.FlaggedAt = &now
	txn.FraudFlags.Resolved = false
	txn.FraudFlags.ResolutionNotes = strings.TrimSpace(dto.Notes)
	txn.Status = model.TxnFlagged

	if err := s.txns.Save(ctx, txn); err != nil {
		return nil, err
	}
	s.notifyFlagged(ctx, txn)
	return txn, nil
}

// ResolveFraudAlert records an admin's review verdict. A not-fraud verdict
// clears the flags and settles the transaction back to completed; the
// deduction already happened and is left alone either way.
func (s *FuelService) ResolveFraudAlert(ctx context.Context, actor domain.Actor, txnID uuid.UUID, dto model.ResolveDTO) (*model.FuelTransaction, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAccessError("only admins can resolve fraud alerts")
	}
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Status != model.TxnFlagged {
		return nil, domain.NewConflictError("transaction is not flagged")
	}

	now := s.clock.Now()
	txn.FraudFlags.Resolved = true
	txn.FraudFlags.ResolvedAt = &now
	txn.FraudFlags.ResolvedBy = &actor.ID
	txn.FraudFlags.ResolutionNotes = strings.TrimSpace(dto.Notes)

	if !dto.IsFraud {
		txn.FraudFlags.DuplicateReceipt = false
		txn.FraudFlags.GPSMismatch = false
		txn.FraudFlags.GPSMismatchDistance = nil
		txn.FraudFlags.ExpressUploads = false
		txn.FraudFlags.UnusualPattern = false
		txn.Status = model.TxnCompleted
	}

	if err := s.txns.Save(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// Get returns a single transaction, scoped to the caller.
func (s *FuelService) Get(ctx context.Context, actor domain.Actor, txnID uuid.UUID) (*model.FuelTransaction, error) {
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// ReceiptView is the printable settlement summary for one transaction.
type ReceiptView struct {
	TransactionCode string          `json:"transactionId"`
	Date            time.Time       `json:"date"`
	DriverName      string          `json:"driverName"`
	DriverPhone     string          `json:"driverPhone"`
	VehicleNumber   string          `json:"vehicleNumber"`
	PumpOwnerName   string          `json:"pumpOwnerName,omitempty"`
	PumpName        string          `json:"pumpName,omitempty"`
	Amount          float64         `json:"amount"`
	FuelCardNumber  string          `json:"fuelCardNumber,omitempty"`
	ReceiptPhoto    string          `json:"receiptPhoto,omitempty"`
	Location        *model.GeoPoint `json:"location,omitempty"`
}

// Receipt assembles the settlement summary, resolving the driver, card and
// pump the transaction references. Party lookups that fail leave their
// fields blank rather than failing the view.
func (s *FuelService) Receipt(ctx context.Context, actor domain.Actor, txnID uuid.UUID) (*ReceiptView, error) {
	txn, err := s.txns.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, txn); err != nil {
		return nil, err
	}

	view := &ReceiptView{
		TransactionCode: txn.TransactionCode,
		Date:            txn.CreatedAt,
		VehicleNumber:   txn.VehicleNumber,
		Amount:          txn.Amount,
		ReceiptPhoto:    txn.Receipt.Photo,
		Location:        txn.Location,
	}
	if txn.CompletedAt != nil {
		view.Date = *txn.CompletedAt
	}
	if driver, err := s.pumps.GetDriver(ctx, txn.DriverID); err == nil {
		view.DriverName = driver.Name
		view.DriverPhone = driver.Phone
	}
	if card, err := s.cards.GetByID(ctx, txn.FuelCardID); err == nil {
		view.FuelCardNumber = card.CardNumber
	}
	if txn.PumpOwnerID != nil {
		if owner, err := s.pumps.GetPumpOwner(ctx, *txn.PumpOwnerID); err == nil {
			view.PumpOwnerName = owner.Name
			view.PumpName = owner.PumpName
		}
	}
	return view, nil
}

// List returns transactions visible to the caller. Drivers see their own,
// pump accounts see their pump's, transporters see their cards', admins see
// everything.
func (s *FuelService) List(ctx context.Context, actor domain.Actor, filter model.TransactionFilter, limit, offset int) ([]model.FuelTransaction, int64, error) {
	switch {
	case actor.IsAdmin():
	case actor.Role == domain.RoleDriver:
		filter.DriverID = &actor.ID
	case actor.Role == domain.RolePumpOwner, actor.Role == domain.RolePumpStaff:
		if actor.PumpOwnerID == uuid.Nil {
			return nil, 0, domain.NewAccessError("pump account is not linked to a pump")
		}
		pumpOwnerID := actor.PumpOwnerID
		filter.PumpOwnerID = &pumpOwnerID
	default:
		if actor.TransporterID == uuid.Nil {
			return nil, 0, domain.NewAccessError("account is not linked to a transporter")
		}
		transporterID := actor.TransporterID
		filter.TransporterID = &transporterID
	}
	return s.txns.List(ctx, filter, limit, offset)
}

// ListFraudAlerts returns flagged transactions awaiting review.
func (s *FuelService) ListFraudAlerts(ctx context.Context, actor domain.Actor, limit, offset int) ([]model.FuelTransaction, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, domain.NewAccessError("only admins can list fraud alerts")
	}
	filter := model.TransactionFilter{OnlyFlagged: true, OnlyUnresolved: true}
	return s.txns.List(ctx, filter, limit, offset)
}

// FraudStatistics aggregates unresolved flags for the admin dashboard.
func (s *FuelService) FraudStatistics(ctx context.Context, actor domain.Actor, from, to *time.Time) (*model.FraudStats, error) {
	if !actor.IsAdmin() {
		return nil, domain.NewAccessError("only admins can view fraud statistics")
	}
	return s.txns.FraudStats(ctx, from, to)
}

func (s *FuelService) authorizeView(ctx context.Context, actor domain.Actor, txn *model.FuelTransaction) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == domain.RoleDriver {
		if txn.DriverID == actor.ID {
			return nil
		}
		return domain.NewAccessError("transaction belongs to another driver")
	}
	if actor.Role == domain.RolePumpOwner || actor.Role == domain.RolePumpStaff {
		if actor.PumpOwnerID != uuid.Nil && txn.PumpOwnerID != nil && *txn.PumpOwnerID == actor.PumpOwnerID {
			return nil
		}
		return domain.NewAccessError("transaction belongs to another pump")
	}
	card, err := s.cards.GetByID(ctx, txn.FuelCardID)
	if err != nil {
		return err
	}
	if actor.ActsForTransporter(card.TransporterID) {
		return nil
	}
	return domain.NewAccessError("not allowed to view this transaction")
}

func (s *FuelService) notifyFlagged(ctx context.Context, txn *model.FuelTransaction) {
	card, err := s.cards.GetByID(ctx, txn.FuelCardID)
	if err != nil {
		return
	}
	s.events.Emit(events.TransporterChannel(card.TransporterID), events.FuelFlagged, txn)
}
