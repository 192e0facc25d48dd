package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
	"github.com/developerakkoo/Porttivo-API/internal/domain"
	"github.com/developerakkoo/Porttivo-API/internal/events"
	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/qrtoken"
)

const testQRSecret = "porttivo-qr-secret-key-change-in-production-32chars!!"

type fuelFixture struct {
	txns  *MockTransactionRepository
	cards *MockCardRepository
	pumps *MockPartyRepository
	sink  *recorderSink
	clk   *clock.Fixed
	codec *qrtoken.Codec
	svc   *FuelService
}

func newFuelFixture() *fuelFixture {
	f := &fuelFixture{
		txns:  new(MockTransactionRepository),
		cards: new(MockCardRepository),
		pumps: new(MockPartyRepository),
		sink:  &recorderSink{},
		clk:   &clock.Fixed{Instant: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.codec = qrtoken.NewCodec(testQRSecret, qrtoken.DefaultValidity, f.clk)
	engine := NewFraudEngine(f.txns, f.clk)
	f.svc = NewFuelService(f.txns, f.cards, f.pumps, engine, f.codec, f.sink, f.clk)
	return f
}

func driverActor(id uuid.UUID) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleDriver}
}

func pumpStaffActor(staffID, pumpOwnerID uuid.UUID) domain.Actor {
	return domain.Actor{ID: staffID, Role: domain.RolePumpStaff, PumpOwnerID: pumpOwnerID}
}

func activeCard(driverID uuid.UUID, balance float64) *model.FuelCard {
	card := &model.FuelCard{
		CardNumber: "FC-1001",
		DriverID:   &driverID,
		Balance:    balance,
		Status:     model.CardActive,
	}
	card.ID = uuid.New()
	card.TransporterID = uuid.New()
	return card
}

func confirmedTxn(driverID, cardID uuid.UUID, amount float64, qr string, expiry time.Time) *model.FuelTransaction {
	txn := &model.FuelTransaction{
		TransactionCode: "FTX-TEST-0001",
		VehicleNumber:   "MH12AB1234",
		DriverID:        driverID,
		FuelCardID:      cardID,
		Amount:          amount,
		QRCode:          qr,
		QRCodeExpiry:    expiry,
		Status:          model.TxnConfirmed,
		Location:        &model.GeoPoint{Latitude: 19.0760, Longitude: 72.8777},
	}
	txn.ID = uuid.New()
	return txn
}

// quietFraud stubs the fraud repository calls so the checks all come back
// clean.
func quietFraud(f *fuelFixture, driverID uuid.UUID) {
	f.txns.On("CountReceiptsSince", mock.Anything, driverID, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil).Maybe()
	f.txns.On("RecentCompletedAmounts", mock.Anything, driverID, mock.AnythingOfType("time.Time"), 10).
		Return([]float64{}, nil).Maybe()
	f.txns.On("ReceiptsByPhoto", mock.Anything, driverID, mock.Anything).
		Return([]model.FuelTransaction{}, nil).Maybe()
}

func TestGenerateQR(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()

	t.Run("creates a pending transaction with an encrypted token", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		f.cards.On("GetActiveForDriver", ctx, driverID).Return(card, nil)
		f.txns.On("Create", ctx, mock.AnythingOfType("*model.FuelTransaction")).Return(nil)

		txn, err := f.svc.GenerateQR(ctx, driverActor(driverID), model.GenerateQRDTO{
			VehicleNumber: " mh12ab1234 ",
			Amount:        1500,
			Location:      model.GeoPoint{Latitude: 19.0760, Longitude: 72.8777},
		})

		assert.NoError(t, err)
		assert.Equal(t, model.TxnPending, txn.Status)
		assert.Equal(t, "MH12AB1234", txn.VehicleNumber)
		assert.Equal(t, f.clk.Instant.Add(time.Hour), txn.QRCodeExpiry)
		assert.NotEmpty(t, txn.QRCode)

		payload, err := f.codec.Decode(txn.QRCode)
		assert.NoError(t, err)
		assert.Equal(t, txn.TransactionCode, payload.TransactionID)
		assert.Equal(t, driverID, payload.DriverID)
		assert.Equal(t, 1500.0, payload.Amount)
	})

	t.Run("insufficient balance rejects before any record exists", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 100)
		f.cards.On("GetActiveForDriver", ctx, driverID).Return(card, nil)

		_, err := f.svc.GenerateQR(ctx, driverActor(driverID), model.GenerateQRDTO{
			VehicleNumber: "MH12AB1234",
			Amount:        1500,
			Location:      model.GeoPoint{Latitude: 19.0760, Longitude: 72.8777},
		})

		var insufficientErr *domain.InsufficientBalanceError
		assert.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, 100.0, insufficientErr.Balance)
		f.txns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("non-drivers cannot generate", func(t *testing.T) {
		f := newFuelFixture()
		actor := domain.Actor{ID: uuid.New(), Role: domain.RoleTransporter}

		_, err := f.svc.GenerateQR(ctx, actor, model.GenerateQRDTO{
			VehicleNumber: "MH12AB1234",
			Amount:        1500,
			Location:      model.GeoPoint{Latitude: 19.0760, Longitude: 72.8777},
		})

		var accessErr *domain.AccessError
		assert.ErrorAs(t, err, &accessErr)
	})

	t.Run("invalid coordinates rejected", func(t *testing.T) {
		f := newFuelFixture()

		_, err := f.svc.GenerateQR(ctx, driverActor(driverID), model.GenerateQRDTO{
			VehicleNumber: "MH12AB1234",
			Amount:        1500,
			Location:      model.GeoPoint{Latitude: 95, Longitude: 72.8777},
		})

		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestValidateQR(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()

	encode := func(f *fuelFixture, txn *model.FuelTransaction) string {
		token, err := f.codec.Encode(qrtoken.Payload{
			TransactionID: txn.TransactionCode,
			DriverID:      txn.DriverID,
			FuelCardID:    txn.FuelCardID,
			Amount:        txn.Amount,
			VehicleNumber: txn.VehicleNumber,
		})
		assert.NoError(t, err)
		return token
	}

	t.Run("resolves a pending transaction", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, uuid.New(), 1500, "", f.clk.Instant.Add(time.Hour))
		txn.Status = model.TxnPending
		txn.QRCode = encode(f, txn)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, txn.QRCode).Return(txn, nil)

		got, err := f.svc.ValidateQR(ctx, txn.QRCode)

		assert.NoError(t, err)
		assert.Equal(t, txn.ID, got.ID)
	})

	t.Run("rejects a transaction the driver already confirmed", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, uuid.New(), 1500, "", f.clk.Instant.Add(time.Hour))
		txn.QRCode = encode(f, txn)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, txn.QRCode).Return(txn, nil)

		_, err := f.svc.ValidateQR(ctx, txn.QRCode)

		var conflictErr *domain.ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})

	t.Run("rejects a token past the stored expiry", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, uuid.New(), 1500, "", f.clk.Instant.Add(-time.Minute))
		txn.Status = model.TxnPending
		txn.QRCode = encode(f, txn)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, txn.QRCode).Return(txn, nil)

		_, err := f.svc.ValidateQR(ctx, txn.QRCode)

		var expiredErr *domain.ExpiredError
		assert.ErrorAs(t, err, &expiredErr)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()
	cardID := uuid.New()

	t.Run("driver confirms a pending transaction", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnPending
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.txns.On("Transition", ctx, txn.ID, model.TxnPending, model.TxnConfirmed, mock.Anything).
			Return(true, nil)

		updated, err := f.svc.Confirm(ctx, driverActor(driverID), txn.ID, model.ConfirmDTO{})

		assert.NoError(t, err)
		assert.Equal(t, model.TxnConfirmed, updated.Status)
	})

	t.Run("revised amount is checked against the card balance", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnPending
		card := activeCard(driverID, 2000)
		card.ID = cardID
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.cards.On("GetByID", ctx, cardID).Return(card, nil)

		amount := 2500.0
		_, err := f.svc.Confirm(ctx, driverActor(driverID), txn.ID, model.ConfirmDTO{Amount: &amount})

		var insufficientErr *domain.InsufficientBalanceError
		assert.ErrorAs(t, err, &insufficientErr)
	})

	t.Run("expired QR cannot be confirmed", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(-time.Minute))
		txn.Status = model.TxnPending
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)

		_, err := f.svc.Confirm(ctx, driverActor(driverID), txn.ID, model.ConfirmDTO{})

		var expiredErr *domain.ExpiredError
		assert.ErrorAs(t, err, &expiredErr)
	})

	t.Run("another driver cannot confirm", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnPending
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)

		_, err := f.svc.Confirm(ctx, driverActor(uuid.New()), txn.ID, model.ConfirmDTO{})

		var accessErr *domain.AccessError
		assert.ErrorAs(t, err, &accessErr)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()
	cardID := uuid.New()

	t.Run("driver cancels a confirmed transaction", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.txns.On("Transition", ctx, txn.ID, model.TxnConfirmed, model.TxnCancelled, mock.Anything).
			Return(true, nil)

		updated, err := f.svc.Cancel(ctx, driverActor(driverID), txn.ID, model.CancelDTO{Reason: "wrong pump"})

		assert.NoError(t, err)
		assert.Equal(t, model.TxnCancelled, updated.Status)
		assert.NotNil(t, updated.CancelledAt)
	})

	t.Run("completed transaction cannot be cancelled", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnCompleted
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)

		_, err := f.svc.Cancel(ctx, driverActor(driverID), txn.ID, model.CancelDTO{})

		var conflictErr *domain.ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()
	pumpOwnerID := uuid.New()
	staffID := uuid.New()

	encode := func(f *fuelFixture, txn *model.FuelTransaction) string {
		token, err := f.codec.Encode(qrtoken.Payload{
			TransactionID: txn.TransactionCode,
			DriverID:      txn.DriverID,
			FuelCardID:    txn.FuelCardID,
			Amount:        txn.Amount,
			VehicleNumber: txn.VehicleNumber,
		})
		if err != nil {
			panic(err)
		}
		txn.QRCode = token
		return token
	}

	t.Run("settles a confirmed transaction exactly once", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		txn := confirmedTxn(driverID, card.ID, 1500, "", f.clk.Instant.Add(30*time.Minute))
		token := encode(f, txn)
		quietFraud(f, driverID)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, token).Return(txn, nil)
		f.txns.On("SubmitCompletion", ctx, txn.ID, card.ID, 1500.0, mock.Anything).
			Return(SubmitCompleted, nil)

		result, err := f.svc.Submit(ctx, pumpStaffActor(staffID, pumpOwnerID), model.SubmitDTO{
			QRCode:   token,
			Amount:   1500,
			Location: model.GeoPoint{Latitude: 19.0761, Longitude: 72.8778},
		})

		assert.NoError(t, err)
		assert.False(t, result.FraudDetected)
		assert.Equal(t, model.TxnCompleted, result.Transaction.Status)
		assert.Equal(t, &pumpOwnerID, result.Transaction.PumpOwnerID)
		f.txns.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("double submit loses the settlement race", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		txn := confirmedTxn(driverID, card.ID, 1500, "", f.clk.Instant.Add(30*time.Minute))
		token := encode(f, txn)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, token).Return(txn, nil)
		f.txns.On("SubmitCompletion", ctx, txn.ID, card.ID, 1500.0, mock.Anything).
			Return(SubmitConflict, nil)

		_, err := f.svc.Submit(ctx, pumpStaffActor(staffID, pumpOwnerID), model.SubmitDTO{
			QRCode:   token,
			Amount:   1500,
			Location: model.GeoPoint{Latitude: 19.0761, Longitude: 72.8778},
		})

		var conflictErr *domain.ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})

	t.Run("underfunded card aborts without charging", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 500)
		txn := confirmedTxn(driverID, card.ID, 1500, "", f.clk.Instant.Add(30*time.Minute))
		token := encode(f, txn)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, token).Return(txn, nil)
		f.txns.On("SubmitCompletion", ctx, txn.ID, card.ID, 1500.0, mock.Anything).
			Return(SubmitInsufficientBalance, nil)
		f.cards.On("GetByID", ctx, card.ID).Return(card, nil)

		_, err := f.svc.Submit(ctx, pumpStaffActor(staffID, pumpOwnerID), model.SubmitDTO{
			QRCode:   token,
			Amount:   1500,
			Location: model.GeoPoint{Latitude: 19.0761, Longitude: 72.8778},
		})

		var insufficientErr *domain.InsufficientBalanceError
		assert.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, 500.0, insufficientErr.Balance)
	})

	t.Run("distant pump location flags the settlement", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		txn := confirmedTxn(driverID, card.ID, 1500, "", f.clk.Instant.Add(30*time.Minute))
		token := encode(f, txn)
		quietFraud(f, driverID)
		f.txns.On("GetByCodeAndQR", ctx, txn.TransactionCode, token).Return(txn, nil)
		f.txns.On("SubmitCompletion", ctx, txn.ID, card.ID, 1500.0, mock.Anything).
			Return(SubmitCompleted, nil)
		f.txns.On("Save", ctx, mock.AnythingOfType("*model.FuelTransaction")).Return(nil)
		f.cards.On("GetByID", ctx, card.ID).Return(card, nil)

		result, err := f.svc.Submit(ctx, pumpStaffActor(staffID, pumpOwnerID), model.SubmitDTO{
			QRCode:   token,
			Amount:   1500,
			Location: model.GeoPoint{Latitude: 19.2000, Longitude: 72.9000},
		})

		assert.NoError(t, err)
		assert.True(t, result.FraudDetected)
		assert.Equal(t, model.TxnFlagged, result.Transaction.Status)
		assert.True(t, result.Transaction.FraudFlags.GPSMismatch)
		assert.NotNil(t, result.Transaction.FraudFlags.GPSMismatchDistance)
		assert.True(t, f.sink.has(events.TransporterChannel(card.TransporterID), events.FuelFlagged))
	})

	t.Run("only pump accounts can submit", func(t *testing.T) {
		f := newFuelFixture()

		_, err := f.svc.Submit(ctx, driverActor(driverID), model.SubmitDTO{
			QRCode:   "anything",
			Amount:   1500,
			Location: model.GeoPoint{Latitude: 19.0761, Longitude: 72.8778},
		})

		var accessErr *domain.AccessError
		assert.ErrorAs(t, err, &accessErr)
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		f := newFuelFixture()

		_, err := f.svc.Submit(ctx, pumpStaffActor(staffID, pumpOwnerID), model.SubmitDTO{
			QRCode:   "deadbeef:deadbeef",
			Amount:   1500,
			Location: model.GeoPoint{Latitude: 19.0761, Longitude: 72.8778},
		})

		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestUploadReceipt(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()
	cardID := uuid.New()

	t.Run("attaches receipt and re-runs the checks", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnCompleted
		quietFraud(f, driverID)
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.txns.On("Save", ctx, mock.AnythingOfType("*model.FuelTransaction")).Return(nil)

		updated, err := f.svc.UploadReceipt(ctx, driverActor(driverID), txn.ID, "receipts/r1.jpg")

		assert.NoError(t, err)
		assert.Equal(t, model.TxnCompleted, updated.Status)
		assert.Equal(t, "receipts/r1.jpg", updated.Receipt.Photo)
		assert.Equal(t, f.clk.Instant, *updated.Receipt.UploadedAt)
	})

	t.Run("duplicate receipt photo flags the transaction", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		card.ID = cardID
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnCompleted
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		dup := model.FuelTransaction{
			DriverID: driverID,
			Status:   model.TxnCompleted,
			Receipt:  model.Receipt{Photo: "receipts/r1.jpg"},
		}
		dup.ID = uuid.New()
		f.txns.On("ReceiptsByPhoto", ctx, driverID, "receipts/r1.jpg").
			Return([]model.FuelTransaction{dup}, nil)
		f.txns.On("CountReceiptsSince", mock.Anything, driverID, mock.AnythingOfType("time.Time")).
			Return(int64(0), nil)
		f.txns.On("RecentCompletedAmounts", mock.Anything, driverID, mock.AnythingOfType("time.Time"), 10).
			Return([]float64{}, nil)
		f.txns.On("Save", ctx, mock.AnythingOfType("*model.FuelTransaction")).Return(nil)
		f.cards.On("GetByID", ctx, cardID).Return(card, nil)

		updated, err := f.svc.UploadReceipt(ctx, driverActor(driverID), txn.ID, "receipts/r1.jpg")

		assert.NoError(t, err)
		assert.Equal(t, model.TxnFlagged, updated.Status)
		assert.True(t, updated.FraudFlags.DuplicateReceipt)
		assert.True(t, f.sink.has(events.TransporterChannel(card.TransporterID), events.FuelFlagged))
	})

	t.Run("pending transaction cannot take a receipt", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant.Add(30*time.Minute))
		txn.Status = model.TxnPending
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)

		_, err := f.svc.UploadReceipt(ctx, driverActor(driverID), txn.ID, "receipts/r1.jpg")

		var conflictErr *domain.ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})
}

func TestResolveFraudAlert(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()
	cardID := uuid.New()
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}

	t.Run("not fraud clears flags and settles back to completed", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant)
		txn.Status = model.TxnFlagged
		distance := 15.3
		txn.FraudFlags = model.FraudFlags{GPSMismatch: true, GPSMismatchDistance: &distance}
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.txns.On("Save", ctx, mock.AnythingOfType("*model.FuelTransaction")).Return(nil)

		updated, err := f.svc.ResolveFraudAlert(ctx, admin, txn.ID, model.ResolveDTO{
			IsFraud: false,
			Notes:   "driver verified at pump",
		})

		assert.NoError(t, err)
		assert.Equal(t, model.TxnCompleted, updated.Status)
		assert.False(t, updated.FraudFlags.GPSMismatch)
		assert.Nil(t, updated.FraudFlags.GPSMismatchDistance)
		assert.True(t, updated.FraudFlags.Resolved)
		assert.Equal(t, "driver verified at pump", updated.FraudFlags.ResolutionNotes)
	})

	t.Run("confirmed fraud keeps the flag and status", func(t *testing.T) {
		f := newFuelFixture()
		txn := confirmedTxn(driverID, cardID, 1500, "qr", f.clk.Instant)
		txn.Status = model.TxnFlagged
		txn.FraudFlags = model.FraudFlags{DuplicateReceipt: true}
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.txns.On("Save", ctx, mock.AnythingOfType("*model.FuelTransaction")).Return(nil)

		updated, err := f.svc.ResolveFraudAlert(ctx, admin, txn.ID, model.ResolveDTO{IsFraud: true})

		assert.NoError(t, err)
		assert.Equal(t, model.TxnFlagged, updated.Status)
		assert.True(t, updated.FraudFlags.DuplicateReceipt)
		assert.True(t, updated.FraudFlags.Resolved)
	})

	t.Run("non-admins cannot resolve", func(t *testing.T) {
		f := newFuelFixture()

		_, err := f.svc.ResolveFraudAlert(ctx, driverActor(driverID), uuid.New(), model.ResolveDTO{})

		var accessErr *domain.AccessError
		assert.ErrorAs(t, err, &accessErr)
	})
}

func TestReceipt(t *testing.T) {
	ctx := context.Background()
	driverID := uuid.New()
	pumpOwnerID := uuid.New()

	t.Run("assembles driver, card and pump details", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		txn := confirmedTxn(driverID, card.ID, 1500, "qr", f.clk.Instant.Add(time.Hour))
		txn.Status = model.TxnCompleted
		completedAt := f.clk.Instant.Add(-10 * time.Minute)
		txn.CompletedAt = &completedAt
		txn.PumpOwnerID = &pumpOwnerID
		txn.Receipt = model.Receipt{Photo: "/media/receipts/abc.jpg"}

		driver := &fleetmodel.Driver{Name: "Ravi", Phone: "9876543210"}
		driver.ID = driverID
		owner := &model.PumpOwner{Name: "Shell Andheri", PumpName: "Shell"}
		owner.ID = pumpOwnerID

		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.pumps.On("GetDriver", ctx, driverID).Return(driver, nil)
		f.cards.On("GetByID", ctx, card.ID).Return(card, nil)
		f.pumps.On("GetPumpOwner", ctx, pumpOwnerID).Return(owner, nil)

		view, err := f.svc.Receipt(ctx, driverActor(driverID), txn.ID)

		assert.NoError(t, err)
		assert.Equal(t, txn.TransactionCode, view.TransactionCode)
		assert.Equal(t, completedAt, view.Date)
		assert.Equal(t, "Ravi", view.DriverName)
		assert.Equal(t, "FC-1001", view.FuelCardNumber)
		assert.Equal(t, "Shell Andheri", view.PumpOwnerName)
		assert.Equal(t, "/media/receipts/abc.jpg", view.ReceiptPhoto)
	})

	t.Run("party lookup failures leave fields blank", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		txn := confirmedTxn(driverID, card.ID, 1500, "qr", f.clk.Instant.Add(time.Hour))

		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)
		f.pumps.On("GetDriver", ctx, driverID).Return(nil, domain.NewNotFoundError("driver"))
		f.cards.On("GetByID", ctx, card.ID).Return(nil, domain.NewNotFoundError("fuel card"))

		view, err := f.svc.Receipt(ctx, driverActor(driverID), txn.ID)

		assert.NoError(t, err)
		assert.Empty(t, view.DriverName)
		assert.Empty(t, view.FuelCardNumber)
		assert.Equal(t, txn.CreatedAt, view.Date)
	})

	t.Run("another driver cannot view the receipt", func(t *testing.T) {
		f := newFuelFixture()
		card := activeCard(driverID, 5000)
		txn := confirmedTxn(driverID, card.ID, 1500, "qr", f.clk.Instant.Add(time.Hour))
		f.txns.On("GetByID", ctx, txn.ID).Return(txn, nil)

		_, err := f.svc.Receipt(ctx, driverActor(uuid.New()), txn.ID)

		var accessErr *domain.AccessError
		assert.ErrorAs(t, err, &accessErr)
	})
}

func TestListScoping(t *testing.T) {
	ctx := context.Background()

	t.Run("drivers see only their own transactions", func(t *testing.T) {
		f := newFuelFixture()
		driverID := uuid.New()
		f.txns.On("List", ctx, mock.MatchedBy(func(filter model.TransactionFilter) bool {
			return filter.DriverID != nil && *filter.DriverID == driverID
		}), 20, 0).Return([]model.FuelTransaction{}, int64(0), nil)

		_, _, err := f.svc.List(ctx, driverActor(driverID), model.TransactionFilter{}, 20, 0)
		assert.NoError(t, err)
		f.txns.AssertExpectations(t)
	})

	t.Run("pump staff see their pump's transactions", func(t *testing.T) {
		f := newFuelFixture()
		pumpOwnerID := uuid.New()
		f.txns.On("List", ctx, mock.MatchedBy(func(filter model.TransactionFilter) bool {
			return filter.PumpOwnerID != nil && *filter.PumpOwnerID == pumpOwnerID
		}), 20, 0).Return([]model.FuelTransaction{}, int64(0), nil)

		_, _, err := f.svc.List(ctx, pumpStaffActor(uuid.New(), pumpOwnerID), model.TransactionFilter{}, 20, 0)
		assert.NoError(t, err)
		f.txns.AssertExpectations(t)
	})

	t.Run("transporters see their cards' transactions", func(t *testing.T) {
		f := newFuelFixture()
		transporterID := uuid.New()
		actor := domain.Actor{ID: transporterID, Role: domain.RoleTransporter, TransporterID: transporterID}
		f.txns.On("List", ctx, mock.MatchedBy(func(filter model.TransactionFilter) bool {
			return filter.TransporterID != nil && *filter.TransporterID == transporterID
		}), 20, 0).Return([]model.FuelTransaction{}, int64(0), nil)

		_, _, err := f.svc.List(ctx, actor, model.TransactionFilter{}, 20, 0)
		assert.NoError(t, err)
		f.txns.AssertExpectations(t)
	})
}
