package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/developerakkoo/Porttivo-API/internal/clock"
	"github.com/developerakkoo/Porttivo-API/internal/fuel/model"
)

const (
	// earthRadiusKm is the mean radius used by the haversine formula.
	earthRadiusKm = 6371.0
	// gpsMismatchThresholdKm flags settlements submitted this far from where
	// the driver generated the QR code.
	gpsMismatchThresholdKm = 5.0
	// expressUploadWindow and expressUploadThreshold flag drivers who upload
	// receipts for three or more completed transactions within ten minutes.
	expressUploadWindow    = 10 * time.Minute
	expressUploadThreshold = 3
	// patternWindow, patternSampleSize and patternMinSamples bound the
	// history consulted by the unusual amount check.
	patternWindow     = 30 * 24 * time.Hour
	patternSampleSize = 10
	patternMinSamples = 3
	// patternZScoreLimit marks amounts more than two standard deviations
	// from the driver's recent mean.
	patternZScoreLimit = 2.0
)

// FraudEngine runs the fraud checks against a fuel transaction. Individual
// check failures are logged and treated as not fraudulent so a database
// hiccup never blocks a settlement.
type FraudEngine struct {
	txns  TransactionRepository
	clock clock.Clock
}

func NewFraudEngine(txns TransactionRepository, clk clock.Clock) *FraudEngine {
	return &FraudEngine{txns: txns, clock: clk}
}

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// CheckGPSMismatch compares where the driver generated the QR code against
// where the pump submitted the settlement. The distance is rounded to two
// decimal places before being stored or compared.
func (e *FraudEngine) CheckGPSMismatch(origin, submitted *model.GeoPoint) (bool, float64) {
	if origin == nil || submitted == nil {
		return false, 0
	}
	distance := Haversine(origin.Latitude, origin.Longitude, submitted.Latitude, submitted.Longitude)
	distance = math.Round(distance*100) / 100
	return distance > gpsMismatchThresholdKm, distance
}

// CheckDuplicateReceipt reports whether the driver already used the same
// receipt photo on another completed or confirmed transaction. Cancelled
// and pending transactions never count as duplicates.
func (e *FraudEngine) CheckDuplicateReceipt(ctx context.Context, txn *model.FuelTransaction) bool {
	if txn.Receipt.Photo == "" {
		return false
	}
	matches, err := e.txns.ReceiptsByPhoto(ctx, txn.DriverID, txn.Receipt.Photo)
	if err != nil {
		slog.Error("duplicate receipt check failed",
			"transaction_id", txn.ID.String(),
			"error", err)
		return false
	}
	for _, other := range matches {
		if other.ID == txn.ID {
			continue
		}
		if other.Status == model.TxnCompleted || other.Status == model.TxnConfirmed {
			return true
		}
	}
	return false
}

// CheckExpressUploads reports whether the driver uploaded receipts for three
// or more completed transactions within the trailing ten minutes.
func (e *FraudEngine) CheckExpressUploads(ctx context.Context, txn *model.FuelTransaction) bool {
	since := e.clock.Now().Add(-expressUploadWindow)
	count, err := e.txns.CountReceiptsSince(ctx, txn.DriverID, since)
	if err != nil {
		slog.Error("express upload check failed",
			"transaction_id", txn.ID.String(),
			"error", err)
		return false
	}
	return count >= expressUploadThreshold
}

// CheckUnusualPattern compares the transaction amount against the driver's
// completed transactions of the last 30 days. With fewer than three samples
// the check is skipped. An amount more than two standard deviations from the
// mean is flagged; a zero deviation falls back to one so a uniform history
// only flags genuinely distant amounts.
func (e *FraudEngine) CheckUnusualPattern(ctx context.Context, txn *model.FuelTransaction) bool {
	since := e.clock.Now().Add(-patternWindow)
	amounts, err := e.txns.RecentCompletedAmounts(ctx, txn.DriverID, since, patternSampleSize)
	if err != nil {
		slog.Error("unusual pattern check failed",
			"transaction_id", txn.ID.String(),
			"error", err)
		return false
	}
	if len(amounts) < patternMinSamples {
		return false
	}

	mean, err := stats.Mean(amounts)
	if err != nil {
		return false
	}
	stdDev, err := stats.StandardDeviationPopulation(amounts)
	if err != nil {
		return false
	}
	if stdDev == 0 {
		stdDev = 1
	}
	zScore := math.Abs(txn.Amount-mean) / stdDev
	return zScore > patternZScoreLimit
}

// Run executes every applicable check and returns the resulting flags.
// submitted is the pump-reported location and may be nil when the checks run
// outside a settlement, such as after a receipt upload.
func (e *FraudEngine) Run(ctx context.Context, txn *model.FuelTransaction, submitted *model.GeoPoint) model.FraudFlags {
	flags := txn.FraudFlags

	if mismatch, distance := e.CheckGPSMismatch(txn.Location, submitted); mismatch {
		flags.GPSMismatch = true
		flags.GPSMismatchDistance = &distance
	}
	if e.CheckDuplicateReceipt(ctx, txn) {
		flags.DuplicateReceipt = true
	}
	if e.CheckExpressUploads(ctx, txn) {
		flags.ExpressUploads = true
	}
	if e.CheckUnusualPattern(ctx, txn) {
		flags.UnusualPattern = true
	}

	if flags.Any() && flags.FlaggedAt == nil {
		now := e.clock.Now()
		flags.FlaggedAt = &now
	}
	return flags
}
