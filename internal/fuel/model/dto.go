package model

import (
	"time"

	"github.com/google/uuid"
)

// GenerateQRDTO carries a driver's request for a fueling QR code.
type GenerateQRDTO struct {
	VehicleNumber string   `json:"vehicleNumber"`
	Amount        float64  `json:"amount"`
	Location      GeoPoint `json:"location"`
	Notes         string   `json:"notes,omitempty"`
}

// ConfirmDTO carries a driver's confirmation. A non-nil amount revises the
// requested amount before the pump scans.
type ConfirmDTO struct {
	Amount *float64 `json:"amount,omitempty"`
}

// CancelDTO carries a driver's cancellation.
type CancelDTO struct {
	Reason string `json:"reason,omitempty"`
}

// SubmitDTO carries the pump staff settlement after scanning the QR code.
type SubmitDTO struct {
	QRCode   string   `json:"qrCode"`
	Amount   float64  `json:"amount"`
	Location GeoPoint `json:"location"`
}

// FlagType names one fraud check, or all of them.
type FlagType string

const (
	FlagDuplicateReceipt FlagType = "duplicateReceipt"
	FlagGPSMismatch      FlagType = "gpsMismatch"
	FlagExpressUploads   FlagType = "expressUploads"
	FlagUnusualPattern   FlagType = "unusualPattern"
	FlagAll              FlagType = "all"
)

// FlagDTO carries a manual fraud flag from an admin.
type FlagDTO struct {
	Flag  FlagType `json:"flagType"`
	Notes string   `json:"notes,omitempty"`
}

// ResolveDTO carries an admin's fraud review verdict. When IsFraud is false
// the flags are cleared and the transaction settles back to completed.
type ResolveDTO struct {
	IsFraud bool   `json:"isFraud"`
	Notes   string `json:"notes,omitempty"`
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	TransporterID  *uuid.UUID
	DriverID       *uuid.UUID
	PumpOwnerID    *uuid.UUID
	FuelCardID     *uuid.UUID
	VehicleNumber  string
	Status         *TransactionStatus
	From           *time.Time
	To             *time.Time
	OnlyFlagged    bool
	OnlyUnresolved bool
}

// FraudStats aggregates unresolved fraud flags by type.
type FraudStats struct {
	TotalFlagged     int64 `json:"totalFlagged"`
	DuplicateReceipt int64 `json:"duplicateReceipt"`
	GPSMismatch      int64 `json:"gpsMismatch"`
	ExpressUploads   int64 `json:"expressUploads"`
	UnusualPattern   int64 `json:"unusualPattern"`
}
