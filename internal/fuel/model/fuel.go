package model

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel defines the base model structure with common fields for the fuel package.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"type:timestamptz;column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;column:updated_at;not null" json:"updatedAt"`
}

// BeforeCreate is a GORM hook that is triggered before a new record is created.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	base.CreatedAt = time.Now().UTC()
	base.UpdatedAt = time.Now().UTC()
	return
}

// BeforeUpdate is a GORM hook that is triggered before an existing record is updated.
func (base *BaseModel) BeforeUpdate(tx *gorm.DB) (err error) {
	base.UpdatedAt = time.Now().UTC()
	return
}

// CardStatus enumerates the states of a fuel card.
type CardStatus string

const (
	CardActive   CardStatus = "active"
	CardInactive CardStatus = "inactive"
	CardBlocked  CardStatus = "blocked"
	CardExpired  CardStatus = "expired"
)

// FuelCard is a prepaid card a transporter issues to a driver.
type FuelCard struct {
	BaseModel
	CardNumber    string     `gorm:"type:varchar(30);column:card_number;uniqueIndex;not null" json:"cardNumber"`
	TransporterID uuid.UUID  `gorm:"type:uuid;column:transporter_id;not null;index" json:"transporterId"`
	DriverID      *uuid.UUID `gorm:"type:uuid;column:driver_id;index" json:"driverId,omitempty"`
	Balance       float64    `gorm:"type:numeric(12,2);column:balance;not null;default:0" json:"balance"`
	Status        CardStatus `gorm:"type:varchar(20);column:status;not null;default:'active'" json:"status"`
	LastUsedAt    *time.Time `gorm:"type:timestamptz;column:last_used_at" json:"lastUsedAt,omitempty"`
}

func (c *FuelCard) TableName() string {
	return "fuel_cards"
}

// PumpOwner is a fuel station account. Its location anchors the GPS fraud
// check.
type PumpOwner struct {
	BaseModel
	Name     string    `gorm:"type:varchar(255);column:name;not null" json:"name"`
	PumpName string    `gorm:"type:varchar(255);column:pump_name" json:"pumpName,omitempty"`
	Phone    string    `gorm:"type:varchar(20);column:phone;uniqueIndex;not null" json:"phone"`
	Location *GeoPoint `gorm:"type:jsonb;column:location;serializer:json" json:"location,omitempty"`
	Status   string    `gorm:"type:varchar(20);column:status;not null;default:'active'" json:"status"`
}

func (p *PumpOwner) TableName() string {
	return "pump_owners"
}

// TransactionStatus enumerates the fuel transaction lifecycle. Transitions
// only move forward; cancelled and flagged are terminal for drivers.
type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnConfirmed TransactionStatus = "confirmed"
	TxnCompleted TransactionStatus = "completed"
	TxnCancelled TransactionStatus = "cancelled"
	TxnFlagged   TransactionStatus = "flagged"
)

var txnTransitions = map[TransactionStatus][]TransactionStatus{
	TxnPending:   {TxnConfirmed, TxnCancelled},
	TxnConfirmed: {TxnCompleted, TxnCancelled},
	TxnCompleted: {TxnFlagged},
	TxnCancelled: {},
	TxnFlagged:   {TxnCompleted},
}

// CanTransition reports whether a transaction may move between the two
// statuses. flagged back to completed is reserved for admin resolution.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range txnTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GeoPoint is a GPS reading with optional accuracy and address.
type GeoPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Address   string   `json:"address,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Validate checks the coordinate ranges.
func (g GeoPoint) Validate() error {
	if g.Latitude < -90 || g.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %v", g.Latitude)
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %v", g.Longitude)
	}
	return nil
}

// Receipt is the fuel receipt photo attached after completion.
type Receipt struct {
	Photo      string     `json:"photo,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	UploadedBy *uuid.UUID `json:"uploadedBy,omitempty"`
}

// FraudFlags holds the outcome of the fraud checks plus review metadata.
type FraudFlags struct {
	DuplicateReceipt    bool       `json:"duplicateReceipt"`
	GPSMismatch         bool       `json:"gpsMismatch"`
	GPSMismatchDistance *float64   `json:"gpsMismatchDistance,omitempty"`
	ExpressUploads      bool       `json:"expressUploads"`
	UnusualPattern      bool       `json:"unusualPattern"`
	FlaggedBy           *uuid.UUID `json:"flaggedBy,omitempty"`
	FlaggedAt           *time.Time `json:"flaggedAt,omitempty"`
	Resolved            bool       `json:"resolved"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy          *uuid.UUID `json:"resolvedBy,omitempty"`
	ResolutionNotes     string     `json:"resolutionNotes,omitempty"`
}

// Any reports whether at least one fraud check tripped.
func (f FraudFlags) Any() bool {
	return f.DuplicateReceipt || f.GPSMismatch || f.ExpressUploads || f.UnusualPattern
}

// FuelTransaction is one fueling, from QR generation to settlement.
type FuelTransaction struct {
	BaseModel
	TransactionCode string            `gorm:"type:varchar(30);column:transaction_code;uniqueIndex;not null" json:"transactionId"`
	PumpOwnerID     *uuid.UUID        `gorm:"type:uuid;column:pump_owner_id;index" json:"pumpOwnerId,omitempty"`
	PumpStaffID     *uuid.UUID        `gorm:"type:uuid;column:pump_staff_id;index" json:"pumpStaffId,omitempty"`
	VehicleNumber   string            `gorm:"type:varchar(20);column:vehicle_number;not null;index" json:"vehicleNumber"`
	DriverID        uuid.UUID         `gorm:"type:uuid;column:driver_id;not null;index:idx_fuel_txns_driver_status" json:"driverId"`
	FuelCardID      uuid.UUID         `gorm:"type:uuid;column:fuel_card_id;not null;index" json:"fuelCardId"`
	Amount          float64           `gorm:"type:numeric(12,2);column:amount;not null" json:"amount"`
	QRCode          string            `gorm:"type:text;column:qr_code;uniqueIndex;not null" json:"qrCode"`
	QRCodeExpiry    time.Time         `gorm:"type:timestamptz;column:qr_code_expiry;not null" json:"qrCodeExpiry"`
	Location        *GeoPoint         `gorm:"type:jsonb;column:location;serializer:json" json:"location,omitempty"`
	Status          TransactionStatus `gorm:"type:varchar(20);column:status;not null;default:'pending';index:idx_fuel_txns_driver_status" json:"status"`
	Receipt         Receipt           `gorm:"type:jsonb;column:receipt;serializer:json" json:"receipt"`
	FraudFlags      FraudFlags        `gorm:"type:jsonb;column:fraud_flags;serializer:json" json:"fraudFlags"`
	ConfirmedAt     *time.Time        `gorm:"type:timestamptz;column:confirmed_at" json:"confirmedAt,omitempty"`
	CompletedAt     *time.Time        `gorm:"type:timestamptz;column:completed_at" json:"completedAt,omitempty"`
	CancelledAt     *time.Time        `gorm:"type:timestamptz;column:cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy     *uuid.UUID        `gorm:"type:uuid;column:cancelled_by" json:"cancelledBy,omitempty"`
	Notes           string            `gorm:"type:text;column:notes" json:"notes,omitempty"`
}

func (t *FuelTransaction) TableName() string {
	return "fuel_transactions"
}

// QRExpired reports whether the stored QR expiry has passed.
func (t *FuelTransaction) QRExpired(now time.Time) bool {
	return t.QRCodeExpiry.Before(now)
}

// NewTransactionCode generates a human-readable transaction identifier.
func NewTransactionCode() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("FTX-%s-%s", ts, randomSuffix(4))
}

const suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
