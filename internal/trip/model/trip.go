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

// BaseModel defines the base model structure with common fields for the trip package.
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

// TripType distinguishes container flows into and out of the port.
type TripType string

const (
	TripImport TripType = "IMPORT"
	TripExport TripType = "EXPORT"
)

// ValidTripType reports whether t is a known trip type.
func ValidTripType(t TripType) bool {
	return t == TripImport || t == TripExport
}

// Status enumerates the lifecycle states of a trip.
type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusActive     Status = "ACTIVE"
	StatusCompleted  Status = "COMPLETED"
	StatusPODPending Status = "POD_PENDING"
	StatusCancelled  Status = "CANCELLED"
)

// statusTransitions is the full set of permitted trip status changes.
// CANCELLED and COMPLETED (with no pending POD) are terminal apart from the
// COMPLETED and POD_PENDING exchange.
var statusTransitions = map[Status][]Status{
	StatusPlanned:    {StatusActive, StatusCancelled},
	StatusActive:     {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusPODPending},
	StatusPODPending: {StatusCompleted},
	StatusCancelled:  {},
}

// CanTransition reports whether a trip may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions
// other than the POD exchange.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Coordinates is a GPS point. Latitude and longitude are both required on
// every location a trip carries.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %v", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %v", c.Longitude)
	}
	return nil
}

// Location is an address with its GPS coordinates.
type Location struct {
	Address     string      `json:"address,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
}

// Milestone is one completed step of a trip. Milestones are stored embedded
// in the trip in completion order.
type Milestone struct {
	Type           MilestoneType `json:"milestoneType"`
	Number         int           `json:"milestoneNumber"`
	Timestamp      time.Time     `json:"timestamp"`
	Location       Coordinates   `json:"location"`
	Photo          string        `json:"photo,omitempty"`
	DriverID       uuid.UUID     `json:"driverId"`
	BackendMeaning string        `json:"backendMeaning"`
}

// MilestoneList is the embedded, ordered list of completed milestones.
type MilestoneList []Milestone

// POD is the proof-of-delivery record attached to a trip.
type POD struct {
	Photo      string     `json:"photo,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	UploadedBy *uuid.UUID `json:"uploadedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy *uuid.UUID `json:"approvedBy,omitempty"`
}

// Trip is a single container movement from pickup to drop.
type Trip struct {
	BaseModel
	TripCode        string        `gorm:"type:varchar(30);column:trip_code;uniqueIndex;not null" json:"tripId"`
	TransporterID   uuid.UUID     `gorm:"type:uuid;column:transporter_id;not null;index:idx_trips_transporter_status" json:"transporterId"`
	VehicleID       *uuid.UUID    `gorm:"type:uuid;column:vehicle_id;index:idx_trips_vehicle_status" json:"vehicleId,omitempty"`
	DriverID        *uuid.UUID    `gorm:"type:uuid;column:driver_id;index" json:"driverId,omitempty"`
	ContainerNumber string        `gorm:"type:varchar(20);column:container_number;index" json:"containerNumber,omitempty"`
	Reference       string        `gorm:"type:varchar(100);column:reference;index" json:"reference,omitempty"`
	PickupLocation  *Location     `gorm:"type:jsonb;column:pickup_location;serializer:json" json:"pickupLocation,omitempty"`
	DropLocation    *Location     `gorm:"type:jsonb;column:drop_location;serializer:json" json:"dropLocation,omitempty"`
	TripType        TripType      `gorm:"type:varchar(10);column:trip_type;not null" json:"tripType"`
	Status          Status        `gorm:"type:varchar(20);column:status;not null;default:'PLANNED';index:idx_trips_vehicle_status;index:idx_trips_transporter_status" json:"status"`
	Milestones      MilestoneList `gorm:"type:jsonb;column:milestones;serializer:json" json:"milestones"`
	POD             POD           `gorm:"type:jsonb;column:pod;serializer:json" json:"POD"`
	ShareToken      *string       `gorm:"type:varchar(64);column:share_token;index" json:"shareToken,omitempty"`
	ShareTokenExp   *time.Time    `gorm:"type:timestamptz;column:share_token_expiry" json:"shareTokenExpiry,omitempty"`
	StartedAt       *time.Time    `gorm:"type:timestamptz;column:started_at" json:"startedAt,omitempty"`
	CompletedAt     *time.Time    `gorm:"type:timestamptz;column:completed_at" json:"completedAt,omitempty"`
	CancelledAt     *time.Time    `gorm:"type:timestamptz;column:cancelled_at" json:"cancelledAt,omitempty"`
	CancelledBy     *uuid.UUID    `gorm:"type:uuid;column:cancelled_by" json:"cancelledBy,omitempty"`
	CancelReason    string        `gorm:"type:text;column:cancel_reason" json:"cancelReason,omitempty"`
}

func (t *Trip) TableName() string {
	return "trips"
}

// NewTripCode generates a human-readable trip identifier.
func NewTripCode() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("TRIP-%s-%s", ts, randomSuffix(4))
}

const suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}

// NextMilestoneNumber is the position of the next milestone to record.
func (t *Trip) NextMilestoneNumber() int {
	return len(t.Milestones) + 1
}

// AllMilestonesCompleted reports whether every milestone has been recorded.
func (t *Trip) AllMilestonesCompleted() bool {
	return len(t.Milestones) == MilestoneCount
}

// CurrentMilestoneInfo describes the next milestone a driver must record.
type CurrentMilestoneInfo struct {
	Number int           `json:"milestoneNumber"`
	Type   MilestoneType `json:"milestoneType"`
	Label  string        `json:"label"`
}

// CurrentMilestone returns the next pending milestone, or nil once all five
// are recorded.
func (t *Trip) CurrentMilestone() *CurrentMilestoneInfo {
	next := t.NextMilestoneNumber()
	if next > MilestoneCount {
		return nil
	}
	mt, _ := MilestoneTypeByNumber(next)
	return &CurrentMilestoneInfo{
		Number: next,
		Type:   mt,
		Label:  DriverLabel(mt),
	}
}

// ShareTokenValid reports whether the stored share token matches and has not
// expired at the given instant.
func (t *Trip) ShareTokenValid(token string, now time.Time) bool {
	if t.ShareToken == nil || *t.ShareToken != token {
		return false
	}
	if t.ShareTokenExp == nil || now.After(*t.ShareTokenExp) {
		return false
	}
	return true
}
