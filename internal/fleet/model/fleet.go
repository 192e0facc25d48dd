package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel defines the base model structure with common fields for the fleet package.
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

// TransporterStatus enumerates the account states of a transporter.
type TransporterStatus string

const (
	TransporterActive   TransporterStatus = "active"
	TransporterInactive TransporterStatus = "inactive"
	TransporterBlocked  TransporterStatus = "blocked"
)

// Transporter is a fleet-owning company account.
type Transporter struct {
	BaseModel
	CompanyName string            `gorm:"type:varchar(255);column:company_name;not null" json:"companyName"`
	Email       string            `gorm:"type:varchar(255);column:email;uniqueIndex;not null" json:"email"`
	Phone       string            `gorm:"type:varchar(20);column:phone;not null" json:"phone"`
	City        string            `gorm:"type:varchar(100);column:city" json:"city,omitempty"`
	Status      TransporterStatus `gorm:"type:varchar(20);column:status;not null;default:'active'" json:"status"`
}

func (t *Transporter) TableName() string {
	return "transporters"
}

// DriverStatus enumerates the account states of a driver.
type DriverStatus string

const (
	DriverPending  DriverStatus = "pending"
	DriverActive   DriverStatus = "active"
	DriverInactive DriverStatus = "inactive"
	DriverBlocked  DriverStatus = "blocked"
)

// Driver belongs to exactly one transporter and is the only actor that can
// record trip milestones.
type Driver struct {
	BaseModel
	TransporterID uuid.UUID    `gorm:"type:uuid;column:transporter_id;not null;index" json:"transporterId"`
	Name          string       `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Phone         string       `gorm:"type:varchar(20);column:phone;uniqueIndex;not null" json:"phone"`
	LicenseNumber string       `gorm:"type:varchar(50);column:license_number" json:"licenseNumber,omitempty"`
	Status        DriverStatus `gorm:"type:varchar(20);column:status;not null;default:'pending'" json:"status"`
}

func (d *Driver) TableName() string {
	return "drivers"
}

// OwnerType distinguishes vehicles a transporter owns from vehicles it hires.
type OwnerType string

const (
	OwnerOwn   OwnerType = "OWN"
	OwnerHired OwnerType = "HIRED"
)

// VehicleStatus enumerates the operational states of a vehicle.
type VehicleStatus string

const (
	VehicleActive   VehicleStatus = "active"
	VehicleInactive VehicleStatus = "inactive"
)

// UUIDList stores a set of uuid references as a jsonb column.
type UUIDList []uuid.UUID

// Contains reports whether id is present in the list.
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Vehicle is a truck operated by a transporter. A HIRED vehicle stays owned
// by its transporter but is usable by every transporter listed in HiredBy.
type Vehicle struct {
	BaseModel
	TransporterID uuid.UUID     `gorm:"type:uuid;column:transporter_id;not null;index" json:"transporterId"`
	VehicleNumber string        `gorm:"type:varchar(20);column:vehicle_number;uniqueIndex;not null" json:"vehicleNumber"`
	VehicleType   string        `gorm:"type:varchar(50);column:vehicle_type" json:"vehicleType,omitempty"`
	OwnerType     OwnerType     `gorm:"type:varchar(10);column:owner_type;not null;default:'OWN'" json:"ownerType"`
	HiredBy       UUIDList      `gorm:"type:jsonb;column:hired_by;serializer:json" json:"hiredBy,omitempty"`
	Status        VehicleStatus `gorm:"type:varchar(20);column:status;not null;default:'active'" json:"status"`
}

func (v *Vehicle) TableName() string {
	return "vehicles"
}

// UsableBy reports whether the given transporter may assign this vehicle to
// a trip, either as its owner or through a hire arrangement.
func (v *Vehicle) UsableBy(transporterID uuid.UUID) bool {
	if v.TransporterID == transporterID {
		return true
	}
	return v.OwnerType == OwnerHired && v.HiredBy.Contains(transporterID)
}
