package model

import (
	"time"

	"github.com/google/uuid"
)

// CreateTripDTO carries the request payload for creating a trip.
type CreateTripDTO struct {
	VehicleID       *uuid.UUID `json:"vehicleId,omitempty"`
	DriverID        *uuid.UUID `json:"driverId,omitempty"`
	ContainerNumber string     `json:"containerNumber,omitempty"`
	Reference       string     `json:"reference,omitempty"`
	PickupLocation  *Location  `json:"pickupLocation,omitempty"`
	DropLocation    *Location  `json:"dropLocation,omitempty"`
	TripType        TripType   `json:"tripType"`
}

// UpdateTripDTO carries the mutable fields of a planned trip. Nil pointers
// leave the stored value unchanged.
type UpdateTripDTO struct {
	VehicleID       *uuid.UUID `json:"vehicleId,omitempty"`
	DriverID        *uuid.UUID `json:"driverId,omitempty"`
	ContainerNumber *string    `json:"containerNumber,omitempty"`
	Reference       *string    `json:"reference,omitempty"`
	PickupLocation  *Location  `json:"pickupLocation,omitempty"`
	DropLocation    *Location  `json:"dropLocation,omitempty"`
}

// RecordMilestoneDTO carries a driver's milestone submission.
type RecordMilestoneDTO struct {
	Number   int         `json:"milestoneNumber"`
	Location Coordinates `json:"location"`
	Photo    string      `json:"photo,omitempty"`
}

// CancelTripDTO carries a cancellation request.
type CancelTripDTO struct {
	Reason string `json:"reason,omitempty"`
}

// ShareTripDTO carries a share-link request. ExpiryHours of zero uses the
// configured default.
type ShareTripDTO struct {
	ExpiryHours int `json:"expiryHours,omitempty"`
}

// TripFilter narrows trip listings.
type TripFilter struct {
	TransporterID *uuid.UUID
	VehicleID     *uuid.UUID
	DriverID      *uuid.UUID
	Status        *Status
	TripType      *TripType
	Search        string
	From          *time.Time
	To            *time.Time
}

// TimelineEntry is one of the five milestone slots of a trip, completed or
// pending.
type TimelineEntry struct {
	Number    int           `json:"milestoneNumber"`
	Type      MilestoneType `json:"milestoneType"`
	Label     string        `json:"label"`
	Meaning   string        `json:"backendMeaning"`
	Completed bool          `json:"completed"`
	Milestone *Milestone    `json:"milestone,omitempty"`
}
