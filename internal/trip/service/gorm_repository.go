package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
	fleetmodel "github.com/developerakkoo/Porttivo-API/internal/fleet/model"
	"github.com/developerakkoo/Porttivo-API/internal/trip/model"
)

// GormTripRepository is the postgres-backed TripRepository.
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository creates a GormTripRepository.
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

func (r *GormTripRepository) Create(ctx context.Context, trip *model.Trip) error {
	if err := r.db.WithContext(ctx).Create(trip).Error; err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

func (r *GormTripRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	result := r.db.WithContext(ctx).First(&trip, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("trip")
		}
		return nil, fmt.Errorf("failed to retrieve trip: %w", result.Error)
	}
	return &trip, nil
}

func (r *GormTripRepository) GetByShareToken(ctx context.Context, token string) (*model.Trip, error) {
	var trip model.Trip
	result := r.db.WithContext(ctx).First(&trip, "share_token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("trip")
		}
		return nil, fmt.Errorf("failed to retrieve trip by share token: %w", result.Error)
	}
	return &trip, nil
}

func (r *GormTripRepository) Save(ctx context.Context, trip *model.Trip) error {
	if err := r.db.WithContext(ctx).Save(trip).Error; err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

func (r *GormTripRepository) List(ctx context.Context, filter model.TripFilter, limit, offset int) ([]model.Trip, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Trip{})

	if filter.TransporterID != nil {
		query = query.Where("transporter_id = ?", *filter.TransporterID)
	}
	if filter.VehicleID != nil {
		query = query.Where("vehicle_id = ?", *filter.VehicleID)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.TripType != nil {
		query = query.Where("trip_type = ?", *filter.TripType)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("trip_code ILIKE ? OR container_number ILIKE ? OR reference ILIKE ?", pattern, pattern, pattern)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	var trips []model.Trip
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&trips).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, total, nil
}

func (r *GormTripRepository) Transition(ctx context.Context, tripID uuid.UUID, from, to model.Status, assign map[string]any) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for column, value := range assign {
		updates[column] = value
	}

	result := r.db.WithContext(ctx).Model(&model.Trip{}).
		Where("id = ? AND status = ?", tripID, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition trip %s from %s to %s: %w", tripID, from, to, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTripRepository) ActivateExclusive(ctx context.Context, tripID, vehicleID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Trip{}).
		Where("id = ? AND status = ?", tripID, model.StatusPlanned).
		Where("NOT EXISTS (SELECT 1 FROM trips sibling WHERE sibling.vehicle_id = ? AND sibling.status = ?)", vehicleID, model.StatusActive).
		Updates(map[string]any{
			"status":     model.StatusActive,
			"started_at": at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to activate trip %s: %w", tripID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTripRepository) ReplaceMilestones(ctx context.Context, tripID uuid.UUID, priorCount int, milestones model.MilestoneList) (bool, error) {
	payload, err := json.Marshal(milestones)
	if err != nil {
		return false, fmt.Errorf("failed to encode milestones: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&model.Trip{}).
		Where("id = ? AND status = ?", tripID, model.StatusActive).
		Where("COALESCE(jsonb_array_length(milestones), 0) = ?", priorCount).
		Updates(map[string]any{
			"milestones": payload,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to append milestone to trip %s: %w", tripID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTripRepository) CompleteIfFinished(ctx context.Context, tripID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Trip{}).
		Where("id = ? AND status = ?", tripID, model.StatusActive).
		Where("COALESCE(jsonb_array_length(milestones), 0) = ?", model.MilestoneCount).
		Updates(map[string]any{
			"status":       model.StatusCompleted,
			"completed_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete trip %s: %w", tripID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTripRepository) OldestPlanned(ctx context.Context, vehicleID uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	result := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status = ?", vehicleID, model.StatusPlanned).
		Order("created_at ASC").
		First(&trip)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find queued trip for vehicle %s: %w", vehicleID, result.Error)
	}
	return &trip, nil
}

func (r *GormTripRepository) CountByVehicle(ctx context.Context, vehicleID uuid.UUID, statuses ...model.Status) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Trip{}).Where("vehicle_id = ?", vehicleID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trips for vehicle %s: %w", vehicleID, err)
	}
	return count, nil
}

func (r *GormTripRepository) ListByVehicle(ctx context.Context, vehicleID uuid.UUID, status model.Status) ([]model.Trip, error) {
	var trips []model.Trip
	if err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND status = ?", vehicleID, status).
		Order("created_at ASC").
		Find(&trips).Error; err != nil {
		return nil, fmt.Errorf("failed to list trips for vehicle %s: %w", vehicleID, err)
	}
	return trips, nil
}

// GormFleetRepository is the postgres-backed FleetRepository.
type GormFleetRepository struct {
	db *gorm.DB
}

// NewGormFleetRepository creates a GormFleetRepository.
func NewGormFleetRepository(db *gorm.DB) *GormFleetRepository {
	return &GormFleetRepository{db: db}
}

func (r *GormFleetRepository) GetTransporter(ctx context.Context, id uuid.UUID) (*fleetmodel.Transporter, error) {
	var transporter fleetmodel.Transporter
	result := r.db.WithContext(ctx).First(&transporter, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("transporter")
		}
		return nil, fmt.Errorf("failed to retrieve transporter: %w", result.Error)
	}
	return &transporter, nil
}

func (r *GormFleetRepository) GetVehicle(ctx context.Context, id uuid.UUID) (*fleetmodel.Vehicle, error) {
	var vehicle fleetmodel.Vehicle
	result := r.db.WithContext(ctx).First(&vehicle, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("vehicle")
		}
		return nil, fmt.Errorf("failed to retrieve vehicle: %w", result.Error)
	}
	return &vehicle, nil
}

func (r *GormFleetRepository) GetDriver(ctx context.Context, id uuid.UUID) (*fleetmodel.Driver, error) {
	var driver fleetmodel.Driver
	result := r.db.WithContext(ctx).First(&driver, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("driver")
		}
		return nil, fmt.Errorf("failed to retrieve driver: %w", result.Error)
	}
	return &driver, nil
}
