package repository

import (
	"context"

	"equipment-tracker/internal/domain"
)

// EquipmentRepository exposes persistence operations for equipment records.
type EquipmentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, item *domain.Equipment) (int64, error)
	Update(ctx context.Context, item *domain.Equipment) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Equipment, error)
	// List returns records matching filter ordered by name.
	List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, error)
	// All returns every record in storage order.
	All(ctx context.Context) ([]domain.Equipment, error)
	Summary(ctx context.Context) (domain.EquipmentSummary, error)
}
