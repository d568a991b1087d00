package service

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/repository"
)

// EquipmentFields carries raw form-encoded equipment attributes.
// A nil field was absent from the request.
type EquipmentFields struct {
	Name          *string
	Description   *string
	Quantity      *string
	Unit          *string
	Condition     *string
	AssignedTo    *string
	Location      *string
	DateIssued    *string
	LastInspected *string
	Remarks       *string
}

// EquipmentService coordinates equipment operations backed by the repository.
type EquipmentService interface {
	Create(ctx context.Context, fields EquipmentFields) (*domain.Equipment, error)
	// Update overwrites every mutable field; absent optional fields are cleared.
	Update(ctx context.Context, id int64, fields EquipmentFields) (*domain.Equipment, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Equipment, error)
	List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, error)
	Summary(ctx context.Context) (domain.EquipmentSummary, error)
}

type equipmentService struct {
	items    repository.EquipmentRepository
	validate *validator.Validate
}

func NewEquipmentService(items repository.EquipmentRepository) EquipmentService {
	return &equipmentService{
		items:    items,
		validate: newValidator(),
	}
}

func (s *equipmentService) Create(ctx context.Context, fields EquipmentFields) (*domain.Equipment, error) {
	item, err := s.parse(fields)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *equipmentService) Update(ctx context.Context, id int64, fields EquipmentFields) (*domain.Equipment, error) {
	if _, err := s.items.Get(ctx, id); err != nil {
		return nil, err
	}

	item, err := s.parse(fields)
	if err != nil {
		return nil, err
	}
	item.ID = id
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *equipmentService) Delete(ctx context.Context, id int64) error {
	return s.items.Delete(ctx, id)
}

func (s *equipmentService) Get(ctx context.Context, id int64) (*domain.Equipment, error) {
	return s.items.Get(ctx, id)
}

func (s *equipmentService) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, error) {
	return s.items.List(ctx, filter)
}

func (s *equipmentService) Summary(ctx context.Context) (domain.EquipmentSummary, error) {
	return s.items.Summary(ctx)
}

// equipmentInput holds the required attributes after type coercion.
type equipmentInput struct {
	Name      string `form:"name" validate:"required"`
	Quantity  *int   `form:"quantity" validate:"required"`
	Unit      string `form:"unit" validate:"required"`
	Condition string `form:"condition" validate:"required"`
}

func (s *equipmentService) parse(fields EquipmentFields) (*domain.Equipment, error) {
	in := equipmentInput{
		Name:      deref(fields.Name),
		Unit:      deref(fields.Unit),
		Condition: deref(fields.Condition),
	}
	if raw := strings.TrimSpace(deref(fields.Quantity)); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &domain.ValidationError{Field: "quantity", Message: "must be a whole number"}
		}
		in.Quantity = &q
	}

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &domain.ValidationError{Field: verrs[0].Field(), Message: "is required"}
		}
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	dateIssued, err := parseFormDate("date_issued", fields.DateIssued)
	if err != nil {
		return nil, err
	}
	lastInspected, err := parseFormDate("last_inspected", fields.LastInspected)
	if err != nil {
		return nil, err
	}

	return &domain.Equipment{
		Name:          in.Name,
		Description:   optional(fields.Description),
		Quantity:      *in.Quantity,
		Unit:          in.Unit,
		Condition:     in.Condition,
		AssignedTo:    optional(fields.AssignedTo),
		Location:      optional(fields.Location),
		DateIssued:    dateIssued,
		LastInspected: lastInspected,
		Remarks:       optional(fields.Remarks),
	}, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func parseFormDate(field string, raw *string) (*time.Time, error) {
	v := strings.TrimSpace(deref(raw))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, v)
	if err != nil {
		return nil, &domain.ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return &t, nil
}

// optional maps an absent or empty form value to nil.
func optional(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	s := *v
	return &s
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
