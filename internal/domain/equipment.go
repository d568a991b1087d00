package domain

import "time"

// DateLayout is the wire and storage format for equipment dates.
const DateLayout = "2006-01-02"

// Conventional condition labels. Condition is free-form; these only seed the form.
const (
	ConditionNew         = "New"
	ConditionGood        = "Good"
	ConditionWorn        = "Worn"
	ConditionNeedsRepair = "Needs Repair"
	ConditionDamaged     = "Damaged"
)

// Conditions lists the conventional labels in display order.
var Conditions = []string{
	ConditionNew,
	ConditionGood,
	ConditionWorn,
	ConditionNeedsRepair,
	ConditionDamaged,
}

// Equipment is one tracked inventory item. Nil pointers are unset optional fields.
type Equipment struct {
	ID            int64
	Name          string
	Description   *string
	Quantity      int
	Unit          string
	Condition     string
	AssignedTo    *string
	Location      *string
	DateIssued    *time.Time
	LastInspected *time.Time
	Remarks       *string
}

// EquipmentFilter narrows a list query. Empty fields impose no constraint.
type EquipmentFilter struct {
	Condition  string
	Location   string
	AssignedTo string
}

// IsZero reports whether the filter matches every record.
func (f EquipmentFilter) IsZero() bool {
	return f.Condition == "" && f.Location == "" && f.AssignedTo == ""
}

// EquipmentSummary is the dashboard aggregate.
type EquipmentSummary struct {
	Total       int64
	Assigned    int64
	NeedsRepair int64
}
