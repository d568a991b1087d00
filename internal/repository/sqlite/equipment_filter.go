package sqlite

import (
	sq "github.com/Masterminds/squirrel"

	"equipment-tracker/internal/domain"
)

// applyEquipmentFilter narrows an equipment select by the non-empty filter fields.
// Condition matches exactly; location and assigned_to match a case-sensitive
// substring anywhere in the column (LIKE would fold ASCII case and expand % and _).
func applyEquipmentFilter(b sq.SelectBuilder, f domain.EquipmentFilter) sq.SelectBuilder {
	if f.Condition != "" {
		b = b.Where(sq.Eq{"condition": f.Condition})
	}
	if f.Location != "" {
		b = b.Where(sq.Expr("instr(location, ?) > 0", f.Location))
	}
	if f.AssignedTo != "" {
		b = b.Where(sq.Expr("instr(assigned_to, ?) > 0", f.AssignedTo))
	}
	return b
}
