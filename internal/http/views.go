package http

import (
	"embed"
	"html/template"
	"slices"
	"strconv"
	"time"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

// equipmentRow is the list view of one record.
type equipmentRow struct {
	ID            int64
	Name          string
	Quantity      int
	Unit          string
	Condition     string
	AssignedTo    string
	Location      string
	DateIssued    string
	LastInspected string
}

func toRows(items []domain.Equipment) []equipmentRow {
	rows := make([]equipmentRow, len(items))
	for i, item := range items {
		rows[i] = equipmentRow{
			ID:            item.ID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			Condition:     item.Condition,
			AssignedTo:    str(item.AssignedTo),
			Location:      str(item.Location),
			DateIssued:    dateStr(item.DateIssued),
			LastInspected: dateStr(item.LastInspected),
		}
	}
	return rows
}

// equipmentForm holds the values shown in the add/edit form.
type equipmentForm struct {
	Name          string
	Description   string
	Quantity      string
	Unit          string
	Condition     string
	AssignedTo    string
	Location      string
	DateIssued    string
	LastInspected string
	Remarks       string
}

func formFromEquipment(item *domain.Equipment) equipmentForm {
	return equipmentForm{
		Name:          item.Name,
		Description:   str(item.Description),
		Quantity:      strconv.Itoa(item.Quantity),
		Unit:          item.Unit,
		Condition:     item.Condition,
		AssignedTo:    str(item.AssignedTo),
		Location:      str(item.Location),
		DateIssued:    dateStr(item.DateIssued),
		LastInspected: dateStr(item.LastInspected),
		Remarks:       str(item.Remarks),
	}
}

func formFromFields(f service.EquipmentFields) equipmentForm {
	return equipmentForm{
		Name:          str(f.Name),
		Description:   str(f.Description),
		Quantity:      str(f.Quantity),
		Unit:          str(f.Unit),
		Condition:     str(f.Condition),
		AssignedTo:    str(f.AssignedTo),
		Location:      str(f.Location),
		DateIssued:    str(f.DateIssued),
		LastInspected: str(f.LastInspected),
		Remarks:       str(f.Remarks),
	}
}

// conditionOptions keeps a free-form current value selectable.
func conditionOptions(current string) []string {
	opts := slices.Clone(domain.Conditions)
	if current != "" && !slices.Contains(opts, current) {
		opts = append(opts, current)
	}
	return opts
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func dateStr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.DateLayout)
}
