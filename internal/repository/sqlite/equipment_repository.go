package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/repository"
)

const (
	createEquipmentTable = `
CREATE TABLE IF NOT EXISTS equipment (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NULL,
	quantity INTEGER NOT NULL,
	unit TEXT NOT NULL,
	condition TEXT NOT NULL,
	assigned_to TEXT NULL,
	location TEXT NULL,
	date_issued TEXT NULL,
	last_inspected TEXT NULL,
	remarks TEXT NULL
);
`
	equipmentTable   = "equipment"
	equipmentColumns = "id, name, description, quantity, unit, condition, assigned_to, location, date_issued, last_inspected, remarks"
)

type EquipmentRepository struct {
	db *sql.DB
}

func NewEquipmentRepository(db *sql.DB) repository.EquipmentRepository {
	return &EquipmentRepository{db: db}
}

func (r *EquipmentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEquipmentTable); err != nil {
		return fmt.Errorf("create equipment table: %w", err)
	}
	return nil
}

func (r *EquipmentRepository) Create(ctx context.Context, item *domain.Equipment) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, "insert equipment", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO equipment (name, description, quantity, unit, condition, assigned_to, location, date_issued, last_inspected, remarks)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.Name,
			nullText(item.Description),
			item.Quantity,
			item.Unit,
			item.Condition,
			nullText(item.AssignedTo),
			nullText(item.Location),
			nullDate(item.DateIssued),
			nullDate(item.LastInspected),
			nullText(item.Remarks),
		)
		if err != nil {
			return persistErr("insert equipment", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return persistErr("equipment last insert id", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	item.ID = id
	return id, nil
}

func (r *EquipmentRepository) Update(ctx context.Context, item *domain.Equipment) error {
	return withTx(ctx, r.db, "update equipment", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE equipment
SET name=?, description=?, quantity=?, unit=?, condition=?, assigned_to=?, location=?, date_issued=?, last_inspected=?, remarks=?
WHERE id=?`,
			item.Name,
			nullText(item.Description),
			item.Quantity,
			item.Unit,
			item.Condition,
			nullText(item.AssignedTo),
			nullText(item.Location),
			nullDate(item.DateIssued),
			nullDate(item.LastInspected),
			nullText(item.Remarks),
			item.ID,
		)
		if err != nil {
			return persistErr("update equipment", err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return persistErr("equipment update rows affected", err)
		}
		if aff == 0 {
			return fmt.Errorf("equipment %d: %w", item.ID, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *EquipmentRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, "delete equipment", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM equipment WHERE id=?`, id)
		if err != nil {
			return persistErr("delete equipment", err)
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return persistErr("equipment delete rows affected", err)
		}
		if aff == 0 {
			return fmt.Errorf("equipment %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *EquipmentRepository) Get(ctx context.Context, id int64) (*domain.Equipment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+equipmentColumns+`
FROM equipment
WHERE id=?`,
		id,
	)

	item, err := scanEquipment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("equipment %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return item, nil
}

func (r *EquipmentRepository) List(ctx context.Context, filter domain.EquipmentFilter) ([]domain.Equipment, error) {
	b := sq.Select(equipmentColumns).From(equipmentTable)
	b = applyEquipmentFilter(b, filter).OrderBy("name ASC", "id ASC")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build equipment query: %w", err)
	}
	return r.query(ctx, "query equipment", query, args...)
}

func (r *EquipmentRepository) All(ctx context.Context) ([]domain.Equipment, error) {
	return r.query(ctx, "query all equipment", `SELECT `+equipmentColumns+` FROM equipment`)
}

func (r *EquipmentRepository) Summary(ctx context.Context) (domain.EquipmentSummary, error) {
	var s domain.EquipmentSummary
	err := r.db.QueryRowContext(ctx, `
SELECT
	COUNT(*),
	COUNT(assigned_to),
	COALESCE(SUM(CASE WHEN condition = ? THEN 1 ELSE 0 END), 0)
FROM equipment`,
		domain.ConditionNeedsRepair,
	).Scan(&s.Total, &s.Assigned, &s.NeedsRepair)
	if err != nil {
		return domain.EquipmentSummary{}, persistErr("summarise equipment", err)
	}
	return s, nil
}

func (r *EquipmentRepository) query(ctx context.Context, op, query string, args ...any) ([]domain.Equipment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr(op, err)
	}
	defer rows.Close()

	items := []domain.Equipment{}
	for rows.Next() {
		item, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, err)
	}
	return items, nil
}

func scanEquipment(scanner interface {
	Scan(dest ...any) error
}) (*domain.Equipment, error) {
	var (
		item          domain.Equipment
		description   sql.NullString
		assignedTo    sql.NullString
		location      sql.NullString
		dateIssued    sql.NullString
		lastInspected sql.NullString
		remarks       sql.NullString
	)

	if err := scanner.Scan(
		&item.ID,
		&item.Name,
		&description,
		&item.Quantity,
		&item.Unit,
		&item.Condition,
		&assignedTo,
		&location,
		&dateIssued,
		&lastInspected,
		&remarks,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, persistErr("scan equipment", err)
	}

	item.Description = nullString(description)
	item.AssignedTo = nullString(assignedTo)
	item.Location = nullString(location)
	item.Remarks = nullString(remarks)

	var err error
	if item.DateIssued, err = parseDate(dateIssued); err != nil {
		return nil, persistErr("scan equipment date_issued", err)
	}
	if item.LastInspected, err = parseDate(lastInspected); err != nil {
		return nil, persistErr("scan equipment last_inspected", err)
	}

	return &item, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullText(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}

func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
