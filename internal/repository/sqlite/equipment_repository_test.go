package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-tracker/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newEquipmentRepo(t *testing.T) *EquipmentRepository {
	t.Helper()
	repo := &EquipmentRepository{db: openTestDB(t)}
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func strPtr(s string) *string { return &s }

func datePtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	require.NoError(t, err)
	return &d
}

func TestEquipmentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	item := &domain.Equipment{
		Name:          "Drill",
		Description:   strPtr("Cordless"),
		Quantity:      2,
		Unit:          "pcs",
		Condition:     domain.ConditionGood,
		AssignedTo:    strPtr("Ana"),
		Location:      strPtr("Room 101"),
		DateIssued:    datePtr(t, "2024-03-01"),
		LastInspected: datePtr(t, "2024-06-15"),
		Remarks:       strPtr("spare battery"),
	}
	id, err := repo.Create(ctx, item)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, item.ID)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)
	assert.Equal(t, "Cordless", *got.Description)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, "pcs", got.Unit)
	assert.Equal(t, domain.ConditionGood, got.Condition)
	assert.Equal(t, "Ana", *got.AssignedTo)
	assert.Equal(t, "Room 101", *got.Location)
	assert.Equal(t, "2024-03-01", got.DateIssued.Format(domain.DateLayout))
	assert.Equal(t, "2024-06-15", got.LastInspected.Format(domain.DateLayout))
	assert.Equal(t, "spare battery", *got.Remarks)
}

func TestEquipmentRepository_OptionalFieldsStayNull(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	id, err := repo.Create(ctx, &domain.Equipment{Name: "Helmet", Quantity: 10, Unit: "pcs", Condition: domain.ConditionGood})
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.AssignedTo)
	assert.Nil(t, got.Location)
	assert.Nil(t, got.DateIssued)
	assert.Nil(t, got.LastInspected)
	assert.Nil(t, got.Remarks)
}

func TestEquipmentRepository_UpdateOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	item := &domain.Equipment{
		Name:       "Ladder",
		Quantity:   1,
		Unit:       "pcs",
		Condition:  domain.ConditionNew,
		AssignedTo: strPtr("Ben"),
		Remarks:    strPtr("tall"),
	}
	id, err := repo.Create(ctx, item)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, &domain.Equipment{
		ID:        id,
		Name:      "Step ladder",
		Quantity:  3,
		Unit:      "sets",
		Condition: domain.ConditionWorn,
	}))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Step ladder", got.Name)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, "sets", got.Unit)
	assert.Equal(t, domain.ConditionWorn, got.Condition)
	assert.Nil(t, got.AssignedTo)
	assert.Nil(t, got.Remarks)
}

func TestEquipmentRepository_MissingIDs(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	_, err := repo.Get(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Update(ctx, &domain.Equipment{ID: 42, Name: "x", Quantity: 1, Unit: "pcs", Condition: domain.ConditionGood})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, 42), domain.ErrNotFound)
}

func TestEquipmentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	id, err := repo.Create(ctx, &domain.Equipment{Name: "Tape", Quantity: 5, Unit: "rolls", Condition: domain.ConditionNew})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), domain.ErrNotFound)
}

func TestEquipmentRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	seed := []domain.Equipment{
		{Name: "Projector", Quantity: 1, Unit: "pcs", Condition: domain.ConditionGood, Location: strPtr("Room 101"), AssignedTo: strPtr("Maria Lopez")},
		{Name: "Chair", Quantity: 20, Unit: "pcs", Condition: domain.ConditionWorn, Location: strPtr("Back Room")},
		{Name: "Desk", Quantity: 4, Unit: "pcs", Condition: domain.ConditionNeedsRepair, Location: strPtr("Rm 2"), AssignedTo: strPtr("maria")},
		{Name: "Cable", Quantity: 9, Unit: "pcs", Condition: domain.ConditionGood},
	}
	for i := range seed {
		_, err := repo.Create(ctx, &seed[i])
		require.NoError(t, err)
	}

	names := func(items []domain.Equipment) []string {
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = item.Name
		}
		return out
	}

	all, err := repo.List(ctx, domain.EquipmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cable", "Chair", "Desk", "Projector"}, names(all))

	byLocation, err := repo.List(ctx, domain.EquipmentFilter{Location: "Room"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chair", "Projector"}, names(byLocation))

	byCondition, err := repo.List(ctx, domain.EquipmentFilter{Condition: domain.ConditionGood})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cable", "Projector"}, names(byCondition))

	partialCondition, err := repo.List(ctx, domain.EquipmentFilter{Condition: "Goo"})
	require.NoError(t, err)
	assert.Empty(t, partialCondition)

	// substring match is case sensitive
	byAssignee, err := repo.List(ctx, domain.EquipmentFilter{AssignedTo: "Maria"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Projector"}, names(byAssignee))

	combined, err := repo.List(ctx, domain.EquipmentFilter{Condition: domain.ConditionWorn, Location: "Room"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chair"}, names(combined))
}

func TestEquipmentRepository_ListTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	_, err := repo.Create(ctx, &domain.Equipment{Name: "Saw", Quantity: 1, Unit: "pcs", Condition: domain.ConditionGood, Location: strPtr("Shed")})
	require.NoError(t, err)

	items, err := repo.List(ctx, domain.EquipmentFilter{Location: "%"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEquipmentRepository_AllKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	for _, name := range []string{"Zebra", "Apple"} {
		_, err := repo.Create(ctx, &domain.Equipment{Name: name, Quantity: 1, Unit: "pcs", Condition: domain.ConditionGood})
		require.NoError(t, err)
	}

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Zebra", all[0].Name)
	assert.Equal(t, "Apple", all[1].Name)
}

func TestEquipmentRepository_Summary(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)

	empty, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentSummary{}, empty)

	seed := []domain.Equipment{
		{Name: "A", Quantity: 1, Unit: "pcs", Condition: domain.ConditionGood, AssignedTo: strPtr("Ana")},
		{Name: "B", Quantity: 1, Unit: "pcs", Condition: domain.ConditionNeedsRepair},
		{Name: "C", Quantity: 1, Unit: "pcs", Condition: domain.ConditionWorn},
	}
	for i := range seed {
		_, err := repo.Create(ctx, &seed[i])
		require.NoError(t, err)
	}

	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentSummary{Total: 3, Assigned: 1, NeedsRepair: 1}, summary)
}

func TestEquipmentRepository_ClosedDatabaseIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepo(t)
	require.NoError(t, repo.db.Close())

	_, err := repo.Create(ctx, &domain.Equipment{Name: "A", Quantity: 1, Unit: "pcs", Condition: domain.ConditionGood})
	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
}
