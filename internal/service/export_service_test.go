package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"equipment-tracker/internal/domain"
	"equipment-tracker/internal/storage"
)

func openExport(t *testing.T, export *Export) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(ExportSheet, axis)
	require.NoError(t, err)
	return v
}

func TestExportService_EmptyInventoryHasHeaderOnly(t *testing.T) {
	svc := NewExportService(newEquipmentRepository(t))

	export, err := svc.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "inventory.xlsx", export.Filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.ContentType)

	f := openExport(t, export)
	assert.Equal(t, []string{ExportSheet}, f.GetSheetList())

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"Name", "Description", "Quantity", "Unit", "Condition",
		"Assigned To", "Location", "Date Issued", "Last Inspected", "Remarks",
	}, rows[0])
}

func TestExportService_HelmetRow(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepository(t)
	_, err := NewEquipmentService(repo).Create(ctx, helmetFields())
	require.NoError(t, err)

	export, err := NewExportService(repo).ExportAll(ctx)
	require.NoError(t, err)
	f := openExport(t, export)

	want := map[string]string{
		"A2": "Helmet", "B2": "", "C2": "10", "D2": "pcs", "E2": "Good",
		"F2": "", "G2": "", "H2": "", "I2": "", "J2": "",
	}
	for axis, v := range want {
		assert.Equal(t, v, cell(t, f, axis), axis)
	}

	cellType, err := f.GetCellType(ExportSheet, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
}

func TestExportService_DatesAndStorageOrder(t *testing.T) {
	ctx := context.Background()
	repo := newEquipmentRepository(t)
	equipment := NewEquipmentService(repo)

	zebra := helmetFields()
	zebra.Name = ptr("Zebra")
	zebra.DateIssued = ptr("2024-01-05")
	zebra.LastInspected = ptr("2024-02-06")
	_, err := equipment.Create(ctx, zebra)
	require.NoError(t, err)

	apple := helmetFields()
	apple.Name = ptr("Apple")
	apple.AssignedTo = ptr("Ana")
	_, err = equipment.Create(ctx, apple)
	require.NoError(t, err)

	export, err := NewExportService(repo).ExportAll(ctx)
	require.NoError(t, err)
	f := openExport(t, export)

	assert.Equal(t, "Zebra", cell(t, f, "A2"))
	assert.Equal(t, "2024-01-05", cell(t, f, "H2"))
	assert.Equal(t, "2024-02-06", cell(t, f, "I2"))
	assert.Equal(t, "Apple", cell(t, f, "A3"))
	assert.Equal(t, "Ana", cell(t, f, "F3"))

	listed, err := equipment.List(ctx, domain.EquipmentFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Apple", listed[0].Name)
}

type fakeStorage struct {
	puts    []storage.PutOptions
	body    []byte
	objects []storage.ObjectInfo
	prefix  string
	err     error
}

func (f *fakeStorage) Put(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.body = b
	f.puts = append(f.puts, opts)
	return "s3://" + opts.Bucket + "/" + opts.Key, nil
}

func (f *fakeStorage) ListObjects(_ context.Context, _ string, prefix string) ([]storage.ObjectInfo, error) {
	f.prefix = prefix
	return f.objects, f.err
}

func TestArchiveService_UploadsExport(t *testing.T) {
	ctx := context.Background()
	store := &fakeStorage{}
	svc := NewArchiveService(NewExportService(newEquipmentRepository(t)), store, "bucket", "/exports/").(*archiveService)
	svc.now = func() time.Time { return time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC) }

	location, err := svc.Archive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/exports/inventory-20240701T083000Z.xlsx", location)

	require.Len(t, store.puts, 1)
	assert.Equal(t, ExportContentType, store.puts[0].ContentType)
	assert.True(t, strings.HasPrefix(string(store.body), "PK"), "xlsx payload is a zip archive")

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exports/", store.prefix)
}

func TestArchiveService_PropagatesStorageErrors(t *testing.T) {
	store := &fakeStorage{err: assert.AnError}
	svc := NewArchiveService(NewExportService(newEquipmentRepository(t)), store, "bucket", "")

	_, err := svc.Archive(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
