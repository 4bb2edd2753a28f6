package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(orderID string) *Record {
	return &Record{
		OrderID:      orderID,
		PatientID:    "P001",
		DrugCode:     "GENTA-INJ",
		Dose:         80,
		DoseUnit:     "mg",
		Route:        "IV",
		Frequency:    "Q8H",
		DurationDays: 7,
		PhysicianID:  "DR001",
		Status:       "active",
		Warnings:     []string{"high-alert medication: Gentamicin 80mg/2mL Injection"},
		Overridden:   true,
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("ORD-20260115-AAAA0001")
	require.NoError(t, store.SaveSubmission(ctx, rec))
	assert.NotZero(t, rec.ID)

	got, err := store.GetByOrderID(ctx, rec.OrderID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.OrderID, got.OrderID)
	assert.Equal(t, rec.DrugCode, got.DrugCode)
	assert.Equal(t, rec.Warnings, got.Warnings)
	assert.True(t, got.Overridden)
}

func TestSQLiteStore_GetUnknown(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetByOrderID(context.Background(), "ORD-NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_UpdateStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("ORD-20260115-AAAA0002")
	require.NoError(t, store.SaveSubmission(ctx, rec))

	require.NoError(t, store.UpdateStatus(ctx, rec.OrderID, "discontinued"))

	got, err := store.GetByOrderID(ctx, rec.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "discontinued", got.Status)

	err = store.UpdateStatus(ctx, "ORD-NOPE", "discontinued")
	require.Error(t, err)
}

func TestSQLiteStore_ListByPatient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testRecord("ORD-20260115-AAAA0003")
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveSubmission(ctx, first))

	second := testRecord("ORD-20260115-AAAA0004")
	require.NoError(t, store.SaveSubmission(ctx, second))

	other := testRecord("ORD-20260115-AAAA0005")
	other.PatientID = "P002"
	require.NoError(t, store.SaveSubmission(ctx, other))

	records, err := store.ListByPatient(ctx, "P001", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.OrderID, records[0].OrderID)

	records, err = store.ListByPatient(ctx, "P001", 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
