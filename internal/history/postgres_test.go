package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store, mock
}

func TestPostgresStore_SaveSubmission(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO order_history`).
		WithArgs(
			"ORD-20260115-BBBB0001", "P001", "GENTA-INJ", 80.0, "mg",
			"IV", "Q8H", 7, "DR001", "active",
			`["w1"]`, false, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	rec := &Record{
		OrderID: "ORD-20260115-BBBB0001", PatientID: "P001", DrugCode: "GENTA-INJ",
		Dose: 80, DoseUnit: "mg", Route: "IV", Frequency: "Q8H",
		DurationDays: 7, PhysicianID: "DR001", Status: "active",
		Warnings: []string{"w1"},
	}
	require.NoError(t, store.SaveSubmission(context.Background(), rec))
	assert.Equal(t, int64(42), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE order_history SET status`).
		WithArgs("discontinued", sqlmock.AnyArg(), "ORD-20260115-BBBB0001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateStatus(context.Background(), "ORD-20260115-BBBB0001", "discontinued"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus_Unknown(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE order_history SET status`).
		WithArgs("discontinued", sqlmock.AnyArg(), "ORD-NOPE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateStatus(context.Background(), "ORD-NOPE", "discontinued")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history record")
}

func TestPostgresStore_GetByOrderID(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "order_id", "patient_id", "drug_code", "dose", "dose_unit",
		"route", "frequency", "duration_days", "physician_id", "status",
		"warnings", "overridden", "created_at", "updated_at",
	}).AddRow(
		int64(7), "ORD-20260115-BBBB0002", "P002", "VANCO-INJ", 1000.0, "mg",
		"IV", "Q24H", 10, "DR002", "active",
		`["CrCl 35.0 mL/min: Extend dosing interval to Q24H; monitor trough levels"]`,
		true, now, now,
	)

	mock.ExpectQuery(`SELECT .+ FROM order_history WHERE order_id`).
		WithArgs("ORD-20260115-BBBB0002").
		WillReturnRows(rows)

	rec, err := store.GetByOrderID(context.Background(), "ORD-20260115-BBBB0002")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "VANCO-INJ", rec.DrugCode)
	assert.True(t, rec.Overridden)
	assert.Len(t, rec.Warnings, 1)
}

func TestPostgresStore_ListByPatient(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "order_id", "patient_id", "drug_code", "dose", "dose_unit",
		"route", "frequency", "duration_days", "physician_id", "status",
		"warnings", "overridden", "created_at", "updated_at",
	}).
		AddRow(int64(2), "ORD-B", "P001", "ASPIR-TAB", 100.0, "mg", "PO", "QD", 30, "DR001", "active", `[]`, false, now, now).
		AddRow(int64(1), "ORD-A", "P001", "ACETA-TAB", 500.0, "mg", "PO", "Q6H", 3, "DR001", "discontinued", `[]`, false, now.Add(-time.Hour), now)

	mock.ExpectQuery(`SELECT .+ FROM order_history WHERE patient_id`).
		WithArgs("P001", 10).
		WillReturnRows(rows)

	records, err := store.ListByPatient(context.Background(), "P001", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ORD-B", records[0].OrderID)
}
