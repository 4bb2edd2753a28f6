package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportJSON_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSubmission(ctx, testRecord("ORD-20260115-EXPA0001")))
	second := testRecord("ORD-20260115-EXPA0002")
	second.PatientID = "P002"
	require.NoError(t, store.SaveSubmission(ctx, second))

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(ctx, store, &buf))

	var exported []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	assert.Len(t, exported, 2)

	// Import into a fresh store and verify both records land.
	dest, err := NewSQLiteStore(filepath.Join(t.TempDir(), "imported.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dest.Close() })

	n, err := ImportJSON(ctx, dest, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dest.GetByOrderID(ctx, "ORD-20260115-EXPA0002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "P002", got.PatientID)
}

func TestExportJSON_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(context.Background(), store, &buf))
	assert.JSONEq(t, "[]", buf.String())
}

func TestImportJSON_RejectsMalformedInput(t *testing.T) {
	store := newTestStore(t)

	_, err := ImportJSON(context.Background(), store, bytes.NewReader([]byte("{not json")))
	assert.Error(t, err)
}
