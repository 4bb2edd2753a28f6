package setup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/config"
	"github.com/pharmacy-mcp-server/internal/history"
)

func seedHistory(t *testing.T, dataDir string) {
	t.Helper()
	store, err := history.NewSQLiteStore(filepath.Join(dataDir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSubmission(context.Background(), &history.Record{
		OrderID:     "ORD-20260115-SETUP001",
		PatientID:   "P001",
		DrugCode:    "VANCO-INJ",
		Dose:        1000,
		DoseUnit:    "mg",
		Route:       "IV",
		Frequency:   "Q12H",
		PhysicianID: "DR001",
		Status:      "active",
	}))
}

func TestCLI_ExportHistory(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("PHARMACY_DATA_DIR", dataDir)
	seedHistory(t, dataDir)

	out := filepath.Join(t.TempDir(), "orders.json")
	cli := NewCLI("lite")
	require.NoError(t, cli.Run([]string{"export", "--output", out}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var records []history.Record
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "ORD-20260115-SETUP001", records[0].OrderID)
}

func TestCLI_ExportHistory_DefaultsToExportDir(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("PHARMACY_DATA_DIR", dataDir)
	seedHistory(t, dataDir)

	cli := NewCLI("lite")
	require.NoError(t, cli.Run([]string{"export"}))

	cfg := config.LoadLiteConfig()
	entries, err := os.ReadDir(cfg.ExportDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "orders-")
}

func TestCLI_ExportHistory_MissingDatabase(t *testing.T) {
	t.Setenv("PHARMACY_DATA_DIR", t.TempDir())

	cli := NewCLI("lite")
	err := cli.Run([]string{"export"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no order history database")
}

func TestCLI_ImportHistory(t *testing.T) {
	sourceDir := t.TempDir()
	t.Setenv("PHARMACY_DATA_DIR", sourceDir)
	seedHistory(t, sourceDir)

	out := filepath.Join(t.TempDir(), "orders.json")
	cli := NewCLI("lite")
	require.NoError(t, cli.Run([]string{"export", "--output", out}))

	// Import into a fresh data directory.
	destDir := t.TempDir()
	t.Setenv("PHARMACY_DATA_DIR", destDir)
	require.NoError(t, cli.Run([]string{"import", out}))

	store, err := history.NewSQLiteStore(filepath.Join(destDir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.GetByOrderID(context.Background(), "ORD-20260115-SETUP001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "VANCO-INJ", rec.DrugCode)
}
