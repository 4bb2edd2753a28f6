package knowledge

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormulary_Get(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	item := f.Get("GENTA-INJ")
	require.NotNil(t, item)
	assert.Equal(t, "GENTA-INJ", item.DrugCode)
	assert.Contains(t, item.AvailableRoutes, "IV")
	assert.True(t, item.RequiresRenalAdjustment)
}

func TestFormulary_Get_Unknown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	assert.Nil(t, f.Get("NONEXISTENT"))
}

func TestFormulary_Search(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	results := f.Search("genta", 10)
	require.NotEmpty(t, results)

	found := false
	for _, r := range results {
		if r.DrugCode == "GENTA-INJ" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFormulary_Search_Limit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	results := f.Search("tab", 2)
	assert.LessOrEqual(t, len(results), 2)
}

func TestFormulary_AllItems(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	items := f.AllItems()
	assert.GreaterOrEqual(t, len(items), 10)

	codes := make(map[string]bool)
	for _, i := range items {
		codes[i.DrugCode] = true
	}
	assert.True(t, codes["GENTA-INJ"])
	assert.True(t, codes["VANCO-INJ"])
	assert.True(t, codes["METFOR-TAB"])
}

func TestFormulary_HighAlertDrugs(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	drugs := f.HighAlertDrugs()
	require.NotEmpty(t, drugs)
	for _, d := range drugs {
		assert.True(t, d.HighAlert)
	}
}

func TestFormulary_RenalAdjustmentDrugs(t *testing.T) {
	logger, _ := test.NewNullLogger()
	f := NewFormulary(logger)

	drugs := f.RenalAdjustmentDrugs()
	require.NotEmpty(t, drugs)
	for _, d := range drugs {
		assert.True(t, d.RequiresRenalAdjustment)
	}
}
