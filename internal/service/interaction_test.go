package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacy-mcp-server/internal/domain"
)

func newTestInteractionService() *InteractionService {
	logger, _ := test.NewNullLogger()
	return NewInteractionService(nil, logger)
}

func TestCheckPair_KnownInteraction(t *testing.T) {
	svc := newTestInteractionService()

	result, err := svc.CheckPair(context.Background(), "warfarin", "aspirin")
	require.NoError(t, err)
	assert.True(t, result.HasInteraction)
	require.Len(t, result.Interactions, 1)
	assert.Equal(t, domain.SeverityHigh, result.Interactions[0].Severity)
}

func TestCheckPair_OrderAndCaseInsensitive(t *testing.T) {
	svc := newTestInteractionService()

	forward, err := svc.CheckPair(context.Background(), "Warfarin", "ASPIRIN")
	require.NoError(t, err)
	reverse, err := svc.CheckPair(context.Background(), "aspirin", "warfarin")
	require.NoError(t, err)

	assert.True(t, forward.HasInteraction)
	assert.True(t, reverse.HasInteraction)
	assert.Equal(t, forward.Interactions, reverse.Interactions)
}

func TestCheckPair_ExactMatchOnly(t *testing.T) {
	svc := newTestInteractionService()

	// "warfarin sodium" is not the normalized generic name; no substring
	// matching means no hit.
	result, err := svc.CheckPair(context.Background(), "warfarin sodium", "aspirin")
	require.NoError(t, err)
	assert.False(t, result.HasInteraction)
}

func TestCheckPair_NoInteraction(t *testing.T) {
	svc := newTestInteractionService()

	result, err := svc.CheckPair(context.Background(), "acetaminophen", "amoxicillin")
	require.NoError(t, err)
	assert.False(t, result.HasInteraction)
	assert.Empty(t, result.Interactions)
}

func TestCheckMultiple_SortsBySeverity(t *testing.T) {
	svc := newTestInteractionService()

	result, err := svc.CheckMultiple(context.Background(),
		[]string{"sildenafil", "nitrates", "aspirin", "ibuprofen"})
	require.NoError(t, err)
	assert.Equal(t, 6, result.PairsChecked)
	require.GreaterOrEqual(t, result.TotalInteractions, 2)

	// Contraindicated pair sorts ahead of the moderate one.
	assert.Equal(t, domain.SeverityContraindicated, result.Interactions[0].Interactions[0].Severity)
}

func TestCheckMultiple_DeduplicatesPairs(t *testing.T) {
	svc := newTestInteractionService()

	result, err := svc.CheckMultiple(context.Background(),
		[]string{"warfarin", "aspirin", "Warfarin"})
	require.NoError(t, err)
	// warfarin/aspirin counted once, warfarin/warfarin once.
	assert.Equal(t, 2, result.PairsChecked)
	assert.Equal(t, 1, result.TotalInteractions)
}

func TestCheckMultiple_NeedsTwoDrugs(t *testing.T) {
	svc := newTestInteractionService()

	_, err := svc.CheckMultiple(context.Background(), []string{"warfarin"})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestCheckFood(t *testing.T) {
	svc := newTestInteractionService()

	result, err := svc.CheckFood(context.Background(), "warfarin")
	require.NoError(t, err)
	assert.True(t, result.HasFoodInteractions)
	assert.GreaterOrEqual(t, len(result.FoodInteractions), 3)

	result, err = svc.CheckFood(context.Background(), "amoxicillin")
	require.NoError(t, err)
	assert.False(t, result.HasFoodInteractions)
}

func TestInteractionsFor(t *testing.T) {
	svc := newTestInteractionService()

	results := svc.InteractionsFor("warfarin")
	assert.GreaterOrEqual(t, len(results), 6)

	assert.Empty(t, svc.InteractionsFor("acetaminophen"))
}

type stubLabelSource struct {
	sections []string
}

func (s *stubLabelSource) DrugInteractionSections(ctx context.Context, drugName string) ([]string, error) {
	return s.sections, nil
}

func TestCheckPair_LabelEnrichment(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := NewInteractionService(&stubLabelSource{
		sections: []string{"Concomitant use with rifampin reduces exposure."},
	}, logger)

	result, err := svc.CheckPair(context.Background(), "somedrug", "rifampin")
	require.NoError(t, err)
	assert.True(t, result.HasInteraction)
	assert.Empty(t, result.Interactions)
	require.Len(t, result.LabelMentions, 1)
}
