package workflows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/pubmed-harvester/internal/domain"
	litemporal "github.com/helixir/pubmed-harvester/internal/temporal"
	"github.com/helixir/pubmed-harvester/internal/temporal/activities"
)

func TestHarvestWorkflow_Search(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities
	var eventAct *activities.EventActivities

	env.OnActivity(harvestAct.HarvestSearch, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.HarvestInput) (*activities.HarvestOutput, error) {
			assert.Equal(t, "crispr", in.Query)
			assert.Equal(t, "harvest-1", in.HarvestID)
			return &activities.HarvestOutput{
				Created:        []string{"1", "2"},
				AlreadyExisted: []string{"3"},
			}, nil
		},
	)

	var published []activities.PublishOutcomeInput
	env.OnActivity(eventAct.PublishOutcome, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.PublishOutcomeInput) error {
			published = append(published, in)
			return nil
		},
	)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:      "harvest-1",
		Query:          "crispr",
		PublishOutcome: true,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result HarvestWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, domain.HarvestModeSearch, result.Mode)
	assert.Equal(t, []string{"1", "2"}, result.Created)
	assert.Equal(t, []string{"3"}, result.AlreadyExisted)
	assert.Empty(t, result.Expanded)

	require.Len(t, published, 1)
	assert.Empty(t, published[0].Error)
	assert.Equal(t, []string{"1", "2"}, published[0].Created)
}

func TestHarvestWorkflow_IDsWithExpansion(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities

	env.OnActivity(harvestAct.HarvestIDs, mock.Anything, mock.Anything).Return(
		&activities.HarvestOutput{Created: []string{"10", "11", "12"}}, nil,
	)

	var expanded []string
	env.OnActivity(harvestAct.ExpandRelated, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.ExpandRelatedInput) (*activities.ExpandRelatedOutput, error) {
			expanded = append(expanded, in.PMID)
			return &activities.ExpandRelatedOutput{
				PMID:         in.PMID,
				Neighbors:    2,
				Created:      []string{"99", in.PMID + "0"},
				LinksCreated: 2,
			}, nil
		},
	)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:     "harvest-2",
		PMIDs:         []string{"10", "11", "12"},
		ExpandRelated: true,
		MaxRelated:    2,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result HarvestWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, domain.HarvestModeIDs, result.Mode)
	assert.Equal(t, []string{"10", "11"}, expanded)
	assert.Equal(t, []string{"10", "11"}, result.Expanded)
	assert.Equal(t, 4, result.LinksCreated)
	assert.Equal(t, []string{"100", "110", "99"}, result.RelatedCreated)

	encoded, err := env.QueryWorkflow(litemporal.QueryProgress)
	require.NoError(t, err)
	var progress litemporal.HarvestProgress
	require.NoError(t, encoded.Get(&progress))
	assert.Equal(t, PhaseCompleted, progress.Phase)
	assert.Equal(t, 2, progress.Expanded)
	assert.Equal(t, 2, progress.ToExpand)
}

func TestHarvestWorkflow_RetriedHarvestExpandsStoredArticles(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities

	env.OnActivity(harvestAct.HarvestIDs, mock.Anything, mock.Anything).Return(
		&activities.HarvestOutput{
			Created:        []string{"12"},
			AlreadyExisted: []string{"10", "12", "11"},
			Retried:        true,
		}, nil,
	)

	var expanded []string
	env.OnActivity(harvestAct.ExpandRelated, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.ExpandRelatedInput) (*activities.ExpandRelatedOutput, error) {
			expanded = append(expanded, in.PMID)
			return &activities.ExpandRelatedOutput{PMID: in.PMID, LinksCreated: 1}, nil
		},
	)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:     "harvest-retried",
		PMIDs:         []string{"10", "11", "12"},
		ExpandRelated: true,
		MaxRelated:    10,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result HarvestWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, []string{"12", "10", "11"}, expanded)
	assert.Equal(t, []string{"12", "10", "11"}, result.Expanded)
	assert.Equal(t, []string{"12"}, result.Created)
	assert.Equal(t, 3, result.LinksCreated)
}

func TestExpansionCandidates(t *testing.T) {
	out := activities.HarvestOutput{Created: []string{"1"}, AlreadyExisted: []string{"2"}}
	assert.Equal(t, []string{"1"}, expansionCandidates(out))

	out.Retried = true
	assert.Equal(t, []string{"1", "2"}, expansionCandidates(out))

	assert.Empty(t, expansionCandidates(activities.HarvestOutput{Retried: true}))
}

func TestHarvestWorkflow_ExpansionDisabledByZeroMax(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities

	env.OnActivity(harvestAct.HarvestIDs, mock.Anything, mock.Anything).Return(
		&activities.HarvestOutput{Created: []string{"10"}}, nil,
	)
	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:     "harvest-3",
		PMIDs:         []string{"10"},
		ExpandRelated: true,
		MaxRelated:    0,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result HarvestWorkflowResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Empty(t, result.Expanded)
}

func TestHarvestWorkflow_HarvestFailurePublishesFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities
	var eventAct *activities.EventActivities

	env.OnActivity(harvestAct.HarvestIDs, mock.Anything, mock.Anything).Return(
		nil, temporal.NewNonRetryableApplicationError("missing PMID", activities.ErrTypeStructural, nil),
	)

	var published []activities.PublishOutcomeInput
	env.OnActivity(eventAct.PublishOutcome, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.PublishOutcomeInput) error {
			published = append(published, in)
			return nil
		},
	)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:      "harvest-4",
		PMIDs:          []string{"1"},
		PublishOutcome: true,
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing PMID")

	require.Len(t, published, 1)
	assert.Contains(t, published[0].Error, "missing PMID")
	assert.Equal(t, domain.HarvestModeIDs, published[0].Mode)
}

func TestHarvestWorkflow_PublishFailureDoesNotFailHarvest(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities
	var eventAct *activities.EventActivities

	env.OnActivity(harvestAct.HarvestIDs, mock.Anything, mock.Anything).Return(
		&activities.HarvestOutput{Created: []string{"5"}}, nil,
	)
	env.OnActivity(eventAct.PublishOutcome, mock.Anything, mock.Anything).Return(
		temporal.NewNonRetryableApplicationError("broker down", "publish", nil),
	)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:      "harvest-5",
		PMIDs:          []string{"5"},
		PublishOutcome: true,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
}

func TestHarvestWorkflow_ExpansionFailure(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	var harvestAct *activities.HarvestActivities

	env.OnActivity(harvestAct.HarvestIDs, mock.Anything, mock.Anything).Return(
		&activities.HarvestOutput{Created: []string{"10"}}, nil,
	)
	env.OnActivity(harvestAct.ExpandRelated, mock.Anything, mock.Anything).Return(
		nil, temporal.NewNonRetryableApplicationError("article not found", activities.ErrTypeNotFound, nil),
	)

	env.ExecuteWorkflow(HarvestWorkflow, HarvestWorkflowInput{
		HarvestID:     "harvest-6",
		PMIDs:         []string{"10"},
		ExpandRelated: true,
		MaxRelated:    5,
	})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expand 10")
}

func TestDeduplicateStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, DeduplicateStrings([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, DeduplicateStrings(nil))
}
