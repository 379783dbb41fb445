package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/helixir/pubmed-harvester/internal/config"
	"github.com/helixir/pubmed-harvester/internal/domain"
)

func TestTemporalError(t *testing.T) {
	t.Run("Error includes all fields", func(t *testing.T) {
		err := &TemporalError{
			Op:         "StartWorkflow",
			Kind:       ErrWorkflowNotFound,
			WorkflowID: "wf-123",
			RunID:      "run-456",
			Err:        errors.New("underlying error"),
		}

		msg := err.Error()
		assert.Contains(t, msg, "StartWorkflow")
		assert.Contains(t, msg, "workflow not found")
		assert.Contains(t, msg, "wf-123")
		assert.Contains(t, msg, "run-456")
		assert.Contains(t, msg, "underlying error")
	})

	t.Run("Error without workflow IDs", func(t *testing.T) {
		err := &TemporalError{
			Op:   "Health",
			Kind: ErrConnectionFailed,
		}

		msg := err.Error()
		assert.Contains(t, msg, "Health")
		assert.Contains(t, msg, "connection failed")
		assert.NotContains(t, msg, "workflowID")
	})

	t.Run("Unwrap returns underlying error", func(t *testing.T) {
		underlying := errors.New("underlying")
		err := &TemporalError{
			Op:   "Test",
			Kind: ErrConnectionFailed,
			Err:  underlying,
		}

		assert.Equal(t, underlying, err.Unwrap())
	})

	t.Run("Is matches Kind", func(t *testing.T) {
		err := &TemporalError{
			Op:   "Test",
			Kind: ErrWorkflowNotFound,
		}

		assert.True(t, errors.Is(err, ErrWorkflowNotFound))
		assert.False(t, errors.Is(err, ErrConnectionFailed))
	})
}

func TestWrapTemporalError(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		result := wrapTemporalError("Test", nil, "", "")
		assert.Nil(t, result)
	})

	t.Run("wraps NotFound error", func(t *testing.T) {
		notFoundErr := serviceerror.NewNotFound("not found")
		result := wrapTemporalError("Test", notFoundErr, "wf-1", "run-1")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrWorkflowNotFound, te.Kind)
	})

	t.Run("wraps WorkflowExecutionAlreadyStarted error", func(t *testing.T) {
		alreadyStartedErr := serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "")
		result := wrapTemporalError("Test", alreadyStartedErr, "wf-1", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrWorkflowAlreadyStarted, te.Kind)
	})

	t.Run("wraps context.DeadlineExceeded", func(t *testing.T) {
		result := wrapTemporalError("Test", context.DeadlineExceeded, "", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrDeadlineExceeded, te.Kind)
	})

	t.Run("wraps context.Canceled", func(t *testing.T) {
		result := wrapTemporalError("Test", context.Canceled, "", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrClientClosed, te.Kind)
	})

	t.Run("wraps failed workflow execution", func(t *testing.T) {
		result := wrapTemporalError("GetHarvestResult", &sdktemporal.WorkflowExecutionError{}, "harvest-1", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, domain.ErrWorkflowFailed, te.Kind)
		assert.True(t, errors.Is(result, domain.ErrWorkflowFailed))
	})

	t.Run("wraps unknown error as connection failed", func(t *testing.T) {
		unknownErr := errors.New("unknown error")
		result := wrapTemporalError("Test", unknownErr, "", "")

		var te *TemporalError
		require.True(t, errors.As(result, &te))
		assert.Equal(t, ErrConnectionFailed, te.Kind)
	})
}

func TestErrorCheckers(t *testing.T) {
	t.Run("IsWorkflowNotFound", func(t *testing.T) {
		err := &TemporalError{Kind: ErrWorkflowNotFound}
		assert.True(t, IsWorkflowNotFound(err))
		assert.False(t, IsWorkflowNotFound(errors.New("other")))
	})

	t.Run("IsWorkflowAlreadyStarted", func(t *testing.T) {
		err := &TemporalError{Kind: ErrWorkflowAlreadyStarted}
		assert.True(t, IsWorkflowAlreadyStarted(err))
		assert.False(t, IsWorkflowAlreadyStarted(errors.New("other")))
	})

	t.Run("IsQueryFailed", func(t *testing.T) {
		err := &TemporalError{Kind: ErrQueryFailed}
		assert.True(t, IsQueryFailed(err))
		assert.False(t, IsQueryFailed(errors.New("other")))
	})

	t.Run("IsConnectionFailed", func(t *testing.T) {
		err := &TemporalError{Kind: ErrConnectionFailed}
		assert.True(t, IsConnectionFailed(err))
		assert.False(t, IsConnectionFailed(errors.New("other")))
	})
}

func TestTLSConfig(t *testing.T) {
	t.Run("returns nil when not enabled", func(t *testing.T) {
		cfg := &TLSConfig{Enabled: false}
		tlsCfg, err := cfg.buildTLSConfig()
		require.NoError(t, err)
		assert.Nil(t, tlsCfg)
	})

	t.Run("builds config with basic settings", func(t *testing.T) {
		cfg := &TLSConfig{
			Enabled:            true,
			ServerName:         "test.example.com",
			InsecureSkipVerify: true,
		}
		tlsCfg, err := cfg.buildTLSConfig()
		require.NoError(t, err)
		require.NotNil(t, tlsCfg)
		assert.Equal(t, "test.example.com", tlsCfg.ServerName)
		assert.True(t, tlsCfg.InsecureSkipVerify)
	})

	t.Run("errors on invalid cert path", func(t *testing.T) {
		cfg := &TLSConfig{
			Enabled:  true,
			CertPath: "/nonexistent/cert.pem",
			KeyPath:  "/nonexistent/key.pem",
		}
		_, err := cfg.buildTLSConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load client certificate")
	})

	t.Run("errors on invalid CA cert path", func(t *testing.T) {
		cfg := &TLSConfig{
			Enabled:    true,
			CACertPath: "/nonexistent/ca.pem",
		}
		_, err := cfg.buildTLSConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read CA certificate")
	})
}

func TestClientConfig(t *testing.T) {
	t.Run("stores all fields", func(t *testing.T) {
		cfg := ClientConfig{
			HostPort:  "localhost:7233",
			Namespace: "test-namespace",
			TaskQueue: "test-queue",
		}

		assert.Equal(t, "localhost:7233", cfg.HostPort)
		assert.Equal(t, "test-namespace", cfg.Namespace)
		assert.Equal(t, "test-queue", cfg.TaskQueue)
	})

	t.Run("built from service config", func(t *testing.T) {
		cfg := ClientConfigFromConfig(config.TemporalConfig{
			Enabled:   true,
			HostPort:  "temporal:7233",
			Namespace: "harvest",
			TaskQueue: "pubmed-harvest",
		})

		assert.Equal(t, "temporal:7233", cfg.HostPort)
		assert.Equal(t, "harvest", cfg.Namespace)
		assert.Equal(t, "pubmed-harvest", cfg.TaskQueue)
	})
}

func TestHarvestWorkflowInput_Mode(t *testing.T) {
	assert.Equal(t, domain.HarvestModeSearch, HarvestWorkflowInput{Query: "crispr"}.Mode())
	assert.Equal(t, domain.HarvestModeIDs, HarvestWorkflowInput{PMIDs: []string{"1"}}.Mode())
	assert.Equal(t, domain.HarvestModeSearch, HarvestWorkflowInput{Query: "crispr", PMIDs: []string{"1"}}.Mode())
}

func TestHarvestWorkflowClient_StartHarvestWorkflow(t *testing.T) {
	t.Run("starts workflow with harvest id as workflow id", func(t *testing.T) {
		mc := &mocks.Client{}
		run := &mocks.WorkflowRun{}
		run.On("GetRunID").Return("run-1")

		input := HarvestWorkflowInput{HarvestID: "harvest-abc", Query: "crispr"}
		mc.On("ExecuteWorkflow",
			mock.Anything,
			mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
				return opts.ID == "harvest-abc" &&
					opts.TaskQueue == "pubmed-harvest" &&
					opts.WorkflowExecutionTimeout == DefaultWorkflowExecutionTimeout &&
					opts.WorkflowIDReusePolicy == enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY
			}),
			HarvestWorkflowName,
			input,
		).Return(run, nil)

		hc := NewHarvestWorkflowClient(mc, "pubmed-harvest")
		workflowID, runID, err := hc.StartHarvestWorkflow(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "harvest-abc", workflowID)
		assert.Equal(t, "run-1", runID)
		mc.AssertExpectations(t)
	})

	t.Run("already started maps to sentinel", func(t *testing.T) {
		mc := &mocks.Client{}
		mc.On("ExecuteWorkflow", mock.Anything, mock.Anything, HarvestWorkflowName, mock.Anything).
			Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("started", "", ""))

		hc := NewHarvestWorkflowClient(mc, "q")
		_, _, err := hc.StartHarvestWorkflow(context.Background(), HarvestWorkflowInput{HarvestID: "harvest-1"})
		require.Error(t, err)
		assert.True(t, IsWorkflowAlreadyStarted(err))
	})

	t.Run("requires harvest id", func(t *testing.T) {
		hc := NewHarvestWorkflowClient(&mocks.Client{}, "q")
		_, _, err := hc.StartHarvestWorkflow(context.Background(), HarvestWorkflowInput{Query: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
}

func TestHarvestWorkflowClient_Closed(t *testing.T) {
	hc := &HarvestWorkflowClient{closed: true}
	ctx := context.Background()

	err := hc.Health(ctx)
	assert.True(t, errors.Is(err, ErrClientClosed))

	_, _, err = hc.StartHarvestWorkflow(ctx, HarvestWorkflowInput{HarvestID: "harvest-1"})
	assert.True(t, errors.Is(err, ErrClientClosed))

	_, err = hc.GetHarvestResult(ctx, "wf-1", "run-1")
	assert.True(t, errors.Is(err, ErrClientClosed))

	_, err = hc.DescribeWorkflow(ctx, "wf-1", "run-1")
	assert.True(t, errors.Is(err, ErrClientClosed))

	_, err = hc.QueryProgress(ctx, "wf-1", "run-1")
	assert.True(t, errors.Is(err, ErrClientClosed))
}

func TestHarvestWorkflowClient_Close(t *testing.T) {
	mc := &mocks.Client{}
	mc.On("Close").Return().Once()

	hc := NewHarvestWorkflowClient(mc, "q")
	hc.Close()
	hc.Close()

	mc.AssertNumberOfCalls(t, "Close", 1)
	assert.True(t, hc.isClosed())
}

func TestHarvestWorkflowClient_GetHarvestResult(t *testing.T) {
	mc := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("Get", mock.Anything, mock.AnythingOfType("*temporal.HarvestWorkflowResult")).
		Run(func(args mock.Arguments) {
			res := args.Get(1).(*HarvestWorkflowResult)
			res.HarvestID = "harvest-1"
			res.Created = []string{"10", "11"}
		}).
		Return(nil)
	mc.On("GetWorkflow", mock.Anything, "harvest-1", "").Return(run)

	hc := NewHarvestWorkflowClient(mc, "q")
	res, err := hc.GetHarvestResult(context.Background(), "harvest-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11"}, res.Created)

	failed := &mocks.WorkflowRun{}
	failed.On("Get", mock.Anything, mock.Anything).Return(&sdktemporal.WorkflowExecutionError{})
	mc.On("GetWorkflow", mock.Anything, "harvest-2", "").Return(failed)

	_, err = hc.GetHarvestResult(context.Background(), "harvest-2", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWorkflowFailed))
}

func TestHarvestWorkflowClient_Health(t *testing.T) {
	mc := &mocks.Client{}
	mc.On("CheckHealth", mock.Anything, mock.Anything).
		Return(nil, serviceerror.NewUnavailable("down"))

	hc := NewHarvestWorkflowClientWithConfig(mc, ClientConfig{TaskQueue: "q"})
	err := hc.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionFailed(err))
	assert.Equal(t, "q", hc.TaskQueue())
}
