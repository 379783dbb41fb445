package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-123")
		assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		assert.Equal(t, "", RequestIDFromContext(context.Background()))
	})
}

func TestHarvestIDContext(t *testing.T) {
	ctx := WithHarvestID(context.Background(), "h-1")
	assert.Equal(t, "h-1", HarvestIDFromContext(ctx))
	assert.Equal(t, "", HarvestIDFromContext(context.Background()))
}

func TestWorkflowContext(t *testing.T) {
	ctx := WithWorkflow(context.Background(), "harvest-abc", "run-1")

	wfID, runID := WorkflowFromContext(ctx)
	assert.Equal(t, "harvest-abc", wfID)
	assert.Equal(t, "run-1", runID)
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithHarvestID(ctx, "h-1")
	ctx = WithWorkflow(ctx, "wf-1", "run-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "h-1", HarvestIDFromContext(ctx))
	wfID, _ := WorkflowFromContext(ctx)
	assert.Equal(t, "wf-1", wfID)
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithRequestID(context.Background(), "first")
	ctx = WithRequestID(ctx, "second")
	assert.Equal(t, "second", RequestIDFromContext(ctx))
}

func TestNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is handled
	assert.Equal(t, "", RequestIDFromContext(nil))
}
