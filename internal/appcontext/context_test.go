package appcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationId(t *testing.T) {
	ctx := WithCorrelationId(context.Background(), "c0ffee")

	valFromCtx, found := CorrelationIdFromContext(ctx)
	assert.True(t, found)
	assert.Equal(t, "c0ffee", valFromCtx)

	valFromCtx, found = CorrelationIdFromContext(context.Background())
	assert.False(t, found)
	assert.Equal(t, "", valFromCtx)

	_, found = CorrelationIdFromContext(WithCorrelationId(context.Background(), ""))
	assert.False(t, found)
}
