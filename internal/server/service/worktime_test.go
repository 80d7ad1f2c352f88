package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkTimeService_AddTime(t *testing.T) {
	ctx := context.Background()
	svc := NewWorkTimeService(newFakeRepo())

	total, err := svc.AddTime(ctx, "alice", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), total)

	total, err = svc.AddTime(ctx, "alice", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(90), total)

	total, err = svc.AddTime(ctx, "bob", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	for _, bad := range []int64{0, -10} {
		_, err := svc.AddTime(ctx, "alice", bad)
		assert.ErrorIs(t, err, ErrInvalidSeconds)
	}
}
