package stock

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncPass_StateMachine(t *testing.T) {
	t.Run("live pass walks FETCHING to DONE via APPLYING", func(t *testing.T) {
		p := NewSyncPass(false)
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, PassStateFetching, p.State)

		require.NoError(t, p.Advance(PassStateReconciling))
		require.NoError(t, p.Advance(PassStateApplying))
		require.NoError(t, p.Advance(PassStateDone))
		assert.True(t, p.State.IsTerminal())
		require.NotNil(t, p.FinishedAt)
	})

	t.Run("read-only pass walks FETCHING to DONE via DRY_RUN_REPORT", func(t *testing.T) {
		p := NewSyncPass(true)
		require.NoError(t, p.Advance(PassStateReconciling))
		require.NoError(t, p.Advance(PassStateDryRunReport))
		require.NoError(t, p.Advance(PassStateDone))
	})

	t.Run("rejects skipping states", func(t *testing.T) {
		p := NewSyncPass(false)
		err := p.Advance(PassStateApplying)
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, PassStateFetching, p.State)
	})

	t.Run("rejects transitions out of a terminal state", func(t *testing.T) {
		p := NewSyncPass(false)
		p.Fail(errors.New("boom"))
		assert.ErrorIs(t, p.Advance(PassStateReconciling), ErrInvalidStateTransition)
	})
}

func TestSyncPass_Fail(t *testing.T) {
	p := NewSyncPass(false)
	require.NoError(t, p.Advance(PassStateReconciling))

	p.Fail(errors.New("snapshot store unavailable"))

	assert.Equal(t, PassStateError, p.State)
	assert.Equal(t, "snapshot store unavailable", p.ErrorMessage)
	require.NotNil(t, p.FinishedAt)

	// Failing again keeps the first error
	p.Fail(errors.New("other"))
	assert.Equal(t, "snapshot store unavailable", p.ErrorMessage)
}

func TestSyncPass_SkippedChannels(t *testing.T) {
	p := NewSyncPass(false)
	p.SkipChannelAuth(ChannelCodeLazada)
	p.SkipChannelTransient(ChannelCodeShopee)

	assert.Equal(t, []ChannelCode{ChannelCodeLazada}, p.SkippedAuth)
	assert.Equal(t, []ChannelCode{ChannelCodeShopee}, p.SkippedTransient)
}
