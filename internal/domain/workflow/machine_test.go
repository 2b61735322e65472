package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimLifecycle_HappyPath(t *testing.T) {
	m := ClaimLifecycle().Build(StateDraft)

	require.Equal(t, StateDraft, m.State())
	require.True(t, m.CanFire(TriggerSubmit))

	err := m.Fire(context.Background(), TriggerSubmit)
	require.NoError(t, err)
	assert.Equal(t, StatePending, m.State())

	err = m.Fire(context.Background(), TriggerValidate)
	require.NoError(t, err)
	assert.Equal(t, StateValidated, m.State())
	assert.True(t, m.State().IsTerminal())
}

func TestClaimLifecycle_Reject(t *testing.T) {
	m := ClaimLifecycle().Build(StatePending)

	err := m.Fire(context.Background(), TriggerReject)
	require.NoError(t, err)
	assert.Equal(t, StateRejected, m.State())
	assert.True(t, m.State().IsTerminal())
}

func TestClaimLifecycle_ForwardOnly(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
	}{
		{"no decision from draft", StateDraft, TriggerValidate},
		{"no reject from draft", StateDraft, TriggerReject},
		{"no resubmit from pending", StatePending, TriggerSubmit},
		{"validated is terminal", StateValidated, TriggerReject},
		{"rejected is terminal", StateRejected, TriggerValidate},
		{"no reopening", StateValidated, TriggerSubmit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ClaimLifecycle().Build(tt.from)

			assert.False(t, m.CanFire(tt.trigger))
			err := m.Fire(context.Background(), tt.trigger)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, m.State(), "failed fire must not move the state")
		})
	}
}

func TestClaimLifecycle_PermittedTriggers(t *testing.T) {
	m := ClaimLifecycle().Build(StatePending)
	triggers := m.PermittedTriggers()
	assert.ElementsMatch(t, []Trigger{TriggerValidate, TriggerReject}, triggers)

	m = ClaimLifecycle().Build(StateRejected)
	assert.Empty(t, m.PermittedTriggers())
}

func TestBuilder_GuardBlocksTransition(t *testing.T) {
	b := NewBuilder()
	b.Configure(StatePending).
		PermitIf(TriggerValidate, StateValidated, func(ctx context.Context) bool { return false })
	m := b.Build(StatePending)

	err := m.Fire(context.Background(), TriggerValidate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGuardFailed)
	assert.Equal(t, StatePending, m.State())
}

func TestBuilder_InvalidStatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder().Configure(State("limbo"))
	})
	assert.Panics(t, func() {
		NewBuilder().Build(State("limbo"))
	})
}
