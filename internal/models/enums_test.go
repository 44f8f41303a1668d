package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnumRejectsUnknownValues(t *testing.T) {
	got, err := ParseEnum("medium", RiskLow, RiskMedium, RiskHigh, RiskExtreme)
	require.NoError(t, err)
	require.Equal(t, RiskMedium, got)

	_, err = ParseEnum("apocalyptic", RiskLow, RiskMedium, RiskHigh, RiskExtreme)
	require.Error(t, err)
	require.Contains(t, err.Error(), "apocalyptic")
}

func TestOrderStatusTerminal(t *testing.T) {
	require.False(t, OrderStatusOpen.Terminal())
	require.False(t, OrderStatusInProgress.Terminal())
	require.True(t, OrderStatusCompleted.Terminal())
	require.True(t, OrderStatusCancelled.Terminal())
	require.True(t, OrderStatusExpired.Terminal())
}

func TestEscrowStateMonotonicity(t *testing.T) {
	require.True(t, EscrowPendingLock.CanTransitionTo(EscrowLocked))
	require.True(t, EscrowPendingLock.CanTransitionTo(EscrowRefunded))
	require.True(t, EscrowLocked.CanTransitionTo(EscrowReleased))
	require.True(t, EscrowLocked.CanTransitionTo(EscrowRefunded))

	require.False(t, EscrowLocked.CanTransitionTo(EscrowPendingLock))
	require.False(t, EscrowReleased.CanTransitionTo(EscrowRefunded))
	require.False(t, EscrowRefunded.CanTransitionTo(EscrowReleased))
}
