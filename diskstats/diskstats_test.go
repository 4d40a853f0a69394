package diskstats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLevelAccess_StartsAtZero(t *testing.T) {
	l := NewLevelAccess(3)
	require.Equal(t, 3, l.Height())
	for lvl := 0; lvl < 3; lvl++ {
		require.Equal(t, uint64(0), l.NumberOfNodes(lvl))
	}
}

func TestAddNodeAndEntry_AccumulatePerLevel(t *testing.T) {
	l := NewLevelAccess(2)
	l.AddNode(0)
	l.AddNode(0)
	l.AddNode(1)
	require.Equal(t, uint64(2), l.NumberOfNodes(0))
	require.Equal(t, uint64(1), l.NumberOfNodes(1))

	l.AddEntry(4.0, 0)
	l.AddEntry(6.0, 0)
	l.Summarize()
	require.Equal(t, 5.0, l.AverageRadius(0))
	require.Equal(t, 0.0, l.AverageRadius(1))
}

func TestAddNodeAndEntry_OutOfRangeLevelIsNoop(t *testing.T) {
	l := NewLevelAccess(1)
	l.AddNode(5)
	l.AddEntry(1.0, -1)
	require.Equal(t, uint64(0), l.NumberOfNodes(0))
	require.Equal(t, 0.0, l.AverageRadius(5))
}

func TestGrow_ExtendsWithoutResettingExisting(t *testing.T) {
	l := NewLevelAccess(1)
	l.AddNode(0)
	l.Grow(3)
	require.Equal(t, 3, l.Height())
	require.Equal(t, uint64(1), l.NumberOfNodes(0))
	require.Equal(t, uint64(0), l.NumberOfNodes(2))
}

func TestGrow_NoopWhenNotLarger(t *testing.T) {
	l := NewLevelAccess(3)
	l.Grow(2)
	require.Equal(t, 3, l.Height())
}

func TestReset_ZeroesAllCountersPreservingHeight(t *testing.T) {
	l := NewLevelAccess(2)
	l.AddNode(0)
	l.AddEntry(3.0, 1)
	l.Reset()
	require.Equal(t, 2, l.Height())
	require.Equal(t, uint64(0), l.NumberOfNodes(0))
	require.Equal(t, 0.0, l.AverageRadius(1))
}
