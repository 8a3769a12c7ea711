package petri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearNet builds start -> A -> p -> B -> end with one token on start.
func linearNet(t *testing.T) *Net {
	t.Helper()

	net := NewNet()
	require.NoError(t, net.AddTransition("A", 1))
	require.NoError(t, net.AddTransition("B", 2))
	require.NoError(t, net.AddPlace(3)) // between A and B
	require.NoError(t, net.AddPlace(4)) // start
	require.NoError(t, net.AddPlace(5)) // end

	require.NoError(t, net.AddEdge(1, 3))
	require.NoError(t, net.AddEdge(3, 2))
	require.NoError(t, net.AddEdge(4, 1))
	require.NoError(t, net.AddEdge(2, 5))
	require.NoError(t, net.AddMarking(4))
	return net
}

func TestNet_AddNodes(t *testing.T) {
	net := linearNet(t)

	assert.Equal(t, 5, net.Size())
	assert.Equal(t, 2, net.TransitionCount())
	assert.Equal(t, 3, net.PlaceCount())

	id, ok := net.TransitionID("A")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = net.TransitionID("missing")
	assert.False(t, ok)
}

func TestNet_DuplicateIDRejected(t *testing.T) {
	net := NewNet()
	require.NoError(t, net.AddPlace(1))
	assert.Error(t, net.AddPlace(1))
	assert.Error(t, net.AddTransition("A", 1))
}

func TestNet_DuplicateTransitionNameRejected(t *testing.T) {
	net := NewNet()
	require.NoError(t, net.AddTransition("A", 1))
	assert.Error(t, net.AddTransition("A", 2))
}

func TestNet_EdgeRequiresDifferentKinds(t *testing.T) {
	net := NewNet()
	require.NoError(t, net.AddPlace(1))
	require.NoError(t, net.AddPlace(2))
	require.NoError(t, net.AddTransition("A", 3))
	require.NoError(t, net.AddTransition("B", 4))

	assert.Error(t, net.AddEdge(1, 2), "place to place must be rejected")
	assert.Error(t, net.AddEdge(3, 4), "transition to transition must be rejected")
	assert.Error(t, net.AddEdge(1, 99), "unknown target must be rejected")
	assert.Error(t, net.AddEdge(99, 1), "unknown source must be rejected")
	assert.NoError(t, net.AddEdge(1, 3))
}

func TestNet_MarkingOnlyOnPlaces(t *testing.T) {
	net := NewNet()
	require.NoError(t, net.AddTransition("A", 1))
	require.NoError(t, net.AddPlace(2))

	assert.Error(t, net.AddMarking(1))
	assert.Error(t, net.AddMarking(99))
	require.NoError(t, net.AddMarking(2))
	require.NoError(t, net.AddMarking(2))
	assert.Equal(t, 2, net.Tokens(2))
}

func TestNet_IsEnabled(t *testing.T) {
	net := linearNet(t)

	aID, _ := net.TransitionID("A")
	bID, _ := net.TransitionID("B")

	assert.True(t, net.IsEnabled(aID), "start place is marked")
	assert.False(t, net.IsEnabled(bID), "intermediate place is empty")
	assert.False(t, net.IsEnabled(3), "places are never enabled")
	assert.False(t, net.IsEnabled(99))
}

func TestNet_FireTransition_MovesTokens(t *testing.T) {
	net := linearNet(t)
	aID, _ := net.TransitionID("A")
	bID, _ := net.TransitionID("B")

	missing, consumed, produced, err := net.FireTransition(aID)
	require.NoError(t, err)
	assert.Equal(t, 0, missing)
	assert.Equal(t, 1, consumed)
	assert.Equal(t, 1, produced)
	assert.Equal(t, 0, net.Tokens(4))
	assert.Equal(t, 1, net.Tokens(3))

	missing, consumed, produced, err = net.FireTransition(bID)
	require.NoError(t, err)
	assert.Equal(t, 0, missing)
	assert.Equal(t, 1, consumed)
	assert.Equal(t, 1, produced)
	assert.Equal(t, 1, net.Tokens(5))
}

func TestNet_FireTransition_CountsMissing(t *testing.T) {
	net := linearNet(t)
	bID, _ := net.TransitionID("B")

	// B's input place is empty: the firing records the shortage but
	// still produces downstream.
	missing, consumed, produced, err := net.FireTransition(bID)
	require.NoError(t, err)
	assert.Equal(t, 1, missing)
	assert.Equal(t, 1, consumed)
	assert.Equal(t, 1, produced)
	assert.Equal(t, 0, net.Tokens(3))
	assert.Equal(t, 1, net.Tokens(5))
}

func TestNet_FireTransition_Errors(t *testing.T) {
	net := linearNet(t)

	_, _, _, err := net.FireTransition(99)
	assert.Error(t, err)
	_, _, _, err = net.FireTransition(3)
	assert.Error(t, err, "firing a place is a programming error")
}

func TestNet_Clone_IsIndependent(t *testing.T) {
	net := linearNet(t)
	clone := net.Clone()

	aID, _ := net.TransitionID("A")
	_, _, _, err := clone.FireTransition(aID)
	require.NoError(t, err)

	assert.Equal(t, 1, net.Tokens(4), "original marking untouched")
	assert.Equal(t, 0, clone.Tokens(4))
	assert.Equal(t, net.Size(), clone.Size())
}
