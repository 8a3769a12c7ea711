package miner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/pkg/errors"
	"github.com/proc-discovery/pkg/model"
)

// minerParams builds MinerParams for tests.
func minerParams(epsilon, depend, xor float64) model.MinerParams {
	return model.MinerParams{
		ErrorEpsilon:    epsilon,
		DependThreshold: depend,
		XorThreshold:    xor,
	}
}

// eventFor builds one event.
func eventFor(caseID, activity string) model.Event {
	return model.NewEvent(caseID, activity)
}

// ingestLog expands compact (trace, frequency) entries and feeds them in.
func ingestLog(t *testing.T, m *Miner, entries []model.LogEntry) {
	t.Helper()
	m.IngestAll(model.ExpandLog(entries))
}

// placeBetween returns the ids of places lying between the two named
// transitions, i.e. places that are a successor of from and a
// predecessor of to.
func placeBetween(t *testing.T, net *petri.Net, from, to string) []int {
	t.Helper()

	fromID, ok := net.TransitionID(from)
	require.True(t, ok, "transition %s missing", from)
	toID, ok := net.TransitionID(to)
	require.True(t, ok, "transition %s missing", to)

	var places []int
	for succID := range net.Node(fromID).Successors {
		place := net.Node(succID)
		require.Equal(t, petri.KindPlace, place.Kind)
		if _, leads := place.Successors[toID]; leads {
			places = append(places, succID)
		}
	}
	return places
}

// startPlace returns the single marked place, failing unless exactly one
// exists.
func startPlace(t *testing.T, net *petri.Net) *petri.Node {
	t.Helper()

	var marked []*petri.Node
	for _, id := range net.NodeIDs() {
		node := net.Node(id)
		if node.Kind == petri.KindPlace && node.Tokens > 0 {
			marked = append(marked, node)
		}
	}
	require.Len(t, marked, 1, "expected exactly one marked place")
	assert.Equal(t, 1, marked[0].Tokens)
	return marked[0]
}

func TestNew_RejectsBadParams(t *testing.T) {
	cases := []struct {
		name   string
		params model.MinerParams
	}{
		{"zero epsilon", minerParams(0, 0.9, 0.8)},
		{"negative epsilon", minerParams(-0.1, 0.9, 0.8)},
		{"epsilon above one", minerParams(1.5, 0.9, 0.8)},
		{"depend below zero", minerParams(0.01, -0.1, 0.8)},
		{"depend above one", minerParams(0.01, 1.1, 0.8)},
		{"xor above one", minerParams(0.01, 0.9, 1.1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.params)
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigError, errors.GetErrorCode(err))
		})
	}
}

func TestSynthesize_EmptyInput(t *testing.T) {
	m, err := New(minerParams(0.001, 0.5, 0.8))
	require.NoError(t, err)

	net, err := m.Synthesize()
	require.NoError(t, err)
	assert.Equal(t, 0, net.Size())
}

func TestSynthesize_SingleLinearTrace(t *testing.T) {
	m, err := New(minerParams(0.001, 0.5, 0.8))
	require.NoError(t, err)

	for _, activity := range []string{"A", "B", "C"} {
		m.Ingest(eventFor("1", activity))
	}

	net, err := m.Synthesize()
	require.NoError(t, err)

	assert.Equal(t, 3, net.TransitionCount())
	// Two relation places plus start and end.
	assert.Equal(t, 4, net.PlaceCount())

	assert.Len(t, placeBetween(t, net, "A", "B"), 1)
	assert.Len(t, placeBetween(t, net, "B", "C"), 1)

	// Start place feeds A; C feeds the end place.
	start := startPlace(t, net)
	aID, _ := net.TransitionID("A")
	_, feedsA := start.Successors[aID]
	assert.True(t, feedsA)

	cID, _ := net.TransitionID("C")
	cNode := net.Node(cID)
	require.Len(t, cNode.Successors, 1)
	for endID := range cNode.Successors {
		end := net.Node(endID)
		assert.Equal(t, petri.KindPlace, end.Kind)
		assert.Empty(t, end.Successors)
		assert.Equal(t, 0, end.Tokens)
	}
}

func TestSynthesize_ParallelBranch(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9605, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 3000},
		{Trace: "ACBD", Frequency: 2000},
	})

	net, err := m.Synthesize()
	require.NoError(t, err)

	// B and C run concurrently: the XOR predicate must refuse to merge
	// them, leaving separate places on both the split and join sides.
	assert.Len(t, placeBetween(t, net, "A", "B"), 1)
	assert.Len(t, placeBetween(t, net, "A", "C"), 1)
	assert.Len(t, placeBetween(t, net, "B", "D"), 1)
	assert.Len(t, placeBetween(t, net, "C", "D"), 1)

	abPlace := placeBetween(t, net, "A", "B")[0]
	acPlace := placeBetween(t, net, "A", "C")[0]
	assert.NotEqual(t, abPlace, acPlace, "parallel branches must not share a place")

	// 4 relation places + start + end.
	assert.Equal(t, 6, net.PlaceCount())
	assert.Equal(t, 4, net.TransitionCount())
}

func TestSynthesize_XorSplit(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 3000},
		{Trace: "AED", Frequency: 2000},
	})

	net, err := m.Synthesize()
	require.NoError(t, err)

	// B and E never follow each other, so the choice after A is an XOR
	// split: one shared place feeds both.
	abPlaces := placeBetween(t, net, "A", "B")
	aePlaces := placeBetween(t, net, "A", "E")
	require.Len(t, abPlaces, 1)
	require.Len(t, aePlaces, 1)
	assert.Equal(t, abPlaces[0], aePlaces[0], "XOR alternatives must share one place")

	// C and E merge into D through one XOR join place.
	cdPlaces := placeBetween(t, net, "C", "D")
	edPlaces := placeBetween(t, net, "E", "D")
	require.Len(t, cdPlaces, 1)
	require.Len(t, edPlaces, 1)
	assert.Equal(t, cdPlaces[0], edPlaces[0])

	// Relations: A->(B|E), B->C, (C|E)->D, plus start and end places.
	assert.Equal(t, 5, net.PlaceCount())
}

func TestSynthesize_MixedXorAndParallel(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9605, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 3000},
		{Trace: "ACBD", Frequency: 2000},
		{Trace: "AED", Frequency: 2000},
	})

	net, err := m.Synthesize()
	require.NoError(t, err)

	// B and C stay parallel; E is XOR-compatible with each of them, so
	// it joins both split places.
	abPlaces := placeBetween(t, net, "A", "B")
	acPlaces := placeBetween(t, net, "A", "C")
	aePlaces := placeBetween(t, net, "A", "E")
	require.Len(t, abPlaces, 1)
	require.Len(t, acPlaces, 1)
	require.Len(t, aePlaces, 2, "E shares a place with each parallel branch")
	assert.NotEqual(t, abPlaces[0], acPlaces[0])
	assert.ElementsMatch(t, aePlaces, []int{abPlaces[0], acPlaces[0]})

	// Join side mirrors the split: {B,E}->D and {C,E}->D.
	bdPlaces := placeBetween(t, net, "B", "D")
	cdPlaces := placeBetween(t, net, "C", "D")
	edPlaces := placeBetween(t, net, "E", "D")
	require.Len(t, bdPlaces, 1)
	require.Len(t, cdPlaces, 1)
	require.Len(t, edPlaces, 2)
	assert.ElementsMatch(t, edPlaces, []int{bdPlaces[0], cdPlaces[0]})
}

func TestSynthesize_ShortLoop(t *testing.T) {
	m, err := New(minerParams(0.001, 0.5, 0.8))
	require.NoError(t, err)

	for _, activity := range []string{"A", "D", "D", "D", "E"} {
		m.Ingest(eventFor("1", activity))
	}

	// Self-loop score for D is 2/(2+1), which clears the 0.5 threshold.
	net, err := m.Synthesize()
	require.NoError(t, err)

	ddPlaces := placeBetween(t, net, "D", "D")
	require.NotEmpty(t, ddPlaces, "short loop D->D must materialise a place")

	// D lists itself on both sides of the graph.
	node := m.Graph().Node("D")
	assert.True(t, node.Successors.Contains("D"))
	assert.True(t, node.Predecessors.Contains("D"))
}

func TestSynthesize_TransitionBijection(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 10},
		{Trace: "AED", Frequency: 10},
	})

	net, err := m.Synthesize()
	require.NoError(t, err)

	activities := m.Graph().Names()
	assert.Equal(t, len(activities), net.TransitionCount())

	seen := make(map[int]bool)
	for _, name := range activities {
		id, ok := net.TransitionID(name)
		require.True(t, ok, "activity %s has no transition", name)
		assert.False(t, seen[id], "transition id %d mapped twice", id)
		seen[id] = true
	}
}

func TestSynthesize_BipartiteInvariant(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9605, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 3000},
		{Trace: "ACBD", Frequency: 2000},
		{Trace: "AED", Frequency: 2000},
	})

	net, err := m.Synthesize()
	require.NoError(t, err)

	for _, id := range net.NodeIDs() {
		node := net.Node(id)
		for succID := range node.Successors {
			assert.NotEqual(t, node.Kind, net.Node(succID).Kind,
				"edge %d -> %d connects same-kind nodes", id, succID)
		}
	}
}

func TestSynthesize_RelationSaturation(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 3000},
		{Trace: "AED", Frequency: 2000},
	})

	_, err = m.Synthesize()
	require.NoError(t, err)

	// Re-running extension over the saturated graph must find nothing.
	relations := InitialRelations(m.Graph())
	relations.ExtendAll(m.Graph(), m.Frequency, 0.8)
	relations.Dedup()
	assert.False(t, relations.ExtendOne(m.Graph(), m.Frequency, 0.8))
}

func TestSynthesize_IsRepeatable(t *testing.T) {
	m, err := New(minerParams(2e-9, 0.9, 0.8))
	require.NoError(t, err)

	ingestLog(t, m, []model.LogEntry{
		{Trace: "ABCD", Frequency: 100},
		{Trace: "AED", Frequency: 100},
	})

	first, err := m.Synthesize()
	require.NoError(t, err)
	second, err := m.Synthesize()
	require.NoError(t, err)

	firstJSON, err := first.GenerateJSON()
	require.NoError(t, err)
	secondJSON, err := second.GenerateJSON()
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON, "synthesis must be deterministic for one stream")
}
