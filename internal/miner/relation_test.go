package miner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proc-discovery/pkg/collections"
)

// xorGraph builds a graph where A splits into B and E, which never
// follow each other.
func xorGraph(t *testing.T) (*TaskGraph, FrequencyFunc) {
	t.Helper()

	counts := map[[2]string]int64{
		{"A", "B"}: 30,
		{"A", "E"}: 20,
	}
	graph := NewTaskGraph()
	for _, name := range []string{"A", "B", "E"} {
		graph.Register(name)
	}
	freq := freqFromMap(counts)
	graph.ApplyMatrix(BuildMatrix(graph.Names(), freq), 0.9)
	return graph, freq
}

func TestInitialRelations_SingletonPerEdge(t *testing.T) {
	graph, _ := xorGraph(t)

	relations := InitialRelations(graph)
	require.Equal(t, 2, relations.Len())

	first := relations.Relations()[0]
	assert.Equal(t, []string{"A"}, first.Predecessors.Items())
	assert.Equal(t, []string{"B"}, first.Successors.Items())
}

func TestExtendOne_MergesXorAlternatives(t *testing.T) {
	graph, freq := xorGraph(t)
	relations := InitialRelations(graph)

	extended := relations.ExtendOne(graph, freq, 0.8)
	require.True(t, extended)

	first := relations.Relations()[0]
	assert.ElementsMatch(t, []string{"B", "E"}, first.Successors.Items())
}

func TestExtendOne_RespectsXorThreshold(t *testing.T) {
	// B and E follow each other often, so they are not alternatives.
	counts := map[[2]string]int64{
		{"A", "B"}: 30,
		{"A", "E"}: 20,
		{"B", "E"}: 30,
		{"E", "B"}: 20,
	}
	graph := NewTaskGraph()
	for _, name := range []string{"A", "B", "E"} {
		graph.Register(name)
	}
	freq := freqFromMap(counts)
	graph.ApplyMatrix(BuildMatrix(graph.Names(), freq), 0.55)

	relations := InitialRelations(graph)
	before := relations.Len()
	relations.ExtendAll(graph, freq, 0.3)
	relations.Dedup()

	// Nothing merged under the tight threshold: every relation is still
	// a singleton pair.
	assert.Equal(t, before, relations.Len())
	for _, rel := range relations.Relations() {
		assert.Equal(t, 1, rel.Predecessors.Len())
		assert.Equal(t, 1, rel.Successors.Len())
	}
}

func TestDedup_RemovesStructuralDuplicates(t *testing.T) {
	list := &RelationList{}
	mk := func(preds, succs []string) *Relation {
		return &Relation{
			Predecessors: collections.NewOrderedSet(preds...),
			Successors:   collections.NewOrderedSet(succs...),
		}
	}
	list.relations = []*Relation{
		mk([]string{"A"}, []string{"B", "E"}),
		mk([]string{"B"}, []string{"C"}),
		mk([]string{"A"}, []string{"E", "B"}), // same sets, different order
		mk([]string{"A"}, []string{"B", "E"}), // exact duplicate
	}

	list.Dedup()
	require.Equal(t, 2, list.Len())
	assert.ElementsMatch(t, []string{"B", "E"}, list.Relations()[0].Successors.Items())
	assert.Equal(t, []string{"C"}, list.Relations()[1].Successors.Items())
}

func TestExtendAll_Terminates(t *testing.T) {
	graph, freq := xorGraph(t)
	relations := InitialRelations(graph)

	extensions := relations.ExtendAll(graph, freq, 0.8)
	assert.Positive(t, extensions)

	// Combined cardinality is bounded, so a second run finds nothing.
	assert.Zero(t, relations.ExtendAll(graph, freq, 0.8))
}
