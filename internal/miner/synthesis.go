package miner

import (
	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/pkg/errors"
)

// idGenerator allocates dense positive node ids for one synthesis pass.
type idGenerator struct {
	index int
}

func (g *idGenerator) next() int {
	g.index++
	return g.index
}

// Synthesize runs the full pipeline over a task graph and a frequency
// source: build the dependency matrix, threshold it into causal edges,
// grow split/join relations under the XOR predicate until saturation,
// drop structural duplicates, and materialise the Petri net.
//
// The graph's predecessor/successor sets are rebuilt as a side effect;
// the frequency source is read only.
func Synthesize(graph *TaskGraph, freq FrequencyFunc, dependThreshold, xorThreshold float64) (*petri.Net, error) {
	matrix := BuildMatrix(graph.Names(), freq)
	graph.ApplyMatrix(matrix, dependThreshold)

	relations := InitialRelations(graph)
	relations.ExtendAll(graph, freq, xorThreshold)
	relations.Dedup()

	return materialise(graph, relations)
}

// materialise emits the net: one transition per registered activity, one
// place per relation, and the start/end places when the graph has source
// or sink activities.
func materialise(graph *TaskGraph, relations *RelationList) (*petri.Net, error) {
	net := petri.NewNet()
	ids := &idGenerator{}

	for _, name := range graph.Names() {
		if err := net.AddTransition(name, ids.next()); err != nil {
			return nil, errors.Wrap(errors.CodeUnknownActivity, "emit transition", err)
		}
	}

	link := func(sourceID, targetID int) error {
		if err := net.AddEdge(sourceID, targetID); err != nil {
			return errors.Wrap(errors.CodeUnknownActivity, "emit edge", err)
		}
		return nil
	}

	transitionID := func(name string) (int, error) {
		id, ok := net.TransitionID(name)
		if !ok {
			return 0, errors.Newf(errors.CodeUnknownActivity, "relation references unregistered activity %q", name)
		}
		return id, nil
	}

	for _, rel := range relations.Relations() {
		placeID := ids.next()
		if err := net.AddPlace(placeID); err != nil {
			return nil, errors.Wrap(errors.CodeUnknownActivity, "emit place", err)
		}
		for _, pred := range rel.Predecessors.Items() {
			id, err := transitionID(pred)
			if err != nil {
				return nil, err
			}
			if err := link(id, placeID); err != nil {
				return nil, err
			}
		}
		for _, succ := range rel.Successors.Items() {
			id, err := transitionID(succ)
			if err != nil {
				return nil, err
			}
			if err := link(placeID, id); err != nil {
				return nil, err
			}
		}
	}

	if sources := graph.Sources(); len(sources) > 0 {
		startID := ids.next()
		if err := net.AddPlace(startID); err != nil {
			return nil, errors.Wrap(errors.CodeUnknownActivity, "emit start place", err)
		}
		if err := net.AddMarking(startID); err != nil {
			return nil, errors.Wrap(errors.CodeUnknownActivity, "mark start place", err)
		}
		for _, name := range sources {
			id, err := transitionID(name)
			if err != nil {
				return nil, err
			}
			if err := link(startID, id); err != nil {
				return nil, err
			}
		}
	}

	if sinks := graph.Sinks(); len(sinks) > 0 {
		endID := ids.next()
		if err := net.AddPlace(endID); err != nil {
			return nil, errors.Wrap(errors.CodeUnknownActivity, "emit end place", err)
		}
		for _, name := range sinks {
			id, err := transitionID(name)
			if err != nil {
				return nil, err
			}
			if err := link(id, endID); err != nil {
				return nil, err
			}
		}
	}

	return net, nil
}
