package miner

import (
	"github.com/proc-discovery/pkg/collections"
)

// TaskNode is one distinct activity with its thresholded causal
// neighbours. Neighbour sets hold activity names, not node references;
// the graph is the only owner of nodes.
type TaskNode struct {
	Name         string
	Predecessors *collections.OrderedSet
	Successors   *collections.OrderedSet
}

// TaskGraph is the additive registry of every activity ever observed,
// plus the causal edges of the most recent synthesis. Registration order
// is preserved so synthesis output is deterministic.
type TaskGraph struct {
	nodes map[string]*TaskNode
	order []string
}

// NewTaskGraph creates an empty graph.
func NewTaskGraph() *TaskGraph {
	return &TaskGraph{nodes: make(map[string]*TaskNode)}
}

// Register adds an activity if it is new. Activities are never removed:
// their directly-follows rows may age out of the sketches, but the
// registry grows monotonically with the number of distinct activities.
func (g *TaskGraph) Register(name string) *TaskNode {
	if node, exists := g.nodes[name]; exists {
		return node
	}
	node := &TaskNode{
		Name:         name,
		Predecessors: collections.NewOrderedSet(),
		Successors:   collections.NewOrderedSet(),
	}
	g.nodes[name] = node
	g.order = append(g.order, name)
	return node
}

// Node returns the node for an activity, or nil if it was never registered.
func (g *TaskGraph) Node(name string) *TaskNode {
	return g.nodes[name]
}

// Names returns all registered activities in registration order.
func (g *TaskGraph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of registered activities.
func (g *TaskGraph) Len() int {
	return len(g.order)
}

// ApplyMatrix rebuilds every node's predecessor and successor sets from
// the dependency matrix, admitting an edge a -> b when its score is at
// least threshold. The self-loop entry competes against the same
// threshold, so an activity can list itself on both sides.
func (g *TaskGraph) ApplyMatrix(matrix *Matrix, threshold float64) {
	for _, name := range g.order {
		node := g.nodes[name]
		node.Predecessors = collections.NewOrderedSet()
		node.Successors = collections.NewOrderedSet()
	}

	for _, pred := range g.order {
		for _, succ := range g.order {
			if matrix.Score(pred, succ) >= threshold {
				g.nodes[pred].Successors.Add(succ)
				g.nodes[succ].Predecessors.Add(pred)
			}
		}
	}
}

// Sources returns the activities with no predecessors, in registration
// order.
func (g *TaskGraph) Sources() []string {
	var out []string
	for _, name := range g.order {
		if g.nodes[name].Predecessors.Len() == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Sinks returns the activities with no successors, in registration order.
func (g *TaskGraph) Sinks() []string {
	var out []string
	for _, name := range g.order {
		if g.nodes[name].Successors.Len() == 0 {
			out = append(out, name)
		}
	}
	return out
}
