package miner

import (
	"github.com/proc-discovery/pkg/collections"
)

// Relation is one split/join group: when some predecessor fires, exactly
// one successor fires next, and symmetrically on the join side. Both
// sides hold activity names.
type Relation struct {
	Predecessors *collections.OrderedSet
	Successors   *collections.OrderedSet
}

// RelationList is the working list of split/join relations during
// synthesis.
type RelationList struct {
	relations []*Relation
}

// InitialRelations seeds the list with a singleton relation ({p}, {s})
// for every causal edge p -> s of the graph, in registration order.
func InitialRelations(graph *TaskGraph) *RelationList {
	list := &RelationList{}
	for _, pred := range graph.Names() {
		for _, succ := range graph.Node(pred).Successors.Items() {
			list.relations = append(list.relations, &Relation{
				Predecessors: collections.NewOrderedSet(pred),
				Successors:   collections.NewOrderedSet(succ),
			})
		}
	}
	return list
}

// Relations returns the current relations.
func (l *RelationList) Relations() []*Relation {
	return l.relations
}

// Len returns the number of relations.
func (l *RelationList) Len() int {
	return len(l.relations)
}

// succCandidateValid checks whether adding candidate to the successor
// side keeps every (existing successor, candidate) pair XOR-compatible
// against every predecessor.
func succCandidateValid(rel *Relation, candidate string, freq FrequencyFunc, threshold float64) bool {
	for _, pred := range rel.Predecessors.Items() {
		for _, succ := range rel.Successors.Items() {
			ratio := float64(freq(succ, candidate)+freq(candidate, succ)) /
				float64(freq(pred, succ)+freq(pred, candidate)+1)
			if ratio >= threshold {
				return false
			}
		}
	}
	return true
}

// predCandidateValid checks whether adding candidate to the predecessor
// side keeps every (existing predecessor, candidate) pair XOR-compatible
// against every successor.
func predCandidateValid(rel *Relation, candidate string, freq FrequencyFunc, threshold float64) bool {
	for _, pred := range rel.Predecessors.Items() {
		for _, succ := range rel.Successors.Items() {
			ratio := float64(freq(pred, candidate)+freq(candidate, pred)) /
				float64(freq(pred, succ)+freq(candidate, succ)+1)
			if ratio >= threshold {
				return false
			}
		}
	}
	return true
}

// commonSuccessors intersects the successor sets of every predecessor of
// the relation and removes the successors already present.
func commonSuccessors(rel *Relation, graph *TaskGraph) *collections.OrderedSet {
	var common *collections.OrderedSet
	for _, pred := range rel.Predecessors.Items() {
		succs := graph.Node(pred).Successors
		if common == nil {
			common = succs.Clone()
		} else {
			common = common.Intersect(succs)
		}
	}
	if common == nil {
		return collections.NewOrderedSet()
	}
	return common.Difference(rel.Successors)
}

// commonPredecessors intersects the predecessor sets of every successor
// of the relation and removes the predecessors already present.
func commonPredecessors(rel *Relation, graph *TaskGraph) *collections.OrderedSet {
	var common *collections.OrderedSet
	for _, succ := range rel.Successors.Items() {
		preds := graph.Node(succ).Predecessors
		if common == nil {
			common = preds.Clone()
		} else {
			common = common.Intersect(preds)
		}
	}
	if common == nil {
		return collections.NewOrderedSet()
	}
	return common.Difference(rel.Predecessors)
}

// ExtendOne makes a single pass over the relations looking for one
// improvement: a shared successor candidate that stays XOR-compatible, or
// failing that a shared predecessor candidate. The first accepted
// candidate is inserted in place and the pass stops. The mutate-and-
// restart shape keeps iteration over the mutating list safe; candidate
// order follows set insertion order, so a given stream always extends the
// same way.
func (l *RelationList) ExtendOne(graph *TaskGraph, freq FrequencyFunc, threshold float64) bool {
	for _, rel := range l.relations {
		for _, candidate := range commonSuccessors(rel, graph).Items() {
			if succCandidateValid(rel, candidate, freq, threshold) {
				rel.Successors.Add(candidate)
				return true
			}
		}
		for _, candidate := range commonPredecessors(rel, graph).Items() {
			if predCandidateValid(rel, candidate, freq, threshold) {
				rel.Predecessors.Add(candidate)
				return true
			}
		}
	}
	return false
}

// ExtendAll repeats ExtendOne until no pass reports a change. Each
// extension strictly grows the combined cardinality of some relation, so
// the loop terminates.
func (l *RelationList) ExtendAll(graph *TaskGraph, freq FrequencyFunc, threshold float64) int {
	extensions := 0
	for l.ExtendOne(graph, freq, threshold) {
		extensions++
	}
	return extensions
}

// Dedup removes exact structural duplicates (same predecessor and same
// successor sets) until none remain, keeping the earliest occurrence.
func (l *RelationList) Dedup() {
	for {
		removed := false
		for i := 0; i < len(l.relations) && !removed; i++ {
			for j := 0; j < len(l.relations); j++ {
				if i == j {
					continue
				}
				if l.relations[i].Predecessors.Equal(l.relations[j].Predecessors) &&
					l.relations[i].Successors.Equal(l.relations[j].Successors) {
					l.relations = append(l.relations[:j], l.relations[j+1:]...)
					removed = true
					break
				}
			}
		}
		if !removed {
			return
		}
	}
}
