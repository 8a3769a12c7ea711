// Package replay evaluates a discovered Petri net against a finished log
// using token replay.
package replay

import (
	"fmt"

	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/pkg/model"
)

// Fitness replays every trace of the log on a fresh copy of the net and
// returns 0.5*(1 - missing/consumed) + 0.5*(1 - remaining/produced).
// A transition is fired for each event whether or not it is enabled;
// shortfalls are counted as missing tokens, which is what penalises
// behaviour the model cannot explain.
func Fitness(net *petri.Net, traces []model.Trace) (float64, error) {
	var missing, remaining, consumed, produced float64

	for _, trace := range traces {
		replayNet := net.Clone()

		produced += float64(remainingTokens(replayNet))

		for _, activity := range trace.Activities {
			transitionID, ok := replayNet.TransitionID(activity)
			if !ok {
				return 0, fmt.Errorf("trace %s references activity %q missing from the net", trace.CaseID, activity)
			}
			m, c, p, err := replayNet.FireTransition(transitionID)
			if err != nil {
				return 0, err
			}
			missing += float64(m)
			consumed += float64(c)
			produced += float64(p)
		}

		m, c := consumeEndTokens(replayNet)
		missing += float64(m)
		consumed += float64(c)
		remaining += float64(remainingTokens(replayNet))
	}

	if consumed == 0 || produced == 0 {
		return 0, fmt.Errorf("net produced no token flow over %d traces", len(traces))
	}

	return 0.5*(1-missing/consumed) + 0.5*(1-remaining/produced), nil
}

// remainingTokens sums the tokens left on all places.
func remainingTokens(net *petri.Net) int {
	total := 0
	for _, id := range net.NodeIDs() {
		node := net.Node(id)
		if node.Kind == petri.KindPlace && node.Tokens > 0 {
			total += node.Tokens
		}
	}
	return total
}

// consumeEndTokens drains one token from every sink place (no outgoing
// edges), counting shortages as missing. Returns (missing, consumed).
func consumeEndTokens(net *petri.Net) (missing, consumed int) {
	for _, id := range net.NodeIDs() {
		node := net.Node(id)
		if node.Kind != petri.KindPlace || len(node.Successors) != 0 {
			continue
		}
		consumed++
		if node.Tokens <= 0 {
			missing++
		} else {
			node.Tokens--
		}
	}
	return missing, consumed
}
