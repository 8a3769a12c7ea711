package miner

// FrequencyFunc reports the directly-follows count for an ordered
// activity pair, 0 when the pair is unknown.
type FrequencyFunc func(pred, succ string) int64

// Matrix is the dense dependency matrix over the registered activities.
// Off-diagonal entries hold the signed dependency score
// (f(a,b)-f(b,a))/(f(a,b)+f(b,a)+1) in [-1,+1]; the diagonal holds the
// short-loop score f(a,a)/(f(a,a)+1).
type Matrix struct {
	activities []string
	scores     map[string]map[string]float64
}

// BuildMatrix computes the dependency matrix for the given activities
// from a frequency source. Entries involving unknown pairs default to 0.
func BuildMatrix(activities []string, freq FrequencyFunc) *Matrix {
	m := &Matrix{
		activities: activities,
		scores:     make(map[string]map[string]float64, len(activities)),
	}

	for _, pred := range activities {
		row := make(map[string]float64, len(activities))
		for _, succ := range activities {
			if pred == succ {
				f := float64(freq(pred, pred))
				row[succ] = f / (f + 1)
				continue
			}
			forward := float64(freq(pred, succ))
			backward := float64(freq(succ, pred))
			row[succ] = (forward - backward) / (forward + backward + 1)
		}
		m.scores[pred] = row
	}

	return m
}

// Score returns the dependency score for the ordered pair, 0 for
// activities outside the matrix.
func (m *Matrix) Score(pred, succ string) float64 {
	if row, ok := m.scores[pred]; ok {
		return row[succ]
	}
	return 0
}

// Activities returns the activities the matrix was built over.
func (m *Matrix) Activities() []string {
	return m.activities
}
