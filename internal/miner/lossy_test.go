package miner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDcSet_Touch_NewCase(t *testing.T) {
	dc := NewDcSet()

	previous, ok := dc.Touch("case-1", "A", 3)
	assert.False(t, ok)
	assert.Empty(t, previous)
	assert.Equal(t, 1, dc.Len())

	last, exists := dc.LastActivity("case-1")
	require.True(t, exists)
	assert.Equal(t, "A", last)
}

func TestDcSet_Touch_ExistingCase(t *testing.T) {
	dc := NewDcSet()
	dc.Touch("case-1", "A", 1)

	previous, ok := dc.Touch("case-1", "B", 2)
	require.True(t, ok)
	assert.Equal(t, "A", previous)

	previous, ok = dc.Touch("case-1", "C", 2)
	require.True(t, ok)
	assert.Equal(t, "B", previous)

	// Still one entry; frequency grew in place.
	assert.Equal(t, 1, dc.Len())
}

func TestDcSet_Prune_EvictsLowFrequency(t *testing.T) {
	dc := NewDcSet()

	// Inserted in bucket 1 with a single event: delta=0, frequency=1.
	dc.Touch("cold", "A", 1)
	// Touched twice: survives the first boundary.
	dc.Touch("warm", "A", 1)
	dc.Touch("warm", "B", 1)

	evicted := dc.Prune(1)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, dc.Len())

	_, exists := dc.LastActivity("warm")
	assert.True(t, exists)
	_, exists = dc.LastActivity("cold")
	assert.False(t, exists)
}

func TestDrSet_Observe_And_Frequency(t *testing.T) {
	dr := NewDrSet()

	assert.Equal(t, int64(0), dr.Frequency("A", "B"))

	dr.Observe("A", "B", 1)
	dr.Observe("A", "B", 2)
	dr.Observe("B", "A", 2)

	assert.Equal(t, int64(2), dr.Frequency("A", "B"))
	assert.Equal(t, int64(1), dr.Frequency("B", "A"))
	assert.Equal(t, int64(0), dr.Frequency("B", "C"))
	assert.Equal(t, 2, dr.Len())
}

func TestDrSet_Prune_KeepsDeltaOnUpdate(t *testing.T) {
	dr := NewDrSet()

	// Inserted in bucket 1 (delta 0), then incremented in bucket 3: the
	// delta must stay 0, so frequency 2 + delta 0 <= bucket 3 evicts it.
	dr.Observe("A", "B", 1)
	dr.Observe("A", "B", 3)

	evicted := dr.Prune(3)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, int64(0), dr.Frequency("A", "B"))
}

func TestDrSet_LossyBound(t *testing.T) {
	// An item with true count above epsilon*n must survive with positive
	// frequency, and no estimate may exceed the true count.
	const epsilon = 0.1 // w = 10
	m, err := New(minerParams(epsilon, 0.9, 0.8))
	require.NoError(t, err)

	trueCounts := make(map[[2]string]int64)
	last := ""
	// 40 events on one case: heavy pair dominates, rare pair trickles.
	activities := []string{}
	for i := 0; i < 20; i++ {
		activities = append(activities, "X", "Y")
	}
	for _, activity := range activities {
		if last != "" {
			trueCounts[[2]string{last, activity}]++
		}
		last = activity
		m.Ingest(eventFor("case-1", activity))
	}

	n := float64(m.EventsSeen())
	for pair, trueCount := range trueCounts {
		estimate := m.Frequency(pair[0], pair[1])
		assert.LessOrEqual(t, estimate, trueCount, "estimate above true count for %v", pair)
		if float64(trueCount) > epsilon*n {
			assert.Positive(t, estimate, "pair %v with true count %d over eps*n=%.1f was lost", pair, trueCount, epsilon*n)
			assert.GreaterOrEqual(t, float64(estimate), float64(trueCount)-epsilon*n)
		}
	}
}

func TestMiner_PruneScenario(t *testing.T) {
	// epsilon 0.25 gives bucket width 4. Alternating A,B on one case.
	m, err := New(minerParams(0.25, 0.5, 0.8))
	require.NoError(t, err)

	for _, activity := range []string{"A", "B", "A", "B"} {
		m.Ingest(eventFor("1", activity))
	}

	// At the first boundary the (B,A) pair holds frequency 1 + delta 0,
	// which meets the eviction cutoff for bucket 1; the case entry and
	// the (A,B) pair survive.
	assert.Equal(t, int64(2), m.Frequency("A", "B"))
	assert.Equal(t, int64(0), m.Frequency("B", "A"))

	for _, activity := range []string{"A", "B", "A", "B"} {
		m.Ingest(eventFor("1", activity))
	}

	// (B,A) was re-admitted in bucket 2 and counted twice since. Both
	// estimates respect the lossy bound: true counts are 4 and 3, and
	// eps*n = 2.
	assert.Equal(t, int64(4), m.Frequency("A", "B"))
	assert.Equal(t, int64(2), m.Frequency("B", "A"))

	snapshot := m.Stats()
	assert.Equal(t, int64(8), snapshot.EventsSeen)
	assert.Equal(t, int64(2), snapshot.PruneSweeps)
	assert.Equal(t, int64(1), snapshot.PairsEvicted)
}

func BenchmarkMinerIngest(b *testing.B) {
	m, err := New(minerParams(0.001, 0.9, 0.8))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		caseID := fmt.Sprintf("case-%d", i%64)
		m.Ingest(eventFor(caseID, "activity"))
	}
}
