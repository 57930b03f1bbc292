package stats

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datafix-cli/internal/table"
)

// reference computes the statistics the slow, obvious way.
func reference(vals []float64) (mean, median, mode float64) {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(len(vals))

	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	if len(s)%2 == 1 {
		median = s[len(s)/2]
	} else {
		median = (s[len(s)/2-1] + s[len(s)/2]) / 2
	}

	counts := map[float64]int{}
	for _, v := range s {
		counts[v]++
	}
	best, bestN := 0.0, 0
	for _, v := range s {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	if bestN > 1 {
		mode = best
	} else {
		mode = mean
	}
	return
}

func TestOfMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		n := 1 + r.Intn(30)
		vals := make([]float64, n)
		for j := range vals {
			// small integer range forces repeats and ties
			vals[j] = float64(r.Intn(10) - 3)
		}
		if i%5 == 0 {
			for j := range vals {
				vals[j] = float64(j) * 1.5 // all unique
			}
		}
		mean, median, mode := reference(vals)
		s := Of(vals)
		require.NotNil(t, s)
		assert.InDelta(t, mean, s.Mean, 1e-9)
		assert.Equal(t, median, s.Median)
		assert.InDelta(t, mode, s.Mode, 1e-9)
		assert.Equal(t, n, s.Count)
	}
}

func TestModeFallsBackToMeanWhenUnique(t *testing.T) {
	s := Of([]float64{1, 2, 3, 10})
	require.NotNil(t, s)
	assert.Equal(t, 4.0, s.Mean)
	assert.Equal(t, 2.5, s.Median)
	assert.Equal(t, 4.0, s.Mode)
}

func TestModeTieKeepsSmallest(t *testing.T) {
	s := Of([]float64{5, 5, 1, 1, 9})
	require.NotNil(t, s)
	assert.Equal(t, 1.0, s.Mode)
}

func TestComputeSkipsSentinelsAndText(t *testing.T) {
	tb := table.MustNew([]string{"Weight"},
		[]string{"10"}, []string{""}, []string{"20"}, []string{"N/A"},
		[]string{"30"}, []string{"heavy"}, []string{"null"},
	)
	c, err := tb.Resolve("weight")
	require.NoError(t, err)
	s := Compute(tb, c)
	require.NotNil(t, s)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 20.0, s.Mean)
	assert.Equal(t, 20.0, s.Median)
	assert.Equal(t, 20.0, s.Mode)
}

func TestComputeNilWithoutNumbers(t *testing.T) {
	tb := table.MustNew([]string{"City"}, []string{"Paris"}, []string{""})
	c, _ := tb.Resolve("City")
	assert.Nil(t, Compute(tb, c))
	assert.Nil(t, Of(nil))
}

func TestMemoCachesPerColumn(t *testing.T) {
	tb := table.MustNew([]string{"n"}, []string{"1"}, []string{"3"})
	c, _ := tb.Resolve("n")
	m := NewMemo(tb)
	first := m.Get(c)
	require.NotNil(t, first)
	assert.Equal(t, 2.0, first.Mean)

	tb.Set(0, c, "100")
	assert.Same(t, first, m.Get(c), "memo keeps the first computation for the run")
	assert.Equal(t, 51.5, NewMemo(tb).Get(c).Mean, "a fresh memo sees the new data")
}

func TestParseMethodAndValue(t *testing.T) {
	for in, want := range map[string]Method{"mean": Mean, "Average": Mean, "MEDIAN": Median, "mode": Mode} {
		m, err := ParseMethod(in)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := ParseMethod("max")
	assert.Error(t, err)

	s := Of([]float64{1, 2, 2})
	v, err := s.Value(Median)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	_, err = s.Value(Method("sum"))
	assert.Error(t, err)
	assert.False(t, math.IsNaN(s.Mean))
}
