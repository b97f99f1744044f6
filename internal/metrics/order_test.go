package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderParameter(t *testing.T) {
	t.Parallel()

	t.Run("uniform field scores 1", func(t *testing.T) {
		t.Parallel()
		f := fieldWith(2, 2, 1,
			[]float32{3, 3, 3, 3},
			[]float32{-1, -1, -1, -1})
		vals := NewOrderAnalysis(f).Values()
		require.Len(t, vals, 1)
		assert.InDelta(t, 1.0, vals[0], 1e-6)
	})

	t.Run("opposed equal vectors score 0", func(t *testing.T) {
		t.Parallel()
		f := fieldWith(2, 1, 1,
			[]float32{2, -2},
			[]float32{0, 0})
		vals := NewOrderAnalysis(f).Values()
		assert.InDelta(t, 0.0, vals[0], 1e-9)
	})

	t.Run("partial coherence lands in between", func(t *testing.T) {
		t.Parallel()
		// (1,0) and (0,1): mean (0.5,0.5), smvvm 0.5, msv 1
		f := fieldWith(2, 1, 1,
			[]float32{1, 0},
			[]float32{0, 1})
		vals := NewOrderAnalysis(f).Values()
		assert.InDelta(t, 0.5, vals[0], 1e-9)
	})

	t.Run("all-zero frame is undefined", func(t *testing.T) {
		t.Parallel()
		f := fieldWith(2, 1, 1,
			[]float32{0, 0},
			[]float32{0, 0})
		vals := NewOrderAnalysis(f).Values()
		assert.True(t, math.IsNaN(vals[0]))
	})

	t.Run("NaN vectors are skipped", func(t *testing.T) {
		t.Parallel()
		nan := float32(math.NaN())
		f := fieldWith(3, 1, 1,
			[]float32{1, nan, 1},
			[]float32{0, nan, 0})
		vals := NewOrderAnalysis(f).Values()
		assert.InDelta(t, 1.0, vals[0], 1e-6)
	})

	t.Run("all-NaN frame is undefined", func(t *testing.T) {
		t.Parallel()
		nan := float32(math.NaN())
		f := fieldWith(2, 1, 1,
			[]float32{nan, nan},
			[]float32{nan, nan})
		vals := NewOrderAnalysis(f).Values()
		assert.True(t, math.IsNaN(vals[0]))
	})

	t.Run("invalidate recomputes", func(t *testing.T) {
		t.Parallel()
		f := fieldWith(2, 1, 1,
			[]float32{1, 1},
			[]float32{0, 0})
		a := NewOrderAnalysis(f)
		require.InDelta(t, 1.0, a.Values()[0], 1e-6)

		f.U[1] = -1
		a.Invalidate()
		assert.InDelta(t, 0.0, a.Values()[0], 1e-9)
	})
}

func TestTimePoints(t *testing.T) {
	t.Parallel()

	t.Run("seconds", func(t *testing.T) {
		t.Parallel()
		ts, err := TimePoints(3, 500, "s")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0.5, 1}, ts)
	})

	t.Run("minutes", func(t *testing.T) {
		t.Parallel()
		ts, err := TimePoints(3, 30000, "min")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, ts[1], 1e-12)
		assert.InDelta(t, 1.0, ts[2], 1e-12)
	})

	t.Run("hours", func(t *testing.T) {
		t.Parallel()
		ts, err := TimePoints(2, 1800000, "h")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, ts[1], 1e-12)
	})

	t.Run("unknown unit", func(t *testing.T) {
		t.Parallel()
		_, err := TimePoints(3, 500, "fortnights")
		assert.Error(t, err)
	})
}
