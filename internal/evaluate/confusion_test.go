package evaluate

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateMixedOutcomes(t *testing.T) {
	m, err := Evaluate([]int{1, 0, 1, 0}, []float64{0.9, 0.1, 0.4, 0.6})
	require.NoError(t, err)
	require.Equal(t, ConfusionMatrix{TP: 1, TN: 1, FN: 1, FP: 1}, m)
	require.InDelta(t, 50.0, m.Accuracy(), 1e-9)
}

func TestEvaluateLengthMismatch(t *testing.T) {
	_, err := Evaluate([]int{1, 0}, []float64{0.3})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	_, err := Evaluate([]int{2}, []float64{0.3})
	require.Error(t, err)
	_, err = Evaluate([]int{1}, []float64{math.NaN()})
	require.Error(t, err)
}

func TestRoundHalfUp(t *testing.T) {
	require.Equal(t, 1, Round(0.5))
	require.Equal(t, 0, Round(0.4999))
	require.Equal(t, 1, Round(1))
	require.Equal(t, 0, Round(0))
}

func TestCellsSumToTotal(t *testing.T) {
	observed := make([]int, 300)
	predicted := make([]float64, 300)
	for i := range observed {
		observed[i] = i % 3 % 2
		predicted[i] = float64(i%7) / 6
	}
	m, err := Evaluate(observed, predicted)
	require.NoError(t, err)
	require.Equal(t, 300, m.Total())
	require.Equal(t, 300, m.TN+m.FP+m.FN+m.TP)
}

func TestEmptyInputIsZeroMatrix(t *testing.T) {
	m, err := Evaluate(nil, nil)
	require.NoError(t, err)
	require.Equal(t, 0, m.Total())
	require.Equal(t, 0.0, m.Accuracy())
}

func TestWriteSummary(t *testing.T) {
	m := ConfusionMatrix{TN: 90, FP: 10, FN: 30, TP: 70}
	var buf bytes.Buffer
	require.NoError(t, m.WriteSummary(&buf))
	out := buf.String()
	require.Contains(t, out, "Overall Classification Rate: 80.0%")
	require.Contains(t, out, "Predicted      No Purchase    Purchase")
	require.Contains(t, out, "No Purchase    75% (90)    12% (10)")
	require.Contains(t, out, "Purchase        25% (30)     88% (70)")
}

func TestSavePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "confusion.png")
	require.NoError(t, ConfusionMatrix{TN: 3, FP: 1, FN: 2, TP: 4}.SavePlot(path))
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, st.Size())
}
