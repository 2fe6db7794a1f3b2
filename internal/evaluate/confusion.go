package evaluate

import (
	"errors"
	"fmt"
	"io"
	"math"
)

var ErrLengthMismatch = errors.New("evaluate: observados e preditos com tamanhos diferentes")

// ConfusionMatrix rows are observed labels, columns are predicted labels.
type ConfusionMatrix struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Round maps a probability to 0 or 1, rounding half up. It is the only
// decision rule: there is no configurable threshold.
func Round(p float64) int {
	if p >= 0.5 {
		return 1
	}
	return 0
}

func Evaluate(observed []int, predicted []float64) (ConfusionMatrix, error) {
	var m ConfusionMatrix
	if len(observed) != len(predicted) {
		return m, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(observed), len(predicted))
	}
	for i, y := range observed {
		p := predicted[i]
		if math.IsNaN(p) {
			return ConfusionMatrix{}, fmt.Errorf("evaluate: predição %d é NaN", i)
		}
		pred := Round(p)
		switch {
		case y == 1 && pred == 1:
			m.TP++
		case y == 1 && pred == 0:
			m.FN++
		case y == 0 && pred == 1:
			m.FP++
		case y == 0 && pred == 0:
			m.TN++
		default:
			return ConfusionMatrix{}, fmt.Errorf("evaluate: rótulo observado %d inválido na posição %d", y, i)
		}
	}
	return m, nil
}

func (m ConfusionMatrix) Total() int { return m.TN + m.FP + m.FN + m.TP }

func (m ConfusionMatrix) Accuracy() float64 {
	return pct(m.TP+m.TN, m.Total())
}

// Column-normalised display rates: each cell over its predicted-column total.
func (m ConfusionMatrix) NoPurchaseRate() (observedNo, observedYes float64) {
	return pct(m.TN, m.TN+m.FN), pct(m.FN, m.TN+m.FN)
}

func (m ConfusionMatrix) PurchaseRate() (observedNo, observedYes float64) {
	return pct(m.FP, m.TP+m.FP), pct(m.TP, m.TP+m.FP)
}

func pct(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

func (m ConfusionMatrix) WriteSummary(w io.Writer) error {
	tnRate, fnRate := m.NoPurchaseRate()
	fpRate, tpRate := m.PurchaseRate()
	_, err := fmt.Fprintf(w, "\n%-20s%-4.1f%%\n\n", "Overall Classification Rate: ", m.Accuracy())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-15s%-15s%8s\n", "Predicted", "No Purchase", "Purchase"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Observed"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-15s%-2.0f%% (%d)%6.0f%% (%d)\n", "No Purchase", tnRate, m.TN, fpRate, m.FP); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%-16s%-1.0f%% (%d)%7.0f%% (%d) \n\n", "Purchase", fnRate, m.FN, tpRate, m.TP)
	return err
}
