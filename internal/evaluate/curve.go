package evaluate

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

type Learner interface {
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) ([]float64, error)
}

type CurvePoint struct {
	Size     int
	TrainAcc float64
	TestAcc  float64
}

// CurveSizes spreads points training sizes evenly up to n, never below
// min (or n when n is smaller).
func CurveSizes(n, points, min int) []int {
	if points < 1 || n < 1 {
		return nil
	}
	if min > n {
		min = n
	}
	sizes := make([]int, 0, points)
	for i := 1; i <= points; i++ {
		s := int(math.Max(float64(min), float64(i)/float64(points)*float64(n)))
		if s > n {
			s = n
		}
		if len(sizes) > 0 && sizes[len(sizes)-1] == s {
			continue
		}
		sizes = append(sizes, s)
	}
	return sizes
}

func LearningCurve(Xtrain [][]float64, ytrain []int, Xtest [][]float64, ytest []int, sizes []int, build func() (Learner, error)) ([]CurvePoint, error) {
	out := make([]CurvePoint, 0, len(sizes))
	for _, s := range sizes {
		if s > len(Xtrain) {
			return nil, fmt.Errorf("tamanho %d maior que o treino (%d)", s, len(Xtrain))
		}
		l, err := build()
		if err != nil {
			return nil, err
		}
		if err := l.Fit(Xtrain[:s], ytrain[:s]); err != nil {
			return nil, fmt.Errorf("treino com %d registros: %w", s, err)
		}
		trainAcc, err := score(l, Xtrain[:s], ytrain[:s])
		if err != nil {
			return nil, err
		}
		testAcc, err := score(l, Xtest, ytest)
		if err != nil {
			return nil, err
		}
		out = append(out, CurvePoint{Size: s, TrainAcc: trainAcc, TestAcc: testAcc})
	}
	return out, nil
}

func score(l Learner, X [][]float64, y []int) (float64, error) {
	p, err := l.PredictProba(X)
	if err != nil {
		return 0, err
	}
	m, err := Evaluate(y, p)
	if err != nil {
		return 0, err
	}
	return m.Accuracy(), nil
}

func WriteCurveCSV(path string, pts []CurvePoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"size", "train_acc", "test_acc"})
	for _, p := range pts {
		w.Write([]string{
			strconv.Itoa(p.Size),
			strconv.FormatFloat(p.TrainAcc, 'f', 4, 64),
			strconv.FormatFloat(p.TestAcc, 'f', 4, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func PlotCurve(path string, pts []CurvePoint) error {
	p := plot.New()
	p.Title.Text = "Curva de Aprendizagem"
	p.X.Label.Text = "Amostras de treino"
	p.Y.Label.Text = "Acurácia (%)"
	p.Y.Min = 0
	p.Y.Max = 100

	tr := make(plotter.XYs, len(pts))
	te := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		tr[i].X, tr[i].Y = float64(pt.Size), pt.TrainAcc
		te[i].X, te[i].Y = float64(pt.Size), pt.TestAcc
	}
	if err := plotutil.AddLinePoints(p, "Treino", tr, "Teste", te); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
