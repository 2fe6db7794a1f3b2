package evaluate

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func (m ConfusionMatrix) SavePlot(path string) error {
	p := plot.New()
	p.Title.Text = "Matriz de Confusão"
	p.Y.Label.Text = "Registros de teste"
	p.Y.Min = 0

	vals := plotter.Values{float64(m.TN), float64(m.FP), float64(m.FN), float64(m.TP)}
	bars, err := plotter.NewBarChart(vals, vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX("TN", "FP", "FN", "TP")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
