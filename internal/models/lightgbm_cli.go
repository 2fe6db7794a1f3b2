package models

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"xgbdeploy/internal/config"
)

// LightGBMCLI trains and predicts by shelling out to the lightgbm binary.
// Intermediate CSV and conf files live in WorkDir.
type LightGBMCLI struct {
	ExecPath       string
	WorkDir        string
	NumLeaves      int
	MaxDepth       int
	MinSumHessian  float64
	MinGainToSplit float64
	BaggingFrac    float64
	NumIterations  int
	LearningRate   float64
	Device         string
	ModelPath      string
}

func NewLightGBMCLI() *LightGBMCLI {
	return &LightGBMCLI{
		ExecPath:      "lightgbm",
		WorkDir:       "data",
		NumLeaves:     31,
		MaxDepth:      -1,
		MinSumHessian: 1e-3,
		BaggingFrac:   1,
		NumIterations: 200,
		LearningRate:  0.1,
		Device:        "cpu",
		ModelPath:     filepath.Join("models", "lgbm_model.txt"),
	}
}

func NewLightGBMCLIFrom(hp config.Hyperparameters, workDir string) *LightGBMCLI {
	l := NewLightGBMCLI()
	if workDir != "" {
		l.WorkDir = workDir
		l.ModelPath = filepath.Join(workDir, "lgbm_model.txt")
	}
	if v := os.Getenv("LIGHTGBM_PATH"); v != "" {
		l.ExecPath = v
	}
	if hp.MaxDepth > 0 {
		l.MaxDepth = hp.MaxDepth
		l.NumLeaves = 1 << hp.MaxDepth
	}
	l.MinSumHessian = hp.MinChildWeight
	l.MinGainToSplit = hp.Gamma
	l.BaggingFrac = hp.Subsample
	l.NumIterations = hp.NumRound
	l.LearningRate = hp.Eta
	return l
}

func (l *LightGBMCLI) Name() string {
	if l.Device == "gpu" {
		return "LightGBM(GPU)"
	}
	return "LightGBM(CPU)"
}

func (l *LightGBMCLI) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("dataset de treino vazio")
	}
	if err := os.MkdirAll(l.WorkDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.ModelPath), 0o755); err != nil {
		return err
	}

	trainCSV := filepath.Join(l.WorkDir, "lgbm_train.csv")
	if err := writeCSVLabelFirst(trainCSV, X, y); err != nil {
		return err
	}

	conf := filepath.Join(l.WorkDir, "lgbm_train.conf")
	device := l.Device
	if device == "" {
		device = "cpu"
	}
	cfg := fmt.Sprintf("task=train\nboosting=gbdt\nobjective=binary\nmetric=auc\n"+
		"data=%s\nheader=false\nlabel_column=0\n"+
		"num_leaves=%d\nmax_depth=%d\nmin_sum_hessian_in_leaf=%s\nmin_gain_to_split=%s\n"+
		"bagging_fraction=%s\nbagging_freq=%d\n"+
		"num_iterations=%d\nlearning_rate=%s\n"+
		"device=%s\ntree_learner=%s\noutput_model=%s\n",
		trainCSV, l.NumLeaves, l.MaxDepth, ftoa(l.MinSumHessian), ftoa(l.MinGainToSplit),
		ftoa(l.BaggingFrac), ternary(l.BaggingFrac < 1, 1, 0),
		l.NumIterations, ftoa(l.LearningRate),
		device, ternary(device == "gpu", "gpu", "serial"), l.ModelPath,
	)
	if err := os.WriteFile(conf, []byte(cfg), 0o644); err != nil {
		return err
	}
	if err := l.run(conf); err != nil {
		return fmt.Errorf("falha ao executar LightGBM CLI (verifique se '%s' está instalado e no PATH): %w", l.ExecPath, err)
	}
	if _, err := os.Stat(l.ModelPath); err != nil {
		return errors.New("modelo do LightGBM não encontrado após treinamento")
	}
	return nil
}

func (l *LightGBMCLI) PredictProba(X [][]float64) ([]float64, error) {
	if len(X) == 0 {
		return []float64{}, nil
	}
	// Each call gets its own directory: the endpoint predicts concurrently.
	if err := os.MkdirAll(l.WorkDir, 0o755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(l.WorkDir, "predict-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	predCSV := filepath.Join(dir, "lgbm_pred.csv")
	zeros := make([]int, len(X))
	if err := writeCSVLabelFirst(predCSV, X, zeros); err != nil {
		return nil, err
	}

	conf := filepath.Join(dir, "lgbm_predict.conf")
	outPath := filepath.Join(dir, "lgbm_preds.txt")
	cfg := fmt.Sprintf("task=predict\ninput_model=%s\ndata=%s\nheader=false\nlabel_column=0\noutput_result=%s\n",
		l.ModelPath, predCSV, outPath,
	)
	if err := os.WriteFile(conf, []byte(cfg), 0o644); err != nil {
		return nil, err
	}
	if err := l.run(conf); err != nil {
		return nil, fmt.Errorf("falha ao executar LightGBM CLI: %w", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	ps := make([]float64, 0, len(X))
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("saída do LightGBM inválida: %w", err)
		}
		ps = append(ps, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(ps) != len(X) {
		return nil, fmt.Errorf("LightGBM retornou %d predições para %d linhas", len(ps), len(X))
	}
	return ps, nil
}

func (l *LightGBMCLI) run(conf string) error {
	cmd := exec.Command(l.ExecPath, fmt.Sprintf("config=%s", conf))
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func writeCSVLabelFirst(path string, X [][]float64, y []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for i := range X {
		fmt.Fprintf(w, "%d", y[i])
		for j := range X[i] {
			fmt.Fprintf(w, ",%g", X[i][j])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
