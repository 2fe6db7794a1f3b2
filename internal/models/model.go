package models

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"xgbdeploy/internal/config"
)

type Model interface {
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) ([]float64, error)
	Name() string
}

func init() {
	gob.Register(&GradientBoosting{})
	gob.Register(&LightGBMCLI{})
}

func New(algo string, hp config.Hyperparameters, seed int64, workDir string) (Model, error) {
	switch algo {
	case "gb", "":
		return NewGradientBoostingFrom(hp, seed), nil
	case "lgbm":
		return NewLightGBMCLIFrom(hp, workDir), nil
	default:
		return nil, fmt.Errorf("algoritmo desconhecido %q", algo)
	}
}

type envelope struct {
	Model Model
}

func Save(path string, m Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(envelope{Model: m}); err != nil {
		f.Close()
		return fmt.Errorf("serializar modelo: %w", err)
	}
	return f.Close()
}

func Load(path string) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var env envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, fmt.Errorf("desserializar modelo %s: %w", path, err)
	}
	if env.Model == nil {
		return nil, fmt.Errorf("modelo vazio em %s", path)
	}
	return env.Model, nil
}
