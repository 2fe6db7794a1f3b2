package backend

import (
	"context"

	"xgbdeploy/internal/config"
)

type TrainingInput struct {
	DataURI         string
	LocalPath       string
	ContentType     string
	OutputURI       string
	Hyperparameters config.Hyperparameters
}

type Artifact struct {
	Name     string
	URI      string
	Endpoint string
}

type ModelBackend interface {
	Train(ctx context.Context, in TrainingInput) (Artifact, error)
	Predict(ctx context.Context, a Artifact, rows [][]float64) ([]float64, error)
}

// Deployer is implemented by backends that serve predictions from an
// addressable endpoint rather than from the artifact directly.
type Deployer interface {
	Deploy(ctx context.Context, a Artifact) (Artifact, error)
}
