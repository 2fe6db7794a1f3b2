package local

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xgbdeploy/internal/backend"
	"xgbdeploy/internal/config"
	"xgbdeploy/internal/data"
)

var _ backend.ModelBackend = (*Backend)(nil)
var _ backend.Deployer = (*Backend)(nil)

func trainingFile(t *testing.T) (string, []data.Record) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "synthetic.csv")
	require.NoError(t, data.GenerateSynthetic(400, 11, src))
	ds, err := data.Load(src)
	require.NoError(t, err)
	train := filepath.Join(dir, "train.csv")
	require.NoError(t, data.WriteLabelFirstFile(train, ds.Records))
	return train, ds.Records
}

func TestTrainDeployPredict(t *testing.T) {
	train, records := trainingFile(t)
	hp := config.Default().Hyperparameters
	hp.NumRound = 20

	b := New("gb", 1729, zap.NewNop())
	ctx := context.Background()
	art, err := b.Train(ctx, backend.TrainingInput{
		LocalPath:       train,
		OutputURI:       "file://" + filepath.Join(t.TempDir(), "output"),
		Hyperparameters: hp,
	})
	require.NoError(t, err)
	require.FileExists(t, art.URI)

	direct, err := b.Predict(ctx, art, data.Matrix(records[:50]))
	require.NoError(t, err)
	require.Len(t, direct, 50)

	deployed, err := b.Deploy(ctx, art)
	require.NoError(t, err)
	require.NotEmpty(t, deployed.Endpoint)
	defer b.Close()

	remote, err := b.Predict(ctx, deployed, data.Matrix(records[:50]))
	require.NoError(t, err)
	require.Len(t, remote, 50)
	for i := range direct {
		require.InDelta(t, direct[i], remote[i], 1e-12)
		require.True(t, remote[i] >= 0 && remote[i] <= 1)
	}

	require.NoError(t, b.Close())
	_, err = b.Predict(ctx, deployed, data.Matrix(records[:1]))
	require.Error(t, err)
}

func TestTrainMissingFile(t *testing.T) {
	b := New("gb", 1, zap.NewNop())
	_, err := b.Train(context.Background(), backend.TrainingInput{LocalPath: filepath.Join(t.TempDir(), "nope.csv")})
	require.Error(t, err)
}

func TestTrainUnknownAlgo(t *testing.T) {
	train, _ := trainingFile(t)
	b := New("svm", 1, zap.NewNop())
	_, err := b.Train(context.Background(), backend.TrainingInput{
		LocalPath:       train,
		OutputURI:       t.TempDir(),
		Hyperparameters: config.Default().Hyperparameters,
	})
	require.Error(t, err)
}

func TestTrainRejectsRemoteOutput(t *testing.T) {
	train, _ := trainingFile(t)
	b := New("gb", 1, zap.NewNop())
	for _, uri := range []string{"s3://bucket/prefix/output", "gs://bucket/prefix/output"} {
		_, err := b.Train(context.Background(), backend.TrainingInput{
			LocalPath:       train,
			OutputURI:       uri,
			Hyperparameters: config.Default().Hyperparameters,
		})
		require.Error(t, err, uri)
	}
	require.NoDirExists(t, "s3:")
	require.NoDirExists(t, "gs:")
}
