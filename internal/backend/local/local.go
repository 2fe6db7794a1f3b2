// Package local trains in process (or through the lightgbm CLI) and hosts
// the model on a loopback HTTP endpoint.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"xgbdeploy/internal/backend"
	"xgbdeploy/internal/data"
	"xgbdeploy/internal/models"
	"xgbdeploy/internal/serving"
)

type Backend struct {
	Algo   string
	Seed   int64
	Addr   string
	Client *http.Client
	logger *zap.Logger

	mu      sync.Mutex
	servers []*serving.Server
}

func New(algo string, seed int64, logger *zap.Logger) *Backend {
	return &Backend{
		Algo:   algo,
		Seed:   seed,
		Addr:   "127.0.0.1:0",
		Client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}
}

func (b *Backend) Train(ctx context.Context, in backend.TrainingInput) (backend.Artifact, error) {
	f, err := os.Open(in.LocalPath)
	if err != nil {
		return backend.Artifact{}, err
	}
	X, y, err := data.ReadLabelFirst(f)
	f.Close()
	if err != nil {
		return backend.Artifact{}, fmt.Errorf("ler dados de treino: %w", err)
	}

	outDir, err := localDir(in.OutputURI)
	if err != nil {
		return backend.Artifact{}, err
	}
	name := "xgboost-" + time.Now().UTC().Format("2006-01-02-15-04-05")
	m, err := models.New(b.Algo, in.Hyperparameters, b.Seed, filepath.Join(outDir, name))
	if err != nil {
		return backend.Artifact{}, err
	}
	start := time.Now()
	if err := m.Fit(X, y); err != nil {
		return backend.Artifact{}, fmt.Errorf("treinar %s: %w", m.Name(), err)
	}
	path := filepath.Join(outDir, name, "model.gob")
	if err := models.Save(path, m); err != nil {
		return backend.Artifact{}, err
	}
	b.logger.Info("Modelo treinado",
		zap.String("model", m.Name()),
		zap.Int("rows", len(X)),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("path", path),
	)
	return backend.Artifact{Name: name, URI: path}, nil
}

func (b *Backend) Deploy(ctx context.Context, a backend.Artifact) (backend.Artifact, error) {
	m, err := models.Load(a.URI)
	if err != nil {
		return a, err
	}
	srv := serving.New(m, b.logger)
	base, err := srv.Start(b.Addr)
	if err != nil {
		return a, fmt.Errorf("iniciar endpoint: %w", err)
	}
	b.mu.Lock()
	b.servers = append(b.servers, srv)
	b.mu.Unlock()
	a.Endpoint = base
	b.logger.Info("Endpoint no ar", zap.String("endpoint", base), zap.String("model", m.Name()))
	return a, nil
}

// Predict posts rows to the artifact's endpoint, or scores them in process
// when the artifact was never deployed.
func (b *Backend) Predict(ctx context.Context, a backend.Artifact, rows [][]float64) ([]float64, error) {
	if a.Endpoint == "" {
		m, err := models.Load(a.URI)
		if err != nil {
			return nil, err
		}
		return m.PredictProba(rows)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint+"/invocations", bytes.NewReader(data.EncodeRows(rows)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", data.ContentTypeCSV)
	if key := os.Getenv("API_KEY"); key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invocar endpoint: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint respondeu %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	ps, err := data.DecodeScores(body)
	if err != nil {
		return nil, err
	}
	if len(ps) != len(rows) {
		return nil, fmt.Errorf("endpoint retornou %d predições para %d linhas", len(ps), len(rows))
	}
	return ps, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	servers := b.servers
	b.servers = nil
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	for _, s := range servers {
		if e := s.Shutdown(ctx); e != nil && !errors.Is(e, http.ErrServerClosed) {
			err = multierr.Append(err, e)
		}
	}
	return err
}

func localDir(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		return strings.TrimPrefix(uri, "file://"), nil
	}
	if strings.Contains(uri, "://") {
		return "", fmt.Errorf("backend local não grava em %q", uri)
	}
	return uri, nil
}
