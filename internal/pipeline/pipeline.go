package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"xgbdeploy/internal/acquire"
	"xgbdeploy/internal/backend"
	"xgbdeploy/internal/config"
	"xgbdeploy/internal/data"
	"xgbdeploy/internal/evaluate"
	"xgbdeploy/internal/ledger"
	"xgbdeploy/internal/split"
	"xgbdeploy/internal/storage"
)

const (
	StepAcquire  = "acquire"
	StepLoad     = "load"
	StepSplit    = "split"
	StepStage    = "stage"
	StepBucket   = "bucket"
	StepUpload   = "upload"
	StepTrain    = "train"
	StepDeploy   = "deploy"
	StepPredict  = "predict"
	StepEvaluate = "evaluate"
	StepReport   = "report"
	StepLedger   = "ledger"

	DatasetFile = "bank_clean.csv"
	TrainFile   = "train.csv"
)

type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("etapa %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

func fail(step string, err error) error { return &StepError{Step: step, Err: err} }

type Pipeline struct {
	cfg     config.Config
	store   storage.ObjectStore
	backend backend.ModelBackend
	ledger  *ledger.Ledger
	client  *http.Client
	logger  *zap.Logger
	out     io.Writer
}

type Option func(*Pipeline)

func WithLedger(l *ledger.Ledger) Option { return func(p *Pipeline) { p.ledger = l } }

func WithHTTPClient(c *http.Client) Option { return func(p *Pipeline) { p.client = c } }

// WithOutput redirects the console summary (stdout by default).
func WithOutput(w io.Writer) Option { return func(p *Pipeline) { p.out = w } }

func New(cfg config.Config, store storage.ObjectStore, be backend.ModelBackend, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		store:   store,
		backend: be,
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
		out:     os.Stdout,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type Result struct {
	TrainRows int
	TestRows  int
	Features  int
	TrainURI  string
	Artifact  backend.Artifact
	Matrix    evaluate.ConfusionMatrix
	Warnings  []error
}

func (p *Pipeline) DatasetPath() string { return filepath.Join(p.cfg.DataDir, DatasetFile) }

func (p *Pipeline) TrainPath() string { return filepath.Join(p.cfg.DataDir, TrainFile) }

func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	res := &Result{}
	var warnings error

	if err := p.acquire(ctx); err != nil {
		if !acquire.Cached(p.DatasetPath()) {
			return nil, fail(StepAcquire, err)
		}
		p.logger.Warn("Falha no download, usando cópia local", zap.String("path", p.DatasetPath()), zap.Error(err))
		warnings = multierr.Append(warnings, fail(StepAcquire, err))
	}

	ds, err := data.Load(p.DatasetPath())
	if err != nil {
		return nil, fail(StepLoad, err)
	}
	p.logger.Info("Dataset carregado", zap.Int("rows", ds.Len()), zap.Int("features", len(ds.Features)))

	sp, err := split.Partition(ds.Records, p.cfg.Seed)
	if err != nil {
		return nil, fail(StepSplit, err)
	}
	res.TrainRows, res.TestRows, res.Features = len(sp.Train), len(sp.Test), len(ds.Features)
	cols := len(ds.Features) + 2
	fmt.Fprintf(p.out, "(%d, %d) (%d, %d)\n", len(sp.Train), cols, len(sp.Test), cols)

	if err := os.MkdirAll(p.cfg.DataDir, 0o755); err != nil {
		return nil, fail(StepStage, err)
	}
	if err := data.WriteLabelFirstFile(p.TrainPath(), sp.Train); err != nil {
		return nil, fail(StepStage, err)
	}

	if err := p.store.EnsureBucket(ctx); err != nil {
		return nil, fail(StepBucket, err)
	}
	p.logger.Info("Bucket pronto", zap.String("bucket", p.cfg.BucketName))

	res.TrainURI, err = p.upload(ctx)
	if err != nil {
		return nil, fail(StepUpload, err)
	}
	p.logger.Info("Dados de treino enviados", zap.String("uri", res.TrainURI))

	art, err := p.backend.Train(ctx, backend.TrainingInput{
		DataURI:         p.store.URI(p.cfg.Key("train")),
		LocalPath:       p.TrainPath(),
		ContentType:     "csv",
		OutputURI:       p.store.URI(p.cfg.Key("output")),
		Hyperparameters: p.cfg.Hyperparameters,
	})
	if err != nil {
		return nil, fail(StepTrain, err)
	}
	res.Artifact = art

	if d, ok := p.backend.(backend.Deployer); ok {
		art, err = d.Deploy(ctx, art)
		if err != nil {
			return nil, fail(StepDeploy, err)
		}
		res.Artifact = art
	}

	ps, err := p.backend.Predict(ctx, art, data.Matrix(sp.Test))
	if err != nil {
		return nil, fail(StepPredict, err)
	}
	fmt.Fprintf(p.out, "(%d,)\n", len(ps))

	m, err := evaluate.Evaluate(data.Labels(sp.Test), ps)
	if err != nil {
		return nil, fail(StepEvaluate, err)
	}
	res.Matrix = m
	if err := m.WriteSummary(p.out); err != nil {
		return nil, fail(StepEvaluate, err)
	}
	p.logger.Info("Métricas de teste",
		zap.Float64("accuracy", m.Accuracy()),
		zap.Int("tp", m.TP), zap.Int("tn", m.TN), zap.Int("fp", m.FP), zap.Int("fn", m.FN),
	)

	if p.cfg.ReportImage != "" {
		if err := m.SavePlot(p.cfg.ReportImage); err != nil {
			p.logger.Warn("Falha ao salvar gráfico", zap.Error(err))
			warnings = multierr.Append(warnings, fail(StepReport, err))
		}
	}
	if p.ledger != nil {
		_, err := p.ledger.Record(ctx, ledger.Run{
			StartedAt:  started,
			FinishedAt: time.Now(),
			Backend:    p.cfg.Backend,
			Seed:       p.cfg.Seed,
			TrainRows:  res.TrainRows,
			TestRows:   res.TestRows,
			Artifact:   art.URI,
			Endpoint:   art.Endpoint,
			TN:         m.TN,
			FP:         m.FP,
			FN:         m.FN,
			TP:         m.TP,
			Accuracy:   m.Accuracy(),
		})
		if err != nil {
			p.logger.Warn("Falha ao registrar execução", zap.Error(err))
			warnings = multierr.Append(warnings, fail(StepLedger, err))
		}
	}

	fmt.Fprintf(p.out, "\nEndpoint name:  %s\n", art.Endpoint)
	res.Warnings = multierr.Errors(warnings)
	return res, nil
}

func (p *Pipeline) acquire(ctx context.Context) error {
	dest := p.DatasetPath()
	if p.cfg.DatasetURL == "" {
		if acquire.Cached(dest) {
			return nil
		}
		return fmt.Errorf("dataset_url vazio e %s inexistente", dest)
	}
	n, err := acquire.Fetch(ctx, p.client, p.cfg.DatasetURL, dest)
	if err != nil {
		return err
	}
	p.logger.Info("Dataset baixado", zap.String("url", p.cfg.DatasetURL), zap.Int64("bytes", n))
	return nil
}

func (p *Pipeline) upload(ctx context.Context) (string, error) {
	f, err := os.Open(p.TrainPath())
	if err != nil {
		return "", err
	}
	defer f.Close()
	return p.store.Upload(ctx, p.cfg.Key("train", TrainFile), f)
}
