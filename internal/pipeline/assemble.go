package pipeline

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"xgbdeploy/internal/backend"
	"xgbdeploy/internal/backend/local"
	"xgbdeploy/internal/backend/sagemaker"
	"xgbdeploy/internal/config"
	"xgbdeploy/internal/storage"
)

func Assemble(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.ObjectStore, backend.ModelBackend, error) {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Backend {
	case config.BackendSageMaker:
		be, err := sagemaker.New(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, be, nil
	case config.BackendLocal:
		return store, local.New(cfg.Algo, cfg.Seed, logger), nil
	default:
		return nil, nil, fmt.Errorf("backend desconhecido %q", cfg.Backend)
	}
}

func Release(store storage.ObjectStore, be backend.ModelBackend) error {
	var err error
	for _, v := range []any{store, be} {
		if c, ok := v.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
