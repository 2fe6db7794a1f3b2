package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"xgbdeploy/internal/config"
	"xgbdeploy/internal/data"
	"xgbdeploy/internal/ledger"
	"xgbdeploy/internal/pipeline"
	"xgbdeploy/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	cfgPath := flag.String("config", "", "Arquivo YAML de configuração")
	synthetic := flag.Int("synthetic", 0, "Gerar N registros sintéticos em vez de baixar o dataset")
	history := flag.Int("history", 0, "Listar as últimas N execuções e sair")
	keep := flag.Bool("keep", false, "Manter o endpoint local no ar até SIGINT")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("Falha ao carregar configuração", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var l *ledger.Ledger
	if cfg.LedgerPath != "" {
		l, err = ledger.Open(cfg.LedgerPath)
		if err != nil {
			logger.Fatal("Falha ao abrir ledger", zap.Error(err))
		}
		defer l.Close()
	}

	if *history > 0 {
		if l == nil {
			logger.Fatal("ledger_path não configurado")
		}
		printHistory(ctx, l, *history, logger)
		return
	}

	if *synthetic > 0 {
		path := filepath.Join(cfg.DataDir, pipeline.DatasetFile)
		logger.Info("Gerando dataset sintético", zap.Int("n", *synthetic), zap.String("out", path))
		if err := data.GenerateSynthetic(*synthetic, cfg.Seed, path); err != nil {
			logger.Fatal("Falha ao gerar dataset", zap.Error(err))
		}
		cfg.DatasetURL = ""
	}

	store, be, err := pipeline.Assemble(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Falha ao preparar backend", zap.Error(err))
	}
	defer func() {
		if err := pipeline.Release(store, be); err != nil {
			logger.Warn("Falha ao liberar recursos", zap.Error(err))
		}
	}()

	opts := []pipeline.Option{}
	if l != nil {
		opts = append(opts, pipeline.WithLedger(l))
	}
	res, err := pipeline.New(cfg, store, be, logger, opts...).Run(ctx)
	if err != nil {
		logger.Fatal("Falha no pipeline", zap.Error(err))
	}
	for _, w := range res.Warnings {
		logger.Warn("Aviso", zap.Error(w))
	}

	if *keep && cfg.Backend == config.BackendLocal {
		logger.Info("Endpoint mantido no ar, Ctrl+C para encerrar", zap.String("endpoint", res.Artifact.Endpoint))
		<-ctx.Done()
	}
}

func printHistory(ctx context.Context, l *ledger.Ledger, n int, logger *zap.Logger) {
	runs, err := l.Recent(ctx, n)
	if err != nil {
		logger.Fatal("Falha ao consultar ledger", zap.Error(err))
	}
	fmt.Printf("%-4s %-20s %-10s %6s %6s %8s  %s\n", "id", "início", "backend", "train", "test", "acc", "endpoint")
	for _, r := range runs {
		fmt.Printf("%-4d %-20s %-10s %6d %6d %7.1f%%  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Backend, r.TrainRows, r.TestRows, r.Accuracy, r.Endpoint)
	}
}
