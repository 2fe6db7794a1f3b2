package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"xgbdeploy/internal/config"
	"xgbdeploy/internal/data"
	"xgbdeploy/internal/evaluate"
	"xgbdeploy/internal/models"
	"xgbdeploy/internal/split"
	"xgbdeploy/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	cfgPath := flag.String("config", "", "Arquivo YAML de configuração")
	dataPath := flag.String("data", "data/bank_clean.csv", "CSV de entrada")
	points := flag.Int("points", 8, "Quantidade de pontos na curva")
	minSize := flag.Int("min", 100, "Tamanho mínimo de treino")
	outImg := flag.String("out_img", "data/learning_curve.png", "PNG de saída")
	outCsv := flag.String("out_csv", "data/learning_curve.csv", "CSV de saída")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("Falha ao carregar configuração", zap.Error(err))
	}
	ds, err := data.Load(*dataPath)
	if err != nil {
		logger.Fatal("Falha ao ler CSV", zap.Error(err))
	}
	sp, err := split.Partition(ds.Records, cfg.Seed)
	if err != nil {
		logger.Fatal("Falha ao particionar", zap.Error(err))
	}

	build := func() (evaluate.Learner, error) {
		return models.New(cfg.Algo, cfg.Hyperparameters, cfg.Seed, "data/curve")
	}
	sizes := evaluate.CurveSizes(len(sp.Train), *points, *minSize)
	pts, err := evaluate.LearningCurve(data.Matrix(sp.Train), data.Labels(sp.Train), data.Matrix(sp.Test), data.Labels(sp.Test), sizes, build)
	if err != nil {
		logger.Fatal("Falha na curva", zap.Error(err))
	}
	for _, p := range pts {
		fmt.Printf("%s | size=%d | train=%.1f%% | test=%.1f%%\n", cfg.Algo, p.Size, p.TrainAcc, p.TestAcc)
	}

	if err := evaluate.WriteCurveCSV(*outCsv, pts); err != nil {
		logger.Warn("Falha ao salvar CSV da curva", zap.Error(err))
	}
	if err := evaluate.PlotCurve(*outImg, pts); err != nil {
		logger.Warn("Falha ao salvar PNG da curva", zap.Error(err))
	} else {
		logger.Info("Curva de aprendizagem gerada", zap.String("png", *outImg), zap.String("csv", *outCsv))
	}
}
