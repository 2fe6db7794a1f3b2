package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"xgbdeploy/internal/models"
	"xgbdeploy/internal/serving"
	"xgbdeploy/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	path := flag.String("model", os.Getenv("MODEL_PATH"), "Modelo gob salvo pelo pipeline")
	flag.Parse()
	if *path == "" {
		logger.Fatal("Informe -model ou MODEL_PATH")
	}

	m, err := models.Load(*path)
	if err != nil {
		logger.Fatal("Falha ao carregar modelo", zap.Error(err))
	}
	logger.Info("Modelo carregado", zap.String("model", m.Name()), zap.String("path", *path))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := serving.New(m, logger).ListenAndServe(":" + port); err != nil {
		logger.Fatal("Falha no servidor", zap.Error(err))
	}
}
