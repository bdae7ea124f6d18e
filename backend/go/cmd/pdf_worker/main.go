package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/app"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/consumer"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
)

func configPath() string {
	if p := os.Getenv("MCQSBANK_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func main() {
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("pdf_worker", "", "")

	if !cfg.Databases.Kafka.Enabled {
		appLogger.Fatal("Kafka 未启用，PDF 由学习服务在进程内处理，无需启动 worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to initialize dependencies: %v", err))
	}

	reader := a.Kafka.NewReader()
	appLogger.Info("Starting PDF task consumer on topic " + cfg.Databases.Kafka.PDFTopic)
	consumer.NewTaskConsumer(reader, appLogger).Run(ctx, a.Service.ProcessPDF)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := reader.Close(); err != nil {
		appLogger.Error("Failed to close Kafka reader: " + err.Error())
	}
	if err := a.Close(closeCtx); err != nil {
		appLogger.Error("Failed to close dependencies: " + err.Error())
	}
	appLogger.Info("PDF worker stopped")
}
