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
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/api"
	"github.com/aimankahim/mcqsbank/backend/go/internal/learning_service/app"
	httpserver "github.com/aimankahim/mcqsbank/backend/go/pkg/http"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/httpmiddleware"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

func configPath() string {
	if p := os.Getenv("MCQSBANK_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// 2. 初始化 Logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("learning_service", "", "")
	appLogger.Info("Starting learning service...")

	// 3. 组装依赖
	ctx := context.Background()
	a, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(fmt.Sprintf("Failed to initialize dependencies: %v", err))
	}

	// 4. HTTP 服务。限流按用户挂在调用模型的路由上，不在全局按 IP 限流
	serverCfg := *cfg
	serverCfg.Middleware.RateLimiter.Enabled = false
	srv, err := httpserver.NewServer(&serverCfg, httpserver.WithAddress(cfg.App.LearningAddr), httpserver.WithLogger(appLogger))
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	var limit gin.HandlerFunc
	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := httpserver.NewKeyedLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		limit = httpmiddleware.RateLimit(limiter, httpmiddleware.UserKey)
	}
	handler := api.NewHandler(a.Service, a.Chat, appLogger)
	api.RegisterRoutes(srv.Engine(), handler, httpmiddleware.Auth(a.Tokens), limit)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to serve HTTP: %v", err))
		}
	}()

	// 5. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown: " + err.Error())
	}
	if err := a.Close(shutdownCtx); err != nil {
		appLogger.Error("Failed to close dependencies: " + err.Error())
	}
	appLogger.Info("Server gracefully stopped")
}
