package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aimankahim/mcqsbank/backend/go/internal/auth"
	"github.com/aimankahim/mcqsbank/backend/go/internal/config"
	"github.com/aimankahim/mcqsbank/backend/go/internal/database/mysql"
	redisdb "github.com/aimankahim/mcqsbank/backend/go/internal/database/redis"
	"github.com/aimankahim/mcqsbank/backend/go/internal/user_service/api"
	"github.com/aimankahim/mcqsbank/backend/go/internal/user_service/service"
	"github.com/aimankahim/mcqsbank/backend/go/internal/user_service/store"
	httpserver "github.com/aimankahim/mcqsbank/backend/go/pkg/http"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/httpmiddleware"
	"github.com/aimankahim/mcqsbank/backend/go/pkg/logger"
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
	appLogger := logger.New("user_service", "", "")
	appLogger.Info("Logger initialized")

	// 3. 初始化数据库
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mysql.Close()
	appLogger.Info("Database connection established")

	// 4. 验证码存储：优先使用 Redis，未配置时退回进程内缓存
	var otps store.OTPStore
	if cfg.Databases.Redis.Address != "" {
		rdb, err := redisdb.GetClient(&cfg.Databases.Redis)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		defer redisdb.Close()
		otps = store.NewRedisOTPStore(rdb)
	} else {
		appLogger.Warn("Redis 未配置，验证码只保存在当前进程中")
		mem, err := store.NewMemoryOTPStore(10000)
		if err != nil {
			appLogger.Fatal(err.Error())
		}
		otps = mem
	}

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// 5. 依赖注入 (Store -> Service -> Handler)
	userService := service.NewService(service.Deps{
		Store:  store.NewStore(db, appLogger),
		Tokens: tokens,
		OTPs:   otps,
		Mailer: service.NewMailer(cfg.Mail, appLogger),
	}, cfg.Auth, appLogger)

	if cfg.Auth.UsernameFilter {
		warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
		if err := userService.WarmUsernames(warmCtx); err != nil {
			appLogger.Warn("预热用户名过滤器失败，用户名检查将直接查询数据库: " + err.Error())
		}
		cancelWarm()
	}

	// 6. HTTP 服务
	srv, err := httpserver.NewServer(cfg, httpserver.WithAddress(cfg.App.UserAddr), httpserver.WithLogger(appLogger))
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	api.RegisterRoutes(srv.Engine(), api.NewHandler(userService, appLogger), httpmiddleware.Auth(tokens), nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			appLogger.Fatal(fmt.Sprintf("Failed to serve HTTP: %v", err))
		}
	}()

	// 7. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown: " + err.Error())
	}
	appLogger.Info("Server gracefully stopped")
}
