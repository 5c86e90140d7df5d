package main

import (
	"ThinkSync/internal/api/config"
	"ThinkSync/internal/pkg/cron"
	"ThinkSync/internal/pkg/database"
	"ThinkSync/internal/pkg/logger"
	"ThinkSync/internal/pkg/mongo"
	"ThinkSync/internal/pkg/redis"
	"ThinkSync/internal/pkg/security"
	"ThinkSync/internal/repository"
	"ThinkSync/internal/wire"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logger.InitLogger(cfg.Logstash)
	security.Init(cfg.JWT)

	// 数据库连接
	dbCfg := cfg.DB
	db, err := database.NewGormDB(&dbCfg)
	if err != nil {
		log.Error("Fatal error: failed to create database connection", "err", err)
		panic(err)
	}

	// Redis 连接
	err = redis.InitRedis(cfg.Redis)
	if err != nil {
		log.Error("Fatal error: failed to create redis connection", "err", err)
		panic(err)
	}

	// 消息存储
	messageRepo, err := newMessageRepo(cfg, db)
	if err != nil {
		log.Error("Fatal error: failed to create message store", "store", cfg.IM.MessageStore, "err", err)
		panic(err)
	}

	// 依赖注入
	app, err := wire.BuildApplication(db, messageRepo, redis.Rdb, cfg)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 实时频道订阅
	g.Go(func() error {
		log.Info("Realtime Hub starting...")
		return app.Hub.Run(ctx, redis.Rdb)
	})

	// 定时任务
	err = cron.InitCron(app.CronMgr)
	if err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// Kafka 消费者
	if app.KafkaManager != nil {
		g.Go(func() error {
			log.Info("Kafka Consumers starting...")
			return app.KafkaManager.Start(ctx, cfg)
		})
	}

	// HTTP 服务器
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: app.Router,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}

		// HTTP 停止后不再有新的推送任务
		log.Info("IM fan-out draining...")
		app.IMService.Close()
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}

func newMessageRepo(cfg *config.Config, db *gorm.DB) (repository.MessageRepo, error) {
	switch cfg.IM.MessageStore {
	case config.MessageStoreMySQL, "":
		return repository.NewMessageRepo(db), nil
	case config.MessageStoreMongo:
		mongoDB, err := mongo.InitMongo(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return mongo.NewMessageRepo(mongoDB), nil
	default:
		return nil, fmt.Errorf("unknown message store %q", cfg.IM.MessageStore)
	}
}
