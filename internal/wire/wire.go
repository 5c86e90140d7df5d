package wire

import (
	"ThinkSync/internal/api"
	"ThinkSync/internal/api/config"
	"ThinkSync/internal/api/handler"
	"ThinkSync/internal/job"
	"ThinkSync/internal/pkg/consts"
	"ThinkSync/internal/pkg/cron"
	"ThinkSync/internal/pkg/kafka"
	"ThinkSync/internal/pkg/realtime"
	redisx "ThinkSync/internal/pkg/redis"
	"ThinkSync/internal/repository"
	"ThinkSync/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	Hub          *realtime.Hub
	IMService    service.IMService
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager // kafka.enable 为 false 时为 nil
}

// BuildApplication messageRepo 由调用方按 im.message_store 选择
func BuildApplication(db *gorm.DB, messageRepo repository.MessageRepo, rdb *redis.Client, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	userFollowRepo := repository.NewUserFollowRepo(db)

	// 缓存只能由 kafka 消费者失效，未开启时不缓存
	var connectionTTL, profileTTL time.Duration
	if cfg.Kafka.Enable {
		connectionTTL = time.Duration(cfg.IM.ConnectionCacheTTL) * time.Second
		profileTTL = service.DefaultProfileCacheTTL
	}
	gate := service.NewRelationGate(userFollowRepo, rdb, connectionTTL)
	profiles := service.NewProfileService(userRepo, rdb, profileTTL)
	summaries := service.NewSummaryBuilder(messageRepo, profiles)
	dirty := redisx.NewDirtySet(rdb, consts.IMUnreadDirty)

	imService := service.NewIMService(
		messageRepo,
		userFollowRepo,
		gate,
		profiles,
		summaries,
		realtime.NewRedisPublisher(rdb),
		dirty,
		service.FanoutOptions{
			Workers:        cfg.IM.FanoutWorkers,
			QueueSize:      cfg.IM.FanoutQueueSize,
			PublishRetries: cfg.IM.PublishRetries,
		},
	)

	hub := realtime.NewHub()
	handlers := &api.HandlersGroup{
		IMHandler: handler.NewIMHandler(imService),
		WSHandler: handler.NewWsHandler(hub, cfg.Server.AllowedOrigins),
	}
	router := api.SetupRouter(handlers, cfg, rdb)

	cronMgr := cron.NewCronManager(job.NewUnreadReconcileJob(dirty, imService), cfg.IM.ReconcileSpec)

	var kafkaMgr *kafka.ConsumerManager
	if cfg.Kafka.Enable {
		var err error
		kafkaMgr, err = kafka.NewConsumerManager(cfg, gate, profiles)
		if err != nil {
			imService.Close()
			return nil, err
		}
	}

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		Hub:          hub,
		IMService:    imService,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
	}, nil
}
