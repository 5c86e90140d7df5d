package kafka

import (
	"ThinkSync/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理缓存失效相关的 Kafka 消费者
type ConsumerManager struct {
	userFollowsConsumer sarama.ConsumerGroup
	userFollowsHandler  sarama.ConsumerGroupHandler

	userDetailConsumer sarama.ConsumerGroup
	userDetailHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, gate ConnectionInvalidator, profiles ProfileInvalidator) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	userFollowsConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaUserFollowsConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	userDetailConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaUserDetailConsumer.GroupID, saramaCfg)
	if err != nil {
		_ = userFollowsConsumer.Close()
		return nil, err
	}

	return &ConsumerManager{
		userFollowsConsumer: userFollowsConsumer,
		userFollowsHandler:  NewUserFollowsHandler(gate),
		userDetailConsumer:  userDetailConsumer,
		userDetailHandler:   NewUserDetailHandler(profiles),
	}, nil
}

func consumeLoop(ctx context.Context, name, topic string, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler) {
	log.Info("Kafka consumer started", "consumer", name, "topic", topic)
	go func() {
		for err := range group.Errors() {
			log.Error("Kafka consumer error", "consumer", name, "err", err)
		}
	}()
	for {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			log.Error("Error from consumer", "consumer", name, "err", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Start 启动所有消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go consumeLoop(ctx, "user_follows", cfg.KafkaUserFollowsConsumer.Topic, m.userFollowsConsumer, m.userFollowsHandler)
	go consumeLoop(ctx, "user_detail", cfg.KafkaUserDetailConsumer.Topic, m.userDetailConsumer, m.userDetailHandler)

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.userFollowsConsumer.Close(); err != nil {
		log.Error("Failed to close follows consumer", "err", err)
	}
	if err := m.userDetailConsumer.Close(); err != nil {
		log.Error("Failed to close detail consumer", "err", err)
	}
	return nil
}
