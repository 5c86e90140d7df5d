package kafka

import (
	"ThinkSync/internal/api/config"
	"time"

	"github.com/IBM/sarama"
)

// newSaramaConfig 缓存失效消费者共用；只关心启动后的新变更，位点自动提交
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = "thinksync-im"

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = sarama.OffsetNewest
	c.Consumer.Offsets.AutoCommit.Enable = true
	c.Consumer.Offsets.AutoCommit.Interval = time.Second
	c.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}

	consumer := kafkaCfg.Consumer
	c.Consumer.Group.Session.Timeout = seconds(consumer.SessionTimeout, 10)
	c.Consumer.Group.Heartbeat.Interval = seconds(consumer.HeartbeatInterval, 3)
	c.Consumer.Group.Rebalance.Timeout = seconds(consumer.RebalanceTimeout, 60)
	c.Consumer.MaxProcessingTime = seconds(consumer.MaxProcessingTime, 1)

	return c
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
