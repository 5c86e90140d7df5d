package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg，环境变量 THINKSYNC_* 可覆盖文件中的配置
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("THINKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_lifetime", 30)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("mongo.database", "thinksync")
	v.SetDefault("logstash.index", "logstash-thinksync")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("kafka.consumer.session_timeout", 10)
	v.SetDefault("kafka.consumer.heartbeat_interval", 3)
	v.SetDefault("kafka.consumer.rebalance_timeout", 60)
	v.SetDefault("kafka.consumer.max_processing_time", 1)
	v.SetDefault("kafka_user_follow_consumer.topic", "canal-user-follows")
	v.SetDefault("kafka_user_follow_consumer.group_id", "thinksync-im-user-follows")
	v.SetDefault("kafka_user_detail_consumer.topic", "canal-user-detail")
	v.SetDefault("kafka_user_detail_consumer.group_id", "thinksync-im-user-detail")
	v.SetDefault("im.message_store", MessageStoreMySQL)
	v.SetDefault("im.fanout_workers", 5)
	v.SetDefault("im.fanout_queue_size", 2048)
	v.SetDefault("im.publish_retries", 3)
	v.SetDefault("im.connection_cache_ttl", 600)
	v.SetDefault("im.reconcile_spec", "@every 30s")
}
