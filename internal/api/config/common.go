package config

const (
	MessageStoreMySQL = "mysql"
	MessageStoreMongo = "mongo"
)

// Config 配置主体
type Config struct {
	Server                   ServerConfig            `mapstructure:"server"`
	DB                       DBConfig                `mapstructure:"database"`
	Redis                    RedisConfig             `mapstructure:"redis"`
	Mongo                    MongoConfig             `mapstructure:"mongo"`
	Logstash                 LogstashConfig          `mapstructure:"logstash"`
	JWT                      JWTConfig               `mapstructure:"jwt"`
	Kafka                    KafkaConfig             `mapstructure:"kafka"`
	KafkaUserFollowsConsumer KafkaUserFollowConsumer `mapstructure:"kafka_user_follow_consumer"`
	KafkaUserDetailConsumer  KafkaUserDetailConsumer `mapstructure:"kafka_user_detail_consumer"`
	IM                       IMConfig                `mapstructure:"im"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"` // 为空时放行所有来源
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig 仅在 im.message_store = mongo 时使用
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// LogstashConfig 远程日志
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

type KafkaConfig struct {
	Enable   bool           `mapstructure:"enable"`
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaUserFollowConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type KafkaUserDetailConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// IMConfig 私信与实时推送
type IMConfig struct {
	MessageStore       string `mapstructure:"message_store"`        // mysql | mongo
	FanoutWorkers      int    `mapstructure:"fanout_workers"`       // 推送工作协程数
	FanoutQueueSize    int    `mapstructure:"fanout_queue_size"`    // 推送任务队列长度
	PublishRetries     int    `mapstructure:"publish_retries"`      // 推送失败后的最大重试次数
	ConnectionCacheTTL int    `mapstructure:"connection_cache_ttl"` // 好友关系缓存(秒)
	ReconcileSpec      string `mapstructure:"reconcile_spec"`       // 未读数校准任务 cron 表达式
}
