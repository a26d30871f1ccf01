package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bitquery   BitqueryConfig   `mapstructure:"bitquery"`
	API        APIConfig        `mapstructure:"api"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type BitqueryConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Network  string        `mapstructure:"network"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Addr        string `mapstructure:"addr"`
	Environment string `mapstructure:"environment"`
}

type SyncConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Contracts []string      `mapstructure:"contracts"`
	Lookback  time.Duration `mapstructure:"lookback"`
	Limit     int           `mapstructure:"limit"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topics   Topics   `mapstructure:"topics"`
	Producer Producer `mapstructure:"producer"`
	Encoding string   `mapstructure:"encoding"`
}

type Topics struct {
	Trades string `mapstructure:"trades"`
}

type Producer struct {
	MaxRetries      int    `mapstructure:"max_retries"`
	RequiredAcks    int    `mapstructure:"required_acks"`
	CompressionType string `mapstructure:"compression_type"`
}

type ClickHouseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/dexapi")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it,
// including bitquery.api_key which has no usable default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bitquery.api_key", "")
	v.SetDefault("bitquery.network", "ethereum")
	v.SetDefault("bitquery.endpoint", "https://graphql.bitquery.io/")
	v.SetDefault("bitquery.timeout", "30s")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.environment", "development")

	v.SetDefault("sync.interval", "1m")
	v.SetDefault("sync.contracts", []string{})
	v.SetDefault("sync.lookback", "24h")
	v.SetDefault("sync.limit", 1000)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topics.trades", "dex.trades")
	v.SetDefault("kafka.producer.max_retries", 3)
	v.SetDefault("kafka.producer.required_acks", 1)
	v.SetDefault("kafka.producer.compression_type", "snappy")
	v.SetDefault("kafka.encoding", "avro")

	v.SetDefault("clickhouse.enabled", true)
	v.SetDefault("clickhouse.host", "localhost")
	v.SetDefault("clickhouse.port", 9000)
	v.SetDefault("clickhouse.database", "dex_data")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")
}
