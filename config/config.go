package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Delivery DeliveryConfig `yaml:"delivery"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	OrderUpdatedTopicName string `yaml:"order_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DeliveryConfig struct {
	OrderAPIHTTPAddr    string `yaml:"order_api_http_addr"`
	TrackingAPIHTTPAddr string `yaml:"tracking_api_http_addr"`

	JWTSecret string `yaml:"jwt_secret"`
	// InternalAPIKey authenticates service-to-service calls between the order
	// and tracking sides.
	InternalAPIKey string `yaml:"internal_api_key"`

	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	TrackingTTLSeconds          int   `yaml:"tracking_ttl_seconds"`
	TrackingRateLimitPerMinute  int64 `yaml:"tracking_rate_limit_per_minute"`
	NotifierQueueSize           int   `yaml:"notifier_queue_size"`
	NotifierRetryBaseDelayMilli int   `yaml:"notifier_retry_base_delay_ms"`

	OrderServiceBaseURL    string `yaml:"order_service_base_url"`
	TrackingServiceBaseURL string `yaml:"tracking_service_base_url"`
	CustomerServiceBaseURL string `yaml:"customer_service_base_url"`
	ProductServiceBaseURL  string `yaml:"product_service_base_url"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password,
		c.Database.Host, c.Database.Port, c.Database.DBName, ssl)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}
