package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	AI            AIConfig            `yaml:"ai"`
	Redis         RedisConfig         `yaml:"redis"`
	ClickHouse    ClickHouseConfig    `yaml:"clickhouse"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Search        SearchConfig        `yaml:"search"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CatalogConfig struct {
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key"`
	RequestTimeout time.Duration        `yaml:"request_timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type AIConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Enabled        bool          `yaml:"enabled"`
}

type RedisConfig struct {
	Addresses    []string       `yaml:"addresses"`
	Password     string         `yaml:"password"`
	DB           int            `yaml:"db"`
	PoolSize     int            `yaml:"pool_size"`
	MinIdleConns int            `yaml:"min_idle_conns"`
	DialTimeout  time.Duration  `yaml:"dial_timeout"`
	ReadTimeout  time.Duration  `yaml:"read_timeout"`
	WriteTimeout time.Duration  `yaml:"write_timeout"`
	TTL          CacheTTLConfig `yaml:"ttl"`
}

type CacheTTLConfig struct {
	TitleSearch  time.Duration `yaml:"title_search"`
	PersonSearch time.Duration `yaml:"person_search"`
	Discover     time.Duration `yaml:"discover"`
	Trending     time.Duration `yaml:"trending"`
	Popular      time.Duration `yaml:"popular"`
}

type ClickHouseConfig struct {
	Addresses    []string      `yaml:"addresses"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	Enabled      bool          `yaml:"enabled"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	TopicEvents  string        `yaml:"topic_events"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	Enabled      bool          `yaml:"enabled"`
}

type SearchConfig struct {
	DefaultPageSize     int              `yaml:"default_page_size"`
	MaxPageSize         int              `yaml:"max_page_size"`
	MaxStrategies       int              `yaml:"max_strategies"`
	ShortCircuitMatches int              `yaml:"short_circuit_matches"`
	QueryTimeout        time.Duration    `yaml:"query_timeout"`
	HeuristicConfidence int              `yaml:"heuristic_confidence_cap"`
	EmergencyConfidence int              `yaml:"emergency_confidence"`
	SlowSearch          SlowSearchConfig `yaml:"slow_search"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

type SlowSearchConfig struct {
	WarningThreshold  time.Duration `yaml:"warning_threshold"`
	CriticalThreshold time.Duration `yaml:"critical_threshold"`
}

type ObservabilityConfig struct {
	TracingEndpoint string `yaml:"tracing_endpoint"`
	LogLevel        string `yaml:"log_level"`
	ServiceName     string `yaml:"service_name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://api.themoviedb.org/3",
			RequestTimeout: 5 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: 40,
				Window:   10 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      10,
				Interval:         30 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		AI: AIConfig{
			Model:          "intent-analyzer-v1",
			RequestTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addresses:    []string{"localhost:6379"},
			PoolSize:     50,
			MinIdleConns: 5,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			TTL: CacheTTLConfig{
				TitleSearch:  10 * time.Minute,
				PersonSearch: 30 * time.Minute,
				Discover:     15 * time.Minute,
				Trending:     5 * time.Minute,
				Popular:      30 * time.Minute,
			},
		},
		ClickHouse: ClickHouseConfig{
			Addresses:    []string{"localhost:9000"},
			Database:     "search_analytics",
			DialTimeout:  5 * time.Second,
			QueryTimeout: 2 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			TopicEvents:  "search.events",
			BatchSize:    500,
			BatchTimeout: 1 * time.Second,
			MaxRetries:   3,
		},
		Search: SearchConfig{
			DefaultPageSize:     10,
			MaxPageSize:         25,
			MaxStrategies:       7,
			ShortCircuitMatches: 3,
			QueryTimeout:        15 * time.Second,
			HeuristicConfidence: 75,
			EmergencyConfidence: 40,
			SlowSearch: SlowSearchConfig{
				WarningThreshold:  2 * time.Second,
				CriticalThreshold: 8 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			ServiceName: "screenscout",
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog base url required")
	}
	if c.Catalog.RateLimit.Requests <= 0 {
		return fmt.Errorf("catalog rate limit must be positive")
	}
	if c.Catalog.RateLimit.Window <= 0 {
		return fmt.Errorf("catalog rate limit window must be positive")
	}
	if c.AI.Enabled && c.AI.Endpoint == "" {
		return fmt.Errorf("ai endpoint required when ai is enabled")
	}
	if c.Search.DefaultPageSize <= 0 {
		return fmt.Errorf("default page size must be positive")
	}
	if c.Search.MaxPageSize <= 0 || c.Search.MaxPageSize > 100 {
		return fmt.Errorf("max page size must be between 1 and 100")
	}
	if c.Search.MaxStrategies <= 0 {
		return fmt.Errorf("max strategies must be positive")
	}
	if c.Search.HeuristicConfidence <= c.Search.EmergencyConfidence {
		return fmt.Errorf("heuristic confidence cap must exceed emergency confidence")
	}
	return nil
}
