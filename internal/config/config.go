package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`

	// Empty MQURL runs the notification queue in-process.
	MQURL            string        `yaml:"mq_url"`
	MQMaxRedeliver   int64         `yaml:"mq_max_redeliver"`
	MQRedeliverDelay time.Duration `yaml:"mq_redeliver_delay"`

	JWTSecret     string        `yaml:"jwt_secret"`
	JWTTTL        time.Duration `yaml:"jwt_ttl"`
	SessionSecret string        `yaml:"session_secret"`

	GinMode  string `yaml:"gin_mode"`
	HTTPPort string `yaml:"http_port"`

	LockTimeout        time.Duration `yaml:"lock_timeout"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`

	MaxPushAttempts int           `yaml:"max_push_attempts"`
	PushBackoff     time.Duration `yaml:"push_backoff"`
	QueueBuffer     int           `yaml:"queue_buffer"`
}

func defaults() *Config {
	return &Config{
		DBDriver:           "postgres",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "projecthub",
		DBPassword:         "projecthub",
		DBName:             "projecthub",
		RedisHost:          "localhost",
		RedisPort:          "6379",
		MQMaxRedeliver:     5,
		MQRedeliverDelay:   time.Second,
		JWTSecret:          "default-jwt-secret-change-me",
		JWTTTL:             24 * time.Hour,
		SessionSecret:      "default-secret-key-change-me",
		GinMode:            "debug",
		HTTPPort:           "8080",
		LockTimeout:        5 * time.Second,
		SlowQueryThreshold: 200 * time.Millisecond,
		MaxPushAttempts:    3,
		PushBackoff:        500 * time.Millisecond,
		QueueBuffer:        256,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnv("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.MQURL = getEnv("MQ_URL", cfg.MQURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", cfg.JWTTTL); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", cfg.LockTimeout); err != nil {
		return nil, err
	}
	if cfg.SlowQueryThreshold, err = getDuration("SLOW_QUERY_THRESHOLD", cfg.SlowQueryThreshold); err != nil {
		return nil, err
	}
	if cfg.PushBackoff, err = getDuration("PUSH_BACKOFF", cfg.PushBackoff); err != nil {
		return nil, err
	}
	if cfg.MQRedeliverDelay, err = getDuration("MQ_REDELIVER_DELAY", cfg.MQRedeliverDelay); err != nil {
		return nil, err
	}
	if cfg.MaxPushAttempts, err = getInt("MAX_PUSH_ATTEMPTS", cfg.MaxPushAttempts); err != nil {
		return nil, err
	}
	if cfg.QueueBuffer, err = getInt("QUEUE_BUFFER", cfg.QueueBuffer); err != nil {
		return nil, err
	}
	redeliver, err := getInt("MQ_MAX_REDELIVER", int(cfg.MQMaxRedeliver))
	if err != nil {
		return nil, err
	}
	cfg.MQMaxRedeliver = int64(redeliver)

	if cfg.MaxPushAttempts < 1 {
		return nil, fmt.Errorf("MAX_PUSH_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
