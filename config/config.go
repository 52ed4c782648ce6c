package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 应用程序配置
type Config struct {
	APIPort  int
	LogLevel string
	LogFile  LogFileConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Email    EmailConfig
	Worker   WorkerConfig
	Delivery DeliveryConfig
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DatabaseConfig MySQL数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Host     string // SMTP服务器地址
	Port     int    // SMTP服务器端口
	Username string // 邮箱账号
	Password string // 邮箱密码
	From     string // 发件人
	FromName string // 发件人名称
}

// WorkerConfig 异步工作器与批处理并发配置
type WorkerConfig struct {
	QueueSize        int
	Workers          int
	BatchConcurrency int
	OrderLockTTL     int // 订单锁过期时间（秒）
}

// DeliveryConfig 发货完成回调配置
type DeliveryConfig struct {
	AuthFailureLimit     int
	RetryIntervalMinutes int
	ContentBaseURL       string
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// .env 文件不存在时忽略，仍然读取进程环境变量
	_ = godotenv.Load()

	return &Config{
		APIPort:  getEnvInt("API_PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile: LogFileConfig{
			Enabled:    getEnvBool("LOG_FILE_ENABLED", false),
			Path:       getEnv("LOG_FILE_PATH", "logs/shopnotify.log"),
			MaxSize:    getEnvInt("LOG_FILE_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 7),
			MaxAge:     getEnvInt("LOG_FILE_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_FILE_COMPRESS", false),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "127.0.0.1"),
			Port:         getEnvInt("DB_PORT", 3306),
			User:         os.Getenv("DB_USER"),
			Password:     os.Getenv("DB_PASSWORD"),
			DBName:       os.Getenv("DB_NAME"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "127.0.0.1"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 20),
		},
		Email: EmailConfig{
			Host:     os.Getenv("EMAIL_HOST"),
			Port:     getEnvInt("EMAIL_PORT", 587), // 465为隐式TLS，其他端口走STARTTLS
			Username: os.Getenv("EMAIL_USERNAME"),
			Password: os.Getenv("EMAIL_PASSWORD"),
			From:     os.Getenv("EMAIL_FROM"),
			FromName: getEnv("EMAIL_FROM_NAME", "shopnotify"),
		},
		Worker: WorkerConfig{
			QueueSize:        getEnvInt("WORKER_QUEUE_SIZE", 100),
			Workers:          getEnvInt("WORKER_COUNT", 5),
			BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 8),
			OrderLockTTL:     getEnvInt("ORDER_LOCK_TTL_SECONDS", 10),
		},
		Delivery: DeliveryConfig{
			AuthFailureLimit:     getEnvInt("STORE_AUTH_FAILURE_LIMIT", 3),
			RetryIntervalMinutes: getEnvInt("DELIVERY_RETRY_INTERVAL_MINUTES", 10),
			ContentBaseURL:       getEnv("CONTENT_BASE_URL", "https://content.shopnotify.local"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
