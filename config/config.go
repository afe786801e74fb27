package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Chunking ChunkingConfig `mapstructure:"chunking"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"` // 服务器主机
	Port int    `mapstructure:"port"` // 服务器端口
}

// ChunkingConfig 切分配置
type ChunkingConfig struct {
	MaxChunkSize         int    `mapstructure:"max_chunk_size"`         // 块大小预算(字符数)
	Strategy             string `mapstructure:"strategy"`               // 默认切分策略
	Provider             string `mapstructure:"provider"`               // 形态分析提供方: claude 或 rule-based
	AutoApproveThreshold int    `mapstructure:"auto_approve_threshold"` // 自动通过的质量分阈值
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`        // 单次切分超时(秒)
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider   string `mapstructure:"provider"`    // 提供商，目前支持claude
	Model      string `mapstructure:"model"`       // 模型名称
	APIKey     string `mapstructure:"api_key"`     // API密钥，支持${ENV_VAR}形式
	Endpoint   string `mapstructure:"endpoint"`    // API端点，为空时使用默认值
	MaxTokens  int    `mapstructure:"max_tokens"`  // 最大生成token数量
	TimeoutSec int    `mapstructure:"timeout_sec"` // 请求超时(秒)
	MaxRetries int    `mapstructure:"max_retries"` // 最大重试次数
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"`     // 缓存类型: memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL(秒)
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Enable        bool   `mapstructure:"enable"`         // 是否启用任务队列
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis地址
	RedisPassword string `mapstructure:"redis_password"` // Redis密码
	RedisDB       int    `mapstructure:"redis_db"`       // Redis数据库编号
	Concurrency   int    `mapstructure:"concurrency"`    // 任务处理并发数
	RetryLimit    int    `mapstructure:"retry_limit"`    // 任务最大重试次数
	RetryDelay    int    `mapstructure:"retry_delay"`    // 重试延迟(秒)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型: sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件最大大小(MB)
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧日志文件数量
	MaxAgeDays int    `mapstructure:"max_age_days"` // 日志保留天数
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	setDefaults(v)

	// 支持环境变量覆盖，如 CHUNKING_STRATEGY 覆盖 chunking.strategy
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	return expandEnvironmentVariables(&config), nil
}

// expandEnvironmentVariables 展开配置中${ENV_VAR}形式的环境变量引用
func expandEnvironmentVariables(cfg *Config) *Config {
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Queue.RedisPassword = expandEnv(cfg.Queue.RedisPassword)
	return cfg
}

// expandEnv 将${ENV_VAR}形式的值替换为对应的环境变量
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 切分默认配置
	v.SetDefault("chunking.max_chunk_size", 1000)
	v.SetDefault("chunking.strategy", "semantic")
	v.SetDefault("chunking.provider", "rule-based")
	v.SetDefault("chunking.auto_approve_threshold", 70)
	v.SetDefault("chunking.timeout_seconds", 300)

	// LLM默认配置
	v.SetDefault("llm.provider", "claude")
	v.SetDefault("llm.model", "claude-3-haiku-20240307")
	v.SetDefault("llm.api_key", "${ANTHROPIC_API_KEY}")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout_sec", 30)
	v.SetDefault("llm.max_retries", 3)

	// 缓存默认配置
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 队列默认配置
	v.SetDefault("queue.enable", false)
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.retry_limit", 3)
	v.SetDefault("queue.retry_delay", 60)

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/chunks.db")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}
