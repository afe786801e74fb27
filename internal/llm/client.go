package llm

import (
	"context"
	"fmt"
	"time"
)

// Client 大模型客户端接口
type Client interface {
	// Generate 根据提示词生成文本
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Response, error)
	// Name 返回客户端名称
	Name() string
}

// Config 客户端配置
type Config struct {
	APIKey     string        // API密钥
	Model      string        // 模型名称
	BaseURL    string        // API基础URL，为空时使用默认值
	MaxTokens  int           // 最大生成Token数
	Timeout    time.Duration // 请求超时时间
	MaxRetries int           // 最大重试次数
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Model:      ModelClaudeHaiku,
		MaxTokens:  1024,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// GenerateOption 单次生成请求的选项
type GenerateOption func(*generateOptions)

// generateOptions 单次生成请求的参数
type generateOptions struct {
	system      string
	maxTokens   int
	temperature *float32
}

// WithSystem 设置系统提示词
func WithSystem(system string) GenerateOption {
	return func(o *generateOptions) {
		o.system = system
	}
}

// WithMaxTokens 设置最大生成Token数
func WithMaxTokens(maxTokens int) GenerateOption {
	return func(o *generateOptions) {
		o.maxTokens = maxTokens
	}
}

// WithTemperature 设置采样温度
func WithTemperature(temperature float32) GenerateOption {
	return func(o *generateOptions) {
		o.temperature = &temperature
	}
}

// ClientFactory 客户端工厂函数类型
type ClientFactory func(config Config) (Client, error)

// 已注册的客户端工厂
var clientFactories = make(map[string]ClientFactory)

// RegisterClient 注册客户端工厂
func RegisterClient(name string, factory ClientFactory) {
	clientFactories[name] = factory
}

// NewClient 根据名称创建客户端
func NewClient(name string, config Config) (Client, error) {
	factory, ok := clientFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown llm client: %s", name)
	}
	return factory(config)
}
