package morphology

import (
	"github.com/sirupsen/logrus"
)

// Provider 形态分析提供方类型
type Provider string

const (
	// ProviderClaude 使用Claude大模型进行句子切分
	ProviderClaude Provider = "claude"
	// ProviderRuleBased 使用规则引擎进行句子切分
	ProviderRuleBased Provider = "rule-based"
)

// Result 形态分析结果
type Result struct {
	Sentences          []string `json:"sentences"`           // 切分出的句子列表
	SentenceBoundaries []int    `json:"sentence_boundaries"` // 句子边界的rune偏移
	Metadata           Metadata `json:"metadata"`            // 分析元数据
}

// Metadata 分析结果元数据
type Metadata struct {
	Method         Provider `json:"method"`             // 实际使用的分析方法
	Cached         bool     `json:"cached"`             // 结果是否来自缓存
	ProcessingTime int64    `json:"processing_time_ms"` // 处理耗时(毫秒)
}

// TokenUsage 单次大模型调用的Token使用情况
type TokenUsage struct {
	InputTokens  int    // 输入token数
	OutputTokens int    // 输出token数
	Model        string // 模型名称
}

// UsageTracker Token使用跟踪接口
// 用于成本核算，跟踪失败不应影响分析流程
type UsageTracker interface {
	Track(usage TokenUsage)
}

// LogUsageTracker 将Token使用情况输出到日志的跟踪器
type LogUsageTracker struct {
	Logger *logrus.Logger
}

// Track 记录Token使用情况
func (t *LogUsageTracker) Track(usage TokenUsage) {
	if t.Logger == nil {
		return
	}
	t.Logger.WithFields(logrus.Fields{
		"model":         usage.Model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	}).Info("llm token usage")
}

// NoopUsageTracker 不做任何记录的跟踪器
type NoopUsageTracker struct{}

// Track 空实现
func (NoopUsageTracker) Track(TokenUsage) {}
