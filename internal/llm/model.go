package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`    // 角色
	Content string      `json:"content"` // 内容
}

// claudeRequest Claude Messages API请求结构
type claudeRequest struct {
	Model       string    `json:"model"`                 // 模型名称
	MaxTokens   int       `json:"max_tokens"`            // 最大生成Token数
	System      string    `json:"system,omitempty"`      // 系统提示词
	Temperature *float32  `json:"temperature,omitempty"` // 采样温度
	Messages    []Message `json:"messages"`              // 消息列表
}

// claudeResponse Claude Messages API响应结构
type claudeResponse struct {
	ID         string               `json:"id"`          // 响应ID
	Type       string               `json:"type"`        // 响应类型，出错时为"error"
	Role       string               `json:"role"`        // 角色
	Content    []claudeContentBlock `json:"content"`     // 内容块列表
	StopReason string               `json:"stop_reason"` // 结束原因
	Usage      claudeUsage          `json:"usage"`       // Token使用情况
	Error      *claudeAPIError      `json:"error"`       // 错误信息(如果有)
}

// claudeContentBlock 响应内容块
type claudeContentBlock struct {
	Type string `json:"type"` // 内容块类型
	Text string `json:"text"` // 文本内容
}

// claudeUsage Token使用情况
type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`  // 输入token数
	OutputTokens int `json:"output_tokens"` // 输出token数
}

// claudeAPIError API错误信息
type claudeAPIError struct {
	Type    string `json:"type"`    // 错误类型
	Message string `json:"message"` // 错误消息
}

// Response 统一的响应结构
type Response struct {
	Text         string    // 生成的文本
	InputTokens  int       // 输入token数
	OutputTokens int       // 输出token数
	ModelName    string    // 使用的模型名称
	FinishTime   time.Time // 完成时间
}

// 常用模型名称
const (
	ModelClaudeHaiku  = "claude-3-haiku-20240307"    // 速度优先，适合句子切分等轻量任务
	ModelClaudeSonnet = "claude-3-5-sonnet-20241022" // 平衡速度与能力
)
