package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// defaultClaudeBaseURL Claude API默认地址
	defaultClaudeBaseURL = "https://api.anthropic.com"
	// claudeMessagesPath Messages API路径
	claudeMessagesPath = "/v1/messages"
	// claudeAPIVersion API版本号，随请求头发送
	claudeAPIVersion = "2023-06-01"
)

// ClaudeClient Claude API客户端实现
type ClaudeClient struct {
	config     Config
	httpClient *http.Client
}

// NewClaudeClient 创建Claude客户端
func NewClaudeClient(config Config) (Client, error) {
	if config.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultClaudeBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &ClaudeClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Name 返回客户端名称
func (c *ClaudeClient) Name() string {
	return "claude"
}

// Generate 调用Claude Messages API生成文本
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	options := generateOptions{maxTokens: c.config.MaxTokens}
	for _, opt := range opts {
		opt(&options)
	}

	reqBody := claudeRequest{
		Model:       c.config.Model,
		MaxTokens:   options.maxTokens,
		System:      options.system,
		Temperature: options.temperature,
		Messages: []Message{
			{Role: RoleUser, Content: prompt},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidRequest)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避后重试
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, WrapError(ctx.Err(), ErrCodeTimeout)
			case <-time.After(backoff):
			}
		}

		resp, err := c.doRequest(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// 仅在可恢复的错误上重试
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// doRequest 执行一次API请求
// 每次调用都重新构建请求体，避免重试时复用已消费的body
func (c *ClaudeClient) doRequest(ctx context.Context, payload []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+claudeMessagesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidRequest)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", claudeAPIVersion)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, WrapError(ctx.Err(), ErrCodeTimeout)
		}
		return nil, WrapError(err, ErrCodeNetworkError)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, WrapError(err, ErrCodeNetworkError)
	}

	var apiResp claudeResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("unexpected response (status=%d): %s", httpResp.StatusCode, truncate(string(body), 200)))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, newAPIError(httpResp.StatusCode, apiResp.Error)
	}

	var text strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return &Response{
		Text:         text.String(),
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
		ModelName:    c.config.Model,
		FinishTime:   time.Now(),
	}, nil
}

// newAPIError 将API错误响应转换为LLMError
func newAPIError(statusCode int, apiErr *claudeAPIError) LLMError {
	message := fmt.Sprintf("API returned status %d", statusCode)
	if apiErr != nil {
		message = fmt.Sprintf("%s: %s", apiErr.Type, apiErr.Message)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewLLMError(ErrCodeInvalidAPIKey, message)
	case http.StatusTooManyRequests:
		return NewLLMError(ErrCodeRateLimited, message)
	case http.StatusBadRequest:
		return NewLLMError(ErrCodeInvalidRequest, message)
	default:
		if statusCode == 529 {
			// Anthropic使用529表示模型过载
			return NewLLMError(ErrCodeOverloaded, message)
		}
		if statusCode >= 500 {
			return NewLLMError(ErrCodeServerError, message)
		}
		return NewLLMError(ErrCodeInvalidRequest, message)
	}
}

// isRetryable 判断错误是否可重试
func isRetryable(err error) bool {
	llmErr, ok := err.(LLMError)
	if !ok {
		return false
	}
	switch llmErr.Code {
	case ErrCodeNetworkError, ErrCodeRateLimited, ErrCodeServerError, ErrCodeOverloaded:
		return true
	default:
		return false
	}
}

// truncate 截断过长的字符串用于错误消息
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// 在包初始化时注册Claude客户端
func init() {
	RegisterClient("claude", NewClaudeClient)
}
