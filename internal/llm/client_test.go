package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer 创建模拟Claude API的测试服务器
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

// successResponse 构造一个成功的API响应
func successResponse(text string) claudeResponse {
	return claudeResponse{
		ID:   "msg_test",
		Type: "message",
		Role: "assistant",
		Content: []claudeContentBlock{
			{Type: "text", Text: text},
		},
		StopReason: "end_turn",
		Usage: claudeUsage{
			InputTokens:  12,
			OutputTokens: 34,
		},
	}
}

// TestNewClaudeClient 测试客户端创建
func TestNewClaudeClient(t *testing.T) {
	// 缺少API密钥时应失败
	_, err := NewClaudeClient(Config{})
	require.Error(t, err)
	llmErr, ok := err.(LLMError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code)

	// 缺省配置应自动填充
	client, err := NewClaudeClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	cc := client.(*ClaudeClient)
	assert.Equal(t, ModelClaudeHaiku, cc.config.Model)
	assert.Equal(t, 1024, cc.config.MaxTokens)
	assert.Equal(t, defaultClaudeBaseURL, cc.config.BaseURL)
	assert.Equal(t, "claude", client.Name())
}

// TestClaudeGenerate 测试文本生成
func TestClaudeGenerate(t *testing.T) {
	var gotRequest claudeRequest
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// 校验请求头
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, claudeAPIVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(successResponse("첫 문장입니다. 두 번째 문장입니다."))
	})
	defer server.Close()

	client, err := NewClaudeClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), "문장을 나눠주세요",
		WithSystem("You split sentences."),
		WithMaxTokens(256),
		WithTemperature(0.2))
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "첫 문장입니다. 두 번째 문장입니다.", resp.Text)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 34, resp.OutputTokens)
	assert.Equal(t, ModelClaudeHaiku, resp.ModelName)
	assert.False(t, resp.FinishTime.IsZero())

	// 请求体应携带选项
	assert.Equal(t, "You split sentences.", gotRequest.System)
	assert.Equal(t, 256, gotRequest.MaxTokens)
	require.NotNil(t, gotRequest.Temperature)
	assert.InDelta(t, 0.2, float64(*gotRequest.Temperature), 0.001)
	require.Len(t, gotRequest.Messages, 1)
	assert.Equal(t, RoleUser, gotRequest.Messages[0].Role)

	t.Logf("generate response: %+v", resp)
}

// TestClaudeGenerateEmptyPrompt 测试空提示词
func TestClaudeGenerateEmptyPrompt(t *testing.T) {
	client, err := NewClaudeClient(Config{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "   ")
	require.Error(t, err)
	llmErr, ok := err.(LLMError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)
}

// TestClaudeGenerateAPIError 测试API错误处理
func TestClaudeGenerateAPIError(t *testing.T) {
	var calls int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(claudeResponse{
			Type:  "error",
			Error: &claudeAPIError{Type: "authentication_error", Message: "invalid x-api-key"},
		})
	})
	defer server.Close()

	client, err := NewClaudeClient(Config{
		APIKey:  "bad-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "테스트")
	require.Error(t, err)
	llmErr, ok := err.(LLMError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code)
	assert.Contains(t, llmErr.Message, "authentication_error")

	// 认证错误不应重试
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// TestClaudeGenerateRetry 测试服务器错误后的重试
func TestClaudeGenerateRetry(t *testing.T) {
	var calls int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// 第一次请求返回服务器错误，触发重试
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(claudeResponse{
				Type:  "error",
				Error: &claudeAPIError{Type: "api_error", Message: "internal error"},
			})
			return
		}
		json.NewEncoder(w).Encode(successResponse("재시도 성공"))
	})
	defer server.Close()

	client, err := NewClaudeClient(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 2,
	})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), "테스트")
	require.NoError(t, err)
	assert.Equal(t, "재시도 성공", resp.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

// TestClaudeGenerateContextCancel 测试上下文取消
func TestClaudeGenerateContextCancel(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		json.NewEncoder(w).Encode(successResponse("too late"))
	})
	defer server.Close()

	client, err := NewClaudeClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cancel()

	_, err = client.Generate(ctx, "테스트")
	require.Error(t, err)
	llmErr, ok := err.(LLMError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTimeout, llmErr.Code)
}

// TestNewClientFactory 测试客户端工厂
func TestNewClientFactory(t *testing.T) {
	// 已注册的claude客户端
	client, err := NewClient("claude", Config{APIKey: "test-key"})
	assert.NoError(t, err)
	assert.NotNil(t, client)

	// 未注册的客户端名称
	_, err = NewClient("unknown-provider", Config{})
	assert.Error(t, err)
}
