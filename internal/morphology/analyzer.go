package morphology

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/hanbitlabs/semantic-chunker/internal/cache"
	"github.com/hanbitlabs/semantic-chunker/internal/chunker"
	"github.com/hanbitlabs/semantic-chunker/internal/llm"
)

const (
	// morphCachePrefix 分析结果的缓存键前缀
	morphCachePrefix = "morph"
	// defaultCacheTTL 默认缓存过期时间
	defaultCacheTTL = time.Hour
)

// claudeSystemPrompt 句子切分的系统提示词
const claudeSystemPrompt = `You are a sentence segmentation engine for Korean and mixed-language text.
Split the given text into sentences and respond with ONLY a JSON array of strings.
Each string must be an exact substring of the input. Do not add, remove or reorder characters.`

// Analyzer 形态分析器
// 负责句子切分，优先使用大模型，失败时回退到规则引擎
type Analyzer struct {
	llmClient llm.Client
	cache     cache.Cache
	tracker   UsageTracker
	logger    *logrus.Logger
	provider  Provider
	cacheTTL  time.Duration
}

// Option 分析器配置选项
type Option func(*Analyzer)

// WithLLMClient 设置大模型客户端
func WithLLMClient(client llm.Client) Option {
	return func(a *Analyzer) {
		a.llmClient = client
	}
}

// WithCache 设置结果缓存
func WithCache(c cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithUsageTracker 设置Token使用跟踪器
func WithUsageTracker(tracker UsageTracker) Option {
	return func(a *Analyzer) {
		a.tracker = tracker
	}
}

// WithLogger 设置日志器
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithProvider 设置分析提供方
func WithProvider(provider Provider) Option {
	return func(a *Analyzer) {
		a.provider = provider
	}
}

// WithCacheTTL 设置缓存过期时间
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Analyzer) {
		a.cacheTTL = ttl
	}
}

// NewAnalyzer 创建形态分析器
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		tracker:  NoopUsageTracker{},
		logger:   logrus.New(),
		provider: ProviderRuleBased,
		cacheTTL: defaultCacheTTL,
	}

	for _, opt := range opts {
		opt(a)
	}

	// 未配置大模型客户端时只能使用规则引擎
	if a.provider == ProviderClaude && a.llmClient == nil {
		a.logger.Warn("claude provider requested but no llm client configured, using rule-based")
		a.provider = ProviderRuleBased
	}

	if a.cache == nil {
		c, err := cache.NewCache(cache.DefaultConfig())
		if err == nil {
			a.cache = c
		}
	}

	return a
}

// AnalyzeOption 单次分析请求的选项
type AnalyzeOption func(*analyzeOptions)

// analyzeOptions 单次分析请求的参数
type analyzeOptions struct {
	useCache bool
}

// WithoutCache 本次分析跳过缓存读写
func WithoutCache() AnalyzeOption {
	return func(o *analyzeOptions) {
		o.useCache = false
	}
}

// Analyze 对文本执行形态分析(句子切分)
// 分析永不失败：任何错误都会记录日志并回退到规则引擎
func (a *Analyzer) Analyze(ctx context.Context, text string, opts ...AnalyzeOption) *Result {
	options := analyzeOptions{useCache: true}
	for _, opt := range opts {
		opt(&options)
	}

	// 空文本直接返回空结果
	if strings.TrimSpace(text) == "" {
		return &Result{
			Sentences:          []string{},
			SentenceBoundaries: nil,
			Metadata: Metadata{
				Method: ProviderRuleBased,
			},
		}
	}

	start := time.Now()
	key := a.cacheKey(text)

	// 优先查询缓存
	if options.useCache && a.cache != nil {
		if cached, found, err := a.cache.Get(key); err == nil && found {
			var result Result
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				result.Metadata.Cached = true
				result.Metadata.ProcessingTime = time.Since(start).Milliseconds()
				return &result
			}
		}
	}

	var result *Result
	if a.provider == ProviderClaude && a.llmClient != nil {
		claudeResult, err := a.analyzeWithClaude(ctx, text)
		if err != nil {
			a.logger.WithError(err).Warn("claude analysis failed, falling back to rule-based")
			result = a.ruleBased(text)
		} else {
			result = claudeResult
		}
	} else {
		result = a.ruleBased(text)
	}

	result.Metadata.ProcessingTime = time.Since(start).Milliseconds()

	// 回退结果同样写入缓存，避免对失败的输入反复调用大模型
	if options.useCache && a.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := a.cache.Set(key, string(data), a.cacheTTL); err != nil {
				a.logger.WithError(err).Warn("failed to cache analysis result")
			}
		}
	}

	return result
}

// SentenceBoundaries 返回文本的句子边界(rune偏移)
// 可直接用作切分器的边界函数
func (a *Analyzer) SentenceBoundaries(ctx context.Context, text string) []int {
	return a.Analyze(ctx, text).SentenceBoundaries
}

// CacheStats 返回缓存统计信息
func (a *Analyzer) CacheStats() (cache.Stats, error) {
	if a.cache == nil {
		return cache.Stats{}, nil
	}
	return a.cache.Stats()
}

// ClearCache 清空分析结果缓存
func (a *Analyzer) ClearCache() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Clear()
}

// Provider 返回当前配置的分析提供方
func (a *Analyzer) Provider() Provider {
	return a.provider
}

// cacheKey 生成缓存键
// 相同提供方与相同文本总是命中同一个键
func (a *Analyzer) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cache.GenerateCacheKey(morphCachePrefix, string(a.provider), hex.EncodeToString(sum[:]))
}

// ruleBased 使用规则引擎进行句子切分
func (a *Analyzer) ruleBased(text string) *Result {
	boundaries := chunker.FindSentenceBoundaries(text)
	sentences := chunker.SentencesFromBoundaries(text, boundaries)
	return &Result{
		Sentences:          sentences,
		SentenceBoundaries: boundaries,
		Metadata: Metadata{
			Method: ProviderRuleBased,
		},
	}
}

// analyzeWithClaude 调用大模型进行句子切分
func (a *Analyzer) analyzeWithClaude(ctx context.Context, text string) (*Result, error) {
	prompt := "다음 텍스트를 문장 단위로 나누세요:\n\n" + text

	resp, err := a.llmClient.Generate(ctx, prompt,
		llm.WithSystem(claudeSystemPrompt),
		llm.WithTemperature(0))
	if err != nil {
		return nil, err
	}

	a.trackUsage(TokenUsage{
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		Model:        resp.ModelName,
	})

	sentences := parseSentences(resp.Text)
	boundaries := boundariesFromSentences(text, sentences)
	if len(boundaries) == 0 {
		// 模型输出与原文对不上，按失败处理
		return nil, llm.NewLLMError(llm.ErrCodeEmptyResponse, "model output does not match input text")
	}

	return &Result{
		Sentences:          sentences,
		SentenceBoundaries: boundaries,
		Metadata: Metadata{
			Method: ProviderClaude,
		},
	}, nil
}

// trackUsage 记录Token使用情况
// 跟踪器的panic不应中断分析流程
func (a *Analyzer) trackUsage(usage TokenUsage) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithField("panic", r).Warn("usage tracker panicked")
		}
	}()
	a.tracker.Track(usage)
}

// parseSentences 解析模型返回的句子列表
// 优先按JSON数组解析，失败时按行切分
func parseSentences(output string) []string {
	output = strings.TrimSpace(output)

	// 提取输出中的JSON数组部分
	if start := strings.Index(output, "["); start >= 0 {
		if end := strings.LastIndex(output, "]"); end > start {
			var parsed []string
			if err := json.Unmarshal([]byte(output[start:end+1]), &parsed); err == nil {
				return trimNonEmpty(parsed)
			}
		}
	}

	return trimNonEmpty(strings.Split(output, "\n"))
}

// trimNonEmpty 去除空白并过滤空字符串
func trimNonEmpty(items []string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// boundariesFromSentences 根据句子列表在原文中定位边界
// 每个句子在原文中顺序查找，边界位于句尾空白之后
func boundariesFromSentences(text string, sentences []string) []int {
	runes := []rune(text)
	boundaries := make([]int, 0, len(sentences))

	searchFrom := 0
	for _, sentence := range sentences {
		sr := []rune(sentence)
		if len(sr) == 0 {
			continue
		}

		idx := indexRunes(runes, sr, searchFrom)
		if idx < 0 {
			continue
		}

		end := idx + len(sr)
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		boundaries = append(boundaries, end)
		searchFrom = idx + len(sr)
	}

	if len(boundaries) == 0 {
		return nil
	}
	return boundaries
}

// indexRunes 在runes中从from位置开始查找子串needle，返回起始位置
func indexRunes(runes []rune, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(runes); i++ {
		match := true
		for j := range needle {
			if runes[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
