package services

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/hanbitlabs/semantic-chunker/internal/chunker"
	"github.com/hanbitlabs/semantic-chunker/internal/document"
	"github.com/hanbitlabs/semantic-chunker/internal/models"
	"github.com/hanbitlabs/semantic-chunker/internal/morphology"
	"github.com/hanbitlabs/semantic-chunker/internal/repository"
	"github.com/hanbitlabs/semantic-chunker/pkg/taskqueue"
)

// Strategy 切分策略
type Strategy string

const (
	// StrategySmart 按段落切分，合并小段落，适合结构规整的文档
	StrategySmart Strategy = "smart"
	// StrategySemantic 按句子边界切分，适合韩语等自然语言文本
	StrategySemantic Strategy = "semantic"
	// StrategyLate 产出大窗口分段，供late chunking类的下游嵌入使用
	StrategyLate Strategy = "late"
	// StrategyAuto 根据文本特征自动选择smart或semantic
	StrategyAuto Strategy = "auto"
)

// ValidStrategy 判断策略名称是否合法
func ValidStrategy(s string) bool {
	switch Strategy(s) {
	case StrategySmart, StrategySemantic, StrategyLate, StrategyAuto:
		return true
	}
	return false
}

const (
	// defaultApproveThreshold 自动通过的质量分阈值
	defaultApproveThreshold = 70
	// defaultChunkTimeout 单次切分的默认超时时间
	defaultChunkTimeout = 5 * time.Minute
	// lateWindowMultiplier late策略的窗口大小相对于块预算的倍数
	lateWindowMultiplier = 3
	// hangulAutoRatio auto策略判定为韩语文本的谚文占比阈值
	hangulAutoRatio = 0.3
)

// markdownStructureRe 识别markdown结构(标题/列表/表格)的模式
var markdownStructureRe = regexp.MustCompile(`(?m)^(?:#{1,6}\s|\s*(?:[-*+]|\d+\.)\s|\s*\|)`)

// ErrEmptyDocumentID 持久化时文档ID不能为空
var ErrEmptyDocumentID = errors.New("document ID cannot be empty")

// ErrQueueNotConfigured 任务队列未配置
var ErrQueueNotConfigured = errors.New("task queue not configured")

// ScoredChunk 带质量分与审批状态的文本块
type ScoredChunk struct {
	chunker.Chunk
	Score  int                // 语义质量分(0-100)
	Status models.ChunkStatus // 审批状态
}

// ChunkResult 一次切分的结果
type ChunkResult struct {
	DocumentID     string              // 文档ID
	Strategy       Strategy            // 实际使用的策略
	Chunks         []ScoredChunk       // 文本块列表
	AverageScore   float64             // 平均质量分
	ApprovedCount  int                 // 自动通过的块数量
	PendingCount   int                 // 待审核的块数量
	Method         morphology.Provider // 句子边界检测方法
	ProcessingTime int64               // 处理耗时(毫秒)
}

// StrategyResult 单个策略的评估结果
type StrategyResult struct {
	Strategy      Strategy `json:"strategy"`       // 策略名称
	ChunkCount    int      `json:"chunk_count"`    // 块数量
	AverageScore  float64  `json:"average_score"`  // 平均质量分
	MinScore      int      `json:"min_score"`      // 最低质量分
	MaxScore      int      `json:"max_score"`      // 最高质量分
	ApprovedCount int      `json:"approved_count"` // 达到自动通过阈值的块数量
}

// StrategyComparison 多策略对比结果
type StrategyComparison struct {
	Results []StrategyResult `json:"results"` // 各策略的评估结果
	Winner  Strategy         `json:"winner"`  // 平均质量分最高的策略
}

// ChunkingService 文档切分服务
// 串联形态分析、自然边界切分、类型推断与质量评分
type ChunkingService struct {
	analyzer         *morphology.Analyzer
	repo             repository.ChunkRepository
	queue            taskqueue.Queue
	logger           *logrus.Logger
	maxChunkSize     int
	strategy         Strategy
	approveThreshold int
	timeout          time.Duration
}

// ServiceOption 服务配置选项
type ServiceOption func(*ChunkingService)

// WithAnalyzer 设置形态分析器
func WithAnalyzer(analyzer *morphology.Analyzer) ServiceOption {
	return func(s *ChunkingService) {
		s.analyzer = analyzer
	}
}

// WithRepository 设置文本块仓储
func WithRepository(repo repository.ChunkRepository) ServiceOption {
	return func(s *ChunkingService) {
		s.repo = repo
	}
}

// WithQueue 设置任务队列
func WithQueue(queue taskqueue.Queue) ServiceOption {
	return func(s *ChunkingService) {
		s.queue = queue
	}
}

// WithLogger 设置日志器
func WithLogger(logger *logrus.Logger) ServiceOption {
	return func(s *ChunkingService) {
		s.logger = logger
	}
}

// WithMaxChunkSize 设置块大小预算(字符数)
func WithMaxChunkSize(size int) ServiceOption {
	return func(s *ChunkingService) {
		if size > 0 {
			s.maxChunkSize = size
		}
	}
}

// WithDefaultStrategy 设置默认切分策略
func WithDefaultStrategy(strategy Strategy) ServiceOption {
	return func(s *ChunkingService) {
		s.strategy = strategy
	}
}

// WithApproveThreshold 设置自动通过的质量分阈值
func WithApproveThreshold(threshold int) ServiceOption {
	return func(s *ChunkingService) {
		s.approveThreshold = threshold
	}
}

// WithTimeout 设置单次切分的超时时间
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *ChunkingService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewChunkingService 创建文档切分服务
func NewChunkingService(opts ...ServiceOption) *ChunkingService {
	s := &ChunkingService{
		logger:           logrus.New(),
		maxChunkSize:     chunker.DefaultMaxChunkSize,
		strategy:         StrategySemantic,
		approveThreshold: defaultApproveThreshold,
		timeout:          defaultChunkTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.analyzer == nil {
		s.analyzer = morphology.NewAnalyzer(morphology.WithLogger(s.logger))
	}

	return s
}

// ChunkOption 单次切分请求的选项
type ChunkOption func(*chunkOptions)

// chunkOptions 单次切分请求的参数
type chunkOptions struct {
	strategy     Strategy
	maxChunkSize int
	persist      bool
}

// WithStrategy 指定本次切分使用的策略
func WithStrategy(strategy Strategy) ChunkOption {
	return func(o *chunkOptions) {
		if strategy != "" {
			o.strategy = strategy
		}
	}
}

// WithChunkSize 指定本次切分的块大小预算
func WithChunkSize(size int) ChunkOption {
	return func(o *chunkOptions) {
		if size > 0 {
			o.maxChunkSize = size
		}
	}
}

// WithoutPersist 本次切分不写入数据库
func WithoutPersist() ChunkOption {
	return func(o *chunkOptions) {
		o.persist = false
	}
}

// ChunkDocument 切分文档并持久化结果
// 同一文档重复切分时旧结果被整体替换
func (s *ChunkingService) ChunkDocument(ctx context.Context, documentID, tenantID, text string, opts ...ChunkOption) (*ChunkResult, error) {
	options := chunkOptions{
		strategy:     s.strategy,
		maxChunkSize: s.maxChunkSize,
		persist:      s.repo != nil,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.persist && documentID == "" {
		return nil, ErrEmptyDocumentID
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	strategy := options.strategy
	if strategy == StrategyAuto {
		strategy = s.chooseStrategy(text)
	}

	result := &ChunkResult{
		DocumentID: documentID,
		Strategy:   strategy,
		Chunks:     []ScoredChunk{},
		Method:     morphology.ProviderRuleBased,
	}

	// 空文本产出空结果，不报错
	if strings.TrimSpace(text) == "" {
		result.ProcessingTime = time.Since(start).Milliseconds()
		if options.persist {
			if err := s.repo.ReplaceChunks(documentID, nil); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	chunks, method := s.buildChunks(ctx, text, strategy, options.maxChunkSize)
	result.Chunks = chunks
	result.Method = method

	var total int
	for _, c := range chunks {
		total += c.Score
		if c.Status == models.ChunkStatusApproved {
			result.ApprovedCount++
		} else {
			result.PendingCount++
		}
	}
	if len(chunks) > 0 {
		result.AverageScore = float64(total) / float64(len(chunks))
	}

	if options.persist {
		if err := s.repo.ReplaceChunks(documentID, s.toModels(documentID, tenantID, strategy, chunks)); err != nil {
			return nil, err
		}
	}

	result.ProcessingTime = time.Since(start).Milliseconds()

	s.logger.WithFields(logrus.Fields{
		"document_id":   documentID,
		"strategy":      strategy,
		"chunk_count":   len(chunks),
		"average_score": result.AverageScore,
		"method":        method,
	}).Info("document chunked")

	return result, nil
}

// CompareStrategies 用多个策略切分同一文本并对比质量
// 结果不持久化，用于选择最适合该文档的策略
func (s *ChunkingService) CompareStrategies(ctx context.Context, text string, strategies []Strategy) (*StrategyComparison, error) {
	if len(strategies) == 0 {
		strategies = []Strategy{StrategySmart, StrategySemantic}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	comparison := &StrategyComparison{}
	bestScore := -1.0

	for _, strategy := range strategies {
		resolved := strategy
		if resolved == StrategyAuto {
			resolved = s.chooseStrategy(text)
		}

		chunks, _ := s.buildChunks(ctx, text, resolved, s.maxChunkSize)

		sr := StrategyResult{Strategy: strategy, ChunkCount: len(chunks)}
		if len(chunks) > 0 {
			total := 0
			sr.MinScore = chunks[0].Score
			sr.MaxScore = chunks[0].Score
			for _, c := range chunks {
				total += c.Score
				if c.Score < sr.MinScore {
					sr.MinScore = c.Score
				}
				if c.Score > sr.MaxScore {
					sr.MaxScore = c.Score
				}
				if c.Status == models.ChunkStatusApproved {
					sr.ApprovedCount++
				}
			}
			sr.AverageScore = float64(total) / float64(len(chunks))
		}

		comparison.Results = append(comparison.Results, sr)
		if sr.AverageScore > bestScore {
			bestScore = sr.AverageScore
			comparison.Winner = strategy
		}
	}

	return comparison, nil
}

// ListChunks 查询文档的切分结果
func (s *ChunkingService) ListChunks(documentID string) ([]*models.Chunk, error) {
	if s.repo == nil {
		return nil, errors.New("chunk repository not configured")
	}
	return s.repo.GetByDocument(documentID)
}

// UpdateChunkStatus 更新单个块的审批状态
func (s *ChunkingService) UpdateChunkStatus(id uint, status models.ChunkStatus) error {
	if s.repo == nil {
		return errors.New("chunk repository not configured")
	}
	return s.repo.UpdateStatus(id, status)
}

// EnqueueChunkDocument 将切分任务加入异步队列
func (s *ChunkingService) EnqueueChunkDocument(ctx context.Context, documentID, tenantID, text string, strategy Strategy) (string, error) {
	if s.queue == nil {
		return "", ErrQueueNotConfigured
	}
	if documentID == "" {
		return "", ErrEmptyDocumentID
	}

	if strategy == "" {
		strategy = s.strategy
	}

	return s.queue.Enqueue(ctx, taskqueue.TaskChunkDocument, documentID, &taskqueue.ChunkDocumentPayload{
		DocumentID:   documentID,
		TenantID:     tenantID,
		Text:         text,
		Strategy:     string(strategy),
		MaxChunkSize: s.maxChunkSize,
	})
}

// ChunkFromPayload 处理来自任务队列的切分任务
func (s *ChunkingService) ChunkFromPayload(ctx context.Context, payload *taskqueue.ChunkDocumentPayload) (*taskqueue.ChunkDocumentResult, error) {
	opts := []ChunkOption{}
	if payload.Strategy != "" {
		opts = append(opts, WithStrategy(Strategy(payload.Strategy)))
	}
	if payload.MaxChunkSize > 0 {
		opts = append(opts, WithChunkSize(payload.MaxChunkSize))
	}

	result, err := s.ChunkDocument(ctx, payload.DocumentID, payload.TenantID, payload.Text, opts...)
	if err != nil {
		return nil, err
	}

	return &taskqueue.ChunkDocumentResult{
		DocumentID:   payload.DocumentID,
		ChunkCount:   len(result.Chunks),
		AverageScore: result.AverageScore,
	}, nil
}

// Analyze 对文本执行形态分析(句子切分)
func (s *ChunkingService) Analyze(ctx context.Context, text string, useCache bool) *morphology.Result {
	if useCache {
		return s.analyzer.Analyze(ctx, text)
	}
	return s.analyzer.Analyze(ctx, text, morphology.WithoutCache())
}

// TaskStatus 查询异步切分任务的状态
func (s *ChunkingService) TaskStatus(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	if s.queue == nil {
		return nil, ErrQueueNotConfigured
	}
	return s.queue.GetTask(ctx, taskID)
}

// CacheStats 返回形态分析缓存的统计信息
func (s *ChunkingService) CacheStats() (int, *int64, error) {
	stats, err := s.analyzer.CacheStats()
	if err != nil {
		return 0, nil, err
	}
	return stats.Size, stats.OldestAgeMs, nil
}

// ClearCache 清空形态分析缓存
func (s *ChunkingService) ClearCache() error {
	return s.analyzer.ClearCache()
}

// buildChunks 按策略切分文本并完成类型推断与质量评分
func (s *ChunkingService) buildChunks(ctx context.Context, text string, strategy Strategy, maxSize int) ([]ScoredChunk, morphology.Provider) {
	// 偏移量以规范化后的文本为基准，标题索引也基于同一文本构建
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	topics := document.NewTopicIndex(normalized)

	method := morphology.ProviderRuleBased
	var segments []chunker.Segment

	switch strategy {
	case StrategySmart:
		segments = s.smartSegments(normalized, maxSize)
	case StrategyLate:
		segments = s.lateSegments(normalized, maxSize)
	default:
		segments, method = s.semanticSegments(ctx, normalized, maxSize)
	}

	chunks := make([]ScoredChunk, 0, len(segments))
	for i, seg := range segments {
		c := chunker.Chunk{
			Content: seg.Text,
			Type:    chunker.InferChunkType(seg.Text),
			Topic:   topics.TopicAt(seg.Start),
			Index:   i,
			Metadata: chunker.Metadata{
				StartOffset:          seg.Start,
				EndOffset:            seg.End,
				OriginalSegmentIndex: i,
			},
		}

		score := chunker.CalculateSemanticQualityScore(&c)
		status := models.ChunkStatusPending
		if score >= s.approveThreshold {
			status = models.ChunkStatusApproved
		}

		chunks = append(chunks, ScoredChunk{Chunk: c, Score: score, Status: status})
	}

	return chunks, method
}

// semanticSegments 按句子边界切分
// 配置了Claude提供方时句子边界由大模型检测，其余情况走规则引擎
func (s *ChunkingService) semanticSegments(ctx context.Context, text string, maxSize int) ([]chunker.Segment, morphology.Provider) {
	if s.analyzer.Provider() == morphology.ProviderClaude {
		method := morphology.ProviderRuleBased
		boundaryFn := func(paragraph string) []int {
			result := s.analyzer.Analyze(ctx, paragraph)
			if result.Metadata.Method == morphology.ProviderClaude {
				method = morphology.ProviderClaude
			}
			return result.SentenceBoundaries
		}
		segments := chunker.SplitSegmentsUsing(text, maxSize, boundaryFn)
		return segments, method
	}

	return chunker.SplitSegments(text, maxSize), morphology.ProviderRuleBased
}

// smartSegments 按段落切分，合并相邻小段落，超大段落退到句级切分
func (s *ChunkingService) smartSegments(text string, maxSize int) []chunker.Segment {
	paragraphs := chunker.ParagraphSegments(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var segments []chunker.Segment
	var cur *chunker.Segment

	flush := func() {
		if cur != nil {
			segments = append(segments, *cur)
			cur = nil
		}
	}

	runes := []rune(text)
	for _, p := range paragraphs {
		if len([]rune(p.Text)) > maxSize {
			flush()
			// 超大段落退到句级切分，偏移整体平移到原文坐标
			for _, sub := range chunker.SplitSegments(p.Text, maxSize) {
				segments = append(segments, chunker.Segment{
					Text:  sub.Text,
					Start: p.Start + sub.Start,
					End:   p.Start + sub.End,
				})
			}
			continue
		}

		if cur == nil {
			seg := p
			cur = &seg
			continue
		}

		// 合并后仍在预算内时扩展当前分段
		if p.End-cur.Start <= maxSize {
			cur.End = p.End
			cur.Text = string(runes[cur.Start:cur.End])
			continue
		}

		flush()
		seg := p
		cur = &seg
	}
	flush()

	return segments
}

// lateSegments 产出大窗口分段
// 窗口为块预算的数倍，由下游late chunking流程在嵌入后再细分
func (s *ChunkingService) lateSegments(text string, maxSize int) []chunker.Segment {
	windowSize := maxSize * lateWindowMultiplier

	paragraphs := chunker.ParagraphSegments(text)
	if len(paragraphs) == 0 {
		return nil
	}

	runes := []rune(text)
	var segments []chunker.Segment
	var cur *chunker.Segment

	flush := func() {
		if cur != nil {
			segments = append(segments, *cur)
			cur = nil
		}
	}

	for _, p := range paragraphs {
		if cur == nil {
			seg := p
			cur = &seg
		} else if p.End-cur.Start <= windowSize {
			cur.End = p.End
			cur.Text = string(runes[cur.Start:cur.End])
		} else {
			flush()
			seg := p
			cur = &seg
		}

		// 单个段落超过窗口时也保留为独立分段
		if cur != nil && cur.End-cur.Start > windowSize {
			flush()
		}
	}
	flush()

	return segments
}

// chooseStrategy 根据文本特征自动选择策略
// 谚文占比高或带markdown结构的文本更适合句级的semantic切分
func (s *ChunkingService) chooseStrategy(text string) Strategy {
	var hangul, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}

	if letters > 0 && float64(hangul)/float64(letters) >= hangulAutoRatio {
		return StrategySemantic
	}
	if markdownStructureRe.MatchString(text) {
		return StrategySemantic
	}
	return StrategySmart
}

// toModels 将切分结果转换为数据库模型
func (s *ChunkingService) toModels(documentID, tenantID string, strategy Strategy, chunks []ScoredChunk) []*models.Chunk {
	rows := make([]*models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, &models.Chunk{
			DocumentID:   documentID,
			TenantID:     tenantID,
			ChunkIndex:   c.Index,
			Content:      c.Content,
			ChunkType:    string(c.Type),
			Topic:        c.Topic,
			QualityScore: c.Score,
			Status:       c.Status,
			Strategy:     string(strategy),
			StartOffset:  c.Metadata.StartOffset,
			EndOffset:    c.Metadata.EndOffset,
			Metadata: datatypes.JSON([]byte(
				`{"original_segment_index":` + strconv.Itoa(c.Metadata.OriginalSegmentIndex) + `}`)),
		})
	}
	return rows
}
