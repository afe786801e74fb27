package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hanbitlabs/semantic-chunker/internal/cache"
	"github.com/hanbitlabs/semantic-chunker/internal/models"
	"github.com/hanbitlabs/semantic-chunker/internal/morphology"
	"github.com/hanbitlabs/semantic-chunker/internal/repository"
	"github.com/hanbitlabs/semantic-chunker/pkg/taskqueue"
)

// newTestService 创建测试用的切分服务，带内存数据库
func newTestService(t *testing.T, opts ...ServiceOption) (*ChunkingService, repository.ChunkRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Chunk{}))

	repo := repository.NewChunkRepositoryWithDB(db)

	memCache, err := cache.NewCache(cache.DefaultConfig())
	require.NoError(t, err)
	analyzer := morphology.NewAnalyzer(morphology.WithCache(memCache))

	base := []ServiceOption{
		WithAnalyzer(analyzer),
		WithRepository(repo),
	}
	svc := NewChunkingService(append(base, opts...)...)
	return svc, repo
}

// koreanDocument 构造一个超出预算的韩语测试文档
func koreanDocument(paragraphs int) string {
	var sb strings.Builder
	for i := 0; i < paragraphs; i++ {
		sb.WriteString("첫 번째 문장입니다. 두 번째 문장도 이어집니다. 마지막 문장으로 단락을 마칩니다.\n\n")
	}
	return sb.String()
}

// TestChunkDocument 测试基本切分与持久化
func TestChunkDocument(t *testing.T) {
	svc, repo := newTestService(t, WithMaxChunkSize(80))

	text := koreanDocument(5)
	result, err := svc.ChunkDocument(context.Background(), "doc-1", "tenant-1", text)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StrategySemantic, result.Strategy)
	assert.Equal(t, morphology.ProviderRuleBased, result.Method)
	require.NotEmpty(t, result.Chunks)

	// 每个块应在预算内且偏移严格递增
	prevEnd := -1
	for i, c := range result.Chunks {
		assert.LessOrEqual(t, len([]rune(c.Content)), 80, "块 %d 超出预算", i)
		assert.Equal(t, i, c.Index)
		assert.Greater(t, c.Metadata.EndOffset, c.Metadata.StartOffset)
		assert.Greater(t, c.Metadata.StartOffset, prevEnd-1)
		prevEnd = c.Metadata.EndOffset

		assert.GreaterOrEqual(t, c.Score, 0)
		assert.LessOrEqual(t, c.Score, 100)
	}

	// 持久化结果应与返回结果一致
	rows, err := repo.GetByDocument("doc-1")
	require.NoError(t, err)
	require.Len(t, rows, len(result.Chunks))
	for i, row := range rows {
		assert.Equal(t, result.Chunks[i].Content, row.Content)
		assert.Equal(t, result.Chunks[i].Score, row.QualityScore)
		assert.Equal(t, "tenant-1", row.TenantID)
		assert.Equal(t, string(StrategySemantic), row.Strategy)
	}

	t.Logf("chunked into %d chunks, avg score %.1f", len(result.Chunks), result.AverageScore)
}

// TestChunkDocumentEmpty 测试空文本
func TestChunkDocumentEmpty(t *testing.T) {
	svc, repo := newTestService(t)

	// 先写入一些块，空文本重切分应清空
	_, err := svc.ChunkDocument(context.Background(), "doc-1", "", koreanDocument(3))
	require.NoError(t, err)

	result, err := svc.ChunkDocument(context.Background(), "doc-1", "", "   \n  ")
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Zero(t, result.AverageScore)

	count, err := repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestChunkDocumentReplace 测试重复切分时的整体替换
func TestChunkDocumentReplace(t *testing.T) {
	svc, repo := newTestService(t, WithMaxChunkSize(80))

	_, err := svc.ChunkDocument(context.Background(), "doc-1", "", koreanDocument(6))
	require.NoError(t, err)

	result, err := svc.ChunkDocument(context.Background(), "doc-1", "", koreanDocument(2))
	require.NoError(t, err)

	count, err := repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, len(result.Chunks), count, "旧结果应被整体替换")
}

// TestChunkDocumentRequiresID 测试持久化时必须提供文档ID
func TestChunkDocumentRequiresID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ChunkDocument(context.Background(), "", "", "텍스트입니다.")
	assert.ErrorIs(t, err, ErrEmptyDocumentID)

	// 不持久化时允许空ID
	result, err := svc.ChunkDocument(context.Background(), "", "", "텍스트입니다.", WithoutPersist())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Chunks)
}

// TestChunkDocumentTopics 测试主题标注
func TestChunkDocumentTopics(t *testing.T) {
	svc, _ := newTestService(t, WithMaxChunkSize(60))

	text := "# 설치 안내\n\n패키지를 설치하는 방법을 설명합니다. 설치는 간단합니다.\n\n# 사용 방법\n\n기본 사용법을 설명합니다. 예제를 참고하세요.\n"
	result, err := svc.ChunkDocument(context.Background(), "doc-1", "", text)
	require.NoError(t, err)
	require.NotEmpty(t, result.Chunks)

	seenTopics := map[string]bool{}
	for _, c := range result.Chunks {
		seenTopics[c.Topic] = true
	}
	assert.True(t, seenTopics["설치 안내"], "前半部分的块应归属第一个标题")
	assert.True(t, seenTopics["사용 방법"], "后半部分的块应归属第二个标题")
}

// TestChunkDocumentApproval 测试质量分阈值与审批状态
func TestChunkDocumentApproval(t *testing.T) {
	svc, _ := newTestService(t, WithApproveThreshold(70))

	// 长度适中、以终结语尾结束的QA对得分很高
	qa := "Q: 반품 정책이 어떻게 되나요? 구매한 지 일주일이 지났습니다.\nA: 구매 후 14일 이내에는 전액 환불이 가능합니다. 고객센터로 연락해 주시기 바랍니다."
	result, err := svc.ChunkDocument(context.Background(), "doc-1", "", qa)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)

	assert.Equal(t, "qa", string(result.Chunks[0].Type))
	assert.GreaterOrEqual(t, result.Chunks[0].Score, 70)
	assert.Equal(t, models.ChunkStatusApproved, result.Chunks[0].Status)
	assert.Equal(t, 1, result.ApprovedCount)

	// 过短的碎片低于阈值，进入待审核
	result, err = svc.ChunkDocument(context.Background(), "doc-2", "", "짧다")
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Less(t, result.Chunks[0].Score, 70)
	assert.Equal(t, models.ChunkStatusPending, result.Chunks[0].Status)
	assert.Equal(t, 1, result.PendingCount)
}

// TestSmartStrategy 测试smart策略的段落合并
func TestSmartStrategy(t *testing.T) {
	svc, _ := newTestService(t, WithMaxChunkSize(200))

	// 三个小段落合并后仍在预算内，应产出单个块
	text := "첫 번째 단락입니다.\n\n두 번째 단락입니다.\n\n세 번째 단락입니다.\n"
	result, err := svc.ChunkDocument(context.Background(), "doc-1", "", text, WithStrategy(StrategySmart))
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	assert.Contains(t, result.Chunks[0].Content, "첫 번째")
	assert.Contains(t, result.Chunks[0].Content, "세 번째")

	// 预算缩小后不再合并
	result, err = svc.ChunkDocument(context.Background(), "doc-1", "", text,
		WithStrategy(StrategySmart), WithChunkSize(15))
	require.NoError(t, err)
	assert.Len(t, result.Chunks, 3)
}

// TestLateStrategy 测试late策略的大窗口分段
func TestLateStrategy(t *testing.T) {
	svc, _ := newTestService(t, WithMaxChunkSize(80))

	text := koreanDocument(10)

	semantic, err := svc.ChunkDocument(context.Background(), "doc-1", "", text, WithoutPersist())
	require.NoError(t, err)

	late, err := svc.ChunkDocument(context.Background(), "doc-1", "", text,
		WithStrategy(StrategyLate), WithoutPersist())
	require.NoError(t, err)

	require.NotEmpty(t, late.Chunks)
	assert.Less(t, len(late.Chunks), len(semantic.Chunks), "late策略应产出更少、更大的分段")
}

// TestAutoStrategy 测试auto策略的自动选择
func TestAutoStrategy(t *testing.T) {
	svc, _ := newTestService(t)

	// 韩语文本选择semantic
	result, err := svc.ChunkDocument(context.Background(), "doc-1", "", koreanDocument(2),
		WithStrategy(StrategyAuto))
	require.NoError(t, err)
	assert.Equal(t, StrategySemantic, result.Strategy)

	// 无结构的英文文本选择smart
	result, err = svc.ChunkDocument(context.Background(), "doc-2", "",
		"Plain English paragraph without any structure.\n\nAnother plain paragraph follows here.",
		WithStrategy(StrategyAuto))
	require.NoError(t, err)
	assert.Equal(t, StrategySmart, result.Strategy)
}

// TestCompareStrategies 测试多策略对比
func TestCompareStrategies(t *testing.T) {
	svc, repo := newTestService(t, WithMaxChunkSize(80))

	comparison, err := svc.CompareStrategies(context.Background(), koreanDocument(5), nil)
	require.NoError(t, err)
	require.Len(t, comparison.Results, 2)

	for _, r := range comparison.Results {
		assert.Greater(t, r.ChunkCount, 0)
		assert.GreaterOrEqual(t, r.MinScore, 0)
		assert.LessOrEqual(t, r.MaxScore, 100)
		assert.GreaterOrEqual(t, r.AverageScore, float64(r.MinScore))
		assert.LessOrEqual(t, r.AverageScore, float64(r.MaxScore))
	}
	assert.NotEmpty(t, comparison.Winner)

	// 对比不应持久化任何结果
	count, err := repo.CountByDocument("")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	t.Logf("comparison: %+v", comparison)
}

// TestUpdateChunkStatus 测试审批状态流转
func TestUpdateChunkStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ChunkDocument(context.Background(), "doc-1", "", "짧다")
	require.NoError(t, err)

	chunks, err := svc.ListChunks("doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, models.ChunkStatusPending, chunks[0].Status)

	require.NoError(t, svc.UpdateChunkStatus(chunks[0].ID, models.ChunkStatusApproved))

	chunks, err = svc.ListChunks("doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChunkStatusApproved, chunks[0].Status)
}

// TestChunkFromPayload 测试任务队列回调入口
func TestChunkFromPayload(t *testing.T) {
	svc, repo := newTestService(t, WithMaxChunkSize(80))

	result, err := svc.ChunkFromPayload(context.Background(), &taskqueue.ChunkDocumentPayload{
		DocumentID:   "doc-async",
		TenantID:     "tenant-1",
		Text:         koreanDocument(3),
		Strategy:     string(StrategySemantic),
		MaxChunkSize: 80,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-async", result.DocumentID)
	assert.Greater(t, result.ChunkCount, 0)
	assert.Greater(t, result.AverageScore, 0.0)

	count, err := repo.CountByDocument("doc-async")
	require.NoError(t, err)
	assert.Equal(t, result.ChunkCount, count)
}

// TestEnqueueWithoutQueue 测试未配置队列时的入队
func TestEnqueueWithoutQueue(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.EnqueueChunkDocument(context.Background(), "doc-1", "", "텍스트", StrategySemantic)
	assert.ErrorIs(t, err, ErrQueueNotConfigured)
}

// TestValidStrategy 测试策略名称校验
func TestValidStrategy(t *testing.T) {
	assert.True(t, ValidStrategy("smart"))
	assert.True(t, ValidStrategy("semantic"))
	assert.True(t, ValidStrategy("late"))
	assert.True(t, ValidStrategy("auto"))
	assert.False(t, ValidStrategy("unknown"))
	assert.False(t, ValidStrategy(""))
}
