package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hanbitlabs/semantic-chunker/internal/models"
)

// setupTestDB 创建测试用的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Chunk{}))
	return db
}

// makeChunks 构造测试用的文本块
func makeChunks(documentID string, count int) []*models.Chunk {
	chunks := make([]*models.Chunk, 0, count)
	for i := 0; i < count; i++ {
		chunks = append(chunks, &models.Chunk{
			DocumentID:   documentID,
			TenantID:     "tenant-1",
			ChunkIndex:   i,
			Content:      "테스트 내용입니다.",
			ChunkType:    "paragraph",
			QualityScore: 60 + i,
			Status:       models.ChunkStatusApproved,
			Strategy:     "semantic",
		})
	}
	return chunks
}

// TestSaveAndGetChunks 测试保存与查询
func TestSaveAndGetChunks(t *testing.T) {
	repo := NewChunkRepositoryWithDB(setupTestDB(t))

	require.NoError(t, repo.SaveChunks(makeChunks("doc-1", 3)))

	chunks, err := repo.GetByDocument("doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// 结果应按序号排列
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, "doc-1", chunk.DocumentID)
		assert.False(t, chunk.CreatedAt.IsZero(), "创建时间应由钩子自动填充")
	}

	count, err := repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// 空文档
	chunks, err = repo.GetByDocument("doc-unknown")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// 空切片保存应为空操作
	assert.NoError(t, repo.SaveChunks(nil))
}

// TestReplaceChunks 测试整体替换
func TestReplaceChunks(t *testing.T) {
	repo := NewChunkRepositoryWithDB(setupTestDB(t))

	require.NoError(t, repo.SaveChunks(makeChunks("doc-1", 5)))

	// 重新切分后替换为2个块
	require.NoError(t, repo.ReplaceChunks("doc-1", makeChunks("doc-1", 2)))

	count, err := repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// 替换为空列表等价于删除
	require.NoError(t, repo.ReplaceChunks("doc-1", nil))
	count, err = repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// 空文档ID应报错
	assert.Error(t, repo.ReplaceChunks("", makeChunks("doc-1", 1)))
}

// TestListByStatus 测试按状态筛选
func TestListByStatus(t *testing.T) {
	repo := NewChunkRepositoryWithDB(setupTestDB(t))

	chunks := makeChunks("doc-1", 4)
	chunks[1].Status = models.ChunkStatusPending
	chunks[3].Status = models.ChunkStatusPending
	require.NoError(t, repo.SaveChunks(chunks))

	pending, err := repo.ListByStatus("doc-1", models.ChunkStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].ChunkIndex)
	assert.Equal(t, 3, pending[1].ChunkIndex)

	approved, err := repo.ListByStatus("doc-1", models.ChunkStatusApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 2)
}

// TestUpdateStatus 测试状态更新
func TestUpdateStatus(t *testing.T) {
	repo := NewChunkRepositoryWithDB(setupTestDB(t))

	chunks := makeChunks("doc-1", 1)
	chunks[0].Status = models.ChunkStatusPending
	require.NoError(t, repo.SaveChunks(chunks))

	require.NoError(t, repo.UpdateStatus(chunks[0].ID, models.ChunkStatusApproved))

	stored, err := repo.GetByDocument("doc-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.ChunkStatusApproved, stored[0].Status)

	// 不存在的ID应报错
	assert.Error(t, repo.UpdateStatus(99999, models.ChunkStatusRejected))
}

// TestDeleteByDocument 测试按文档删除
func TestDeleteByDocument(t *testing.T) {
	repo := NewChunkRepositoryWithDB(setupTestDB(t))

	require.NoError(t, repo.SaveChunks(makeChunks("doc-1", 3)))
	require.NoError(t, repo.SaveChunks(makeChunks("doc-2", 2)))

	require.NoError(t, repo.DeleteByDocument("doc-1"))

	count, err := repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// 其他文档不受影响
	count, err = repo.CountByDocument("doc-2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
