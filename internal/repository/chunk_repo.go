package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hanbitlabs/semantic-chunker/internal/database"
	"github.com/hanbitlabs/semantic-chunker/internal/models"
)

// ChunkRepository 文本块仓储接口
// 负责切分结果的存储和检索
type ChunkRepository interface {
	// SaveChunks 批量保存文本块
	SaveChunks(chunks []*models.Chunk) error

	// ReplaceChunks 替换文档的全部文本块(先删后插，同一事务)
	ReplaceChunks(documentID string, chunks []*models.Chunk) error

	// GetByDocument 获取文档的所有文本块，按序号排列
	GetByDocument(documentID string) ([]*models.Chunk, error)

	// ListByStatus 按审批状态筛选文档的文本块
	ListByStatus(documentID string, status models.ChunkStatus) ([]*models.Chunk, error)

	// CountByDocument 统计文档的文本块数量
	CountByDocument(documentID string) (int, error)

	// UpdateStatus 更新单个文本块的审批状态
	UpdateStatus(id uint, status models.ChunkStatus) error

	// DeleteByDocument 删除文档的所有文本块
	DeleteByDocument(documentID string) error
}

// chunkRepository 文本块仓储实现
type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建文本块仓储实例
func NewChunkRepository() ChunkRepository {
	return &chunkRepository{db: database.MustDB()}
}

// NewChunkRepositoryWithDB 使用指定的数据库连接创建仓储实例
func NewChunkRepositoryWithDB(db *gorm.DB) ChunkRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &chunkRepository{db: db}
}

// SaveChunks 批量保存文本块
func (r *chunkRepository) SaveChunks(chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// ReplaceChunks 替换文档的全部文本块
// 重新切分时旧结果整体作废，删除和插入在同一事务内完成
func (r *chunkRepository) ReplaceChunks(documentID string, chunks []*models.Chunk) error {
	if documentID == "" {
		return errors.New("document ID cannot be empty")
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&models.Chunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// GetByDocument 获取文档的所有文本块
func (r *chunkRepository) GetByDocument(documentID string) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	err := r.db.Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	return chunks, err
}

// ListByStatus 按审批状态筛选文档的文本块
func (r *chunkRepository) ListByStatus(documentID string, status models.ChunkStatus) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	err := r.db.Where("document_id = ? AND status = ?", documentID, status).
		Order("chunk_index ASC").
		Find(&chunks).Error
	return chunks, err
}

// CountByDocument 统计文档的文本块数量
func (r *chunkRepository) CountByDocument(documentID string) (int, error) {
	var count int64
	err := r.db.Model(&models.Chunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return int(count), err
}

// UpdateStatus 更新单个文本块的审批状态
func (r *chunkRepository) UpdateStatus(id uint, status models.ChunkStatus) error {
	result := r.db.Model(&models.Chunk{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("chunk not found: %d", id)
	}
	return nil
}

// DeleteByDocument 删除文档的所有文本块
func (r *chunkRepository) DeleteByDocument(documentID string) error {
	return r.db.Where("document_id = ?", documentID).
		Delete(&models.Chunk{}).Error
}
