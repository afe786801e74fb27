package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChunkStatus 文本块的审批状态
type ChunkStatus string

const (
	// ChunkStatusPending 质量分未达标，等待人工审核
	ChunkStatusPending ChunkStatus = "pending"
	// ChunkStatusApproved 质量分达标，自动通过
	ChunkStatusApproved ChunkStatus = "approved"
	// ChunkStatusRejected 人工审核拒绝
	ChunkStatusRejected ChunkStatus = "rejected"
)

// Chunk 文本块数据模型
// 存储切分流水线的产出，供检索与人工审核使用
type Chunk struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`  // 主键ID
	DocumentID   string         `gorm:"not null;index"`            // 所属文档ID
	TenantID     string         `gorm:"index;size:50"`             // 租户ID
	ChunkIndex   int            `gorm:"not null"`                  // 块在文档中的序号
	Content      string         `gorm:"type:text;not null"`        // 块内容
	ChunkType    string         `gorm:"not null;size:20"`          // 块类型
	Topic        string         `gorm:"size:255"`                  // 所属主题(最近的标题)
	QualityScore int            `gorm:"not null;default:0"`        // 语义质量分(0-100)
	Status       ChunkStatus    `gorm:"not null;size:20;index"`    // 审批状态
	Strategy     string         `gorm:"size:20"`                   // 使用的切分策略
	StartOffset  int            `gorm:"not null;default:0"`        // 在原文中的起始rune偏移
	EndOffset    int            `gorm:"not null;default:0"`        // 在原文中的结束rune偏移
	Metadata     datatypes.JSON `gorm:"type:json"`                 // 扩展元数据
	CreatedAt    time.Time      `gorm:"not null"`                  // 创建时间
	UpdatedAt    time.Time      `gorm:"not null"`                  // 更新时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (c *Chunk) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = ChunkStatusPending
	}
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (c *Chunk) BeforeUpdate(tx *gorm.DB) (err error) {
	c.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Chunk) TableName() string {
	return "chunks"
}
