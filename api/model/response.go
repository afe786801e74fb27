package model

import (
	"github.com/hanbitlabs/semantic-chunker/internal/models"
	"github.com/hanbitlabs/semantic-chunker/internal/services"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// ChunkInfo 单个文本块信息
type ChunkInfo struct {
	ID          uint   `json:"id,omitempty"` // 数据库ID(持久化后)
	Index       int    `json:"index"`        // 块序号
	Content     string `json:"content"`      // 块内容
	Type        string `json:"type"`         // 块类型
	Topic       string `json:"topic"`        // 所属主题
	Score       int    `json:"score"`        // 语义质量分
	Status      string `json:"status"`       // 审批状态
	StartOffset int    `json:"start_offset"` // 起始偏移
	EndOffset   int    `json:"end_offset"`   // 结束偏移
}

// ChunkDocumentResponse 文档切分响应
type ChunkDocumentResponse struct {
	DocumentID       string      `json:"document_id"`        // 文档ID
	Strategy         string      `json:"strategy"`           // 实际使用的策略
	Method           string      `json:"method"`             // 句子边界检测方法
	ChunkCount       int         `json:"chunk_count"`        // 块数量
	AverageScore     float64     `json:"average_score"`      // 平均质量分
	ApprovedCount    int         `json:"approved_count"`     // 自动通过数量
	PendingCount     int         `json:"pending_count"`      // 待审核数量
	ProcessingTimeMs int64       `json:"processing_time_ms"` // 处理耗时(毫秒)
	Chunks           []ChunkInfo `json:"chunks"`             // 文本块列表
}

// AsyncChunkResponse 异步切分响应
type AsyncChunkResponse struct {
	TaskID     string `json:"task_id"`     // 任务ID
	DocumentID string `json:"document_id"` // 文档ID
	Status     string `json:"status"`      // 任务状态
}

// ChunkListResponse 文档切分结果列表响应
type ChunkListResponse struct {
	DocumentID string      `json:"document_id"` // 文档ID
	Total      int         `json:"total"`       // 块总数
	Chunks     []ChunkInfo `json:"chunks"`      // 文本块列表
}

// CacheStatsResponse 缓存统计响应
type CacheStatsResponse struct {
	Size        int    `json:"size"`          // 缓存条目数量
	OldestAgeMs *int64 `json:"oldest_age_ms"` // 最老条目的存活时长(毫秒)，空缓存为null
}

// NewChunkDocumentResponse 从切分结果构造响应
func NewChunkDocumentResponse(result *services.ChunkResult) *ChunkDocumentResponse {
	resp := &ChunkDocumentResponse{
		DocumentID:       result.DocumentID,
		Strategy:         string(result.Strategy),
		Method:           string(result.Method),
		ChunkCount:       len(result.Chunks),
		AverageScore:     result.AverageScore,
		ApprovedCount:    result.ApprovedCount,
		PendingCount:     result.PendingCount,
		ProcessingTimeMs: result.ProcessingTime,
		Chunks:           make([]ChunkInfo, 0, len(result.Chunks)),
	}

	for _, c := range result.Chunks {
		resp.Chunks = append(resp.Chunks, ChunkInfo{
			Index:       c.Index,
			Content:     c.Content,
			Type:        string(c.Type),
			Topic:       c.Topic,
			Score:       c.Score,
			Status:      string(c.Status),
			StartOffset: c.Metadata.StartOffset,
			EndOffset:   c.Metadata.EndOffset,
		})
	}

	return resp
}

// NewChunkListResponse 从数据库记录构造列表响应
func NewChunkListResponse(documentID string, rows []*models.Chunk) *ChunkListResponse {
	resp := &ChunkListResponse{
		DocumentID: documentID,
		Total:      len(rows),
		Chunks:     make([]ChunkInfo, 0, len(rows)),
	}

	for _, row := range rows {
		resp.Chunks = append(resp.Chunks, ChunkInfo{
			ID:          row.ID,
			Index:       row.ChunkIndex,
			Content:     row.Content,
			Type:        row.ChunkType,
			Topic:       row.Topic,
			Score:       row.QualityScore,
			Status:      string(row.Status),
			StartOffset: row.StartOffset,
			EndOffset:   row.EndOffset,
		})
	}

	return resp
}
