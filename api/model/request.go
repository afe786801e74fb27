package model

// ChunkDocumentRequest 文档切分请求
type ChunkDocumentRequest struct {
	DocumentID   string `json:"document_id" binding:"required"`                       // 文档ID
	TenantID     string `json:"tenant_id" binding:"omitempty"`                        // 租户ID
	Text         string `json:"text" binding:"required"`                              // 文档文本
	Strategy     string `json:"strategy" binding:"omitempty,chunking_strategy"`       // 切分策略
	MaxChunkSize int    `json:"max_chunk_size" binding:"omitempty,min=1,max=100000"`  // 块大小预算(字符数)
	Async        bool   `json:"async" binding:"omitempty"`                            // 是否异步处理
}

// CompareStrategiesRequest 策略对比请求
type CompareStrategiesRequest struct {
	Text       string   `json:"text" binding:"required"`                               // 待切分文本
	Strategies []string `json:"strategies" binding:"omitempty,dive,chunking_strategy"` // 参与对比的策略列表
}

// AnalyzeRequest 形态分析请求
type AnalyzeRequest struct {
	Text     string `json:"text" binding:"required"`       // 待分析文本
	UseCache *bool  `json:"use_cache" binding:"omitempty"` // 是否使用缓存，默认true
}

// ChunkListRequest 文档切分结果查询请求
type ChunkListRequest struct {
	ID string `uri:"id" binding:"required"` // 文档ID
}

// ChunkStatusRequest 块审批状态更新请求
type ChunkStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected"` // 目标状态
}

// TaskStatusRequest 任务状态查询请求
type TaskStatusRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}
