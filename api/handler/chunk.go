package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hanbitlabs/semantic-chunker/api/middleware"
	"github.com/hanbitlabs/semantic-chunker/api/model"
	"github.com/hanbitlabs/semantic-chunker/internal/models"
	"github.com/hanbitlabs/semantic-chunker/internal/services"
	"github.com/hanbitlabs/semantic-chunker/pkg/taskqueue"
)

// ChunkHandler 文档切分API处理器
type ChunkHandler struct {
	service *services.ChunkingService
	logger  *logrus.Logger
}

// NewChunkHandler 创建文档切分处理器
func NewChunkHandler(service *services.ChunkingService, logger *logrus.Logger) *ChunkHandler {
	if logger == nil {
		logger = middleware.GetLogger()
	}
	return &ChunkHandler{
		service: service,
		logger:  logger,
	}
}

// ChunkDocument 切分文档
// POST /api/chunks
func (h *ChunkHandler) ChunkDocument(c *gin.Context) {
	var req model.ChunkDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request", err.Error()))
		return
	}

	// 异步模式只入队，结果通过任务接口查询
	if req.Async {
		taskID, err := h.service.EnqueueChunkDocument(c.Request.Context(),
			req.DocumentID, req.TenantID, req.Text, services.Strategy(req.Strategy))
		if err != nil {
			if errors.Is(err, services.ErrQueueNotConfigured) {
				middleware.HandleError(c, middleware.NewBusinessError("async chunking is not available"))
				return
			}
			middleware.HandleError(c, middleware.NewInternalError("failed to enqueue task", err.Error()))
			return
		}

		c.JSON(http.StatusAccepted, model.NewSuccessResponse(&model.AsyncChunkResponse{
			TaskID:     taskID,
			DocumentID: req.DocumentID,
			Status:     string(taskqueue.StatusPending),
		}))
		return
	}

	opts := []services.ChunkOption{}
	if req.Strategy != "" {
		opts = append(opts, services.WithStrategy(services.Strategy(req.Strategy)))
	}
	if req.MaxChunkSize > 0 {
		opts = append(opts, services.WithChunkSize(req.MaxChunkSize))
	}

	result, err := h.service.ChunkDocument(c.Request.Context(),
		req.DocumentID, req.TenantID, req.Text, opts...)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to chunk document", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewChunkDocumentResponse(result)))
}

// ListChunks 查询文档的切分结果
// GET /api/documents/:id/chunks
func (h *ChunkHandler) ListChunks(c *gin.Context) {
	var req model.ChunkListRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid document ID", err.Error()))
		return
	}

	rows, err := h.service.ListChunks(req.ID)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to list chunks", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewChunkListResponse(req.ID, rows)))
}

// UpdateChunkStatus 更新单个块的审批状态
// PUT /api/chunks/:id/status
func (h *ChunkHandler) UpdateChunkStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid chunk ID"))
		return
	}

	var req model.ChunkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request", err.Error()))
		return
	}

	if err := h.service.UpdateChunkStatus(uint(id), models.ChunkStatus(req.Status)); err != nil {
		middleware.HandleError(c, middleware.NewNotFoundError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{
		"id":     id,
		"status": req.Status,
	}))
}

// CompareStrategies 多策略切分对比
// POST /api/chunks/compare
func (h *ChunkHandler) CompareStrategies(c *gin.Context) {
	var req model.CompareStrategiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request", err.Error()))
		return
	}

	strategies := make([]services.Strategy, 0, len(req.Strategies))
	for _, s := range req.Strategies {
		strategies = append(strategies, services.Strategy(s))
	}

	comparison, err := h.service.CompareStrategies(c.Request.Context(), req.Text, strategies)
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to compare strategies", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(comparison))
}

// Analyze 形态分析(句子切分)
// POST /api/morphology/analyze
func (h *ChunkHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request", err.Error()))
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	result := h.service.Analyze(c.Request.Context(), req.Text, useCache)
	c.JSON(http.StatusOK, model.NewSuccessResponse(result))
}

// CacheStats 查询形态分析缓存统计
// GET /api/morphology/cache
func (h *ChunkHandler) CacheStats(c *gin.Context) {
	size, oldestAge, err := h.service.CacheStats()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to get cache stats", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(&model.CacheStatsResponse{
		Size:        size,
		OldestAgeMs: oldestAge,
	}))
}

// ClearCache 清空形态分析缓存
// DELETE /api/morphology/cache
func (h *ChunkHandler) ClearCache(c *gin.Context) {
	if err := h.service.ClearCache(); err != nil {
		middleware.HandleError(c, middleware.NewInternalError("failed to clear cache", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"cleared": true}))
}

// GetTask 查询异步切分任务状态
// GET /api/tasks/:id
func (h *ChunkHandler) GetTask(c *gin.Context) {
	var req model.TaskStatusRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid task ID", err.Error()))
		return
	}

	task, err := h.service.TaskStatus(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, services.ErrQueueNotConfigured) {
			middleware.HandleError(c, middleware.NewBusinessError("async chunking is not available"))
			return
		}
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			middleware.HandleError(c, middleware.NewNotFoundError("task not found: "+req.ID))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("failed to get task", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(task))
}
