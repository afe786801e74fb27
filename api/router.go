package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/hanbitlabs/semantic-chunker/api/handler"
	"github.com/hanbitlabs/semantic-chunker/api/middleware"
	"github.com/hanbitlabs/semantic-chunker/internal/services"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(chunkHandler *handler.ChunkHandler) *gin.Engine {
	registerValidators()

	router := gin.New()

	// 应用全局中间件
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.SetTraceID())

	// 在调试模式下记录请求体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	api := router.Group("/api")
	{
		// 切分API
		chunkGroup := api.Group("/chunks")
		{
			// 切分文档 - POST /api/chunks
			chunkGroup.POST("", chunkHandler.ChunkDocument)

			// 多策略对比 - POST /api/chunks/compare
			chunkGroup.POST("/compare", chunkHandler.CompareStrategies)

			// 更新块审批状态 - PUT /api/chunks/:id/status
			chunkGroup.PUT("/:id/status", chunkHandler.UpdateChunkStatus)
		}

		// 文档维度的查询API
		api.GET("/documents/:id/chunks", chunkHandler.ListChunks)

		// 形态分析API
		morphGroup := api.Group("/morphology")
		{
			// 句子切分 - POST /api/morphology/analyze
			morphGroup.POST("/analyze", chunkHandler.Analyze)

			// 缓存统计 - GET /api/morphology/cache
			morphGroup.GET("/cache", chunkHandler.CacheStats)

			// 清空缓存 - DELETE /api/morphology/cache
			morphGroup.DELETE("/cache", chunkHandler.ClearCache)
		}

		// 异步任务API
		api.GET("/tasks/:id", chunkHandler.GetTask)

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// registerValidators 注册自定义的请求参数校验器
func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// chunking_strategy 校验策略名称是否合法
		_ = v.RegisterValidation("chunking_strategy", func(fl validator.FieldLevel) bool {
			return services.ValidStrategy(fl.Field().String())
		})
	}
}
