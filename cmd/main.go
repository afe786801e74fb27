package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hanbitlabs/semantic-chunker/api"
	"github.com/hanbitlabs/semantic-chunker/api/handler"
	"github.com/hanbitlabs/semantic-chunker/api/middleware"
	appconfig "github.com/hanbitlabs/semantic-chunker/config"
	"github.com/hanbitlabs/semantic-chunker/internal/cache"
	"github.com/hanbitlabs/semantic-chunker/internal/database"
	"github.com/hanbitlabs/semantic-chunker/internal/llm"
	"github.com/hanbitlabs/semantic-chunker/internal/morphology"
	"github.com/hanbitlabs/semantic-chunker/internal/repository"
	"github.com/hanbitlabs/semantic-chunker/internal/services"
	"github.com/hanbitlabs/semantic-chunker/pkg/taskqueue"
)

func main() {
	// 加载.env文件(如果存在)
	_ = godotenv.Load()

	configFile := flag.String("config", "config.yaml", "Path to config file")
	mode := flag.String("mode", "release", "Run mode (debug/release)")
	flag.Parse()

	cfg, err := appconfig.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	gin.SetMode(*mode)

	logger := setupLogger(cfg.Log)
	logger.Info("Starting semantic chunker service...")

	// 初始化数据库
	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 初始化缓存
	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	// 初始化形态分析器
	analyzer := setupAnalyzer(cfg, cacheService, logger)

	// 初始化任务队列(如果启用)
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, err = taskqueue.NewRedisQueue(&taskqueue.Config{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			RetryLimit:    cfg.Queue.RetryLimit,
			RetryDelay:    time.Duration(cfg.Queue.RetryDelay) * time.Second,
		}, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 初始化切分服务
	serviceOptions := []services.ServiceOption{
		services.WithAnalyzer(analyzer),
		services.WithRepository(repository.NewChunkRepository()),
		services.WithLogger(logger),
		services.WithMaxChunkSize(cfg.Chunking.MaxChunkSize),
		services.WithDefaultStrategy(services.Strategy(cfg.Chunking.Strategy)),
		services.WithApproveThreshold(cfg.Chunking.AutoApproveThreshold),
	}
	if cfg.Chunking.TimeoutSeconds > 0 {
		serviceOptions = append(serviceOptions,
			services.WithTimeout(time.Duration(cfg.Chunking.TimeoutSeconds)*time.Second))
	}
	if queue != nil {
		serviceOptions = append(serviceOptions, services.WithQueue(queue))
	}

	chunkingService := services.NewChunkingService(serviceOptions...)

	// 启动任务队列工作者(如果启用)
	var worker *taskqueue.Worker
	if queue != nil {
		worker = taskqueue.NewWorker(&taskqueue.Config{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			RetryLimit:    cfg.Queue.RetryLimit,
		}, queue, chunkingService, logger)
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start task queue worker: %v", err)
		}
		defer worker.Stop()
	}

	// 设置路由并启动HTTP服务器
	r := api.SetupRouter(handler.NewChunkHandler(chunkingService, logger))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号后优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger 设置日志系统
// 配置了日志文件时同时输出到文件(带滚动)和标准输出
func setupLogger(cfg appconfig.LogConfig) *logrus.Logger {
	logger := middleware.GetLogger()

	switch cfg.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return logger
}

// setupCache 设置缓存服务
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:       cfg.Cache.Type,
		DefaultTTL: time.Duration(cfg.Cache.TTL) * time.Second,
	}

	if cfg.Cache.Type == "redis" {
		cacheConfig.RedisAddr = cfg.Cache.Address
		cacheConfig.RedisPassword = cfg.Cache.Password
		cacheConfig.RedisDB = cfg.Cache.DB
	}

	return cache.NewCache(cacheConfig)
}

// setupAnalyzer 设置形态分析器
// 未配置API密钥时自动降级到规则引擎
func setupAnalyzer(cfg *appconfig.Config, cacheService cache.Cache, logger *logrus.Logger) *morphology.Analyzer {
	opts := []morphology.Option{
		morphology.WithCache(cacheService),
		morphology.WithLogger(logger),
		morphology.WithUsageTracker(&morphology.LogUsageTracker{Logger: logger}),
	}
	if cfg.Cache.TTL > 0 {
		opts = append(opts, morphology.WithCacheTTL(time.Duration(cfg.Cache.TTL)*time.Second))
	}

	provider := morphology.Provider(cfg.Chunking.Provider)
	if provider == morphology.ProviderClaude {
		if cfg.LLM.APIKey == "" || cfg.LLM.APIKey == "${ANTHROPIC_API_KEY}" {
			logger.Warn("claude provider configured but no API key found, using rule-based analysis")
		} else {
			client, err := llm.NewClient(cfg.LLM.Provider, llm.Config{
				APIKey:     cfg.LLM.APIKey,
				Model:      cfg.LLM.Model,
				BaseURL:    cfg.LLM.Endpoint,
				MaxTokens:  cfg.LLM.MaxTokens,
				Timeout:    time.Duration(cfg.LLM.TimeoutSec) * time.Second,
				MaxRetries: cfg.LLM.MaxRetries,
			})
			if err != nil {
				logger.Warnf("Failed to initialize LLM client: %v, using rule-based analysis", err)
			} else {
				opts = append(opts,
					morphology.WithLLMClient(client),
					morphology.WithProvider(morphology.ProviderClaude))
			}
		}
	}

	return morphology.NewAnalyzer(opts...)
}
