package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fyerfyer/exam-grading-system/api"
	"github.com/fyerfyer/exam-grading-system/api/handler"
	"github.com/fyerfyer/exam-grading-system/api/middleware"
	appconfig "github.com/fyerfyer/exam-grading-system/config"
	"github.com/fyerfyer/exam-grading-system/internal/cache"
	"github.com/fyerfyer/exam-grading-system/internal/database"
	"github.com/fyerfyer/exam-grading-system/internal/grading"
	"github.com/fyerfyer/exam-grading-system/internal/ocr"
	"github.com/fyerfyer/exam-grading-system/internal/repository"
	"github.com/fyerfyer/exam-grading-system/internal/segment"
	"github.com/fyerfyer/exam-grading-system/internal/services"
	"github.com/fyerfyer/exam-grading-system/pkg/storage"
	"github.com/fyerfyer/exam-grading-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 配置选项
type config struct {
	Port         int           // 服务端口
	Mode         string        // 运行模式 (debug/release)
	LogLevel     string        // 日志级别
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时
	DataDir      string        // 数据目录路径
	ConfigFile   string        // 配置文件路径

	// 存储配置
	StorageType    string // 存储类型 (local/minio)
	StoragePath    string // 本地存储路径
	MinioEndpoint  string // MinIO端点
	MinioAccessKey string // MinIO访问密钥
	MinioSecretKey string // MinIO秘密密钥
	MinioBucket    string // MinIO桶名称
	MinioUseSSL    bool   // MinIO是否使用SSL

	// 模型配置
	OCRModel      string // 页面转写模型名称
	OCRAPIKey     string // 页面转写API密钥
	GradingModel  string // 评卷模型名称
	GradingAPIKey string // 评卷API密钥

	// 答卷处理配置
	MaxConcurrency int           // 单份答卷页转写并发数
	ProcessTimeout time.Duration // 单份答卷处理超时

	// 缓存配置
	CacheType string        // 缓存类型
	CacheTTL  time.Duration // 报告缓存过期时间

	// 任务队列相关配置
	QueueEnabled     bool          // 是否启用任务队列
	QueueType        string        // 任务队列类型
	RedisAddr        string        // Redis 地址
	RedisPassword    string        // Redis 密码
	RedisDB          int           // Redis 数据库编号
	QueueConcurrency int           // 任务队列处理并发数
	QueueRetryLimit  int           // 任务重试次数
	QueueRetryDelay  time.Duration // 任务重试延迟
}

func main() {
	// 加载.env文件（如果存在）
	_ = godotenv.Load()

	// 解析命令行参数
	cfg := parseFlags()

	// 加载配置文件(如果指定)
	if cfg.ConfigFile != "" {
		appConfig, err := appconfig.Load(cfg.ConfigFile)
		if err != nil {
			log.Printf("Warning: Failed to load config file: %v, using command line args", err)
		} else {
			updateConfigFromFile(&cfg, appConfig)
		}
	}

	// 设置Gin模式
	gin.SetMode(cfg.Mode)

	// 初始化日志
	logger := setupLogger(cfg.LogLevel)
	logger.Info("Starting Exam Grading System...")

	// 初始化数据库
	if err := setupDatabase(cfg, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 创建文件存储服务
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建页面转写客户端
	transcriber, err := setupOCR(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize OCR client: %v", err)
	}

	// 创建评卷客户端
	evaluator, err := setupGrading(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize grading client: %v", err)
	}

	// 创建缓存服务
	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	if cfg.QueueEnabled {
		queue, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 初始化业务组件
	segmenter := segment.NewSegmenter(segment.WithLogger(logger))
	judge := grading.NewJudge(evaluator)

	subRepo := repository.NewSubmissionRepositoryWithDB(database.MustDB())
	keyRepo := repository.NewQuestionKeyRepositoryWithDB(database.MustDB())
	statusManager := services.NewSubmissionStatusManager(subRepo, logger)

	// 创建答卷服务，根据是否启用队列进行配置
	submissionOptions := []services.SubmissionOption{
		services.WithSubmissionRepository(subRepo),
		services.WithStatusManager(statusManager),
		services.WithLogger(logger),
		services.WithResultCache(cacheService),
		services.WithCacheTTL(cfg.CacheTTL),
		services.WithMaxConcurrency(cfg.MaxConcurrency),
		services.WithTimeout(cfg.ProcessTimeout),
	}

	if queue != nil {
		submissionOptions = append(submissionOptions,
			services.WithTaskQueue(queue),
			services.WithAsyncProcessing(true),
		)
		logger.Info("Submission processing will use async task queue")
	}

	submissionService := services.NewSubmissionService(
		fileStorage,
		transcriber,
		segmenter,
		judge,
		keyRepo,
		submissionOptions...,
	)
	if err := submissionService.Init(); err != nil {
		logger.Fatalf("Failed to initialize submission service: %v", err)
	}

	keyService := services.NewQuestionKeyService(fileStorage, keyRepo, logger)

	// 启动任务队列工作者（如果启用）
	if queue != nil {
		worker, err := setupWorker(queue, submissionService, cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task worker: %v", err)
		}
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start task worker: %v", err)
		}
		defer worker.Stop()
	}

	// 初始化API处理器
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	keyHandler := handler.NewQuestionKeyHandler(keyService)

	// 设置路由
	r := api.SetupRouter(submissionHandler, keyHandler)

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// 优雅关闭
	go func() {
		logger.Infof("Server is running on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// 创建带超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() config {
	cfg := config{}

	// 服务配置
	flag.IntVar(&cfg.Port, "port", 8080, "Server port")
	flag.StringVar(&cfg.Mode, "mode", "debug", "Run mode (debug/release)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", 30*time.Second, "Read timeout")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", 120*time.Second, "Write timeout")

	// 存储配置
	flag.StringVar(&cfg.StorageType, "storage-type", "local", "Storage type (local/minio)")
	flag.StringVar(&cfg.StoragePath, "storage", "./data/files", "File storage path")
	flag.StringVar(&cfg.MinioEndpoint, "minio-endpoint", "localhost:9000", "MinIO endpoint")
	flag.StringVar(&cfg.MinioAccessKey, "minio-access-key", "", "MinIO access key")
	flag.StringVar(&cfg.MinioSecretKey, "minio-secret-key", "", "MinIO secret key")
	flag.StringVar(&cfg.MinioBucket, "minio-bucket", "examgrading", "MinIO bucket name")
	flag.BoolVar(&cfg.MinioUseSSL, "minio-ssl", false, "Use SSL for MinIO")

	// 模型配置
	flag.StringVar(&cfg.OCRModel, "ocr-model", "qwen-vl-plus", "OCR model name")
	flag.StringVar(&cfg.OCRAPIKey, "ocr-key", "", "OCR API key")
	flag.StringVar(&cfg.GradingModel, "grading-model", "qwen-plus", "Grading model name")
	flag.StringVar(&cfg.GradingAPIKey, "grading-key", "", "Grading API key")

	// 答卷处理配置
	flag.IntVar(&cfg.MaxConcurrency, "page-concurrency", 4, "Concurrent page transcriptions per submission")
	flag.DurationVar(&cfg.ProcessTimeout, "process-timeout", 10*time.Minute, "Timeout for processing a submission")

	// 缓存配置
	flag.StringVar(&cfg.CacheType, "cache", "memory", "Cache type (memory/redis)")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", 24*time.Hour, "Report cache TTL")

	// 数据目录配置
	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "Data directory path")

	// 配置文件
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to config file")

	// 任务队列配置
	flag.BoolVar(&cfg.QueueEnabled, "queue", false, "Enable task queue")
	flag.StringVar(&cfg.QueueType, "queue-type", "redis", "Task queue type (redis)")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address for task queue")
	flag.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.IntVar(&cfg.QueueConcurrency, "queue-concurrency", 10, "Task queue concurrency")
	flag.IntVar(&cfg.QueueRetryLimit, "queue-retry", 3, "Max retry attempts for failed tasks")
	flag.DurationVar(&cfg.QueueRetryDelay, "queue-retry-delay", time.Minute, "Delay between retry attempts")

	// 从环境变量获取API密钥（优先级高于命令行参数）
	if key := os.Getenv("TONGYI_API_KEY"); key != "" {
		cfg.OCRAPIKey = key
		cfg.GradingAPIKey = key
	}
	if key := os.Getenv("OCR_API_KEY"); key != "" {
		cfg.OCRAPIKey = key
	}
	if key := os.Getenv("GRADING_API_KEY"); key != "" {
		cfg.GradingAPIKey = key
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}

	flag.Parse()
	return cfg
}

// updateConfigFromFile 从配置文件更新命令行参数
func updateConfigFromFile(cfg *config, appConfig *appconfig.Config) {
	// 只更新未在命令行上明确设置的参数

	// 服务器配置
	if flag.Lookup("port").DefValue == fmt.Sprint(cfg.Port) && appConfig.Server.Port > 0 {
		cfg.Port = appConfig.Server.Port
	}

	// 存储配置
	if flag.Lookup("storage-type").DefValue == cfg.StorageType {
		cfg.StorageType = appConfig.Storage.Type
	}
	if flag.Lookup("storage").DefValue == cfg.StoragePath && appConfig.Storage.Path != "" {
		cfg.StoragePath = appConfig.Storage.Path
	}
	if appConfig.Storage.Endpoint != "" {
		cfg.MinioEndpoint = appConfig.Storage.Endpoint
		cfg.MinioAccessKey = appConfig.Storage.AccessKey
		cfg.MinioSecretKey = appConfig.Storage.SecretKey
		cfg.MinioBucket = appConfig.Storage.Bucket
		cfg.MinioUseSSL = appConfig.Storage.UseSSL
	}

	// 模型配置
	if appConfig.OCR.Model != "" {
		cfg.OCRModel = appConfig.OCR.Model
	}
	if cfg.OCRAPIKey == "" {
		cfg.OCRAPIKey = appConfig.OCR.APIKey
	}
	if appConfig.Grading.Model != "" {
		cfg.GradingModel = appConfig.Grading.Model
	}
	if cfg.GradingAPIKey == "" {
		cfg.GradingAPIKey = appConfig.Grading.APIKey
	}

	// 答卷处理配置
	if appConfig.Process.MaxConcurrency > 0 {
		cfg.MaxConcurrency = appConfig.Process.MaxConcurrency
	}
	if appConfig.Process.TimeoutSeconds > 0 {
		cfg.ProcessTimeout = time.Duration(appConfig.Process.TimeoutSeconds) * time.Second
	}

	// 缓存配置
	if flag.Lookup("cache").DefValue == cfg.CacheType {
		cfg.CacheType = appConfig.Cache.Type
	}
	if appConfig.Cache.TTL > 0 {
		cfg.CacheTTL = time.Duration(appConfig.Cache.TTL) * time.Second
	}

	// 任务队列配置
	if flag.Lookup("queue").DefValue == fmt.Sprint(cfg.QueueEnabled) {
		cfg.QueueEnabled = appConfig.Queue.Enable
	}
	if flag.Lookup("queue-type").DefValue == cfg.QueueType {
		cfg.QueueType = appConfig.Queue.Type
	}
	if flag.Lookup("redis-addr").DefValue == cfg.RedisAddr {
		cfg.RedisAddr = appConfig.Queue.RedisAddr
	}
	if flag.Lookup("redis-password").DefValue == cfg.RedisPassword {
		cfg.RedisPassword = appConfig.Queue.RedisPassword
	}
	if flag.Lookup("redis-db").DefValue == fmt.Sprint(cfg.RedisDB) {
		cfg.RedisDB = appConfig.Queue.RedisDB
	}
	if flag.Lookup("queue-concurrency").DefValue == fmt.Sprint(cfg.QueueConcurrency) {
		cfg.QueueConcurrency = appConfig.Queue.Concurrency
	}
	if flag.Lookup("queue-retry").DefValue == fmt.Sprint(cfg.QueueRetryLimit) {
		cfg.QueueRetryLimit = appConfig.Queue.RetryLimit
	}
	if appConfig.Queue.RetryDelay > 0 {
		cfg.QueueRetryDelay = time.Duration(appConfig.Queue.RetryDelay) * time.Second
	}
}

// setupLogger 设置日志系统
func setupLogger(level string) *logrus.Logger {
	logger := middleware.GetLogger()

	// 设置日志级别
	switch level {
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

	return logger
}

// setupStorage 设置文件存储服务
func setupStorage(cfg config) (storage.Storage, error) {
	if cfg.StorageType == "minio" {
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Bucket:    cfg.MinioBucket,
		})
	}

	// 确保存储目录存在
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	// 创建本地存储
	return storage.NewLocalStorage(storage.LocalConfig{
		Path: cfg.StoragePath,
	})
}

// setupOCR 设置页面转写客户端
func setupOCR(cfg config) (ocr.Client, error) {
	if cfg.OCRAPIKey == "" {
		return nil, fmt.Errorf("OCR API key is required")
	}

	return ocr.NewClient("tongyi",
		ocr.WithAPIKey(cfg.OCRAPIKey),
		ocr.WithModel(cfg.OCRModel),
		ocr.WithMaxRetries(3),
	)
}

// setupGrading 设置评卷客户端
func setupGrading(cfg config) (grading.Client, error) {
	if cfg.GradingAPIKey == "" {
		return nil, fmt.Errorf("grading API key is required")
	}

	return grading.NewClient("tongyi",
		grading.WithAPIKey(cfg.GradingAPIKey),
		grading.WithModel(cfg.GradingModel),
		grading.WithTemperature(0.2),
		grading.WithMaxRetries(3),
	)
}

// setupCache 设置缓存服务
func setupCache(cfg config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:            cfg.CacheType,
		DefaultTTL:      cfg.CacheTTL,
		CleanupInterval: 10 * time.Minute,
	}

	// 如果配置了Redis，添加Redis配置
	if cfg.CacheType == "redis" {
		cacheConfig.RedisAddr = cfg.RedisAddr
		cacheConfig.RedisPassword = cfg.RedisPassword
		// Redis数据库编号默认为0
	}

	return cache.NewCache(cacheConfig)
}

// setupDatabase 设置数据库
func setupDatabase(cfg config, logger *logrus.Logger) error {
	dbPath := filepath.Join(cfg.DataDir, "examgrading.db")

	// 确保数据目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %v", err)
	}

	// 初始化数据库
	dbConfig := &database.Config{
		Type: "sqlite",
		DSN:  dbPath,
	}

	return database.Setup(dbConfig, logger)
}

// setupTaskQueue 设置任务队列
func setupTaskQueue(cfg config, logger *logrus.Logger) (taskqueue.Queue, error) {
	if !cfg.QueueEnabled {
		return nil, nil
	}

	// 根据配置创建任务队列
	queueConfig := queueConfigFrom(cfg)

	logger.WithFields(logrus.Fields{
		"type":        cfg.QueueType,
		"redis_addr":  cfg.RedisAddr,
		"concurrency": cfg.QueueConcurrency,
		"retry_limit": cfg.QueueRetryLimit,
	}).Info("Setting up task queue")

	queue, err := taskqueue.NewQueue(cfg.QueueType, queueConfig)
	if err != nil {
		return nil, err
	}

	return queue, nil
}

// setupWorker 设置任务队列工作者并注册流水线处理阶段
func setupWorker(queue taskqueue.Queue, submissionService *services.SubmissionService, cfg config, logger *logrus.Logger) (taskqueue.Worker, error) {
	redisQueue, ok := queue.(*taskqueue.RedisQueue)
	if !ok {
		return nil, fmt.Errorf("task worker requires a redis queue, got %T", queue)
	}

	// 流水线处理器负责按任务类型分发
	processor := taskqueue.GetSharedPipelineProcessor(queue, logger)
	submissionService.RegisterPipelineStages(processor)

	worker := taskqueue.NewRedisWorker(redisQueue, queueConfigFrom(cfg))
	for _, taskType := range processor.GetTaskTypes() {
		worker.RegisterHandler(taskType, processor)
	}

	return worker, nil
}

// queueConfigFrom 从启动配置构造队列配置
func queueConfigFrom(cfg config) *taskqueue.Config {
	queueConfig := taskqueue.DefaultConfig()
	queueConfig.RedisAddr = cfg.RedisAddr
	queueConfig.RedisPassword = cfg.RedisPassword
	queueConfig.RedisDB = cfg.RedisDB
	queueConfig.Concurrency = cfg.QueueConcurrency
	queueConfig.RetryLimit = cfg.QueueRetryLimit
	queueConfig.RetryDelay = cfg.QueueRetryDelay
	return queueConfig
}
