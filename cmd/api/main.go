package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/task-execution-service/internal/application"
	"github.com/wms-platform/task-execution-service/internal/infrastructure/assignment"
	"github.com/wms-platform/task-execution-service/internal/infrastructure/events"
	mongoRepo "github.com/wms-platform/task-execution-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/task-execution-service/internal/infrastructure/queue"
	"github.com/wms-platform/task-execution-service/pkg/kafka"
	"github.com/wms-platform/task-execution-service/pkg/logging"
	"github.com/wms-platform/task-execution-service/pkg/metrics"
	"github.com/wms-platform/task-execution-service/pkg/middleware"
	"github.com/wms-platform/task-execution-service/pkg/mongodb"
)

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting task-execution-service API")

	config := loadConfig()
	ctx := context.Background()

	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis", "addr", config.RedisAddr)

	producer := kafka.NewCircuitBreakerProducer(kafka.NewProducer(config.Kafka), logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	repo := mongoRepo.NewTaskRepository(mongoClient.Database())
	taskQueue := queue.NewRedisTaskQueue(redisClient, logger)
	publisher := events.NewKafkaEventPublisher(producer, logger, m)

	taskService := application.NewTaskManagementService(repo, taskQueue, publisher, logger, m)
	engine := assignment.NewEngine(taskQueue, repo, taskService, logger, m)

	// Wave-released consumer
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()

	consumer := kafka.NewConsumer(config.Kafka, logger.Logger)
	defer consumer.Close()

	waveConsumer := events.NewWaveConsumer(taskService, logger, m)
	waveConsumer.Register(consumer)

	go func() {
		if err := consumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
			logger.WithError(err).Error("Kafka consumer stopped")
		}
	}()
	logger.Info("Wave consumer started", "topic", kafka.Topics.WaveEvents)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		if err := mongoClient.HealthCheck(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	apiV1 := router.Group("/api/v1")

	tasks := apiV1.Group("/tasks")
	{
		tasks.POST("", createTaskHandler(taskService, logger))
		tasks.GET("", listTasksHandler(taskService, logger))
		tasks.GET("/:taskId", getTaskHandler(taskService, logger))
		tasks.POST("/:taskId/assign", assignTaskHandler(taskService, logger))
		tasks.POST("/:taskId/accept", acceptTaskHandler(taskService, logger))
		tasks.POST("/:taskId/reject", rejectTaskHandler(taskService, logger))
		tasks.POST("/:taskId/start", startTaskHandler(taskService, logger))
		tasks.POST("/:taskId/complete", completeTaskHandler(taskService, logger))
		tasks.POST("/:taskId/fail", failTaskHandler(taskService, logger))
		tasks.POST("/:taskId/cancel", cancelTaskHandler(taskService, logger))
		tasks.POST("/batch-assign", batchAssignHandler(engine, taskService, logger))
	}

	workers := apiV1.Group("/workers")
	{
		workers.GET("/:workerId/tasks", getWorkerTasksHandler(taskService, logger))
		workers.POST("/:workerId/tasks/next", nextTaskHandler(engine, logger))
		workers.POST("/:workerId/recommendations", recommendationsHandler(engine, taskService, logger))
	}

	apiV1.POST("/warehouses/:warehouseId/priority-adjustments", priorityAdjustmentsHandler(taskService, logger))

	queues := apiV1.Group("/queues")
	{
		queues.GET("", allQueueStatusesHandler(taskQueue, logger))
		queues.GET("/status", queueStatusHandler(taskQueue, logger))
		queues.DELETE("", clearQueueHandler(taskQueue, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
