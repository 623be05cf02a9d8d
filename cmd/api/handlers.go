package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/task-execution-service/internal/application"
	"github.com/wms-platform/task-execution-service/internal/domain"
	"github.com/wms-platform/task-execution-service/internal/infrastructure/assignment"
	"github.com/wms-platform/task-execution-service/internal/infrastructure/queue"
	"github.com/wms-platform/task-execution-service/pkg/kafka"
	"github.com/wms-platform/task-execution-service/pkg/logging"
	"github.com/wms-platform/task-execution-service/pkg/middleware"
	"github.com/wms-platform/task-execution-service/pkg/mongodb"
)

const serviceName = "task-execution-service"

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	RedisAddr  string
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", serviceName)

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8012"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "task_execution_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		Kafka:     kafkaConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.CreateTaskCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := service.CreateTask(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, application.ToTaskResponse(task))
	}
}

func getTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		task, err := service.GetTask(c.Request.Context(), c.Param("taskId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func assignTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.AssignTaskCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := service.AssignTask(c.Request.Context(), c.Param("taskId"), cmd.WorkerID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func acceptTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		task, err := service.AcceptTask(c.Request.Context(), c.Param("taskId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func rejectTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.ReasonCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := service.RejectTask(c.Request.Context(), c.Param("taskId"), cmd.Reason)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func startTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		task, err := service.StartTask(c.Request.Context(), c.Param("taskId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func completeTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		task, err := service.CompleteTask(c.Request.Context(), c.Param("taskId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func failTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.ReasonCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if cmd.Reason == "" {
			responder.RespondBadRequest("reason is required")
			return
		}

		task, err := service.FailTask(c.Request.Context(), c.Param("taskId"), cmd.Reason)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func cancelTaskHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.ReasonCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task, err := service.CancelTask(c.Request.Context(), c.Param("taskId"), cmd.Reason)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

// listTasksHandler dispatches on query parameters: referenceId wins, then
// overdue, then the warehouse/zone/type filters which all require status
func listTasksHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		ctx := c.Request.Context()

		if referenceID := c.Query("referenceId"); referenceID != "" {
			tasks, err := service.GetTasksByReference(ctx, referenceID)
			if err != nil {
				responder.RespondWithError(err)
				return
			}
			c.JSON(http.StatusOK, application.ToTaskResponses(tasks))
			return
		}

		if c.Query("overdue") == "true" {
			tasks, err := service.GetOverdueTasks(ctx)
			if err != nil {
				responder.RespondWithError(err)
				return
			}
			c.JSON(http.StatusOK, application.ToTaskResponses(tasks))
			return
		}

		status := domain.TaskStatus(strings.ToUpper(c.Query("status")))
		if status == "" {
			responder.RespondBadRequest("status query parameter is required")
			return
		}

		var (
			tasks []*domain.WorkTask
			err   error
		)
		switch {
		case c.Query("warehouseId") != "":
			tasks, err = service.GetTasksByWarehouseAndStatus(ctx, c.Query("warehouseId"), status)
		case c.Query("zone") != "":
			tasks, err = service.GetTasksByZoneAndStatus(ctx, c.Query("zone"), status)
		case c.Query("type") != "":
			tasks, err = service.GetTasksByTypeAndStatus(ctx, domain.TaskType(strings.ToUpper(c.Query("type"))), status)
		default:
			tasks, err = service.GetTasksByStatus(ctx, status)
		}
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponses(tasks))
	}
}

func getWorkerTasksHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		workerID := c.Param("workerId")

		var (
			tasks []*domain.WorkTask
			err   error
		)
		if c.DefaultQuery("active", "true") == "true" {
			tasks, err = service.GetActiveTasksByWorker(c.Request.Context(), workerID)
		} else {
			tasks, err = service.GetTasksByWorker(c.Request.Context(), workerID)
		}
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponses(tasks))
	}
}

// workerRequest is the worker snapshot mobile clients send with dispatch calls
type workerRequest struct {
	WarehouseID       string   `json:"warehouseId" binding:"required"`
	CurrentZone       string   `json:"currentZone" binding:"required"`
	CurrentLocation   string   `json:"currentLocation,omitempty"`
	Capabilities      []string `json:"capabilities" binding:"required"`
	Specializations   []string `json:"specializations,omitempty"`
	ActiveTaskCount   int      `json:"activeTaskCount"`
	PerformanceRating float64  `json:"performanceRating"`
}

func (r workerRequest) toWorker(workerID string) (assignment.Worker, error) {
	worker := assignment.Worker{
		WorkerID:          workerID,
		WarehouseID:       r.WarehouseID,
		CurrentZone:       r.CurrentZone,
		Capabilities:      toTaskTypes(r.Capabilities),
		Specializations:   toTaskTypes(r.Specializations),
		ActiveTaskCount:   r.ActiveTaskCount,
		PerformanceRating: r.PerformanceRating,
	}

	if r.CurrentLocation != "" {
		loc, err := domain.LocationFromCode(r.CurrentLocation)
		if err != nil {
			return assignment.Worker{}, err
		}
		worker.CurrentLocation = &loc
	}
	return worker, nil
}

func toTaskTypes(values []string) []domain.TaskType {
	types := make([]domain.TaskType, 0, len(values))
	for _, v := range values {
		types = append(types, domain.TaskType(strings.ToUpper(v)))
	}
	return types
}

func nextTaskHandler(engine *assignment.Engine, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req workerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		worker, err := req.toWorker(c.Param("workerId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		task, err := engine.GetNextTaskForWorker(c.Request.Context(), worker)
		if err != nil {
			responder.RespondWithError(err)
			return
		}
		if task == nil {
			c.Status(http.StatusNoContent)
			return
		}

		c.JSON(http.StatusOK, application.ToTaskResponse(task))
	}
}

func recommendationsHandler(engine *assignment.Engine, service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req workerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		worker, err := req.toWorker(c.Param("workerId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		tasks, err := service.GetQueuedTasksByZone(c.Request.Context(), worker.WarehouseID, worker.CurrentZone)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		c.JSON(http.StatusOK, engine.GetTaskRecommendations(worker, tasks, limit))
	}
}

func batchAssignHandler(engine *assignment.Engine, service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			TaskIDs []string `json:"taskIds" binding:"required"`
			Workers []struct {
				WorkerID string `json:"workerId" binding:"required"`
				workerRequest
			} `json:"workers" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		workers := make([]assignment.Worker, 0, len(req.Workers))
		for _, w := range req.Workers {
			worker, err := w.toWorker(w.WorkerID)
			if err != nil {
				responder.RespondWithError(err)
				return
			}
			workers = append(workers, worker)
		}

		tasks := make([]*domain.WorkTask, 0, len(req.TaskIDs))
		for _, taskID := range req.TaskIDs {
			task, err := service.GetTask(c.Request.Context(), taskID)
			if err != nil {
				responder.RespondWithError(err)
				return
			}
			tasks = append(tasks, task)
		}

		c.JSON(http.StatusOK, engine.BatchAssign(c.Request.Context(), tasks, workers))
	}
}

func priorityAdjustmentsHandler(service *application.TaskManagementService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			QueueDepth             int     `json:"queueDepth"`
			AvailableOperators     int     `json:"availableOperators"`
			AverageTaskTimeMinutes float64 `json:"averageTaskTimeMinutes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		adjustments, err := service.RecommendPriorityAdjustments(c.Request.Context(), c.Param("warehouseId"), domain.SystemLoadMetrics{
			QueueDepth:             req.QueueDepth,
			AvailableOperators:     req.AvailableOperators,
			AverageTaskTimeMinutes: req.AverageTaskTimeMinutes,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, adjustments)
	}
}

func queueParams(c *gin.Context) (warehouseID, zone string, taskType domain.TaskType, ok bool) {
	warehouseID = c.Query("warehouseId")
	zone = c.Query("zone")
	taskType = domain.TaskType(strings.ToUpper(c.Query("type")))
	ok = warehouseID != "" && zone != "" && taskType.IsValid()
	return
}

func queueStatusHandler(taskQueue *queue.RedisTaskQueue, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		warehouseID, zone, taskType, ok := queueParams(c)
		if !ok {
			responder.RespondBadRequest("warehouseId, zone, and a valid type are required")
			return
		}

		status, err := taskQueue.Status(c.Request.Context(), warehouseID, zone, taskType)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

func allQueueStatusesHandler(taskQueue *queue.RedisTaskQueue, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		statuses, err := taskQueue.AllStatuses(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, statuses)
	}
}

func clearQueueHandler(taskQueue *queue.RedisTaskQueue, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		warehouseID, zone, taskType, ok := queueParams(c)
		if !ok {
			responder.RespondBadRequest("warehouseId, zone, and a valid type are required")
			return
		}

		dropped, err := taskQueue.Clear(c.Request.Context(), warehouseID, zone, taskType)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		logger.Warn("Queue cleared",
			"warehouseId", warehouseID, "zone", zone, "type", taskType, "dropped", dropped)
		c.JSON(http.StatusOK, gin.H{"dropped": dropped})
	}
}
