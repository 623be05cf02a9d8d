package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/task-execution-service/internal/domain"
)

const tasksCollection = "work_tasks"

// taskDocument is the persisted shape of a WorkTask. The context payload is
// stored as a raw subdocument and decoded by the task's type discriminator.
type taskDocument struct {
	domain.WorkTask `bson:",inline"`
	Context         bson.Raw `bson:"context,omitempty"`
}

// TaskRepository implements domain.WorkTaskRepository on MongoDB
type TaskRepository struct {
	collection *mongo.Collection
}

// NewTaskRepository creates a repository and ensures its indexes
func NewTaskRepository(db *mongo.Database) *TaskRepository {
	repo := &TaskRepository{collection: db.Collection(tasksCollection)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo.ensureIndexes(ctx)

	return repo
}

func (r *TaskRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "taskId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "warehouseId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "zone", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "referenceId", Value: 1}}},
		{Keys: bson.D{{Key: "deadline", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func toDocument(task *domain.WorkTask) (bson.M, error) {
	data, err := bson.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to build task document: %w", err)
	}

	if task.Context != nil {
		doc["context"] = task.Context
	}
	delete(doc, "_id")

	return doc, nil
}

func fromDocument(doc *taskDocument) (*domain.WorkTask, error) {
	task := doc.WorkTask
	if len(doc.Context) > 0 {
		taskCtx, err := domain.UnmarshalContextBSON(task.Type, doc.Context)
		if err != nil {
			return nil, err
		}
		task.Context = taskCtx
	}
	return &task, nil
}

// Save persists a task with optimistic concurrency. New aggregates (version
// 0) are inserted at version 1; existing aggregates are replaced only when
// the stored version still matches, otherwise domain.ErrVersionConflict is
// returned and the in-memory version is left unchanged.
func (r *TaskRepository) Save(ctx context.Context, task *domain.WorkTask) error {
	task.UpdatedAt = time.Now().UTC()

	if task.Version == 0 {
		task.Version = 1
		doc, err := toDocument(task)
		if err != nil {
			task.Version = 0
			return err
		}

		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			task.Version = 0
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("task %s already exists: %w", task.TaskID, domain.ErrVersionConflict)
			}
			return fmt.Errorf("failed to insert task %s: %w", task.TaskID, err)
		}
		return nil
	}

	currentVersion := task.Version
	task.Version++

	doc, err := toDocument(task)
	if err != nil {
		task.Version = currentVersion
		return err
	}

	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"taskId": task.TaskID, "version": currentVersion},
		doc,
	)
	if err != nil {
		task.Version = currentVersion
		return fmt.Errorf("failed to save task %s: %w", task.TaskID, err)
	}
	if result.MatchedCount == 0 {
		task.Version = currentVersion
		return fmt.Errorf("task %s version %d: %w", task.TaskID, currentVersion, domain.ErrVersionConflict)
	}

	return nil
}

// FindByID returns a task by its task ID, or nil when it does not exist
func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*domain.WorkTask, error) {
	var doc taskDocument
	err := r.collection.FindOne(ctx, bson.M{"taskId": taskID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task %s: %w", taskID, err)
	}
	return fromDocument(&doc)
}

func (r *TaskRepository) FindByWorker(ctx context.Context, workerID string) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{"assignedTo": workerID})
}

func (r *TaskRepository) FindActiveByWorker(ctx context.Context, workerID string) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{
		"assignedTo": workerID,
		"status":     bson.M{"$in": activeStatuses()},
	})
}

func (r *TaskRepository) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{"status": status})
}

func (r *TaskRepository) FindByTypeAndStatus(ctx context.Context, taskType domain.TaskType, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{"type": taskType, "status": status})
}

func (r *TaskRepository) FindByWarehouseAndStatus(ctx context.Context, warehouseID string, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{"warehouseId": warehouseID, "status": status})
}

func (r *TaskRepository) FindByZoneAndStatus(ctx context.Context, zone string, status domain.TaskStatus) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{"zone": zone, "status": status})
}

func (r *TaskRepository) FindQueuedByZone(ctx context.Context, warehouseID, zone string) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{
		"warehouseId": warehouseID,
		"zone":        zone,
		"status":      domain.TaskStatusQueued,
	})
}

// FindOverdue returns non-terminal tasks whose deadline has passed
func (r *TaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{
		"deadline": bson.M{"$lt": now},
		"status": bson.M{"$nin": []domain.TaskStatus{
			domain.TaskStatusCompleted,
			domain.TaskStatusFailed,
			domain.TaskStatusCancelled,
		}},
	})
}

func (r *TaskRepository) FindByReference(ctx context.Context, referenceID string) ([]*domain.WorkTask, error) {
	return r.findMany(ctx, bson.M{"referenceId": referenceID})
}

func (r *TaskRepository) CountActiveByWorker(ctx context.Context, workerID string) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"assignedTo": workerID,
		"status":     bson.M{"$in": activeStatuses()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active tasks for %s: %w", workerID, err)
	}
	return count, nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"taskId": taskID})
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) findMany(ctx context.Context, filter bson.M) ([]*domain.WorkTask, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*domain.WorkTask
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		task, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

func activeStatuses() []domain.TaskStatus {
	return []domain.TaskStatus{
		domain.TaskStatusAssigned,
		domain.TaskStatusAccepted,
		domain.TaskStatusInProgress,
	}
}
