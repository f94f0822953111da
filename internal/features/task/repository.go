package task

import (
	"context"
	"time"

	"go-leadflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	List(ctx context.Context, leadID string, limit int64) ([]Task, error)
}

type TaskRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTaskRepository(mongodb *database.MongodbDB) TaskRepository {
	return &TaskRepositoryImpl{
		Collection: mongodb.DB.Collection("tasks"),
	}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *Task) error {
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	_, err := r.Collection.InsertOne(ctx, task)
	return err
}

func (r *TaskRepositoryImpl) List(ctx context.Context, leadID string, limit int64) ([]Task, error) {
	filter := bson.M{}
	if leadID != "" {
		filter["lead_id"] = leadID
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var tasks []Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
