package execution

import (
	"context"
	"fmt"
	"time"

	"go-leadflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExecutionRepository interface {
	Append(ctx context.Context, exec *RuleExecution) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*RuleExecution, error)
	// MarkAction settles one child action. The filter requires the action to
	// still be pending so a transition is written at most once.
	MarkAction(ctx context.Context, executionID primitive.ObjectID, actionIndex int, status ActionStatus, errMsg string, executedAt time.Time) (bool, error)
	ListByRule(ctx context.Context, ruleID string, limit int64) ([]RuleExecution, error)
	ListRecent(ctx context.Context, limit int64) ([]RuleExecution, error)
	// ListPending returns executions that still have a pending action eligible
	// before the given instant. Used to re-arm work after a restart.
	ListPending(ctx context.Context, until time.Time) ([]RuleExecution, error)
	// HasForEvent reports whether a firing of the rule is already recorded
	// for the event. This is the durable half of event dedup: the in-memory
	// seen set is empty after a restart, the ledger is not.
	HasForEvent(ctx context.Context, eventID string, ruleID primitive.ObjectID) (bool, error)
	CountByRule(ctx context.Context, ruleID primitive.ObjectID) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type ExecutionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExecutionRepository(mongodb *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{
		Collection: mongodb.DB.Collection("rule_executions"),
	}
}

func (r *ExecutionRepositoryImpl) Append(ctx context.Context, exec *RuleExecution) error {
	if exec.ID.IsZero() {
		exec.ID = primitive.NewObjectID()
	}
	exec.CreatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, exec)
	return err
}

func (r *ExecutionRepositoryImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*RuleExecution, error) {
	var exec RuleExecution
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&exec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepositoryImpl) MarkAction(ctx context.Context, executionID primitive.ObjectID, actionIndex int, status ActionStatus, errMsg string, executedAt time.Time) (bool, error) {
	prefix := fmt.Sprintf("actions.%d", actionIndex)
	filter := bson.M{
		"_id":              executionID,
		prefix + ".status": ActionPending,
	}
	update := bson.M{"$set": bson.M{
		prefix + ".status":      status,
		prefix + ".executed_at": executedAt,
		prefix + ".error":       errMsg,
	}}
	res, err := r.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *ExecutionRepositoryImpl) ListByRule(ctx context.Context, ruleID string, limit int64) ([]RuleExecution, error) {
	oid, err := primitive.ObjectIDFromHex(ruleID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.M{"triggered_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, bson.M{"rule_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var execs []RuleExecution
	if err = cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *ExecutionRepositoryImpl) ListRecent(ctx context.Context, limit int64) ([]RuleExecution, error) {
	opts := options.Find().SetSort(bson.M{"triggered_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var execs []RuleExecution
	if err = cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *ExecutionRepositoryImpl) ListPending(ctx context.Context, until time.Time) ([]RuleExecution, error) {
	filter := bson.M{
		"actions": bson.M{"$elemMatch": bson.M{
			"status":      ActionPending,
			"eligible_at": bson.M{"$lte": until},
		}},
	}
	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var execs []RuleExecution
	if err = cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}

func (r *ExecutionRepositoryImpl) HasForEvent(ctx context.Context, eventID string, ruleID primitive.ObjectID) (bool, error) {
	opts := options.Count().SetLimit(1)
	n, err := r.Collection.CountDocuments(ctx, bson.M{"event_id": eventID, "rule_id": ruleID}, opts)
	return n > 0, err
}

func (r *ExecutionRepositoryImpl) CountByRule(ctx context.Context, ruleID primitive.ObjectID) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"rule_id": ruleID})
}

func (r *ExecutionRepositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"triggered_at": bson.M{"$gte": since}})
}
