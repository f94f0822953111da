package rule

import (
	"context"
	"time"

	"go-leadflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *AutomationRule) error
	GetByID(ctx context.Context, id string) (*AutomationRule, error)
	List(ctx context.Context) ([]AutomationRule, error)
	ListByTrigger(ctx context.Context, trigger TriggerKind, activeOnly bool) ([]AutomationRule, error)
	Update(ctx context.Context, rule *AutomationRule) (bool, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	IncrementExecution(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// SetExecutionCount overwrites the counter with the value derived from
	// the ledger. Only the startup reconciliation calls this.
	SetExecutionCount(ctx context.Context, id primitive.ObjectID, count int64) error
}

type RuleRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRuleRepository(mongodb *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{
		Collection: mongodb.DB.Collection("automation_rules"),
	}
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *AutomationRule) error {
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	_, err := r.Collection.InsertOne(ctx, rule)
	return err
}

func (r *RuleRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationRule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var rule AutomationRule
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&rule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) List(ctx context.Context) ([]AutomationRule, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var rules []AutomationRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) ListByTrigger(ctx context.Context, trigger TriggerKind, activeOnly bool) ([]AutomationRule, error) {
	filter := bson.M{"trigger": trigger}
	if activeOnly {
		filter["is_active"] = true
	}
	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var rules []AutomationRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *AutomationRule) (bool, error) {
	rule.UpdatedAt = time.Now()
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": rule.ID}, bson.M{"$set": bson.M{
		"name":        rule.Name,
		"description": rule.Description,
		"trigger":     rule.Trigger,
		"conditions":  rule.Conditions,
		"actions":     rule.Actions,
		"is_active":   rule.IsActive,
		"updated_at":  rule.UpdatedAt,
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *RuleRepositoryImpl) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, err
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *RuleRepositoryImpl) IncrementExecution(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"execution_count": 1},
		"$set": bson.M{"last_executed_at": at},
	})
	return err
}

func (r *RuleRepositoryImpl) SetExecutionCount(ctx context.Context, id primitive.ObjectID, count int64) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"execution_count": count},
	})
	return err
}
