package template

import (
	"context"
	"time"

	"go-leadflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TemplateRepository interface {
	Create(ctx context.Context, tmpl *AutomationTemplate) error
	GetByID(ctx context.Context, id string) (*AutomationTemplate, error)
	List(ctx context.Context, category string) ([]AutomationTemplate, error)
}

type TemplateRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewTemplateRepository(mongodb *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		Collection: mongodb.DB.Collection("automation_templates"),
	}
}

func (r *TemplateRepositoryImpl) Create(ctx context.Context, tmpl *AutomationTemplate) error {
	if tmpl.ID.IsZero() {
		tmpl.ID = primitive.NewObjectID()
	}
	tmpl.CreatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, tmpl)
	return err
}

func (r *TemplateRepositoryImpl) GetByID(ctx context.Context, id string) (*AutomationTemplate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var tmpl AutomationTemplate
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&tmpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context, category string) ([]AutomationTemplate, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	cursor, err := r.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var templates []AutomationTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}
