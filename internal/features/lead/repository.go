package lead

import (
	"context"
	"time"

	"go-leadflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	Upsert(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, limit int64) ([]Lead, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	AddTag(ctx context.Context, id string, tag string) error
	IncrementScore(ctx context.Context, id string, points int) error
	LatestCreatedAt(ctx context.Context, source string) (time.Time, error)
}

type LeadRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewLeadRepository(mongodb *database.MongodbDB) LeadRepository {
	return &LeadRepositoryImpl{
		Collection: mongodb.DB.Collection("leads"),
	}
}

func (r *LeadRepositoryImpl) Create(ctx context.Context, lead *Lead) error {
	lead.ID = primitive.NewObjectID()
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	_, err := r.Collection.InsertOne(ctx, lead)
	return err
}

// Upsert keys on email so the external lead source can be re-polled without
// duplicating leads. The stored document is decoded back into lead, so when
// the email already existed the caller ends up with the canonical _id and
// created_at instead of the in-memory ones.
func (r *LeadRepositoryImpl) Upsert(ctx context.Context, lead *Lead) error {
	now := time.Now()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now

	filter := bson.M{"email": lead.Email}
	update := bson.M{"$set": bson.M{
		"name":       lead.Name,
		"phone":      lead.Phone,
		"company":    lead.Company,
		"status":     lead.Status,
		"score":      lead.Score,
		"source":     lead.Source,
		"updated_at": lead.UpdatedAt,
	}, "$setOnInsert": bson.M{
		"created_at": lead.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return r.Collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(lead)
}

func (r *LeadRepositoryImpl) GetByID(ctx context.Context, id string) (*Lead, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var lead Lead
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&lead)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

func (r *LeadRepositoryImpl) List(ctx context.Context, limit int64) ([]Lead, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var leads []Lead
	if err = cursor.All(ctx, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *LeadRepositoryImpl) UpdateStatus(ctx context.Context, id string, status string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}})
	return err
}

func (r *LeadRepositoryImpl) AddTag(ctx context.Context, id string, tag string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$addToSet": bson.M{"tags": tag},
		"$set":      bson.M{"updated_at": time.Now()},
	})
	return err
}

// LatestCreatedAt returns the created_at of the newest lead from the given
// source, or the zero time when there is none. The external poller resumes
// its high-water mark from it after a restart.
func (r *LeadRepositoryImpl) LatestCreatedAt(ctx context.Context, source string) (time.Time, error) {
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})
	var lead Lead
	err := r.Collection.FindOne(ctx, bson.M{"source": source}, opts).Decode(&lead)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return lead.CreatedAt, nil
}

func (r *LeadRepositoryImpl) IncrementScore(ctx context.Context, id string, points int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$inc": bson.M{"score": points},
		"$set": bson.M{"updated_at": time.Now()},
	})
	return err
}
