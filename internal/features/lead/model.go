package lead

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Lead struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Company   string             `json:"company,omitempty" bson:"company,omitempty"`
	Status    string             `json:"status" bson:"status"`
	Score     int                `json:"score" bson:"score"`
	Tags      []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	Source    string             `json:"source,omitempty" bson:"source,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// AsSubject flattens the lead into the field map conditions are evaluated
// against.
func (l *Lead) AsSubject() map[string]interface{} {
	return map[string]interface{}{
		"id":      l.ID.Hex(),
		"name":    l.Name,
		"email":   l.Email,
		"phone":   l.Phone,
		"company": l.Company,
		"status":  l.Status,
		"score":   l.Score,
		"tags":    l.Tags,
		"source":  l.Source,
	}
}
