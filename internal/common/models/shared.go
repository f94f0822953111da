package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

type AuditAction string

const (
	AuditActionRule     AuditAction = "RULE"
	AuditActionTemplate AuditAction = "TEMPLATE"
	AuditActionSettings AuditAction = "SETTINGS"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Action    AuditAction            `bson:"action" json:"action"`
	Entity    string                 `bson:"entity" json:"entity"`
	RecordID  string                 `bson:"record_id" json:"record_id"`
	ActorID   string                 `bson:"actor_id" json:"actor_id"`
	Changes   map[string]Change      `bson:"changes" json:"changes"`
	Meta      map[string]interface{} `bson:"meta,omitempty" json:"meta,omitempty"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
}

// Log is the shape of application log entries persisted by the zap DB sink.
type Log struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Message      string             `bson:"message" json:"message"`
	Caller       string             `bson:"caller" json:"caller"`
	LogLevelId   int                `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time          `bson:"created_on_utc" json:"created_on_utc"`
}
