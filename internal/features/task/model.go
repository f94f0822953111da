package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusCancelled TaskStatus = "cancelled"
)

type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	LeadID      string             `json:"lead_id,omitempty" bson:"lead_id,omitempty"`
	AssignedTo  string             `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	DueDate     *time.Time         `json:"due_date,omitempty" bson:"due_date,omitempty"`
	Status      TaskStatus         `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}
