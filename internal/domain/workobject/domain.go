package workobject

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusOnHold    Status = "on_hold"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusCompleted, StatusCancelled, StatusOnHold:
		return true
	}
	return false
}

// WorkObject is the unit of work a customer registers for inspection.
type WorkObject struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment links a worker to a work object.
type Assignment struct {
	ID         int64     `json:"id"`
	ObjectID   int64     `json:"object_id"`
	WorkerID   int64     `json:"worker_id"`
	IsFinished bool      `json:"is_finished"`
	CreatedAt  time.Time `json:"created_at"`
}

type Document struct {
	ID        int64     `json:"id"`
	ObjectID  int64     `json:"object_id"`
	UserID    int64     `json:"user_id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}
