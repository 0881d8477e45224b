package tasks

import "time"

type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a task row joined with its owner's username and email.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
}

type NewTask struct {
	Title       string
	Description string
	Status      Status
}

// CreateInput is the body of a create request.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *Status `json:"status"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

type SortField string

const (
	SortTitle     SortField = "title"
	SortStatus    SortField = "status"
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

func (f SortField) Valid() bool {
	switch f {
	case SortTitle, SortStatus, SortCreatedAt, SortUpdatedAt:
		return true
	}
	return false
}

// Query carries the list parameters as the client sent them.
type Query struct {
	Status string
	Search string
	Title  string
	SortBy string
	Order  string
}

// ListFilter is a Query resolved against the caller. OwnerID 0 means all
// owners; an empty SortBy means newest id first.
type ListFilter struct {
	OwnerID int64
	Status  Status
	Search  string
	Title   string
	SortBy  SortField
	Desc    bool
}

type Stats struct {
	Total      int `json:"total"`
	ToDo       int `json:"toDo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}
