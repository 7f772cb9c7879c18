package domain

import "time"

// Status identifies one of the four fixed board columns.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in lifecycle order.
var Statuses = []Status{StatusBacklog, StatusInProgress, StatusReview, StatusDone}

// Valid reports whether s is one of the four board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Item is a single card on a project board. Position orders items within
// their (project, status) column only; no ordering holds across columns.
type Item struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ItemPatch carries the optional fields of a partial item update. Nil fields
// are left untouched.
type ItemPatch struct {
	Title       *string
	Description *string
	Status      *Status
}
