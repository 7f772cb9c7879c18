package api

import (
	"context"

	"kanban-api/domain"
)

// Store abstracts persistence for handlers. Two interchangeable backends
// (flat JSON file and SQLite) plus an optional Redis cache wrapper satisfy
// it; the backend is selected once at process start.
type Store interface {
	CreateProject(ctx context.Context, name, secretKey string) (domain.Project, error)
	Project(ctx context.Context, id string) (domain.Project, error)
	ProjectBySecret(ctx context.Context, secretKey string) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	Board(ctx context.Context, projectID string) (domain.Board, error)
	CreateItem(ctx context.Context, projectID, title, description string, status domain.Status) (domain.Item, error)
	UpdateItem(ctx context.Context, projectID, itemID string, patch domain.ItemPatch) (domain.Item, error)
	DeleteItem(ctx context.Context, projectID, itemID string) error
	Reorder(ctx context.Context, projectID string, plan domain.ReorderPlan) (domain.Board, error)
}
