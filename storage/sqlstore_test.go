package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kanban-api/domain"
)

func TestSQLStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "board.db")

	store, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	proj, err := store.CreateProject(ctx, "persisted", "sql-secret")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	item, err := store.CreateItem(ctx, proj.ID, "task", "notes", domain.StatusReview)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Project(ctx, proj.ID)
	if err != nil {
		t.Fatalf("project after reopen: %v", err)
	}
	if got.SecretKey != "sql-secret" || !got.CreatedAt.Equal(proj.CreatedAt) {
		t.Fatalf("unexpected project after reopen: %#v", got)
	}
	board, err := reopened.Board(ctx, proj.ID)
	if err != nil {
		t.Fatalf("board after reopen: %v", err)
	}
	review := board[domain.StatusReview]
	if len(review) != 1 || review[0].ID != item.ID || !review[0].UpdatedAt.Equal(item.UpdatedAt) {
		t.Fatalf("unexpected board after reopen: %#v", review)
	}
}

func TestSQLStoreDeleteProjectCascadesItems(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLStore(ctx, filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	proj, err := store.CreateProject(ctx, "doomed", "doomed-secret")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := store.CreateItem(ctx, proj.ID, "task", "", domain.StatusBacklog); err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := store.DeleteProject(ctx, proj.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	var count int
	err = store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE project_id = ?`, proj.ID).Scan(&count)
	if err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade to remove items, %d left", count)
	}
}

func TestSQLStoreReorderRollsBackOnInvalidPlan(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLStore(ctx, filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	proj, err := store.CreateProject(ctx, "p", "tx-secret")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	a, _ := store.CreateItem(ctx, proj.ID, "a", "", domain.StatusBacklog)
	b, _ := store.CreateItem(ctx, proj.ID, "b", "", domain.StatusBacklog)

	// One valid id and one ghost: the whole request must fail and neither
	// row may move.
	_, err = store.Reorder(ctx, proj.ID, domain.ReorderPlan{
		domain.StatusInProgress: {a.ID, "ghost"},
	})
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	board, err := store.Board(ctx, proj.ID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	backlog := board[domain.StatusBacklog]
	if len(backlog) != 2 || backlog[0].ID != a.ID || backlog[1].ID != b.ID {
		t.Fatalf("expected pre-image preserved, got %#v", backlog)
	}
	if len(board[domain.StatusInProgress]) != 0 {
		t.Fatalf("expected no partial move into in_progress")
	}
}
