package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Both backends must honor the same contract; every test here runs against
// the file store and the SQLite store.
func testStores(t *testing.T) map[string]backend {
	t.Helper()

	file := NewFileStore(filepath.Join(t.TempDir(), "board.json"), log.New())

	sqls, err := OpenSQLStore(context.Background(), filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = sqls.Close() })

	return map[string]backend{"file": file, "sqlite": sqls}
}

func TestCreateProjectRejectsDuplicateSecret(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, err := store.CreateProject(ctx, "Test Project", "super-secret")
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			if first.ID == "" {
				t.Fatalf("expected generated project id")
			}
			if _, err := store.CreateProject(ctx, "Other Name", "super-secret"); !errors.Is(err, ErrSecretInUse) {
				t.Fatalf("expected ErrSecretInUse, got %v", err)
			}

			resolved, err := store.ProjectBySecret(ctx, "super-secret")
			if err != nil {
				t.Fatalf("resolve by secret: %v", err)
			}
			if resolved.ID != first.ID {
				t.Fatalf("expected secret to resolve %q, got %q", first.ID, resolved.ID)
			}
		})
	}
}

func TestProjectLookupsNotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Project(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
				t.Fatalf("expected ErrProjectNotFound, got %v", err)
			}
			if _, err := store.ProjectBySecret(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
				t.Fatalf("expected ErrProjectNotFound by secret, got %v", err)
			}
			if err := store.DeleteProject(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
				t.Fatalf("expected ErrProjectNotFound on delete, got %v", err)
			}
			if _, err := store.Board(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
				t.Fatalf("expected ErrProjectNotFound on board, got %v", err)
			}
		})
	}
}

func TestCreateItemAppendsToColumn(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}

			for want := 1; want <= 3; want++ {
				item, err := store.CreateItem(ctx, proj.ID, "task", "", domain.StatusBacklog)
				if err != nil {
					t.Fatalf("create item: %v", err)
				}
				if item.Position != want {
					t.Fatalf("expected position %d, got %d", want, item.Position)
				}
			}

			// A different column starts its own sequence.
			item, err := store.CreateItem(ctx, proj.ID, "review me", "", domain.StatusReview)
			if err != nil {
				t.Fatalf("create review item: %v", err)
			}
			if item.Position != 1 {
				t.Fatalf("expected position 1 in empty review column, got %d", item.Position)
			}
		})
	}
}

func TestUpdateItemStatusChangeAppendsToDestination(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			first, err := store.CreateItem(ctx, proj.ID, "First task", "", domain.StatusBacklog)
			if err != nil {
				t.Fatalf("create first: %v", err)
			}
			second, err := store.CreateItem(ctx, proj.ID, "Second task", "", domain.StatusBacklog)
			if err != nil {
				t.Fatalf("create second: %v", err)
			}

			status := domain.StatusInProgress
			moved, err := store.UpdateItem(ctx, proj.ID, first.ID, domain.ItemPatch{Status: &status})
			if err != nil {
				t.Fatalf("update item: %v", err)
			}
			if moved.Status != domain.StatusInProgress || moved.Position != 1 {
				t.Fatalf("expected first position in in_progress, got %q pos %d", moved.Status, moved.Position)
			}

			board, err := store.Board(ctx, proj.ID)
			if err != nil {
				t.Fatalf("board: %v", err)
			}
			// The source column keeps its gap: second stays at position 2.
			backlog := board[domain.StatusBacklog]
			if len(backlog) != 1 || backlog[0].ID != second.ID || backlog[0].Position != 2 {
				t.Fatalf("unexpected backlog after move: %#v", backlog)
			}
		})
	}
}

func TestUpdateItemTitleLeavesPositionUntouched(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			if _, err := store.CreateItem(ctx, proj.ID, "one", "", domain.StatusBacklog); err != nil {
				t.Fatalf("create: %v", err)
			}
			item, err := store.CreateItem(ctx, proj.ID, "two", "", domain.StatusBacklog)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			title := "renamed"
			desc := "details"
			updated, err := store.UpdateItem(ctx, proj.ID, item.ID, domain.ItemPatch{Title: &title, Description: &desc})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if updated.Title != "renamed" || updated.Description != "details" {
				t.Fatalf("unexpected fields: %#v", updated)
			}
			if updated.Position != item.Position || updated.Status != item.Status {
				t.Fatalf("edit without status change moved the item: %#v", updated)
			}
		})
	}
}

func TestReorderFullPermutation(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			first, err := store.CreateItem(ctx, proj.ID, "first", "", domain.StatusBacklog)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			second, err := store.CreateItem(ctx, proj.ID, "second", "", domain.StatusBacklog)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			plan := domain.ReorderPlan{domain.StatusBacklog: {second.ID, first.ID}}
			board, err := store.Reorder(ctx, proj.ID, plan)
			if err != nil {
				t.Fatalf("reorder: %v", err)
			}
			backlog := board[domain.StatusBacklog]
			if len(backlog) != 2 || backlog[0].ID != second.ID || backlog[1].ID != first.ID {
				t.Fatalf("unexpected backlog order: %#v", backlog)
			}
			if backlog[0].Position != 1 || backlog[1].Position != 2 {
				t.Fatalf("unexpected positions: %d, %d", backlog[0].Position, backlog[1].Position)
			}

			// Idempotence: resubmitting yields the same grouping.
			again, err := store.Reorder(ctx, proj.ID, plan)
			if err != nil {
				t.Fatalf("reorder again: %v", err)
			}
			againBacklog := again[domain.StatusBacklog]
			if againBacklog[0].ID != second.ID || againBacklog[1].ID != first.ID {
				t.Fatalf("reorder not idempotent: %#v", againBacklog)
			}
		})
	}
}

func TestReorderMovesAcrossColumns(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			a, _ := store.CreateItem(ctx, proj.ID, "a", "", domain.StatusBacklog)
			b, _ := store.CreateItem(ctx, proj.ID, "b", "", domain.StatusBacklog)
			c, _ := store.CreateItem(ctx, proj.ID, "c", "", domain.StatusDone)

			board, err := store.Reorder(ctx, proj.ID, domain.ReorderPlan{
				domain.StatusBacklog:    {b.ID},
				domain.StatusInProgress: {a.ID},
			})
			if err != nil {
				t.Fatalf("reorder: %v", err)
			}
			if got := board[domain.StatusInProgress]; len(got) != 1 || got[0].ID != a.ID || got[0].Position != 1 {
				t.Fatalf("unexpected in_progress: %#v", got)
			}
			if got := board[domain.StatusBacklog]; len(got) != 1 || got[0].ID != b.ID || got[0].Position != 1 {
				t.Fatalf("unexpected backlog: %#v", got)
			}
			// Unreferenced items keep their pre-image.
			if got := board[domain.StatusDone]; len(got) != 1 || got[0].ID != c.ID || got[0].Position != 1 {
				t.Fatalf("unexpected done: %#v", got)
			}
		})
	}
}

func TestReorderRejectsUnknownItem(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			item, _ := store.CreateItem(ctx, proj.ID, "a", "", domain.StatusBacklog)

			_, err = store.Reorder(ctx, proj.ID, domain.ReorderPlan{domain.StatusBacklog: {"ghost"}})
			var ve domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}

			// The failed request left the pre-image intact.
			board, err := store.Board(ctx, proj.ID)
			if err != nil {
				t.Fatalf("board: %v", err)
			}
			if got := board[domain.StatusBacklog]; len(got) != 1 || got[0].ID != item.ID || got[0].Position != 1 {
				t.Fatalf("expected board unchanged after rejected reorder: %#v", got)
			}
		})
	}
}

func TestDeleteItemAndProjectCascade(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			other, err := store.CreateProject(ctx, "q", "other-secret-"+name)
			if err != nil {
				t.Fatalf("create other project: %v", err)
			}
			item, _ := store.CreateItem(ctx, proj.ID, "a", "", domain.StatusBacklog)
			kept, _ := store.CreateItem(ctx, other.ID, "keep", "", domain.StatusBacklog)

			if err := store.DeleteItem(ctx, proj.ID, item.ID); err != nil {
				t.Fatalf("delete item: %v", err)
			}
			if err := store.DeleteItem(ctx, proj.ID, item.ID); !errors.Is(err, ErrItemNotFound) {
				t.Fatalf("expected ErrItemNotFound, got %v", err)
			}
			board, err := store.Board(ctx, proj.ID)
			if err != nil {
				t.Fatalf("board: %v", err)
			}
			for _, st := range domain.Statuses {
				if len(board[st]) != 0 {
					t.Fatalf("expected empty column %q, got %#v", st, board[st])
				}
			}

			if err := store.DeleteProject(ctx, proj.ID); err != nil {
				t.Fatalf("delete project: %v", err)
			}
			if _, err := store.Project(ctx, proj.ID); !errors.Is(err, ErrProjectNotFound) {
				t.Fatalf("expected project gone, got %v", err)
			}
			// The sibling project's items survive the cascade.
			otherBoard, err := store.Board(ctx, other.ID)
			if err != nil {
				t.Fatalf("other board: %v", err)
			}
			if got := otherBoard[domain.StatusBacklog]; len(got) != 1 || got[0].ID != kept.ID {
				t.Fatalf("expected sibling project untouched: %#v", got)
			}
		})
	}
}

func TestUpdateItemNotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			proj, err := store.CreateProject(ctx, "p", "secret-"+name)
			if err != nil {
				t.Fatalf("create project: %v", err)
			}
			title := "t"
			if _, err := store.UpdateItem(ctx, proj.ID, "missing", domain.ItemPatch{Title: &title}); !errors.Is(err, ErrItemNotFound) {
				t.Fatalf("expected ErrItemNotFound, got %v", err)
			}
		})
	}
}
