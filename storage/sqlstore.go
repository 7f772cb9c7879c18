package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kanban-api/domain"
)

// SQLStore is the relational backend, backed by SQLite through database/sql.
// Multi-statement mutations run inside transactions so a failure midway
// leaves prior state intact.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (creating if necessary) the SQLite database at path and
// runs migrations.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	// SQLite benefits from a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			secret_key TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			position    INTEGER NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_board ON items(project_id, status, position)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) CreateProject(ctx context.Context, name, secretKey string) (domain.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE secret_key = ?`, secretKey).Scan(&existing)
	if err == nil {
		return domain.Project{}, ErrSecretInUse
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, err
	}

	p := domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		SecretKey: secretKey,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, secret_key, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.SecretKey, p.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (s *SQLStore) Project(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, secret_key, created_at FROM projects WHERE id = ?`, id))
}

func (s *SQLStore) ProjectBySecret(ctx context.Context, secretKey string) (domain.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, secret_key, created_at FROM projects WHERE secret_key = ?`, secretKey))
}

func scanProject(row *sql.Row) (domain.Project, error) {
	var p domain.Project
	var createdNanos int64
	err := row.Scan(&p.ID, &p.Name, &p.SecretKey, &createdNanos)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return domain.Project{}, err
	}
	p.CreatedAt = time.Unix(0, createdNanos).UTC()
	return p, nil
}

// DeleteProject removes the project; item rows follow via ON DELETE CASCADE.
func (s *SQLStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *SQLStore) Board(ctx context.Context, projectID string) (domain.Board, error) {
	if err := s.projectExists(ctx, s.db, projectID); err != nil {
		return nil, err
	}
	items, err := listItems(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	return domain.GroupItems(items), nil
}

func (s *SQLStore) CreateItem(ctx context.Context, projectID, title, description string, status domain.Status) (domain.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback()

	if err := s.projectExists(ctx, tx, projectID); err != nil {
		return domain.Item{}, err
	}
	var pos int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM items WHERE project_id = ? AND status = ?`,
		projectID, status,
	).Scan(&pos)
	if err != nil {
		return domain.Item{}, err
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      status,
		Position:    pos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, project_id, title, description, status, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.Title, item.Description, string(item.Status),
		item.Position, item.CreatedAt.UnixNano(), item.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return domain.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *SQLStore) UpdateItem(ctx context.Context, projectID, itemID string, patch domain.ItemPatch) (domain.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Item{}, err
	}
	defer tx.Rollback()

	if err := s.projectExists(ctx, tx, projectID); err != nil {
		return domain.Item{}, err
	}
	item, err := getItem(ctx, tx, projectID, itemID)
	if err != nil {
		return domain.Item{}, err
	}

	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != item.Status {
		// Append to the destination column; the source column keeps its gap
		// until the next full reorder.
		var pos int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM items WHERE project_id = ? AND status = ?`,
			projectID, *patch.Status,
		).Scan(&pos)
		if err != nil {
			return domain.Item{}, err
		}
		item.Status = *patch.Status
		item.Position = pos
	}
	item.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, status = ?, position = ?, updated_at = ?
		 WHERE id = ? AND project_id = ?`,
		item.Title, item.Description, string(item.Status), item.Position,
		item.UpdatedAt.UnixNano(), item.ID, item.ProjectID,
	)
	if err != nil {
		return domain.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *SQLStore) DeleteItem(ctx context.Context, projectID, itemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.projectExists(ctx, tx, projectID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND project_id = ?`, itemID, projectID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return tx.Commit()
}

// Reorder rewrites status and position for every item the plan references,
// all inside one transaction: either every write lands or the pre-images
// survive the rollback.
func (s *SQLStore) Reorder(ctx context.Context, projectID string, plan domain.ReorderPlan) (domain.Board, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.projectExists(ctx, tx, projectID); err != nil {
		return nil, err
	}
	items, err := listItems(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(items); err != nil {
		return nil, err
	}

	moved := make(map[string]struct{})
	for _, ids := range plan {
		for _, id := range ids {
			moved[id] = struct{}{}
		}
	}
	updated := plan.Apply(items, time.Now().UTC())
	for _, it := range updated {
		if _, ok := moved[it.ID]; !ok {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE items SET status = ?, position = ?, updated_at = ? WHERE id = ? AND project_id = ?`,
			string(it.Status), it.Position, it.UpdatedAt.UnixNano(), it.ID, it.ProjectID,
		)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return domain.GroupItems(updated), nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) projectExists(ctx context.Context, q querier, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProjectNotFound
	}
	return err
}

func getItem(ctx context.Context, q querier, projectID, itemID string) (domain.Item, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, project_id, title, description, status, position, created_at, updated_at
		 FROM items WHERE id = ? AND project_id = ?`, itemID, projectID)

	var it domain.Item
	var status string
	var createdNanos, updatedNanos int64
	err := row.Scan(&it.ID, &it.ProjectID, &it.Title, &it.Description, &status, &it.Position, &createdNanos, &updatedNanos)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, ErrItemNotFound
	}
	if err != nil {
		return domain.Item{}, err
	}
	it.Status = domain.Status(status)
	it.CreatedAt = time.Unix(0, createdNanos).UTC()
	it.UpdatedAt = time.Unix(0, updatedNanos).UTC()
	return it, nil
}

func listItems(ctx context.Context, q querier, projectID string) ([]domain.Item, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, project_id, title, description, status, position, created_at, updated_at
		 FROM items WHERE project_id = ? ORDER BY status, position`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		var status string
		var createdNanos, updatedNanos int64
		if err := rows.Scan(&it.ID, &it.ProjectID, &it.Title, &it.Description, &status, &it.Position, &createdNanos, &updatedNanos); err != nil {
			return nil, err
		}
		it.Status = domain.Status(status)
		it.CreatedAt = time.Unix(0, createdNanos).UTC()
		it.UpdatedAt = time.Unix(0, updatedNanos).UTC()
		items = append(items, it)
	}
	return items, rows.Err()
}
