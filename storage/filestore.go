package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// boardDocument is the entire on-disk state of the file backend: one JSON
// document read fully and written back fully on every mutation.
type boardDocument struct {
	Projects []projectRecord `json:"projects"`
	Items    []domain.Item   `json:"items"`
}

// projectRecord carries the secret key, which the public Project type never
// serializes.
type projectRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SecretKey string    `json:"secretKey"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r projectRecord) project() domain.Project {
	return domain.Project{ID: r.ID, Name: r.Name, SecretKey: r.SecretKey, CreatedAt: r.CreatedAt}
}

// FileStore is the flat-file backend. The mutex serializes callers within
// this process only; concurrent writers from other processes race and the
// last write wins, an accepted limitation of this backend.
type FileStore struct {
	path   string
	logger *log.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file-backed store persisting to path. The file is
// created lazily on the first mutation.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) load() boardDocument {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.path).Error("board file unreadable; starting from an empty store")
		}
		return boardDocument{}
	}
	var doc boardDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// The previous contents are unrecoverable at this point. Loud on
		// purpose: this is data loss, not routine recovery.
		s.logger.WithError(err).WithFields(log.Fields{
			"path":  s.path,
			"bytes": len(data),
		}).Error("board file corrupt; resetting to an empty store")
		return boardDocument{}
	}
	return doc
}

func (s *FileStore) save(doc boardDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) CreateProject(ctx context.Context, name, secretKey string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	for _, p := range doc.Projects {
		if p.SecretKey == secretKey {
			return domain.Project{}, ErrSecretInUse
		}
	}
	rec := projectRecord{
		ID:        uuid.NewString(),
		Name:      name,
		SecretKey: secretKey,
		CreatedAt: time.Now().UTC(),
	}
	doc.Projects = append(doc.Projects, rec)
	if err := s.save(doc); err != nil {
		return domain.Project{}, err
	}
	return rec.project(), nil
}

func (s *FileStore) Project(ctx context.Context, id string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load().Projects {
		if p.ID == id {
			return p.project(), nil
		}
	}
	return domain.Project{}, ErrProjectNotFound
}

func (s *FileStore) ProjectBySecret(ctx context.Context, secretKey string) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load().Projects {
		if p.SecretKey == secretKey {
			return p.project(), nil
		}
	}
	return domain.Project{}, ErrProjectNotFound
}

// DeleteProject removes the project and every item it owns.
func (s *FileStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	found := false
	projects := doc.Projects[:0]
	for _, p := range doc.Projects {
		if p.ID == id {
			found = true
			continue
		}
		projects = append(projects, p)
	}
	if !found {
		return ErrProjectNotFound
	}
	doc.Projects = projects

	items := doc.Items[:0]
	for _, it := range doc.Items {
		if it.ProjectID != id {
			items = append(items, it)
		}
	}
	doc.Items = items
	return s.save(doc)
}

func (s *FileStore) Board(ctx context.Context, projectID string) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if !hasProject(doc, projectID) {
		return nil, ErrProjectNotFound
	}
	return domain.GroupItems(projectItems(doc, projectID)), nil
}

func (s *FileStore) CreateItem(ctx context.Context, projectID, title, description string, status domain.Status) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if !hasProject(doc, projectID) {
		return domain.Item{}, ErrProjectNotFound
	}
	now := time.Now().UTC()
	item := domain.Item{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      status,
		Position:    domain.NextPosition(projectItems(doc, projectID), status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.Items = append(doc.Items, item)
	if err := s.save(doc); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *FileStore) UpdateItem(ctx context.Context, projectID, itemID string, patch domain.ItemPatch) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if !hasProject(doc, projectID) {
		return domain.Item{}, ErrProjectNotFound
	}
	idx := -1
	for i, it := range doc.Items {
		if it.ProjectID == projectID && it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Item{}, ErrItemNotFound
	}

	item := doc.Items[idx]
	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != item.Status {
		// A single-item status change appends to the destination column; the
		// source column keeps its gap until the next full reorder.
		item.Position = domain.NextPosition(projectItems(doc, projectID), *patch.Status)
		item.Status = *patch.Status
	}
	item.UpdatedAt = time.Now().UTC()
	doc.Items[idx] = item
	if err := s.save(doc); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (s *FileStore) DeleteItem(ctx context.Context, projectID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if !hasProject(doc, projectID) {
		return ErrProjectNotFound
	}
	idx := -1
	for i, it := range doc.Items {
		if it.ProjectID == projectID && it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrItemNotFound
	}
	doc.Items = append(doc.Items[:idx], doc.Items[idx+1:]...)
	return s.save(doc)
}

// Reorder applies the full board arrangement in one document rewrite, so a
// reader never observes a partially moved board.
func (s *FileStore) Reorder(ctx context.Context, projectID string, plan domain.ReorderPlan) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if !hasProject(doc, projectID) {
		return nil, ErrProjectNotFound
	}
	items := projectItems(doc, projectID)
	if err := plan.Validate(items); err != nil {
		return nil, err
	}
	updated := plan.Apply(items, time.Now().UTC())

	byID := make(map[string]domain.Item, len(updated))
	for _, it := range updated {
		byID[it.ID] = it
	}
	for i, it := range doc.Items {
		if moved, ok := byID[it.ID]; ok {
			doc.Items[i] = moved
		}
	}
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return domain.GroupItems(updated), nil
}

func hasProject(doc boardDocument, id string) bool {
	for _, p := range doc.Projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func projectItems(doc boardDocument, projectID string) []domain.Item {
	items := make([]domain.Item, 0, len(doc.Items))
	for _, it := range doc.Items {
		if it.ProjectID == projectID {
			items = append(items, it)
		}
	}
	return items
}
