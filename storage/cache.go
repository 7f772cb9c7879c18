package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

type backend interface {
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

// Cache wraps a store with Redis-backed caching of board reads. Every item
// mutation evicts the project's board key. Project lookups are never cached
// so secret keys stay out of Redis.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) CreateProject(ctx context.Context, name, secretKey string) (domain.Project, error) {
	return c.base.CreateProject(ctx, name, secretKey)
}

func (c *Cache) Project(ctx context.Context, id string) (domain.Project, error) {
	return c.base.Project(ctx, id)
}

func (c *Cache) ProjectBySecret(ctx context.Context, secretKey string) (domain.Project, error) {
	return c.base.ProjectBySecret(ctx, secretKey)
}

func (c *Cache) DeleteProject(ctx context.Context, id string) error {
	if err := c.base.DeleteProject(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *Cache) Board(ctx context.Context, projectID string) (domain.Board, error) {
	if board, ok := c.loadBoard(ctx, projectID); ok {
		return board, nil
	}
	board, err := c.base.Board(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.storeBoard(ctx, projectID, board)
	return board, nil
}

func (c *Cache) CreateItem(ctx context.Context, projectID, title, description string, status domain.Status) (domain.Item, error) {
	item, err := c.base.CreateItem(ctx, projectID, title, description, status)
	if err != nil {
		return domain.Item{}, err
	}
	c.evict(ctx, projectID)
	return item, nil
}

func (c *Cache) UpdateItem(ctx context.Context, projectID, itemID string, patch domain.ItemPatch) (domain.Item, error) {
	item, err := c.base.UpdateItem(ctx, projectID, itemID, patch)
	if err != nil {
		return domain.Item{}, err
	}
	c.evict(ctx, projectID)
	return item, nil
}

func (c *Cache) DeleteItem(ctx context.Context, projectID, itemID string) error {
	if err := c.base.DeleteItem(ctx, projectID, itemID); err != nil {
		return err
	}
	c.evict(ctx, projectID)
	return nil
}

func (c *Cache) Reorder(ctx context.Context, projectID string, plan domain.ReorderPlan) (domain.Board, error) {
	board, err := c.base.Reorder(ctx, projectID, plan)
	if err != nil {
		return nil, err
	}
	c.storeBoard(ctx, projectID, board)
	return board, nil
}

func (c *Cache) loadBoard(ctx context.Context, projectID string) (domain.Board, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, boardCacheKey(projectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
		}
		return nil, false
	}
	var board domain.Board
	if err := json.Unmarshal(data, &board); err != nil {
		_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
		return nil, false
	}
	return board, true
}

func (c *Cache) storeBoard(ctx context.Context, projectID string, board domain.Board) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, boardCacheKey(projectID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, projectID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, boardCacheKey(projectID)).Err()
}

func boardCacheKey(projectID string) string {
	return "board:" + projectID
}
