package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"kanban-api/api"
	"kanban-api/domain"
)

const maxResponseSize = 4 << 20

// APIError carries the server's error envelope for any non-2xx response.
type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the board API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path, secret string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if secret != "" {
		req.Header.Set(api.HeaderProjectSecret, secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{}
		if err := sonic.ConfigStd.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	return sonic.ConfigStd.Unmarshal(data, out)
}

type createProjectRequest struct {
	Name      string `json:"name"`
	SecretKey string `json:"secretKey"`
}

// CreateProject registers a new project with its shared secret.
func (c *Client) CreateProject(ctx context.Context, name, secretKey string) (domain.Project, error) {
	var proj domain.Project
	err := c.do(ctx, http.MethodPost, "/projects", "", createProjectRequest{Name: name, SecretKey: secretKey}, &proj)
	return proj, err
}

type accessRequest struct {
	SecretKey string `json:"secretKey"`
}

// Access resolves a project from its secret key alone.
func (c *Client) Access(ctx context.Context, secretKey string) (domain.Project, error) {
	var proj domain.Project
	err := c.do(ctx, http.MethodPost, "/access", "", accessRequest{SecretKey: secretKey}, &proj)
	return proj, err
}

// Project fetches a project by id.
func (c *Client) Project(ctx context.Context, id, secret string) (domain.Project, error) {
	var proj domain.Project
	err := c.do(ctx, http.MethodGet, "/projects/"+id, secret, nil, &proj)
	return proj, err
}

// DeleteProject removes the project and all of its items.
func (c *Client) DeleteProject(ctx context.Context, id, secret string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+id, secret, nil, nil)
}

// Board fetches the project's items grouped by status in position order.
func (c *Client) Board(ctx context.Context, projectID, secret string) (domain.Board, error) {
	var board domain.Board
	err := c.do(ctx, http.MethodGet, "/projects/"+projectID+"/items", secret, nil, &board)
	return board, err
}

// NewItem is the payload for item creation. An empty Status lands the item
// in the backlog.
type NewItem struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      domain.Status `json:"status,omitempty"`
}

// CreateItem appends a new card to the end of its column.
func (c *Client) CreateItem(ctx context.Context, projectID, secret string, item NewItem) (domain.Item, error) {
	var created domain.Item
	err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/items", secret, item, &created)
	return created, err
}

// ItemUpdate is a partial item edit; nil fields are left untouched.
type ItemUpdate struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *domain.Status `json:"status,omitempty"`
}

// UpdateItem applies a partial edit to one item.
func (c *Client) UpdateItem(ctx context.Context, projectID, itemID, secret string, patch ItemUpdate) (domain.Item, error) {
	var updated domain.Item
	err := c.do(ctx, http.MethodPatch, "/projects/"+projectID+"/items/"+itemID, secret, patch, &updated)
	return updated, err
}

// DeleteItem removes one item.
func (c *Client) DeleteItem(ctx context.Context, projectID, itemID, secret string) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+projectID+"/items/"+itemID, secret, nil, nil)
}

type reorderRequest struct {
	Columns map[domain.Status][]string `json:"columns"`
}

// Reorder submits the full board arrangement and returns the server's
// authoritative grouping.
func (c *Client) Reorder(ctx context.Context, projectID, secret string, columns map[domain.Status][]string) (domain.Board, error) {
	var board domain.Board
	err := c.do(ctx, http.MethodPost, "/projects/"+projectID+"/items/reorder", secret, reorderRequest{Columns: columns}, &board)
	return board, err
}
