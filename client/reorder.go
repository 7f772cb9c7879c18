package client

import (
	"context"
	"errors"
	"sync"

	"kanban-api/domain"
)

// ErrBusy is returned while a previous mutation is still in flight. Rapid
// successive drags are serialized by this flag rather than queued.
var ErrBusy = errors.New("board update already in flight")

// BoardClient owns the client-side view of one project board and applies
// drag-and-drop moves optimistically: snapshot, speculative local apply,
// then commit with the server's authoritative grouping or revert.
type BoardClient struct {
	api       *Client
	projectID string
	secret    string

	mu    sync.Mutex
	busy  bool
	board domain.Board
}

// NewBoardClient creates a board client for one project. Call Refresh to
// populate the initial state.
func NewBoardClient(apiClient *Client, projectID, secret string) *BoardClient {
	return &BoardClient{
		api:       apiClient,
		projectID: projectID,
		secret:    secret,
		board:     domain.NewBoard(),
	}
}

// Refresh replaces local state with the server's current board.
func (b *BoardClient) Refresh(ctx context.Context) error {
	board, err := b.api.Board(ctx, b.projectID, b.secret)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.board = board
	b.mu.Unlock()
	return nil
}

// Board returns a deep copy of the current local state.
func (b *BoardClient) Board() domain.Board {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.board.Clone()
}

// Busy reports whether a mutation is currently in flight.
func (b *BoardClient) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

// MoveItem applies mv to local state before any network call, then submits
// the full resulting arrangement. On success local state is replaced with
// the server's grouping, not the optimistic guess. On rejection the
// pre-drag snapshot is restored and a full re-fetch reconciles with the
// server of record; the move's error is returned for the caller to surface.
func (b *BoardClient) MoveItem(ctx context.Context, mv Move) error {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return ErrBusy
	}
	// applyMove never mutates its input, so holding the old value is a safe
	// independent snapshot.
	snapshot := b.board
	next, changed := applyMove(b.board, mv)
	if !changed {
		b.mu.Unlock()
		return nil
	}
	b.board = next
	b.busy = true
	b.mu.Unlock()

	board, err := b.api.Reorder(ctx, b.projectID, b.secret, columnIDs(next))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.busy = false
	if err != nil {
		b.board = snapshot
		if fresh, ferr := b.api.Board(ctx, b.projectID, b.secret); ferr == nil {
			b.board = fresh
		}
		return err
	}
	b.board = board
	return nil
}
