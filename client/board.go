package client

import "kanban-api/domain"

// Move describes a drag-and-drop of one item between column slots.
type Move struct {
	From      domain.Status
	FromIndex int
	To        domain.Status
	ToIndex   int
}

// applyMove returns a new board with the move applied; the input board is
// never mutated. The second return is false when nothing changed: a drop
// back onto the same slot, or a source index that no longer holds an item
// because a racing operation already removed it.
func applyMove(board domain.Board, mv Move) (domain.Board, bool) {
	if mv.From == mv.To && mv.FromIndex == mv.ToIndex {
		return board, false
	}
	src := board[mv.From]
	if mv.FromIndex < 0 || mv.FromIndex >= len(src) {
		return board, false
	}

	next := board.Clone()
	item := next[mv.From][mv.FromIndex]
	next[mv.From] = append(next[mv.From][:mv.FromIndex], next[mv.From][mv.FromIndex+1:]...)

	item.Status = mv.To
	dst := next[mv.To]
	idx := mv.ToIndex
	if idx < 0 {
		idx = 0
	}
	if idx > len(dst) {
		idx = len(dst)
	}
	dst = append(dst, domain.Item{})
	copy(dst[idx+1:], dst[idx:])
	dst[idx] = item
	next[mv.To] = dst
	return next, true
}

// columnIDs flattens a board into the column-to-ordered-ids mapping the bulk
// reorder operation takes.
func columnIDs(board domain.Board) map[domain.Status][]string {
	out := make(map[domain.Status][]string, len(domain.Statuses))
	for _, st := range domain.Statuses {
		ids := make([]string, len(board[st]))
		for i, it := range board[st] {
			ids[i] = it.ID
		}
		out[st] = ids
	}
	return out
}
