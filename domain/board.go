package domain

import "sort"

// Board groups a project's items by status in position order. Every one of
// the four columns is always present, empty columns as empty slices.
type Board map[Status][]Item

// NewBoard returns an empty board with all four columns initialized.
func NewBoard() Board {
	b := make(Board, len(Statuses))
	for _, st := range Statuses {
		b[st] = []Item{}
	}
	return b
}

// GroupItems builds a board from a flat item list, sorting each column by
// position.
func GroupItems(items []Item) Board {
	b := NewBoard()
	for _, it := range items {
		b[it.Status] = append(b[it.Status], it)
	}
	for _, st := range Statuses {
		col := b[st]
		sort.Slice(col, func(i, j int) bool { return col[i].Position < col[j].Position })
	}
	return b
}

// Clone returns a deep copy of the board. Mutating the copy never aliases
// the original's column slices.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for st, col := range b {
		dup := make([]Item, len(col))
		copy(dup, col)
		out[st] = dup
	}
	return out
}

// Items flattens the board back into a single list, column by column.
func (b Board) Items() []Item {
	var items []Item
	for _, st := range Statuses {
		items = append(items, b[st]...)
	}
	return items
}

// NextPosition returns the position a new item in the given column should
// take: one past the current maximum, or 1 for an empty column.
func NextPosition(items []Item, status Status) int {
	max := 0
	for _, it := range items {
		if it.Status == status && it.Position > max {
			max = it.Position
		}
	}
	return max + 1
}
