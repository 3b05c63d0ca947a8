// Package ordering computes and normalizes the position key of entities that share a parent:
// lists within a board and tasks within a list.
//
// Positions are dense indexes rebuilt on every read. Siblings that end up with the same stored
// position (concurrent writers, legacy rows) are ordered by creation time and then by id, so a
// read always yields one deterministic order.
package ordering

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Key is everything needed to place an entity among its siblings.
type Key struct {
	Position  int
	CreatedAt time.Time
	ID        uuid.UUID
}

// Item is an entity that can be ordered within its parent.
type Item interface {
	OrderKey() Key
}

// Positioned is an Item that can produce a copy of itself at another position.
type Positioned[T any] interface {
	Item
	WithPosition(position int) T
}

// Change is a position write needed to make stored positions dense.
type Change struct {
	ID       uuid.UUID
	Position int
}

// Compare orders two keys by position, then creation time, then id.
func Compare(a, b Key) int {
	if a.Position != b.Position {
		if a.Position < b.Position {
			return -1
		}
		return 1
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}

// AppendPosition is the position of a new entity appended after siblingCount siblings.
func AppendPosition(siblingCount int) int {
	if siblingCount < 0 {
		return 0
	}
	return siblingCount
}

// ClampIndex bounds a requested destination index to the slots available in a sibling list
// of length n that already excludes the moved entity.
func ClampIndex(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// Sort orders items in place, ascending by Compare.
func Sort[T Item](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(a.OrderKey(), b.OrderKey())
	})
}

// Sorted returns a sorted copy of items.
func Sorted[T Item](items []T) []T {
	out := slices.Clone(items)
	Sort(out)
	return out
}

// Without returns the sorted siblings with the entity id removed.
func Without[T Item](items []T, id uuid.UUID) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.OrderKey().ID != id {
			out = append(out, it)
		}
	}
	Sort(out)
	return out
}

// Place puts item at index of siblings, excluding any sibling with the same id. The index is
// clamped. Stored positions are left untouched so Renumber can report what must be written.
func Place[T Item](siblings []T, item T, index int) []T {
	sorted := Without(siblings, item.OrderKey().ID)
	index = ClampIndex(index, len(sorted))

	out := make([]T, 0, len(sorted)+1)
	out = append(out, sorted[:index]...)
	out = append(out, item)
	out = append(out, sorted[index:]...)
	return out
}

// Insert is Place followed by a dense renumbering of the result.
func Insert[T Positioned[T]](siblings []T, item T, index int) []T {
	out := Place(siblings, item, index)
	for i := range out {
		out[i] = out[i].WithPosition(i)
	}
	return out
}

// Renumber reports which of the items, taken in their current order, have a stored position that
// differs from their index. Only those rows need a write.
func Renumber[T Item](ordered []T) []Change {
	var changes []Change
	for i, it := range ordered {
		k := it.OrderKey()
		if k.Position != i {
			changes = append(changes, Change{ID: k.ID, Position: i})
		}
	}
	return changes
}

// IndexOf returns the index of id in items, or -1.
func IndexOf[T Item](items []T, id uuid.UUID) int {
	for i, it := range items {
		if it.OrderKey().ID == id {
			return i
		}
	}
	return -1
}
