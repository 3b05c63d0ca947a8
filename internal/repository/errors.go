package repository

import "errors"

// Common repository errors
var (
	ErrBoardNotFound  = errors.New("board not found")
	ErrListNotFound   = errors.New("list not found")
	ErrTaskNotFound   = errors.New("task not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrMemberNotFound = errors.New("member not found")

	// ErrCrossBoardMove is returned when a task is moved into a list of another board
	ErrCrossBoardMove = errors.New("destination list belongs to another board")
)

// orderBySiblings is the read-time order of lists and tasks within their parent.
const orderBySiblings = "position ASC, created_at ASC, id ASC"
