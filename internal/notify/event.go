// Package notify carries "something changed" signals for a board between the API servers and
// every client watching that board. Events never carry entity data: receivers refetch.
package notify

import (
	"errors"

	"github.com/google/uuid"
)

// Collection names the board collection an event invalidates.
type Collection string

const (
	CollectionLists    Collection = "lists"
	CollectionTasks    Collection = "tasks"
	CollectionActivity Collection = "activity_entries"
)

func (c Collection) Valid() bool {
	return c == CollectionLists || c == CollectionTasks || c == CollectionActivity
}

type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Event is a board-scoped invalidation signal.
type Event struct {
	BoardID    uuid.UUID  `json:"board_id"`
	Collection Collection `json:"collection"`
	Operation  Operation  `json:"operation"`
}

// ErrChannelDisconnected is reported when a subscription's transport goes away underneath it.
var ErrChannelDisconnected = errors.New("notification channel disconnected")
