// Package activity records the append-only trail of board mutations.
//
// The trail is a side effect of a mutation and never a precondition for it: Append returns
// immediately, and a failed write is logged and counted but never reported to the caller.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/metrics"
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Store interface {
	Create(ctx context.Context, entry *model.ActivityEntry) error
	ListRecent(ctx context.Context, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev notify.Event) error
}

// Entry describes one mutation to record.
type Entry struct {
	BoardID    uuid.UUID
	ActorID    uuid.UUID
	Action     model.Action
	EntityType model.EntityType
	EntityID   *uuid.UUID
	EntityName string
	Details    map[string]any
}

type Trail struct {
	store   Store
	pub     Publisher
	logger  *log.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// NewTrail builds a trail. pub may be nil, in which case appends are not announced.
func NewTrail(store Store, pub Publisher, logger *log.Logger, timeout time.Duration) *Trail {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Trail{store: store, pub: pub, logger: logger, timeout: timeout}
}

// Append records e in the background. It never blocks on the store.
func (t *Trail) Append(e Entry) {
	if e.ActorID == uuid.Nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.AppendSync(ctx, e); err != nil {
			t.logger.WithError(err).WithFields(log.Fields{
				"board_id": e.BoardID.String(),
				"action":   e.Action,
				"entity":   e.EntityType,
			}).Warn("activity append failed")
		}
	}()
}

// AppendSync writes e and announces it on the board channel.
func (t *Trail) AppendSync(ctx context.Context, e Entry) error {
	if e.ActorID == uuid.Nil {
		return nil
	}
	row := &model.ActivityEntry{
		BoardID:    e.BoardID,
		UserID:     e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
	}
	if e.EntityName != "" {
		name := e.EntityName
		row.EntityName = &name
	}
	if err := t.store.Create(ctx, row); err != nil {
		metrics.ActivityAppends.WithLabelValues("error").Inc()
		return err
	}
	metrics.ActivityAppends.WithLabelValues("ok").Inc()

	if t.pub != nil {
		ev := notify.Event{BoardID: e.BoardID, Collection: notify.CollectionActivity, Operation: notify.OperationInsert}
		if err := t.pub.Publish(ctx, ev); err != nil {
			metrics.NotificationFailures.Inc()
			t.logger.WithError(err).WithField("board_id", e.BoardID.String()).Warn("activity notification failed")
		}
	}
	return nil
}

// Wait blocks until every background append has finished.
func (t *Trail) Wait() {
	t.wg.Wait()
}

// List returns at most limit entries of the board, most recent first.
func (t *Trail) List(ctx context.Context, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	limit = NormalizeLimit(limit)
	entries, err := t.store.ListRecent(ctx, boardID, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// NormalizeLimit maps a requested page size onto [1, MaxLimit], defaulting to DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
