// Package boardview keeps a client-side copy of one board in step with the server.
//
// Change events are invalidation signals only: an event for a collection triggers a full refetch
// of that collection. Optimistic moves are kept as pending entries on top of the last confirmed
// server state, so a refetch never loses a local edit that is still in flight.
package boardview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

const (
	DefaultPollInterval     = 5 * time.Second
	DefaultResubscribeDelay = time.Second
	DefaultActivityLimit    = 50
)

// Backend is the persistence side of the view.
type Backend interface {
	Lists(ctx context.Context, boardID uuid.UUID) ([]model.List, error)
	Tasks(ctx context.Context, boardID uuid.UUID) ([]model.Task, error)
	Activity(ctx context.Context, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error)
	MoveTask(ctx context.Context, taskID, listID uuid.UUID, index int) (*model.Task, error)
	MoveList(ctx context.Context, listID uuid.UUID, index int) (*model.List, error)
}

// Subscription delivers change events for one board. Events is closed when the subscription ends;
// Err then reports why.
type Subscription interface {
	Events() <-chan notify.Event
	Err() error
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, boardID uuid.UUID) (Subscription, error)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, boardID uuid.UUID) (Subscription, error)

func (f SubscriberFunc) Subscribe(ctx context.Context, boardID uuid.UUID) (Subscription, error) {
	return f(ctx, boardID)
}

// BrokerSubscriber subscribes straight to the notification broker.
func BrokerSubscriber(b *notify.Broker) Subscriber {
	return SubscriberFunc(func(ctx context.Context, boardID uuid.UUID) (Subscription, error) {
		sub, err := b.Subscribe(ctx, boardID)
		if err != nil {
			return nil, err
		}
		return sub, nil
	})
}

type State int

const (
	Unsubscribed State = iota
	Subscribing
	Active
	Error
)

func (s State) String() string {
	switch s {
	case Unsubscribed:
		return "unsubscribed"
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Error:
		return "error"
	}
	return "unknown"
}

type Options struct {
	// PollInterval drives the activity poll (and the retry of failed refetches) while Active, and
	// the full refresh while in Error.
	PollInterval time.Duration
	// ResubscribeDelay applies from the second consecutive subscription failure on.
	ResubscribeDelay time.Duration
	ActivityLimit    int
	Logger           *log.Logger
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ResubscribeDelay <= 0 {
		o.ResubscribeDelay = DefaultResubscribeDelay
	}
	if o.ActivityLimit <= 0 {
		o.ActivityLimit = DefaultActivityLimit
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
}

var ErrClosed = errors.New("board view closed")

// View is the reconciled state of one board. Each View owns its subscription.
type View struct {
	boardID uuid.UUID
	backend Backend
	sub     Subscriber
	opts    Options
	logger  *log.Entry

	mu       sync.Mutex
	state    State
	ctx      context.Context
	cancel   context.CancelFunc
	stopBase context.CancelFunc
	started  bool
	closed   bool
	done     chan struct{}
	fetches  sync.WaitGroup
	changes  chan struct{}
	lists    []model.List
	tasks    []model.Task
	activity []model.ActivityEntry
	fetch    map[notify.Collection]*fetchState
	pending  pendingMoves
	moveSeq  uint64
}

func New(boardID uuid.UUID, backend Backend, sub Subscriber, opts Options) *View {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		boardID: boardID,
		backend: backend,
		sub:     sub,
		opts:    opts,
		logger:  opts.Logger.WithField("board_id", boardID.String()),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		changes: make(chan struct{}, 1),
		fetch: map[notify.Collection]*fetchState{
			notify.CollectionLists:    {},
			notify.CollectionTasks:    {},
			notify.CollectionActivity: {},
		},
		pending: newPendingMoves(),
	}
}

// Subscribe starts the subscription loop. The view stays usable when the channel cannot be
// established: it degrades to polling and keeps retrying until Close or ctx is done.
func (v *View) Subscribe(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if v.started {
		return nil
	}
	v.started = true
	v.stopBase = v.cancel
	v.ctx, v.cancel = context.WithCancel(ctx)
	go v.run(v.ctx)
	return nil
}

// Close stops the loop, releases the subscription and waits for running refetches.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.cancel()
	if v.stopBase != nil {
		v.stopBase()
	}
	started := v.started
	v.mu.Unlock()

	if started {
		<-v.done
	}
	v.fetches.Wait()
	v.setState(Unsubscribed)
	return nil
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Changes is signalled after every state or data change. Signals are coalesced.
func (v *View) Changes() <-chan struct{} {
	return v.changes
}

func (v *View) BoardID() uuid.UUID {
	return v.boardID
}

func (v *View) setState(s State) {
	v.mu.Lock()
	changed := v.state != s
	v.state = s
	v.mu.Unlock()
	if changed {
		v.logger.WithField("state", s.String()).Debug("board view state changed")
		v.signal()
	}
}

func (v *View) signal() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

func (v *View) run(ctx context.Context) {
	defer close(v.done)

	ticker := time.NewTicker(v.opts.PollInterval)
	defer ticker.Stop()

	failures := 0
	for ctx.Err() == nil {
		v.setState(Subscribing)
		sub, err := v.sub.Subscribe(ctx, v.boardID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			v.setState(Error)
			v.logger.WithError(err).WithField("attempt", failures).Warn("board subscription failed")
			if failures == 1 {
				v.Refresh()
			}
			delay := v.opts.ResubscribeDelay
			if failures == 1 {
				delay = 0
			}
			if !v.pollFor(ctx, delay, ticker) {
				return
			}
			continue
		}

		failures = 0
		v.setState(Active)
		v.Refresh()
		err = v.consume(ctx, sub, ticker)
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		v.setState(Error)
		v.logger.WithError(err).Warn("board subscription lost")
		v.Refresh()
	}
}

func (v *View) consume(ctx context.Context, sub Subscription, ticker *time.Ticker) error {
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := sub.Err(); err != nil {
					return err
				}
				return notify.ErrChannelDisconnected
			}
			if ev.BoardID != v.boardID || !ev.Collection.Valid() {
				continue
			}
			v.invalidate(ev.Collection, false)
		case <-ticker.C:
			v.invalidate(notify.CollectionActivity, false)
			v.retryStale()
		}
	}
}

// pollFor waits d while keeping the full-refresh poll running. It reports false once ctx is done.
func (v *View) pollFor(ctx context.Context, d time.Duration, ticker *time.Ticker) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case <-ticker.C:
			v.Refresh()
		}
	}
}
