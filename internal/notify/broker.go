package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/metrics"
)

const channelPrefix = "kanban:board:"

// Broker publishes and subscribes to per-board channels on Redis pub/sub.
type Broker struct {
	rc         *redis.Client
	logger     *log.Logger
	bufferSize int
}

// NewBroker wraps an existing client.
func NewBroker(rc *redis.Client, logger *log.Logger) *Broker {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Broker{rc: rc, logger: logger, bufferSize: 16}
}

// NewBrokerFromURL connects to redisURL and checks the connection.
func NewBrokerFromURL(redisURL string, logger *log.Logger) (*Broker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rc := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewBroker(rc, logger), nil
}

func (b *Broker) Close() error {
	return b.rc.Close()
}

// Ping reports whether Redis is reachable.
func (b *Broker) Ping(ctx context.Context) error {
	return b.rc.Ping(ctx).Err()
}

func channelName(boardID uuid.UUID) string {
	return channelPrefix + boardID.String()
}

// Publish sends ev to every subscriber of its board.
func (b *Broker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.rc.Publish(ctx, channelName(ev.BoardID), data).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Collection, err)
	}
	metrics.NotificationsPublished.WithLabelValues(string(ev.Collection)).Inc()
	return nil
}

// Subscribe opens a subscription to one board. The subscription is established once this returns
// without error; the caller owns it and must Close it.
func (b *Broker) Subscribe(ctx context.Context, boardID uuid.UUID) (*Subscription, error) {
	ps := b.rc.Subscribe(ctx, channelName(boardID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to board %s: %w", boardID, err)
	}

	s := &Subscription{
		boardID: boardID,
		ps:      ps,
		events:  make(chan Event, b.bufferSize),
		done:    make(chan struct{}),
		logger:  b.logger.WithField("board_id", boardID.String()),
	}
	go s.pump(ps.Channel())
	return s, nil
}

// Subscription is one board's stream of events.
type Subscription struct {
	boardID uuid.UUID
	ps      *redis.PubSub
	events  chan Event
	done    chan struct{}
	logger  *log.Entry

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Events is closed when the subscription ends, either by Close or by the transport going away.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err returns ErrChannelDisconnected once the events channel closed without Close being called.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}

func (s *Subscription) pump(msgs <-chan *redis.Message) {
	defer close(s.events)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				select {
				case <-s.done:
				default:
					s.mu.Lock()
					s.err = ErrChannelDisconnected
					s.mu.Unlock()
					s.logger.Warn("notification channel closed")
				}
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.logger.WithError(err).Error("unable to parse event")
				continue
			}
			if ev.BoardID != s.boardID || !ev.Collection.Valid() {
				s.logger.WithField("collection", ev.Collection).Warn("ignoring foreign event")
				continue
			}
			select {
			case s.events <- ev:
			case <-s.done:
				return
			}
		}
	}
}
