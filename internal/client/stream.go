package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kanbanlive/internal/api"
	"kanbanlive/internal/board"
	"kanbanlive/internal/boardview"
	"kanbanlive/internal/notify"
)

// Stream is an open server-sent event stream of one board.
type Stream struct {
	boardID uuid.UUID
	events  chan notify.Event
	cancel  context.CancelFunc

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// Subscribe opens the board's change stream. It returns once the server has accepted it.
func (c *Client) Subscribe(ctx context.Context, boardID uuid.UUID) (boardview.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(ctx, http.MethodGet, "/boards/"+boardID.String()+"/stream", nil, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", board.ErrTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, decodeError(resp)
	}

	s := &Stream{
		boardID: boardID,
		events:  make(chan notify.Event, 16),
		cancel:  cancel,
	}
	go s.read(ctx, resp)
	return s, nil
}

func (s *Stream) Events() <-chan notify.Event {
	return s.events
}

// Err reports why the stream ended. It is nil while the stream is open and after Close.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

func (s *Stream) read(ctx context.Context, resp *http.Response) {
	defer close(s.events)
	defer resp.Body.Close()

	var (
		event string
		data  strings.Builder
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "change" && data.Len() > 0 {
				var msg api.ChangeMessage
				if err := json.Unmarshal([]byte(data.String()), &msg); err == nil && msg.Collection.Valid() {
					ev := notify.Event{BoardID: s.boardID, Collection: msg.Collection, Operation: msg.Operation}
					select {
					case s.events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if ctx.Err() != nil {
		return
	}

	err := notify.ErrChannelDisconnected
	if scanErr := scanner.Err(); scanErr != nil {
		err = fmt.Errorf("%w: %w", notify.ErrChannelDisconnected, scanErr)
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
