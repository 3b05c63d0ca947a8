// Package client talks to the kanban HTTP API. A Client is both the backend and the change
// subscriber of a boardview.View.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/api"
	"kanbanlive/internal/board"
	"kanbanlive/internal/model"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	stream  *http.Client
	logger  *log.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// streams stay open indefinitely, so they get a client without an overall timeout
	stream := *c.http
	stream.Timeout = 0
	c.stream = &stream
	return c
}

// Error is a non-2xx API response. It unwraps to the matching board error kind.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return board.ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return board.ErrPermissionDenied
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return board.ErrInvalid
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return board.ErrTransient
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", board.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: body.Error}
}

func (c *Client) Boards(ctx context.Context) ([]api.BoardResponse, error) {
	var out []api.BoardResponse
	err := c.do(ctx, http.MethodGet, "/boards", nil, nil, &out)
	return out, err
}

func (c *Client) Lists(ctx context.Context, boardID uuid.UUID) ([]model.List, error) {
	var out []api.ListResponse
	if err := c.do(ctx, http.MethodGet, "/boards/"+boardID.String()+"/lists", nil, nil, &out); err != nil {
		return nil, err
	}
	return api.MapSlice(out, api.ListResponse.Model), nil
}

func (c *Client) Tasks(ctx context.Context, boardID uuid.UUID) ([]model.Task, error) {
	var out []api.TaskResponse
	if err := c.do(ctx, http.MethodGet, "/boards/"+boardID.String()+"/tasks", nil, nil, &out); err != nil {
		return nil, err
	}
	return api.MapSlice(out, api.TaskResponse.Model), nil
}

func (c *Client) Activity(ctx context.Context, boardID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []api.ActivityResponse
	if err := c.do(ctx, http.MethodGet, "/boards/"+boardID.String()+"/activity", q, nil, &out); err != nil {
		return nil, err
	}
	return api.MapSlice(out, api.ActivityResponse.Model), nil
}

func (c *Client) MoveTask(ctx context.Context, taskID, listID uuid.UUID, index int) (*model.Task, error) {
	var out api.TaskResponse
	req := api.TaskMoveRequest{ListID: listID, Index: &index}
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID.String()+"/move", nil, req, &out); err != nil {
		return nil, err
	}
	task := out.Model()
	return &task, nil
}

func (c *Client) MoveList(ctx context.Context, listID uuid.UUID, index int) (*model.List, error) {
	var out api.ListResponse
	req := api.ListMoveRequest{Index: &index}
	if err := c.do(ctx, http.MethodPost, "/lists/"+listID.String()+"/move", nil, req, &out); err != nil {
		return nil, err
	}
	list := out.Model()
	return &list, nil
}

// IsNotFound reports whether err is an API not-found error.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
