package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanbanlive/internal/api"
	"kanbanlive/internal/metrics"
	"kanbanlive/internal/model"
	"kanbanlive/internal/notify"
)

type BoardReader interface {
	Board(ctx context.Context, actor, boardID uuid.UUID) (*model.Board, error)
}

type ChangeSubscriber interface {
	Subscribe(ctx context.Context, boardID uuid.UUID) (*notify.Subscription, error)
}

const heartbeatInterval = 15 * time.Second

type StreamHandler struct {
	boards BoardReader
	subs   ChangeSubscriber
	logger *log.Logger
}

func NewStreamHandler(boards BoardReader, subs ChangeSubscriber, logger *log.Logger) *StreamHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &StreamHandler{boards: boards, subs: subs, logger: logger}
}

// Stream отдает события изменений доски через Server-Sent Events
// @Summary  Board change stream
// @Description Each event is "event: change" with data {"collection","operation"}. The token may be passed as ?token=.
// @Tags     Stream
// @Security BearerAuth
// @Produce  text/event-stream
// @Param    id    path  string true  "Board ID"
// @Param    token query string false "Bearer token"
// @Success  200
// @Router   /boards/{id}/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	boardID, ok := paramID(c, "id", "board")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.boards.Board(ctx, userID, boardID); err != nil {
		respondError(c, err, "Board")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stream unsupported"})
		return
	}

	sub, err := h.subs.Subscribe(ctx, boardID)
	if err != nil {
		h.logger.WithError(err).WithField("board_id", boardID.String()).Warn("board stream subscribe failed")
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Change notifications unavailable"})
		return
	}
	defer sub.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	if _, err := fmt.Fprint(c.Writer, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				h.logger.WithError(sub.Err()).WithField("board_id", boardID.String()).Info("board stream ended")
				return
			}
			data, err := json.Marshal(api.ChangeMessage{Collection: ev.Collection, Operation: ev.Operation})
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "event: change\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
