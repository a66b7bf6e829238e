package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/checkvibe/gatekeeper/internal/usage/liveevents"
	"github.com/gin-gonic/gin"
)

var ErrServiceUnavailable = errors.New("service_unavailable")

// StreamAPIKeyActivity pushes the caller's API key requests as server-sent
// events while the connection stays open.
func (s *Server) StreamAPIKeyActivity(c *gin.Context) {
	ac, ok := mustAuthContext(c)
	if !ok {
		return
	}
	if s.liveActivity == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	subscription, backlog, err := s.liveActivity.Subscribe(ac.UserID.String())
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	for _, event := range backlog {
		if err := writeActivityEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-subscription.Events():
			if err := writeActivityEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeActivityEvent(w io.Writer, event liveevents.LiveEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: usage\ndata: %s\n\n", data)
	return err
}
