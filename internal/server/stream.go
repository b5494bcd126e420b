package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()
}

// handleFollow streams appended log lines as "line" events until the client
// goes away.
func (r *Router) handleFollow(c *gin.Context) {
	ctx := c.Request.Context()
	lines, err := r.svc.FollowLog(ctx, c.Query("kind"))
	if err != nil {
		writeError(c, err)
		return
	}
	sseHeaders(c)
	for {
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			c.SSEvent("line", l)
			c.Writer.Flush()
		}
	}
}

// handleEvents streams supervisor events as "status" events.
func (r *Router) handleEvents(c *gin.Context) {
	ctx := c.Request.Context()
	events, unsubscribe := r.svc.Subscribe()
	defer unsubscribe()
	sseHeaders(c)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("status", ev)
			c.Writer.Flush()
		}
	}
}
