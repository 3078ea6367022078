package server

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"github.com/investlens/lenscore/internal/models"
)

// eventStreamWriter serializes debate events as newline-delimited JSON,
// flushing after every record so the client sees progress immediately.
// After the first failed write the client is considered gone and
// further events are dropped silently; the debate itself keeps running.
type eventStreamWriter struct {
	w    gin.ResponseWriter
	gone bool
}

func newEventStreamWriter(c *gin.Context) *eventStreamWriter {
	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(200)
	return &eventStreamWriter{w: c.Writer}
}

// WriteEvent emits one record. Returns false once the client has
// disconnected.
func (s *eventStreamWriter) WriteEvent(ev models.Event) bool {
	if s.gone {
		return false
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return !s.gone
	}
	payload = append(payload, '\n')

	if _, err := s.w.Write(payload); err != nil {
		s.gone = true
		return false
	}
	s.w.Flush()
	return true
}
