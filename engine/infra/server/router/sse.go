package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// SSEStream writes server-sent events to a response. Writes are
// serialized so handlers may emit from callbacks.
type SSEStream struct {
	mu      sync.Mutex
	w       gin.ResponseWriter
	flusher http.Flusher
}

// StartSSE writes the event-stream headers and returns the stream.
func StartSSE(w gin.ResponseWriter) *SSEStream {
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	s := &SSEStream{w: w, flusher: flusher}
	s.flush()
	return s
}

// WriteEvent emits one event. data is JSON encoded unless it is already a
// string or byte slice.
func (s *SSEStream) WriteEvent(id int64, event string, data any) error {
	payload, err := encodeSSEData(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := "id: " + strconv.FormatInt(id, 10) + "\n"
	if event != "" {
		frame += "event: " + event + "\n"
	}
	for _, line := range strings.Split(payload, "\n") {
		frame += "data: " + line + "\n"
	}
	frame += "\n"
	if _, err := s.w.WriteString(frame); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	s.flush()
	return nil
}

func (s *SSEStream) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func encodeSSEData(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		out, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode sse data: %w", err)
		}
		return string(out), nil
	}
}
