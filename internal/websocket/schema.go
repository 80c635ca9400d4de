package websocket

import "github.com/stemsi/tugas-backend/internal/progress"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventProgress Event = "progress"
	EventStored   Event = "stored"
	EventFailed   Event = "failed"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// ProgressResponse reports how much of an upload has reached the blob store.
type ProgressResponse struct {
	Event      Event  `json:"event"`
	UploadID   string `json:"uploadId"`
	BytesSent  int64  `json:"bytesSent"`
	TotalBytes int64  `json:"totalBytes"`
	Percent    int    `json:"percent"`
	Error      string `json:"error,omitempty"`
}

// NewProgressResponse maps a progress event to its wire message.
func NewProgressResponse(ev progress.Event) ProgressResponse {
	event := EventProgress
	switch ev.State {
	case progress.StateStored:
		event = EventStored
	case progress.StateFailed:
		event = EventFailed
	}
	return ProgressResponse{
		Event:      event,
		UploadID:   ev.UploadID,
		BytesSent:  ev.BytesSent,
		TotalBytes: ev.TotalBytes,
		Percent:    ev.Percent,
		Error:      ev.Error,
	}
}

// Terminal reports whether no further events follow.
func (r ProgressResponse) Terminal() bool {
	return r.Event == EventStored || r.Event == EventFailed
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
