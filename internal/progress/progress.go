// Package progress reports upload transfer progress as a stream of events,
// separate from the upload's final result.
package progress

import (
	"context"
	"io"
)

// State of an upload as seen by a progress subscriber.
type State string

const (
	StateUploading State = "uploading"
	StateStored    State = "stored"
	StateFailed    State = "failed"
)

// Event is one progress notification for an upload.
type Event struct {
	UploadID   string `json:"uploadId"`
	BytesSent  int64  `json:"bytesSent"`
	TotalBytes int64  `json:"totalBytes"`
	Percent    int    `json:"percent"`
	State      State  `json:"state"`
	Error      string `json:"error,omitempty"`
}

// NewEvent fills Percent from the byte counts.
func NewEvent(uploadID string, sent, total int64, state State) Event {
	return Event{
		UploadID:   uploadID,
		BytesSent:  sent,
		TotalBytes: total,
		Percent:    Percent(sent, total),
		State:      state,
	}
}

// Percent returns sent/total as a whole percentage in [0,100].
// An unknown total (<= 0) reports 0.
func Percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	if sent >= total {
		return 100
	}
	return int(sent * 100 / total)
}

// Reader counts bytes read through it and emits an Event each time the whole
// percentage advances. Sends never block the transfer: when the consumer is
// slow the intermediate event is dropped.
type Reader struct {
	r        io.Reader
	uploadID string
	total    int64
	sent     int64
	lastPct  int
	events   chan<- Event
}

// NewReader wraps r. A nil events channel disables reporting.
func NewReader(r io.Reader, uploadID string, total int64, events chan<- Event) *Reader {
	return &Reader{r: r, uploadID: uploadID, total: total, lastPct: -1, events: events}
}

func (p *Reader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if pct := Percent(p.sent, p.total); pct != p.lastPct {
			p.lastPct = pct
			p.emit(NewEvent(p.uploadID, p.sent, p.total, StateUploading))
		}
	}
	return n, err
}

// BytesSent returns the number of bytes read so far.
func (p *Reader) BytesSent() int64 { return p.sent }

func (p *Reader) emit(ev Event) {
	if p.events == nil {
		return
	}
	select {
	case p.events <- ev:
	default:
	}
}

// Send delivers a terminal event, waiting for the consumer unless ctx ends first.
func Send(ctx context.Context, events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
