package progress

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		sent, total int64
		want        int
	}{
		{0, 100, 0},
		{33, 100, 33},
		{1, 3, 33},
		{100, 100, 100},
		{150, 100, 100},
		{10, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.sent, tt.total), "%d/%d", tt.sent, tt.total)
	}
}

func TestReaderEmitsMonotonicEvents(t *testing.T) {
	body := strings.Repeat("x", 1000)
	events := make(chan Event, 200)
	r := NewReader(&chunkReader{r: strings.NewReader(body), n: 10}, "up-1", int64(len(body)), events)

	n, err := io.Copy(io.Discard, r)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, n)
	assert.EqualValues(t, 1000, r.BytesSent())
	close(events)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.NotEmpty(t, got)
	last := -1
	for _, ev := range got {
		assert.Equal(t, "up-1", ev.UploadID)
		assert.Equal(t, StateUploading, ev.State)
		assert.Greater(t, ev.Percent, last)
		last = ev.Percent
	}
	assert.Equal(t, 100, got[len(got)-1].Percent)
}

func TestReaderNeverBlocksOnFullChannel(t *testing.T) {
	events := make(chan Event) // unbuffered, nobody reading
	r := NewReader(strings.NewReader("abcdef"), "up", 6, events)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(b))
}

func TestSendRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// would block forever without ctx
	Send(ctx, make(chan Event), Event{State: StateStored})
	Send(context.Background(), nil, Event{})
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []Event
}

func (p *recordingPublisher) Publish(_ context.Context, userID string, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ev)
	return nil
}

func TestForwardDrainsUntilClosed(t *testing.T) {
	pub := &recordingPublisher{}
	events := make(chan Event, 3)
	events <- NewEvent("u", 1, 2, StateUploading)
	events <- NewEvent("u", 2, 2, StateUploading)
	events <- NewEvent("u", 2, 2, StateStored)
	close(events)

	Forward(context.Background(), pub, "s1", events, zerolog.Nop())

	require.Len(t, pub.got, 3)
	assert.Equal(t, StateStored, pub.got[2].State)
	assert.Equal(t, 100, pub.got[2].Percent)
}

type chunkReader struct {
	r io.Reader
	n int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.n {
		p = p[:c.n]
	}
	return c.r.Read(p)
}
