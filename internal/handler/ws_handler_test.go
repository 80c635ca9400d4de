package handler_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stemsi/tugas-backend/internal/progress"
	ws "github.com/stemsi/tugas-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadProgressStream(t *testing.T) {
	sub := staticSubscriber{events: []progress.Event{
		progress.NewEvent("up-1", 50, 100, progress.StateUploading),
		progress.NewEvent("up-1", 100, 100, progress.StateUploading),
		progress.NewEvent("up-1", 100, 100, progress.StateStored),
	}}
	ts := newTestServer(t, sub)
	srv := httptest.NewServer(ts.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/uploads/up-1/progress?token=" + ts.tokens["s1"]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var got []ws.ProgressResponse
	for {
		var msg ws.ProgressResponse
		if err := conn.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
			break
		}
		got = append(got, msg)
	}

	require.Len(t, got, 3)
	assert.Equal(t, ws.EventProgress, got[0].Event)
	assert.Equal(t, 50, got[0].Percent)
	assert.Equal(t, ws.EventStored, got[2].Event)
	assert.EqualValues(t, 100, got[2].BytesSent)
}

func TestUploadProgressStreamRequiresToken(t *testing.T) {
	ts := newTestServer(t, staticSubscriber{})
	srv := httptest.NewServer(ts.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/uploads/up-1/progress"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
