package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/deptboard/internal/application/dispatcher"
	"github.com/garyjia/deptboard/internal/domain/event"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(HubConfig{}, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		boardID := strings.TrimPrefix(r.URL.Path, "/boards/")
		_ = hub.ServeBoard(w, r, boardID)
	}))
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, boardID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/boards/" + boardID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount(boardID) > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func movedEvent(fromBoard, toBoard string) *event.Event {
	return event.NewEvent(event.TypeTaskMoved, "t-1", "co-1", "u-1", map[string]interface{}{
		event.KeyFromBoard:  fromBoard,
		event.KeyFromColumn: "c-todo",
		event.KeyBoardID:    toBoard,
		event.KeyToColumn:   "c-done",
		event.KeyOrder:      2,
	})
}

func TestHub_DeliversToWatchersOfTheBoard(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, "b-1")

	require.NoError(t, hub.HandleEvent(context.Background(), movedEvent("b-2", "b-2")))
	require.NoError(t, hub.HandleEvent(context.Background(), movedEvent("b-1", "b-1")))

	msg := readMessage(t, conn)
	assert.Equal(t, event.TypeTaskMoved, msg.Type)
	assert.Equal(t, "b-1", msg.BoardID)
	assert.Equal(t, "t-1", msg.TaskID)
	assert.Equal(t, "c-done", msg.Payload[event.KeyToColumn])
	assert.EqualValues(t, 2, msg.Payload[event.KeyOrder])
}

func TestHub_CrossBoardMoveReachesBothBoards(t *testing.T) {
	hub, srv := startHub(t)
	source := dial(t, hub, srv, "b-src")
	target := dial(t, hub, srv, "b-dst")

	require.NoError(t, hub.HandleEvent(context.Background(), movedEvent("b-src", "b-dst")))

	assert.Equal(t, "b-src", readMessage(t, source).BoardID)
	assert.Equal(t, "b-dst", readMessage(t, target).BoardID)
}

func TestHub_ThroughDispatcher(t *testing.T) {
	hub, srv := startHub(t)
	d := dispatcher.NewDispatcher()
	hub.Register(d)
	conn := dial(t, hub, srv, "b-1")

	require.NoError(t, d.Dispatch(context.Background(), event.NewEvent(event.TypeColumnReindexed, "", "co-1", "",
		map[string]interface{}{event.KeyBoardID: "b-1", event.KeyColumnKey: "c-1", event.KeyChanged: 3})))

	msg := readMessage(t, conn)
	assert.Equal(t, event.TypeColumnReindexed, msg.Type)
	assert.Empty(t, msg.TaskID)

	// provisioning is not a feed event
	assert.Empty(t, d.ListHandlers(event.TypeBoardsProvisioned))
}

func TestHub_DropsSlowClients(t *testing.T) {
	hub := NewHub(HubConfig{SendBuffer: 1}, zap.NewNop())
	c := &client{boardID: "b-1", send: make(chan []byte, 1)}
	require.NoError(t, hub.add(c))

	hub.broadcast("b-1", []byte("one"))
	assert.Equal(t, 1, hub.ClientCount("b-1"))

	hub.broadcast("b-1", []byte("two"))
	assert.Equal(t, 0, hub.ClientCount("b-1"))

	<-c.send
	_, open := <-c.send
	assert.False(t, open)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, "b-1")

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount("b-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseRejectsNewClients(t *testing.T) {
	hub := NewHub(HubConfig{}, zap.NewNop())
	require.NoError(t, hub.Close())
	assert.Error(t, hub.add(&client{boardID: "b-1", send: make(chan []byte)}))
}

func TestAffectedBoards(t *testing.T) {
	assert.Equal(t, []string{"b-1"}, affectedBoards(movedEvent("b-1", "b-1")))
	assert.Equal(t, []string{"b-1", "b-2"}, affectedBoards(movedEvent("b-1", "b-2")))
	assert.Equal(t, []string{"b-2"}, affectedBoards(movedEvent("", "b-2")))
	assert.Empty(t, affectedBoards(event.NewEvent(event.TypeTaskCreated, "t-1", "", "", nil)))
}
