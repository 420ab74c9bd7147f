package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialFeed(t *testing.T, ts *testStack) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.server.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return ts.server.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, kind string) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == kind {
			return msg
		}
	}
}

func TestHub_CommandReplies(t *testing.T) {
	ts := newTestStack(t, 100, 100)
	conn := dialFeed(t, ts)

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSelectPair, Pair: "WBTC/ETH"}))
	ack := readUntil(t, conn, "ack")
	assert.JSONEq(t, `"select_pair"`, string(ack.Data))

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSelectPair, Pair: "DOGE/USDC"}))
	msg := readUntil(t, conn, "error")
	assert.Contains(t, msg.Error, "unknown pair")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, conn, "error")
	assert.Equal(t, "malformed command", msg.Error)

	require.NoError(t, conn.WriteJSON(Command{Type: CmdSetStrategy, Strategy: "frontrunning"}))
	readUntil(t, conn, "ack")
	assert.EqualValues(t, "FRONTRUNNING", ts.mev.Strategy())
}

func TestHub_RateLimit(t *testing.T) {
	ts := newTestStack(t, 0.001, 1)
	conn := dialFeed(t, ts)

	require.NoError(t, conn.WriteJSON(Command{Type: CmdPause}))
	readUntil(t, conn, "ack")

	require.NoError(t, conn.WriteJSON(Command{Type: CmdResume}))
	msg := readUntil(t, conn, "error")
	assert.Equal(t, "rate limit exceeded", msg.Error)
}

func TestHub_BroadcastsActivePair(t *testing.T) {
	ts := newTestStack(t, 10, 10)
	conn := dialFeed(t, ts)

	ts.quotes.ProcessBatch(context.Background(), arbitrageBatch(1000))

	msg := readUntil(t, conn, "quotes")
	var dash struct {
		Batch struct {
			Seq  uint64 `json:"seq"`
			Pair string `json:"pair"`
		} `json:"batch"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &dash))
	assert.Equal(t, uint64(1000), dash.Batch.Seq)
	assert.Equal(t, "ETH/USDC", dash.Batch.Pair)

	msg = readUntil(t, conn, "arbitrage")
	var view arbitrageView
	require.NoError(t, json.Unmarshal(msg.Data, &view))
	require.Len(t, view.Opportunities, 1)
	assert.Equal(t, "SushiSwap", view.Opportunities[0].SellVenue)
}

func TestHub_Close(t *testing.T) {
	ts := newTestStack(t, 10, 10)
	conn := dialFeed(t, ts)

	ts.server.Hub().Close()
	assert.Equal(t, 0, ts.server.Hub().ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
