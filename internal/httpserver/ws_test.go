package httpserver_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingup_go/internal/domain"
)

func wsURL(srv string) string {
	return "ws" + strings.TrimPrefix(srv, "http") + "/ws"
}

func TestWebSocketDeliversNewMessages(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	alice := registerUser(t, srv, "alice")
	bob := registerUser(t, srv, "bob")
	aliceClient := loginClient(t, srv, "alice")
	bobToken := loginToken(t, srv, "bob")

	header := http.Header{
		"Origin":        []string{"http://localhost:5173"},
		"Authorization": []string{"Bearer " + bobToken},
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), header)
	require.NoError(t, err)
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	sent, err := aliceClient.Send(ctx, bob.ID, "ping-over-socket")
	require.NoError(t, err)

	var payload struct {
		Type string         `json:"type"`
		Data domain.Message `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&payload))

	assert.Equal(t, "new_message", payload.Type)
	assert.Equal(t, sent.ID, payload.Data.ID)
	assert.Equal(t, "ping-over-socket", payload.Data.Text)
	assert.Equal(t, alice.ID, payload.Data.FromUserID)
}

func TestWebSocketRejectsMissingOrigin(t *testing.T) {
	srv := newTestServer(t)

	registerUser(t, srv, "bob")
	token := loginToken(t, srv, "bob")

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), header)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{
		"Origin":        []string{"http://localhost:5173"},
		"Authorization": []string{"Bearer not-a-token"},
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), header)
	require.Error(t, err)
	require.Nil(t, conn)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketSupersededByNewerConnection(t *testing.T) {
	srv := newTestServer(t)

	registerUser(t, srv, "bob")
	token := loginToken(t, srv, "bob")
	header := http.Header{
		"Origin":        []string{"http://localhost:5173"},
		"Authorization": []string{"Bearer " + token},
	}

	first, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer first.Close()

	second, resp2, err := websocket.DefaultDialer.Dial(wsURL(srv.URL), header)
	require.NoError(t, err)
	if resp2 != nil {
		resp2.Body.Close()
	}
	defer second.Close()

	// the replaced handler closes its socket
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = first.ReadMessage()
	assert.Error(t, err)
}
