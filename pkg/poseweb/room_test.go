package poseweb

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomBroadcastsToAllClients(t *testing.T) {
	r := NewRoom(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	srv := httptest.NewServer(r)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer c.Close()
		conns = append(conns, c)
	}

	// Joins are asynchronous, so keep broadcasting until everyone has heard.
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Broadcast(ctx, []byte("hello"))
			}
		}
	}()

	for _, c := range conns {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(msg))
	}
}

func TestRoomDisconnectsClientsWhenStopped(t *testing.T) {
	r := NewRoom(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	srv := httptest.NewServer(r)
	defer srv.Close()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close()

	cancel()
	<-stopped

	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = c.ReadMessage()
	assert.Error(t, err)

	// Broadcasting to a stopped room doesn't block.
	r.Broadcast(context.Background(), []byte("anyone?"))
}
