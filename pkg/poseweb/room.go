package poseweb

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	// Displays are served from other hosts on the robot's network.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Room fans messages out to every connected websocket client. Slow clients
// miss messages rather than holding up the others.
type Room struct {
	forward chan []byte
	join    chan *client
	leave   chan *client
	stopped chan struct{}

	clients map[*client]bool
	log     *zap.SugaredLogger
}

func NewRoom(log *zap.SugaredLogger) *Room {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		stopped: make(chan struct{}),
		clients: make(map[*client]bool),
		log:     log,
	}
}

// Run services the room until ctx is done, then disconnects every client.
func (r *Room) Run(ctx context.Context) {
	defer func() {
		for c := range r.clients {
			close(c.send)
		}
		r.clients = nil
		close(r.stopped)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-r.join:
			r.clients[c] = true
			r.log.Debugw("New client joined", "clients", len(r.clients))
		case c := <-r.leave:
			if r.clients[c] {
				delete(r.clients, c)
				close(c.send)
			}
			r.log.Debugw("Client left", "clients", len(r.clients))
		case msg := <-r.forward:
			for c := range r.clients {
				select {
				case c.send <- msg:
				default:
					r.log.Debugw("Couldn't send to client, dropping message")
				}
			}
		}
	}
}

// Broadcast queues msg for every client. It gives up if ctx ends or the room
// has stopped.
func (r *Room) Broadcast(ctx context.Context, msg []byte) {
	select {
	case r.forward <- msg:
	case <-ctx.Done():
	case <-r.stopped:
	}
}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		r.log.Warnw("Websocket upgrade failed", "error", err)
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
	}
	select {
	case r.join <- c:
	case <-r.stopped:
		_ = socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.stopped:
		}
	}()
	go c.write()
	c.read()
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
}

// read discards anything the client sends; it returns once the socket fails
// or is closed.
func (c *client) read() {
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}
