package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var ErrClosed = errors.New("realtime: connection closed")

// Conn wraps a websocket with a buffered writer goroutine so hub callbacks never block.
type Conn struct {
	ws      *websocket.Conn
	send    chan interface{}
	done    chan struct{}
	closeMu sync.Once
}

func NewConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:   ws,
		send: make(chan interface{}, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send queues v for delivery as JSON. Slow consumers drop messages rather than stall publishers.
func (c *Conn) Send(v interface{}) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- v:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		log.Printf("ws send buffer full, dropping message")
		return nil
	}
}

// ErrorFrame tells the client a message it sent could not be used.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ReadLoop decodes inbound JSON messages into a fresh value from newMsg and
// hands them to handle until the peer goes away. A malformed message is
// answered with an ErrorFrame and the session carries on.
func (c *Conn) ReadLoop(newMsg func() interface{}, handle func(interface{})) {
	defer c.Close()
	c.ws.SetReadLimit(4096)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		msg := newMsg()
		if err := c.ws.ReadJSON(msg); err != nil {
			if malformed(err) {
				_ = c.Send(ErrorFrame{Type: "error", Error: "malformed message: " + err.Error()})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error: %v", err)
			}
			return
		}
		handle(msg)
	}
}

// malformed reports whether err came from decoding a complete message rather
// than from the connection. ReadJSON reports an empty or truncated document as
// io.ErrUnexpectedEOF.
func malformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Close stops the writer and closes the socket once.
func (c *Conn) Close() {
	c.closeMu.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// Done is closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case v := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(v); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
