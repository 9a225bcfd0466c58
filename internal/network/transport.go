package network

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// peer is one end of a message connection. Send is safe for concurrent
// use; Receive is called from a single read loop.
type peer interface {
	Send(msgType MsgType, payload interface{}) error
	Receive() (*Envelope, error)
	Close() error
	RemoteAddr() string
}

// DefaultWriteTimeout bounds a single Send. A peer that stops reading
// fails its writes instead of blocking the sender forever.
const DefaultWriteTimeout = 5 * time.Second

// streamPeer speaks length-prefixed frames over a stream connection.
type streamPeer struct {
	conn         net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newStreamPeer(conn net.Conn, writeTimeout time.Duration) *streamPeer {
	return &streamPeer{conn: conn, writeTimeout: writeTimeout}
}

func (p *streamPeer) Send(msgType MsgType, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return Encode(p.conn, msgType, payload)
}

func (p *streamPeer) Receive() (*Envelope, error) {
	return Decode(p.conn)
}

func (p *streamPeer) Close() error { return p.conn.Close() }
func (p *streamPeer) RemoteAddr() string { return p.conn.RemoteAddr().String() }

// wsPeer carries one envelope per WebSocket text message.
type wsPeer struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newWSPeer(ws *websocket.Conn, writeTimeout time.Duration) *wsPeer {
	ws.SetReadLimit(MaxMessageSize)
	return &wsPeer{ws: ws, writeTimeout: writeTimeout}
}

func (p *wsPeer) Send(msgType MsgType, payload interface{}) error {
	body, err := Marshal(msgType, payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ws.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := p.ws.WriteMessage(websocket.TextMessage, body); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (p *wsPeer) Receive() (*Envelope, error) {
	kind, body, err := p.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	if kind != websocket.TextMessage {
		return nil, fmt.Errorf("unexpected websocket message type %d", kind)
	}
	return Unmarshal(body)
}

func (p *wsPeer) Close() error {
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
	return p.ws.Close()
}

func (p *wsPeer) RemoteAddr() string { return p.ws.RemoteAddr().String() }
