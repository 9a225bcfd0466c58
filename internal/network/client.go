package network

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amalg/go-dungeon/internal/game"
)

const dialTimeout = 5 * time.Second

// Client connects to a session host, sends commands and receives events.
type Client struct {
	peer     peer
	playerID string
	initial  game.Event
	eventCh  chan game.Event
	errCh    chan error
	done     chan struct{}
	once     sync.Once
}

// Dial connects over framed TCP and joins the session.
func Dial(addr, name string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return join(newStreamPeer(conn, DefaultWriteTimeout), name)
}

// DialWS connects over WebSocket, e.g. ws://host:8080/ws, and joins the
// session.
func DialWS(url, name string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}
	return join(newWSPeer(ws, DefaultWriteTimeout), name)
}

func join(p peer, name string) (*Client, error) {
	if err := p.Send(MsgJoin, JoinMsg{Name: name}); err != nil {
		p.Close()
		return nil, fmt.Errorf("send join: %w", err)
	}

	env, err := p.Receive()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}

	if env.Type == MsgError {
		var errMsg ErrorMsg
		DecodePayload(env, &errMsg)
		p.Close()
		if errMsg.Message == ErrSessionOccupied.Error() {
			return nil, fmt.Errorf("join: %w", ErrSessionOccupied)
		}
		return nil, fmt.Errorf("server error: %s", errMsg.Message)
	}

	if env.Type != MsgWelcome {
		p.Close()
		return nil, fmt.Errorf("expected welcome, got %s", env.Type)
	}

	var welcome WelcomeMsg
	if err := DecodePayload(env, &welcome); err != nil {
		p.Close()
		return nil, fmt.Errorf("decode welcome: %w", err)
	}

	c := &Client{
		peer:     p,
		playerID: welcome.PlayerID,
		initial:  welcome.Event,
		eventCh:  make(chan game.Event, 16),
		errCh:    make(chan error, 4),
		done:     make(chan struct{}),
	}
	go c.receiveLoop()
	return c, nil
}

// PlayerID returns the id the host assigned to this client.
func (c *Client) PlayerID() string {
	return c.playerID
}

// Initial is the session view sent with the welcome.
func (c *Client) Initial() game.Event {
	return c.initial
}

// Events yields session events. It is closed when the connection ends.
func (c *Client) Events() <-chan game.Event {
	return c.eventCh
}

// Errors yields errors reported by the host. Older errors are dropped when
// nobody reads them.
func (c *Client) Errors() <-chan error {
	return c.errCh
}

// Do sends one movement command.
func (c *Client) Do(cmd game.Command) error {
	return c.peer.Send(MsgCommand, CommandMsg{Command: cmd})
}

func (c *Client) Reset() error {
	return c.peer.Send(MsgControl, ControlMsg{Op: OpReset})
}

func (c *Client) Save() error {
	return c.peer.Send(MsgControl, ControlMsg{Op: OpSave})
}

func (c *Client) Load() error {
	return c.peer.Send(MsgControl, ControlMsg{Op: OpLoad})
}

// GoTo asks the host to switch to level i.
func (c *Client) GoTo(i int) error {
	return c.peer.Send(MsgControl, ControlMsg{Op: OpLevel, Level: i})
}

// Close disconnects from the host.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.peer.Close()
	})
}

func (c *Client) receiveLoop() {
	defer close(c.eventCh)

	for {
		env, err := c.peer.Receive()
		if err != nil {
			return
		}

		switch env.Type {
		case MsgEvent:
			var msg EventMsg
			if err := DecodePayload(env, &msg); err != nil {
				continue
			}
			// Events are not coalesced: each one carries its own transition.
			select {
			case c.eventCh <- msg.Event:
			case <-c.done:
				return
			}
		case MsgError:
			var errMsg ErrorMsg
			DecodePayload(env, &errMsg)
			c.reportError(errors.New(errMsg.Message))
		}
	}
}

func (c *Client) reportError(err error) {
	select {
	case c.errCh <- err:
	default:
		select {
		case <-c.errCh:
		default:
		}
		select {
		case c.errCh <- err:
		default:
		}
	}
}
