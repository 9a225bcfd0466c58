package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/game"
)

// ErrSessionOccupied is returned to a client that joins while another
// client holds the session.
var ErrSessionOccupied = errors.New("session occupied")

// saveTimeout bounds the save made when a client disconnects.
const saveTimeout = 5 * time.Second

// Server hosts a session for one remote player at a time.
type Server struct {
	session  *game.Session
	log      *zap.Logger
	listener net.Listener
	http     *http.Server
	upgrader websocket.Upgrader

	// WriteTimeout bounds each message sent to a client. A client whose
	// write times out is disconnected. Set before Start.
	WriteTimeout time.Duration

	mu          sync.RWMutex
	active      *clientConn // nil when the session is free
	onOccupancy func(occupied bool)
	done        chan struct{}
	stopOnce    sync.Once
}

// clientConn represents the connected client. mu orders the welcome
// before any event and is never held together with Server.mu.
type clientConn struct {
	peer     peer
	playerID string
	name     string
	mu       sync.Mutex
	ready    bool // Welcome sent; events may flow
}

// NewServer wraps a session. Every session event is pushed to the client
// holding it.
func NewServer(session *game.Session, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		session: session,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		WriteTimeout: DefaultWriteTimeout,
		done:         make(chan struct{}),
	}
	session.OnEvent(s.push)
	return s
}

// Session returns the hosted session.
func (s *Server) Session() *game.Session {
	return s.session
}

// OnOccupancy sets a callback run whenever a client takes or frees the
// session.
func (s *Server) OnOccupancy(fn func(occupied bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOccupancy = fn
}

// Occupied reports whether a client holds the session.
func (s *Server) Occupied() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active != nil
}

// Start begins accepting framed TCP connections on addr.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	logLocalAddrs(s.log, ln.Addr().String())

	go s.acceptLoop()
	return nil
}

// Addr is the TCP listen address, useful when started on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// StartWS serves WebSocket clients on addr at path /ws and returns the
// bound address.
func (s *Server) StartWS(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen websocket: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("websocket server stopped", zap.Error(err))
		}
	}()

	s.log.Info("websocket listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

// ServeHTTP upgrades the request and runs the client on it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.handleClient(newWSPeer(ws, s.WriteTimeout))
}

// Stop shuts down the listeners and disconnects the client, saving its
// session.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		if s.http != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			s.http.Shutdown(ctx)
			cancel()
		}
		// Closing the peer unblocks a send in progress.
		s.mu.RLock()
		cc := s.active
		s.mu.RUnlock()
		if cc != nil {
			cc.peer.Close()
		}
	})
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.Warn("accept failed", zap.Error(err))
				continue
			}
		}
		go s.handleClient(newStreamPeer(conn, s.WriteTimeout))
	}
}

func (s *Server) handleClient(p peer) {
	defer p.Close()

	env, err := p.Receive()
	if err != nil {
		s.log.Warn("failed to read join message", zap.String("remote", p.RemoteAddr()), zap.Error(err))
		return
	}
	if env.Type != MsgJoin {
		s.log.Warn("expected join message", zap.String("got", string(env.Type)))
		p.Send(MsgError, ErrorMsg{Message: "expected join message"})
		return
	}

	var joinMsg JoinMsg
	if err := DecodePayload(env, &joinMsg); err != nil {
		s.log.Warn("failed to decode join message", zap.Error(err))
		return
	}

	cc := &clientConn{peer: p, playerID: uuid.NewString(), name: joinMsg.Name}
	if !s.claim(cc) {
		s.log.Info("join refused, session occupied", zap.String("name", joinMsg.Name))
		p.Send(MsgError, ErrorMsg{Message: ErrSessionOccupied.Error()})
		return
	}
	defer s.release(cc)

	s.log.Info("player joined", zap.String("name", joinMsg.Name), zap.String("id", cc.playerID))

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	s.session.Load(ctx)
	cancel()

	if err := s.welcome(cc); err != nil {
		s.log.Warn("failed to send welcome", zap.String("id", cc.playerID), zap.Error(err))
		return
	}

	for {
		select {
		case <-s.done:
			return
		default:
		}

		env, err := p.Receive()
		if err != nil {
			s.log.Info("player disconnected", zap.String("id", cc.playerID), zap.Error(err))
			return
		}

		switch env.Type {
		case MsgCommand:
			var msg CommandMsg
			if err := DecodePayload(env, &msg); err != nil {
				s.log.Warn("invalid command", zap.String("id", cc.playerID), zap.Error(err))
				p.Send(MsgError, ErrorMsg{Message: err.Error()})
				continue
			}
			if _, err := s.session.Apply(msg.Command); err != nil {
				p.Send(MsgError, ErrorMsg{Message: err.Error()})
			}
		case MsgControl:
			var msg ControlMsg
			if err := DecodePayload(env, &msg); err != nil {
				s.log.Warn("invalid control", zap.String("id", cc.playerID), zap.Error(err))
				p.Send(MsgError, ErrorMsg{Message: err.Error()})
				continue
			}
			if err := s.control(msg); err != nil {
				p.Send(MsgError, ErrorMsg{Message: err.Error()})
			}
		default:
			s.log.Warn("unknown message type", zap.String("id", cc.playerID), zap.String("type", string(env.Type)))
		}
	}
}

func (s *Server) control(msg ControlMsg) error {
	switch msg.Op {
	case OpReset:
		s.session.Reset()
	case OpLoad:
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		s.session.Load(ctx)
	case OpSave:
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		return s.session.Save(ctx)
	case OpLevel:
		_, err := s.session.ChangeLevel(msg.Level)
		return err
	default:
		return fmt.Errorf("unknown control op %q", msg.Op)
	}
	return nil
}

// claim makes cc the active client unless another one already is.
func (s *Server) claim(cc *clientConn) bool {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return false
	}
	s.active = cc
	fn := s.onOccupancy
	s.mu.Unlock()

	if fn != nil {
		fn(true)
	}
	return true
}

// release saves and despawns the player, then frees the session.
func (s *Server) release(cc *clientConn) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	if err := s.session.Save(ctx); err != nil && !errors.Is(err, game.ErrNoPlayer) {
		s.log.Warn("save on disconnect failed", zap.String("id", cc.playerID), zap.Error(err))
	}
	cancel()
	s.session.Despawn()

	s.mu.Lock()
	if s.active == cc {
		s.active = nil
	}
	fn := s.onOccupancy
	s.mu.Unlock()

	if fn != nil {
		fn(false)
	}
	s.log.Info("player removed", zap.String("id", cc.playerID))
}

// welcome sends the current session view and opens the event stream.
// Holding cc.mu keeps pushes from overtaking the welcome.
func (s *Server) welcome(cc *clientConn) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if err := cc.peer.Send(MsgWelcome, WelcomeMsg{PlayerID: cc.playerID, Event: s.session.View()}); err != nil {
		return err
	}
	cc.ready = true
	return nil
}

// push forwards a session event to the active client. A client that
// cannot take the event is disconnected; its read loop then releases the
// session.
func (s *Server) push(ev game.Event) {
	s.mu.RLock()
	cc := s.active
	s.mu.RUnlock()
	if cc == nil {
		return
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	if !cc.ready {
		return
	}
	if err := cc.peer.Send(MsgEvent, EventMsg{Event: ev}); err != nil {
		s.log.Warn("failed to send event, dropping client", zap.String("id", cc.playerID), zap.Error(err))
		cc.ready = false
		cc.peer.Close()
	}
}

// logLocalAddrs logs the LAN addresses clients can connect to.
func logLocalAddrs(log *zap.Logger, addr string) {
	_, port, _ := net.SplitHostPort(addr)

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return
	}

	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				log.Info("reachable at", zap.String("addr", net.JoinHostPort(ipnet.IP.String(), port)))
			}
		}
	}
}
