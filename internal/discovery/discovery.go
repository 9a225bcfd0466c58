package discovery

import (
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// BroadcastPort is the UDP port used for session discovery.
	BroadcastPort = 9998
	// BroadcastInterval is how often hosts advertise their session.
	BroadcastInterval = 1 * time.Second
	// SessionExpiry is how long a session stays visible after its last broadcast.
	SessionExpiry = 4 * time.Second
)

// SessionInfo describes a hosted dungeon session on the network.
type SessionInfo struct {
	Name       string `json:"name"`
	HostName   string `json:"host_name"`
	Level      int    `json:"level"`
	LevelCount int    `json:"level_count"`
	Occupied   bool   `json:"occupied"`  // A player holds the session
	GameAddr   string `json:"game_addr"` // TCP host:port to connect to
}

// --- Broadcaster ---

// Broadcaster periodically sends UDP broadcast packets with session info.
type Broadcaster struct {
	info SessionInfo
	port int
	log  *zap.Logger
	done chan struct{}
	once sync.Once
	mu   sync.Mutex
}

// NewBroadcaster advertises on BroadcastPort.
func NewBroadcaster(info SessionInfo, log *zap.Logger) *Broadcaster {
	return NewBroadcasterOn(BroadcastPort, info, log)
}

// NewBroadcasterOn advertises on a specific UDP port.
func NewBroadcasterOn(port int, info SessionInfo, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		info: info,
		port: port,
		log:  log,
		done: make(chan struct{}),
	}
}

// SetOccupied updates the advertised occupancy.
func (b *Broadcaster) SetOccupied(occupied bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info.Occupied = occupied
}

// SetLevel updates the advertised level and level count.
func (b *Broadcaster) SetLevel(level, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info.Level = level
	b.info.LevelCount = count
}

// Info returns the currently advertised info.
func (b *Broadcaster) Info() SessionInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// Start begins broadcasting session info via UDP.
func (b *Broadcaster) Start() error {
	// Use ListenPacket (not DialUDP) so broadcast works on Linux.
	// DialUDP to 255.255.255.255 silently fails without SO_BROADCAST.
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("create broadcast socket: %w", err)
	}
	go b.broadcastLoop(conn)
	return nil
}

// Stop stops the broadcaster.
func (b *Broadcaster) Stop() {
	b.once.Do(func() { close(b.done) })
}

func (b *Broadcaster) broadcastLoop(conn net.PacketConn) {
	defer conn.Close()

	dst := &net.UDPAddr{
		IP:   net.IPv4bcast,
		Port: b.port,
	}

	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	// Send immediately on start, then on tick
	b.sendBroadcast(conn, dst)

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sendBroadcast(conn, dst)
		}
	}
}

func (b *Broadcaster) sendBroadcast(conn net.PacketConn, dst net.Addr) {
	data, err := json.Marshal(b.Info())
	if err != nil {
		b.log.Warn("encode session info", zap.Error(err))
		return
	}

	// Loopback first: 255.255.255.255 is often dropped by the local firewall.
	loopback := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: b.port}
	conn.WriteTo(data, loopback)

	conn.WriteTo(data, dst)

	b.broadcastOnInterfaces(conn, data)
}

// broadcastOnInterfaces sends to each interface's broadcast address as a fallback.
func (b *Broadcaster) broadcastOnInterfaces(conn net.PacketConn, data []byte) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			conn.WriteTo(data, &net.UDPAddr{IP: broadcastAddr(ipnet), Port: b.port})
		}
	}
}

// broadcastAddr is IP | ^Mask for an IPv4 network.
func broadcastAddr(ipnet *net.IPNet) net.IP {
	ip4 := ipnet.IP.To4()
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	broadcast := make(net.IP, 4)
	for i := range broadcast {
		broadcast[i] = ip4[i] | ^mask[i]
	}
	return broadcast
}

// --- Listener ---

// discoveredSession holds a session and when it was last seen.
type discoveredSession struct {
	Info     SessionInfo
	LastSeen time.Time
}

// Listener collects session advertisements.
type Listener struct {
	sessions map[string]*discoveredSession // keyed by GameAddr
	port     int
	mu       sync.RWMutex
	conn     *net.UDPConn
	done     chan struct{}
	once     sync.Once
}

// NewListener listens on BroadcastPort.
func NewListener() *Listener {
	return NewListenerOn(BroadcastPort)
}

// NewListenerOn listens on a specific port; 0 picks a free one, see Port.
func NewListenerOn(port int) *Listener {
	return &Listener{
		sessions: make(map[string]*discoveredSession),
		port:     port,
		done:     make(chan struct{}),
	}
}

// Start begins listening for session broadcasts.
func (l *Listener) Start() error {
	var err error
	l.conn, err = net.ListenUDP("udp4", &net.UDPAddr{Port: l.port, IP: net.IPv4zero})
	if err != nil {
		return fmt.Errorf("listen UDP on port %d: %w (is another instance browsing?)", l.port, err)
	}
	l.port = l.conn.LocalAddr().(*net.UDPAddr).Port

	go l.listenLoop()
	go l.cleanupLoop()
	return nil
}

// Port is the bound UDP port once started.
func (l *Listener) Port() int {
	return l.port
}

// Stop stops the listener.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
		if l.conn != nil {
			l.conn.Close()
		}
	})
}

// Sessions returns a snapshot of visible sessions ordered by name, then address.
func (l *Listener) Sessions() []SessionInfo {
	l.mu.RLock()
	sessions := make([]SessionInfo, 0, len(l.sessions))
	for _, ds := range l.sessions {
		sessions = append(sessions, ds.Info)
	}
	l.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Name != sessions[j].Name {
			return sessions[i].Name < sessions[j].Name
		}
		return sessions[i].GameAddr < sessions[j].GameAddr
	})
	return sessions
}

// Available returns the first session nobody is playing.
func (l *Listener) Available() (SessionInfo, bool) {
	for _, s := range l.Sessions() {
		if !s.Occupied {
			return s, true
		}
	}
	return SessionInfo{}, false
}

// observe records an advertisement received at now.
func (l *Listener) observe(info SessionInfo, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[info.GameAddr] = &discoveredSession{Info: info, LastSeen: now}
}

// prune drops sessions not heard from within SessionExpiry of now.
func (l *Listener) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, ds := range l.sessions {
		if now.Sub(ds.LastSeen) > SessionExpiry {
			delete(l.sessions, addr)
		}
	}
}

func (l *Listener) listenLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-l.done:
			return
		default:
		}

		l.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		var info SessionInfo
		if err := json.Unmarshal(buf[:n], &info); err != nil || info.GameAddr == "" {
			continue
		}
		l.observe(info, time.Now())
	}
}

func (l *Listener) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.prune(time.Now())
		}
	}
}

// AdvertiseAddr turns a listen address into one other machines can dial.
// An unspecified host (":9999", "0.0.0.0:9999", "[::]:9999") is replaced by
// the first non-loopback IPv4 address, or 127.0.0.1 if there is none.
func AdvertiseAddr(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return listenAddr
	}
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return listenAddr
	}

	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				return net.JoinHostPort(ipnet.IP.String(), port)
			}
		}
	}
	return net.JoinHostPort("127.0.0.1", port)
}
