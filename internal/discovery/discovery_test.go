package discovery

import (
	"net"
	"testing"
	"time"
)

func TestBroadcastReachesListener(t *testing.T) {
	l := NewListenerOn(0)
	if err := l.Start(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Stop()

	b := NewBroadcasterOn(l.Port(), SessionInfo{Name: "crypt", GameAddr: "127.0.0.1:9999", LevelCount: 2}, nil)
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for len(l.Sessions()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no advertisement received")
		}
		time.Sleep(20 * time.Millisecond)
	}

	got := l.Sessions()[0]
	if got.Name != "crypt" || got.LevelCount != 2 || got.Occupied {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestAvailableSkipsOccupied(t *testing.T) {
	l := NewListenerOn(0)
	now := time.Now()
	l.observe(SessionInfo{Name: "a", GameAddr: "h:1", Occupied: true}, now)
	l.observe(SessionInfo{Name: "b", GameAddr: "h:2"}, now)
	l.observe(SessionInfo{Name: "c", GameAddr: "h:3"}, now)

	s, ok := l.Available()
	if !ok || s.Name != "b" {
		t.Errorf("expected b, got %+v (ok=%v)", s, ok)
	}

	l.observe(SessionInfo{Name: "b", GameAddr: "h:2", Occupied: true}, now)
	l.observe(SessionInfo{Name: "c", GameAddr: "h:3", Occupied: true}, now)
	if _, ok := l.Available(); ok {
		t.Error("all sessions occupied")
	}
}

func TestPruneExpires(t *testing.T) {
	l := NewListenerOn(0)
	start := time.Now()
	l.observe(SessionInfo{Name: "old", GameAddr: "h:1"}, start)
	l.observe(SessionInfo{Name: "new", GameAddr: "h:2"}, start.Add(3*time.Second))

	l.prune(start.Add(SessionExpiry + time.Second))
	sessions := l.Sessions()
	if len(sessions) != 1 || sessions[0].Name != "new" {
		t.Errorf("expected only new to remain, got %+v", sessions)
	}
}

func TestBroadcasterUpdates(t *testing.T) {
	b := NewBroadcaster(SessionInfo{Name: "crypt"}, nil)
	b.SetOccupied(true)
	b.SetLevel(1, 3)
	info := b.Info()
	if !info.Occupied || info.Level != 1 || info.LevelCount != 3 {
		t.Errorf("updates not applied: %+v", info)
	}
}

func TestBroadcastAddr(t *testing.T) {
	_, ipnet, _ := net.ParseCIDR("192.168.1.20/24")
	ipnet.IP = net.ParseIP("192.168.1.20")
	if got := broadcastAddr(ipnet); !got.Equal(net.ParseIP("192.168.1.255")) {
		t.Errorf("broadcast = %s", got)
	}
}

func TestAdvertiseAddr(t *testing.T) {
	if got := AdvertiseAddr("192.168.1.5:9999"); got != "192.168.1.5:9999" {
		t.Errorf("explicit host should be kept, got %s", got)
	}
	for _, in := range []string{":9999", "0.0.0.0:9999", "[::]:9999"} {
		got := AdvertiseAddr(in)
		host, port, err := net.SplitHostPort(got)
		if err != nil || port != "9999" {
			t.Errorf("AdvertiseAddr(%q) = %q", in, got)
			continue
		}
		if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
			t.Errorf("AdvertiseAddr(%q) left an unusable host %q", in, host)
		}
	}
}
