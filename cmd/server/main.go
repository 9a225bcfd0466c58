package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/config"
	"github.com/amalg/go-dungeon/internal/discovery"
	"github.com/amalg/go-dungeon/internal/host"
	"github.com/amalg/go-dungeon/internal/logging"
	"github.com/amalg/go-dungeon/internal/network"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "TCP listen address (default from config, :9999)")
	wsAddr := flag.String("ws", "", "WebSocket listen address, e.g. :8080")
	name := flag.String("name", "", "Session name advertised on the LAN")
	levelPath := flag.String("level", "", "Level document (default: embedded)")
	watch := flag.Bool("watch", false, "Reload the level document when it changes")
	noDiscovery := flag.Bool("no-discovery", false, "Do not advertise the session")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *wsAddr != "" {
		cfg.Server.WSAddr = *wsAddr
	}
	if *name != "" {
		cfg.Server.Name = *name
	}
	if *levelPath != "" {
		cfg.Level.Path = *levelPath
	}
	if *watch {
		cfg.Level.Watch = true
	}
	if *noDiscovery {
		cfg.Server.Discovery = false
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	h, err := host.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	defer h.Close()

	if err := h.Watch(); err != nil {
		log.Fatal("failed to watch level", zap.Error(err))
	}

	server := network.NewServer(h.Session, log)
	if err := server.Start(cfg.Server.Addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
	defer server.Stop()

	if cfg.Server.WSAddr != "" {
		if _, err := server.StartWS(cfg.Server.WSAddr); err != nil {
			log.Fatal("failed to start websocket server", zap.Error(err))
		}
	}

	if cfg.Server.Discovery {
		hostName, _ := os.Hostname()
		b := discovery.NewBroadcaster(discovery.SessionInfo{
			Name:       cfg.Server.Name,
			HostName:   hostName,
			LevelCount: h.Session.LevelCount(),
			GameAddr:   discovery.AdvertiseAddr(server.Addr()),
		}, log)
		server.OnOccupancy(b.SetOccupied)
		if err := b.Start(); err != nil {
			log.Warn("discovery disabled", zap.Error(err))
		} else {
			defer b.Stop()
			go trackLevel(b, h, discovery.BroadcastInterval)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.Stringer("signal", sig))
}

// trackLevel keeps the advertised level in step with the session.
func trackLevel(b *discovery.Broadcaster, h *host.Host, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		b.SetLevel(h.Session.LevelIndex(), h.Session.LevelCount())
	}
}
