package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amalg/go-dungeon/internal/config"
	"github.com/amalg/go-dungeon/internal/discovery"
	"github.com/amalg/go-dungeon/internal/network"
	"github.com/amalg/go-dungeon/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "Server address (e.g., 192.168.1.5:9999)")
	wsURL := flag.String("ws", "", "WebSocket URL (e.g., ws://192.168.1.5:8080/ws)")
	browse := flag.Bool("browse", false, "Join the first free session found on the LAN")
	name := flag.String("name", "Player", "Your player name")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *browse {
		found, err := browseSessions(3 * time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Browse failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Found %s on %s (level %d/%d)\n", found.Name, found.HostName, found.Level+1, found.LevelCount)
		*addr = found.GameAddr
	}

	if *addr == "" && *wsURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: client --addr <host:port> | --ws <url> | --browse [--name <name>]")
		fmt.Fprintln(os.Stderr, "  Example: client --addr 192.168.1.5:9999 --name Alice")
		os.Exit(1)
	}

	var client *network.Client
	if *wsURL != "" {
		fmt.Printf("Connecting to %s as %s...\n", *wsURL, *name)
		client, err = network.DialWS(*wsURL, *name)
	} else {
		fmt.Printf("Connecting to %s as %s...\n", *addr, *name)
		client, err = network.Dial(*addr, *name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("Connected! Player ID: %s\n", client.PlayerID())

	model := ui.NewModel(client, cfg.UI.FrameInterval())
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// browseSessions listens for advertisements until a free session shows up
// or the wait runs out.
func browseSessions(wait time.Duration) (discovery.SessionInfo, error) {
	l := discovery.NewListener()
	if err := l.Start(); err != nil {
		return discovery.SessionInfo{}, err
	}
	defer l.Stop()

	fmt.Println("Looking for sessions...")
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if s, ok := l.Available(); ok {
			return s, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if len(l.Sessions()) > 0 {
		return discovery.SessionInfo{}, network.ErrSessionOccupied
	}
	return discovery.SessionInfo{}, fmt.Errorf("no sessions found within %s", wait)
}
