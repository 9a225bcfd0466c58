package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/amalg/go-dungeon/internal/config"
	"github.com/amalg/go-dungeon/internal/host"
	"github.com/amalg/go-dungeon/internal/logging"
	"github.com/amalg/go-dungeon/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	levelPath := flag.String("level", "", "Level document (default: embedded)")
	watch := flag.Bool("watch", false, "Reload the level document when it changes")
	savePath := flag.String("save", "", "Save file path")
	logFile := flag.String("log", "", "Log file path (default: no logging)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *levelPath != "" {
		cfg.Level.Path = *levelPath
	}
	if *watch {
		cfg.Level.Watch = true
	}
	if *savePath != "" {
		cfg.Save.Backend = config.BackendFile
		cfg.Save.Path = *savePath
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	// Anything written to the terminal corrupts the TUI, so without a log
	// file the logger discards everything.
	log, err := logging.ForTUI(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	h, err := host.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	if err := h.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to watch level: %v\n", err)
		os.Exit(1)
	}

	h.Session.Load(ctx)
	driver := ui.NewLocalDriver(h.Session)
	defer driver.Close()

	model := ui.NewModel(driver, cfg.UI.FrameInterval())
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Session.Save(saveCtx); err != nil {
		log.Warn("save on exit failed", zap.Error(err))
	}
}
