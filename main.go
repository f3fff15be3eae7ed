// ABOUTME: Entry point for the utauplay player
// ABOUTME: Parses CLI flags, builds services and runs the TUI or streaming logs
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/utauplay/internal/app"
	"github.com/Resonate-Protocol/utauplay/internal/config"
	"github.com/Resonate-Protocol/utauplay/internal/logging"
	"github.com/Resonate-Protocol/utauplay/internal/version"
	"github.com/charmbracelet/log"
)

var (
	configPath  = flag.String("config", config.DefaultPath(), "Preferences file")
	projectPath = flag.String("project", "", "Project file to load")
	logFile     = flag.String("log-file", "", "Log file path (default from preferences)")
	logLevel    = flag.String("log-level", "", "Log level: none, error, warn, info, debug")
	backend     = flag.String("backend", "", "Audio backend: auto, portaudio, malgo, oto, dummy")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
	export      = flag.Bool("export", false, "Render the project mixdown to WAV and exit")
	exportParts = flag.Bool("export-tracks", false, "Render each track to its own WAV and exit")
	listDevices = flag.Bool("list-devices", false, "List output devices and exit")
	testSound   = flag.Bool("test-sound", false, "Play a test tone on the selected device and exit")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	prefs, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *backend != "" {
		prefs.Playback.Backend = *backend
	}
	if *logFile != "" {
		prefs.Log.File = *logFile
	}
	if *logLevel != "" {
		prefs.Log.Level = *logLevel
	}

	batch := *export || *exportParts || *listDevices || *testSound
	useTUI := !(*noTUI || *streamLogs || batch)

	// TUI mode: log only to file. Streaming mode: stdout and file.
	logger, closer, err := logging.New(logging.Options{
		Level:   prefs.Log.Level,
		File:    prefs.Log.File,
		Console: !useTUI,
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	log.SetDefault(logger)

	a := app.New(app.Config{Prefs: prefs, Logger: logger})
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("error during shutdown", "err", err)
		}
	}()

	if *listDevices {
		for _, d := range a.Playback().Devices() {
			fmt.Printf("%d\t%s\t%s\t%s\n", d.DeviceNumber, d.API, d.ID, d.Name)
		}
		return nil
	}
	if *testSound {
		a.Playback().PlayTestSound()
		time.Sleep(1200 * time.Millisecond)
		return nil
	}

	if err := a.Start(); err != nil {
		logger.Warn("singer watching disabled", "err", err)
	}
	if *projectPath != "" {
		if err := a.LoadProject(*projectPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *export || *exportParts:
		return a.Export(ctx, *exportParts)
	case useTUI:
		return a.RunTUI()
	default:
		logger.Info("TUI disabled, streaming logs", "version", version.Version)
		return a.RunHeadless(ctx)
	}
}
