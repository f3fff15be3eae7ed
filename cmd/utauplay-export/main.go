// ABOUTME: Batch exporter for utauplay projects
// ABOUTME: Renders projects to WAV without opening an audio device
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Resonate-Protocol/utauplay/internal/app"
	"github.com/Resonate-Protocol/utauplay/internal/config"
	"github.com/Resonate-Protocol/utauplay/internal/logging"
	"github.com/Resonate-Protocol/utauplay/internal/notify"
	"github.com/Resonate-Protocol/utauplay/internal/playback"
	"github.com/Resonate-Protocol/utauplay/internal/project"
	"github.com/Resonate-Protocol/utauplay/internal/render"
	"github.com/Resonate-Protocol/utauplay/pkg/audio/output"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run exports every project named in args and returns the process exit
// code: 0 on success, 1 when any export failed, 2 on usage errors
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("utauplay-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultPath(), "Preferences file")
	out := fs.String("out", "", "Output WAV path (default: next to the project)")
	tracks := fs.Bool("tracks", false, "Export each track to its own file")
	logFile := fs.String("log-file", "", "Log file path")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: utauplay-export [flags] project.yaml...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if *out != "" && fs.NArg() > 1 {
		fmt.Fprintln(stderr, "error: -out needs exactly one project")
		return 2
	}

	prefs, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	level := "info"
	if *debug {
		level = "debug"
	}
	logger, closer, err := logging.New(logging.Options{Level: level, File: *logFile, Console: true})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := &notify.Recorder{}
	m := playback.NewManager(playback.Config{
		Sink: output.NewDummy(),
		Engine: render.NewFileEngine(render.Config{
			CacheDir:    prefs.Render.CacheDir,
			Parallelism: prefs.Render.Parallelism,
			Logger:      logger,
		}),
		Events: events,
		Logger: logger,
	})
	defer m.Close()

	failed := 0
	for _, path := range fs.Args() {
		p, err := project.Load(path)
		if err != nil {
			logger.Error("failed to load project", "path", path, "err", err)
			failed++
			continue
		}
		target := *out
		if target == "" {
			target = app.ExportPath(p)
		}

		if *tracks {
			err = m.RenderToFiles(ctx, p, target)
		} else {
			err = m.RenderMixdown(ctx, p, target)
		}
		if err != nil {
			logger.Error("export failed", "project", p.Name, "err", err)
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	for _, e := range events.Events() {
		if s, ok := e.(notify.ExportSucceeded); ok {
			fmt.Fprintln(stdout, s.Path)
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}
