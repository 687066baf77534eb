// theatremix-display shows the last cue fired on a TheatreMix console.
//
// Usage:
//
//	theatremix-display [flags] [host]
//
// A host given on the command line replaces the stored one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/zenibako/theatremix-display/config"
	"github.com/zenibako/theatremix-display/display"
	"github.com/zenibako/theatremix-display/messages"
	"github.com/zenibako/theatremix-display/metrics"
	"github.com/zenibako/theatremix-display/theatremix"
)

func main() {
	os.Exit(run())
}

func run() int {
	logFile := flag.String("log-file", "", "log file (default: display.log in the config directory)")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics and /healthz on this address (empty: disabled)")
	rebindRetry := flag.Duration("rebind-retry", 0, "re-resolve the host at most this often after losing it (0: wait for a host change)")
	port := flag.Int("port", messages.Port, "console OSC port")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [host]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfgPath, err := config.Path()
	if err != nil {
		fmt.Fprintf(os.Stderr, "theatremix-display: %v (host will not be saved)\n", err)
		cfgPath = ""
	}

	logger, closeLog, err := openLog(*logFile, cfgPath, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "theatremix-display: %v\n", err)
		return 1
	}
	defer closeLog()

	host := config.InitialHost(flag.Arg(0), cfgPath, logger)
	logger.Info("Starting", "host", host, "port", *port, "config", cfgPath)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg)

	ch := theatremix.NewChannels()
	agent := theatremix.NewAgent(host, ch.Events, ch.Commands,
		theatremix.WithLogger(logger),
		theatremix.WithPort(*port),
		theatremix.WithMetrics(collector),
		theatremix.WithRebindRetry(*rebindRetry),
	)

	model := display.New(display.Config{
		Host:       host,
		Events:     ch.Events,
		Commands:   ch.Commands,
		ConfigPath: cfgPath,
		Port:       *port,
		Viewport:   display.NewTerminalViewport(logger),
		Logger:     logger,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := agent.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent: %w", err)
		}
		return nil
	})

	if *metricsAddr != "" {
		g.Go(func() error {
			logger.Info("Serving metrics", "addr", *metricsAddr)
			return metrics.Serve(ctx, *metricsAddr, metrics.Router(reg))
		})
	}

	if cfgPath != "" {
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
				logger.Warn("Not watching host file", "error", err)
				return nil
			}
			err := config.Watch(ctx, cfgPath, func(h string) {
				program.Send(display.HostFileChangedMsg{Host: h})
			}, logger)
			if err != nil {
				logger.Warn("Host file watcher stopped", "error", err)
			}
			return nil
		})
	}

	var uiErr error
	g.Go(func() error {
		defer ch.Commands.Close()
		defer stop()
		if _, err := program.Run(); err != nil {
			uiErr = err
			return fmt.Errorf("display: %w", err)
		}
		return nil
	})

	// a signal or a failed component stops the display too
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	err = g.Wait()
	if err != nil {
		logger.Error("Exiting", "error", err)
	}
	if uiErr != nil {
		fmt.Fprintf(os.Stderr, "theatremix-display: %v\n", uiErr)
		return 1
	}
	if err != nil {
		return 1
	}
	logger.Info("Stopped")
	return 0
}

// openLog sends logs to a file, since the display owns the terminal.
func openLog(path, cfgPath, level string) (*log.Logger, func(), error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	if path == "" {
		if cfgPath == "" {
			logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
			return logger, func() {}, nil
		}
		path = filepath.Join(filepath.Dir(cfgPath), "display.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.StampMilli,
	})
	log.SetDefault(logger)
	return logger, func() { f.Close() }, nil
}
