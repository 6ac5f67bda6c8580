package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rschre/gvsprecv/internal/config"
	"github.com/rschre/gvsprecv/internal/gvsp"
	"github.com/rschre/gvsprecv/internal/server"
	"github.com/rschre/gvsprecv/internal/sink"
)

var version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve", "start":
		serve()
	case "version":
		fmt.Printf("gvsprecv v%s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serve() {
	cfgPath := "gvsprecv.yaml"
	if len(os.Args) > 2 {
		cfgPath = os.Args[2]
	}

	logger, startupCloser := setupLogger("info", "json", "stdout")
	if startupCloser != nil {
		defer startupCloser.Close()
	}
	logger.Info("gvsprecv starting", "version", version)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if startupCloser != nil {
		_ = startupCloser.Close()
		startupCloser = nil
	}
	logger, logCloser := setupLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if logCloser != nil {
		defer logCloser.Close()
	}

	receiver := gvsp.New(logger)
	receiver.SetVerbose(cfg.Receiver.Verbose)
	receiver.SetWarnings(cfg.Receiver.Warnings)

	if _, err := receiver.CreateSocket(cfg.Receiver.HostAddr); err != nil {
		logger.Error("failed to create socket", "error", err)
		os.Exit(1)
	}
	if err := receiver.CreateBuffer(cfg.Receiver.PayloadSize, cfg.Receiver.PacketSize); err != nil {
		logger.Error("failed to create frame buffer", "error", err)
		os.Exit(1)
	}

	var broadcast *sink.BroadcastSink
	if cfg.Sink.BroadcastEnabled {
		broadcast = sink.NewBroadcastSink(logger)
		receiver.SetFrameCallback(gvsp.FrameCallbackFunc(sink.Adapt(broadcast)))
	}

	if err := receiver.StartReceive(cfg.Receiver.PeerAddr); err != nil {
		logger.Error("failed to start receive loop", "error", err)
		os.Exit(1)
	}

	var srv *server.Server
	if cfg.Observability.Enabled {
		if broadcast != nil {
			srv = server.New(&cfg.Observability, receiver, broadcast, cfg.Sink.BroadcastPath, logger)
		} else {
			srv = server.New(&cfg.Observability, receiver, nil, "", logger)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// SIGUSR1 dumps receiver stats instead of reloading worker processes —
	// there is no worker pool here, only the receive loop's own counters.
	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)
	go func() {
		for range dump {
			stats := receiver.Stats()
			logger.Info("receiver stats",
				"frames_delivered", stats.FramesDelivered,
				"frames_dropped", stats.FramesDropped,
				"packets_received", stats.PacketsReceived,
			)
		}
	}()

	if srv != nil {
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("observability server error", "error", err)
			}
		}()
	}

	logger.Info("gvsprecv ready", "host_addr", cfg.Receiver.HostAddr, "peer_addr", cfg.Receiver.PeerAddr)

	<-quit
	logger.Info("shutdown signal received")

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Stop(ctx); err != nil {
			logger.Error("observability server shutdown error", "error", err)
		}
		cancel()
	}

	// Stop, then free, then close: StopReceive waits for the receive loop
	// to observe receiving=false before FreeBuffer or CloseSocket can run
	// safely out from under it.
	if err := receiver.StopReceive(); err != nil {
		logger.Error("stop receive error", "error", err)
	}
	if err := receiver.FreeBuffer(); err != nil {
		logger.Error("free buffer error", "error", err)
	}
	if err := receiver.CloseSocket(); err != nil {
		logger.Error("close socket error", "error", err)
	}

	logger.Info("gvsprecv stopped")
}

func setupLogger(level, format, output string) (*slog.Logger, io.Closer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	writer, closer := resolveLogOutput(output)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler), closer
}

func resolveLogOutput(output string) (io.Writer, io.Closer) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return os.Stdout, nil
		}
		return f, f
	}
}

func printUsage() {
	fmt.Println(`gvsprecv - GigE Vision Streaming Protocol receiver

Usage:
  gvsprecv <command> [options]

Commands:
  serve [config]   Start the receiver (default config: gvsprecv.yaml)
  start [config]   Alias for serve
  version          Show version
  help             Show this help

Signals:
  SIGUSR1          Log current receiver stats
  SIGINT/SIGTERM   Graceful shutdown

Examples:
  gvsprecv serve
  gvsprecv serve /etc/gvsprecv/gvsprecv.yaml
  gvsprecv version
  kill -USR1 $(pidof gvsprecv)   # Dump stats`)
}
