// framecap server - periodically captures the screen, keeps recent frames and
// serves them over HTTP, WebSocket and gRPC
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/GriffinCanCode/framecap/internal/capture"
	"github.com/GriffinCanCode/framecap/internal/config"
	"github.com/GriffinCanCode/framecap/internal/diskwatch"
	"github.com/GriffinCanCode/framecap/internal/events"
	"github.com/GriffinCanCode/framecap/internal/frames"
	"github.com/GriffinCanCode/framecap/internal/imagecodec"
	"github.com/GriffinCanCode/framecap/internal/query"
	"github.com/GriffinCanCode/framecap/internal/rpc"
	"github.com/GriffinCanCode/framecap/internal/screen"
	"github.com/GriffinCanCode/framecap/internal/server"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options
	fs := newFlagSet(&opts)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup structured logging
	slog.SetDefault(newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Capture pipeline
	bus := events.NewBus()
	store := frames.NewStore(cfg.Capacity)
	ctrl := capture.NewController(capture.Deps{
		Grabber: screen.NewCapturer(screen.System(), cfg.Display, cfg.CaptureTimeout),
		Encoder: imagecodec.NewPNG(cfg.MaxWidth, cfg.PNGCompression),
		Store:   store,
		Events:  bus,
	}, capture.Options{
		OutputDir: cfg.OutputDir,
		Interval:  cfg.CaptureInterval,
	})
	queries := query.New(store, cfg.OutputDir, cfg.RecentLimit)

	if cfg.WatchOutputDir {
		watcher, err := diskwatch.New(cfg.OutputDir, bus)
		if err != nil {
			slog.Warn("output directory watch disabled", "dir", cfg.OutputDir, "error", err)
		} else {
			go func() { _ = watcher.Run(ctx) }()
		}
	}

	// Create HTTP/WebSocket server
	srv := server.New(ctrl, queries, bus, cfg)
	defer srv.Close()

	// Responses carry up to the whole frame directory and /ws streams
	// indefinitely, so only header reads are bounded.
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("http server starting", "addr", cfg.HTTPAddr, "output_dir", cfg.OutputDir)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
		grpcServer = rpc.NewServer(rpc.NewService(ctrl, queries), grpc.MaxSendMsgSize(rpc.MessageLimit(cfg.Capacity)))
		go func() {
			slog.Info("grpc server starting", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info("shutting down...", "signal", sig.String())
	case runErr = <-errCh:
		slog.Error("server failed, shutting down", "error", runErr)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	ctrl.Close()

	slog.Info("shutdown complete")
	return runErr
}
