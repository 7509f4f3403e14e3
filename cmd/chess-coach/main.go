package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/app"
	"github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/obslog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(obslog.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Console: cfg.LogToConsole,
		ToFile:  cfg.LogToFile,
		File:    cfg.LogFile,
		Caller:  cfg.LogCaller,
	}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("app_init_failed", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = deps.Close() }()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deps.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("server_listening", zap.String("addr", cfg.HTTPAddr))
	_, port, _ := net.SplitHostPort(cfg.HTTPAddr)
	for _, ip := range lanIPv4() {
		logger.Info("lan_access", zap.String("url", "http://"+net.JoinHostPort(ip, port)))
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown", zap.Error(err))
	}
	logger.Info("server_stopped")
}

// lanIPv4 lists non-loopback IPv4 addresses, deduplicated.
func lanIPv4() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || seen[ip4.String()] {
			continue
		}
		seen[ip4.String()] = true
		out = append(out, ip4.String())
	}
	return out
}
