package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/config"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML or TOML config file")
	port := flag.String("port", "", "Server port (overrides PORT)")
	host := flag.String("host", "", "Bind host (overrides HOST)")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	open := flag.Bool("open", false, "Open the page in a browser once listening")
	flag.Parse()

	boot := logging.NewDefault()

	cfg, err := config.Resolve(*configPath, ".env", ".env.local")
	if err != nil {
		boot.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if *open {
		cfg.Server.OpenBrowser = true
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		boot.Fatal("Failed to create server", zap.Error(err))
	}
	defer srv.Close()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		boot.Fatal("Failed to listen", zap.String("addr", cfg.Addr()), zap.Error(err))
	}

	if cfg.Server.OpenBrowser {
		url := "http://" + ln.Addr().String() + "/"
		if err := browser.OpenURL(url); err != nil {
			boot.Warn("Failed to open browser", zap.String("url", url), zap.Error(err))
		}
	}

	if err := srv.Serve(ctx, ln); err != nil {
		boot.Error("Server error", zap.Error(err))
		srv.Close()
		os.Exit(1)
	}
}
