package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mudlink/lifeline/internal/bouncer"
	"github.com/mudlink/lifeline/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	upstream := flag.String("upstream", "", "upstream address, overrides the config file")
	listen := flag.String("listen", "", "client listen address, overrides the config file")
	flag.Parse()

	logger := observability.InitLogger("bouncerctl")

	cfg := bouncer.DefaultConfig()
	if *configPath != "" {
		loaded, err := loadBouncerConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bouncerctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *upstream != "" {
		cfg.UpstreamAddr = *upstream
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	srv, err := bouncer.NewServer(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bouncerctl: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bouncerctl: %v\n", err)
		os.Exit(1)
	}
}
