package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/mudlink/lifeline/internal/lifeline"
	"github.com/mudlink/lifeline/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	target := flag.String("target", "", "bouncer address, overrides the config file")
	flag.Parse()

	logger := observability.InitLogger("lifelinectl")

	cfg := defaultClientConfig()
	if *configPath != "" {
		loaded, err := loadClientConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lifelinectl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *target != "" {
		cfg.Target = *target
	}

	if err := run(context.Background(), logger, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "lifelinectl: %v\n", err)
		os.Exit(1)
	}
}

// run bridges stdin/stdout to the lifeline socket: stdin lines go upstream,
// session output goes to stdout, reconnects happen underneath without
// disturbing either.
func run(ctx context.Context, logger zerolog.Logger, cfg clientConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sock, err := lifeline.New(cfg.Target,
		lifeline.WithConfig(cfg.Socket),
		lifeline.WithLogger(logger),
		lifeline.WithOnOpen(func() {
			logger.Info().Str("target", cfg.Target).Msg("session open")
		}),
		lifeline.WithOnMessage(func(payload []byte) {
			_, _ = os.Stdout.Write(payload)
		}),
		lifeline.WithOnClose(func() {
			logger.Info().Msg("session closed")
		}),
		lifeline.WithOnError(func(err error) {
			logger.Error().Err(err).Msg("session failed")
		}),
	)
	if err != nil {
		return err
	}
	defer sock.Close()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := make([]byte, 0, len(scanner.Bytes())+1)
			line = append(line, scanner.Bytes()...)
			line = append(line, '\n')
			sock.Send(line)
		}
		sock.Close()
	}()

	return sock.Run(ctx)
}
