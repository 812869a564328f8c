package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/urfave/cli/v2"

	"github.com/mar156-star/fuel-finder-backend/internal/config"
	"github.com/mar156-star/fuel-finder-backend/internal/fuelfinder"
	"github.com/mar156-star/fuel-finder-backend/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port (overrides PORT)",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}

	logger := httplog.NewLogger("fuelfinder", httplog.Options{
		JSON:            true,
		LogLevel:        slog.LevelInfo,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	finder := newFinder(cfg, fuelfinder.Options{Logger: logger.Logger})
	srv := server.New(finder, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("starting server", "addr", addr)

	return http.ListenAndServe(addr, srv)
}
