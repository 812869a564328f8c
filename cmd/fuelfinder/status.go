package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mar156-star/fuel-finder-backend/internal/config"
	"github.com/mar156-star/fuel-finder-backend/internal/fuelfinder"
)

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check connectivity to the fuel data provider",
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	finder := newFinder(cfg, fuelfinder.Options{})

	st, err := finder.Status(c.Context)
	if err != nil {
		return fmt.Errorf("provider check failed: %w", err)
	}

	fmt.Println("Token: OK")
	fmt.Printf("Stations: %d\n", st.Stations)
	fmt.Printf("Prices: %d\n", st.Prices)
	return nil
}
