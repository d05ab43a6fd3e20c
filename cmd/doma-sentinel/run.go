package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"github.com/web3tea/doma-sentinel/api"
	"github.com/web3tea/doma-sentinel/di"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/sentinel"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "Serve the control API and poll the feed",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "autostart",
			Usage: "start polling right away instead of waiting for /api/polling/toggle",
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "API listen address, overrides api.addr",
		},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.Bool("autostart") {
			cfg.Poller.Autostart = true
		}
		if addr := c.String("addr"); addr != "" {
			cfg.API.Addr = addr
		}

		injector := di.SetupContainerWithConfig(cfg)
		defer func() {
			if err := di.Close(injector); err != nil {
				log.Errorf("Shutdown: %v", err)
			}
		}()

		server, err := do.Invoke[*api.Server](injector)
		if err != nil {
			return fmt.Errorf("failed to setup API server: %w", err)
		}
		poller := do.MustInvoke[*sentinel.Sentinel](injector)

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Run(gctx)
		})

		if cfg.Poller.Autostart {
			if err := poller.Start(gctx); err != nil {
				stop()
				_ = g.Wait()
				return fmt.Errorf("failed to start poller: %w", err)
			}
		}

		log.Infof("Doma sentinel started, api on %s, polling %s", cfg.API.Addr, poller.Status())

		if err := g.Wait(); err != nil {
			return err
		}
		log.Infof("Doma sentinel stopped")
		return nil
	},
}
