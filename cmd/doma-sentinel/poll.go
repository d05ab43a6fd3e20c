package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/do/v2"
	"github.com/urfave/cli/v3"
	"github.com/web3tea/doma-sentinel/di"
	"github.com/web3tea/doma-sentinel/sentinel"
	"github.com/web3tea/doma-sentinel/sink"
)

var pollCmd = &cli.Command{
	Name:  "poll",
	Usage: "Run a single poll cycle and print the result",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "print notifications to stdout and leave the upstream cursor untouched",
		},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if c.Bool("dry-run") {
			cfg.Sink = sink.Config{Type: sink.TypeStdout}
			cfg.Poller.SkipAck = true
		}

		injector := di.SetupContainerWithConfig(cfg)
		defer func() { _ = di.Close(injector) }()

		poller, err := do.Invoke[*sentinel.Sentinel](injector)
		if err != nil {
			return fmt.Errorf("failed to setup poller: %w", err)
		}

		report, runErr := poller.RunOnce(ctx)
		renderReport(report)
		return runErr
	},
}

func renderReport(r sentinel.CycleReport) {
	result := r.Result()
	switch result {
	case sentinel.ResultOK:
		result = okColor.Sprint(result)
	case sentinel.ResultEmpty:
		result = warnColor.Sprint(result)
	default:
		result = errColor.Sprint(result)
	}

	acked := fmt.Sprint(r.Acked)
	if r.AckErr != nil {
		acked = errColor.Sprint(r.AckErr.Error())
	}

	t := newTable(os.Stdout, "Poll Cycle")
	t.AppendRows([]table.Row{
		{"Result", result},
		{"Fetched", r.Fetched},
		{"Delivered", r.Delivered},
		{"Filtered", r.Filtered},
		{"Last ID", dash(r.LastID)},
		{"Acknowledged", acked},
		{"Duration", r.Duration.String()},
	})
	t.Render()
}
