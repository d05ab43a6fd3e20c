package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/web3tea/doma-sentinel/extractor"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor/filter"
	"github.com/web3tea/doma-sentinel/processor/transformer"
)

var extractCmd = &cli.Command{
	Name:      "extract",
	Usage:     "Extract a record from a JSON event or poll response and check it against the configured filter",
	ArgsUsage: "[file|-]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "print the record as JSON"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		in := io.Reader(os.Stdin)
		if name := c.Args().First(); name != "" && name != "-" {
			f, err := os.Open(name)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		rec, err := extractFrom(in)
		if err != nil {
			return err
		}

		if c.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}

		renderRecord(os.Stdout, rec)
		fmt.Println(transformer.NewFormatter(cfg.Explorer.URL).Format(rec, ""))

		if criterion := filter.Rejection(rec, cfg.Processor.Filter.Normalized()); criterion != "" {
			fmt.Println(warnColor.Sprintf("would be filtered by %s", criterion))
		} else {
			fmt.Println(okColor.Sprint("would be sent"))
		}
		return nil
	},
}

// extractFrom accepts either a single event or a response with an events array.
func extractFrom(r io.Reader) (*models.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}
	if _, ok := doc["events"]; ok {
		rec, found := extractor.ExtractResponse(doc)
		if !found {
			return nil, fmt.Errorf("response carries no events")
		}
		return rec, nil
	}
	return extractor.Extract(doc), nil
}
