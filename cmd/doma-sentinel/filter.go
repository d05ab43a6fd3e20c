package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"github.com/web3tea/doma-sentinel/models"
)

var serverFlag = &cli.StringFlag{
	Name:    "server",
	Usage:   "base URL of a running doma-sentinel",
	Value:   "http://localhost:5000",
	Sources: cli.EnvVars("DOMA_SENTINEL_SERVER"),
}

var filterCmd = &cli.Command{
	Name:  "filter",
	Usage: "Inspect or change the filter of a running server",
	Commands: []*cli.Command{
		filterSetCmd,
		filterShowCmd,
	},
}

var filterSetCmd = &cli.Command{
	Name:  "set",
	Usage: "Replace the active filter",
	Flags: []cli.Flag{
		serverFlag,
		&cli.StringFlag{Name: "min-price", Usage: "minimum price in display units, e.g. 0.1"},
		&cli.StringFlag{Name: "max-price", Usage: "maximum price in display units"},
		&cli.StringFlag{Name: "max-letters", Usage: "maximum length of the label without the extension"},
		&cli.StringSliceFlag{Name: "extension", Usage: "allowed suffix, e.g. .xyz (repeatable)"},
		&cli.StringFlag{Name: "keyword", Usage: "case-insensitive substring of the domain"},
		&cli.StringFlag{Name: "seller", Usage: "exact seller address"},
		&cli.BoolFlag{Name: "clear", Usage: "remove every criterion"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := filterFromFlags(c)
		if err != nil {
			return err
		}
		if cfg.IsEmpty() && !c.Bool("clear") {
			return errors.New("no criteria given; pass --clear to remove every filter")
		}

		var resp struct {
			Success bool                `json:"success"`
			Message string              `json:"message"`
			Error   string              `json:"error"`
			Filter  models.FilterConfig `json:"filter"`
		}
		if err := callServer(ctx, http.MethodPost, c.String("server")+"/api/configure-filter", cfg, &resp); err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("server rejected filter: %s", resp.Error)
		}
		fmt.Println(okColor.Sprint(resp.Message))
		renderFilter(os.Stdout, resp.Filter)
		return nil
	},
}

var filterShowCmd = &cli.Command{
	Name:  "show",
	Usage: "Print the active filter",
	Flags: []cli.Flag{serverFlag},
	Action: func(ctx context.Context, c *cli.Command) error {
		var resp struct {
			Filter models.FilterConfig `json:"filter"`
		}
		if err := callServer(ctx, http.MethodGet, c.String("server")+"/api/filter", nil, &resp); err != nil {
			return err
		}
		renderFilter(os.Stdout, resp.Filter)
		return nil
	},
}

func filterFromFlags(c *cli.Command) (models.FilterConfig, error) {
	cfg := models.DefaultFilterConfig()

	if v := c.String("min-price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid --min-price %q: %w", v, err)
		}
		cfg.MinPrice = d
	}
	if v := c.String("max-price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid --max-price %q: %w", v, err)
		}
		cfg.MaxPrice = &d
	}
	if v := c.String("max-letters"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid --max-letters %q: %w", v, err)
		}
		cfg.MaxLetters = &n
	}
	cfg.AllowedExtensions = c.StringSlice("extension")
	cfg.Keyword = c.String("keyword")
	cfg.SellerAddress = c.String("seller")
	return cfg.Normalized(), nil
}

// callServer sends body as JSON and decodes the answer into out. Non-2xx
// answers are decoded too when they carry an error message.
func callServer(ctx context.Context, method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
