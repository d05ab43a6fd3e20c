package main

import (
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor/transformer"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.FgHiCyan}},
		{Number: 2, WidthMax: 80},
	})
	return t
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func renderRecord(w io.Writer, rec *models.Record) {
	t := newTable(w, "Extracted Record")
	t.AppendRows([]table.Row{
		{"Name", dash(rec.DomainName)},
		{"Type", dash(rec.EventType)},
		{"Price", transformer.FormatPrice(rec)},
		{"Created", dash(rec.CreatedAt)},
		{"Transaction", dash(rec.TransactionHash)},
		{"Seller", dash(rec.SellerAddress)},
		{"Token", dash(rec.TokenAddress)},
	})
	t.Render()
}

func renderFilter(w io.Writer, cfg models.FilterConfig) {
	maxPrice, maxLetters := "unbounded", "any"
	if cfg.MaxPrice != nil {
		maxPrice = cfg.MaxPrice.String()
	}
	if cfg.MaxLetters != nil && *cfg.MaxLetters > 0 {
		maxLetters = strconv.Itoa(*cfg.MaxLetters)
	}
	extensions := "any"
	if len(cfg.AllowedExtensions) > 0 {
		extensions = strings.Join(cfg.AllowedExtensions, ", ")
	}

	t := newTable(w, "Active Filter")
	t.AppendRows([]table.Row{
		{"Min price", cfg.MinPrice.String()},
		{"Max price", maxPrice},
		{"Max letters", maxLetters},
		{"Extensions", extensions},
		{"Keyword", dash(cfg.Keyword)},
		{"Seller", dash(cfg.SellerAddress)},
	})
	t.Render()
}
