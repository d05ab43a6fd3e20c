package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor/transformer"
)

// ConsoleSink implements the Sink interface to output notifications to the console in a pretty table format
type ConsoleSink struct {
	// whether to use colored output
	colorEnabled bool
	// unified table style
	tableStyle table.Style
	// max column width for truncation
	maxColumnWidth int
	out            io.Writer
}

// ConsoleSinkOption defines functional options for ConsoleSink
type ConsoleSinkOption func(*ConsoleSink)

// WithColorOutput enables or disables colored output
func WithColorOutput(enabled bool) ConsoleSinkOption {
	return func(s *ConsoleSink) {
		s.colorEnabled = enabled
	}
}

// WithMaxColumnWidth sets the maximum column width for truncation
func WithMaxColumnWidth(width int) ConsoleSinkOption {
	return func(s *ConsoleSink) {
		if width > 3 {
			s.maxColumnWidth = width
		}
	}
}

// WithConsoleOutput redirects the rendered tables, stdout by default
func WithConsoleOutput(w io.Writer) ConsoleSinkOption {
	return func(s *ConsoleSink) {
		if w != nil {
			s.out = w
		}
	}
}

// NewConsoleSink creates a new console sink
func NewConsoleSink(options ...ConsoleSinkOption) *ConsoleSink {
	customStyle := table.Style{
		Name: "Doma-Custom",
		Box: table.BoxStyle{
			BottomLeft:       "└",
			BottomRight:      "┘",
			BottomSeparator:  "┴",
			Left:             "│",
			LeftSeparator:    "├",
			MiddleHorizontal: "─",
			MiddleSeparator:  "┼",
			MiddleVertical:   "│",
			PaddingLeft:      " ",
			PaddingRight:     " ",
			Right:            "│",
			RightSeparator:   "┤",
			TopLeft:          "┌",
			TopRight:         "┐",
			TopSeparator:     "┬",
			UnfinishedRow:    "...",
		},
		Options: table.Options{
			DrawBorder:      true,
			SeparateColumns: true,
			SeparateFooter:  true,
			SeparateHeader:  true,
			SeparateRows:    false,
		},
		Title: table.TitleOptions{
			Align:  text.AlignCenter,
			Colors: text.Colors{text.FgHiWhite, text.Bold},
		},
		Color: table.ColorOptions{
			Header: text.Colors{text.FgHiWhite, text.Bold},
			Row:    text.Colors{},
			Footer: text.Colors{text.FgHiWhite, text.Bold},
		},
	}

	sink := &ConsoleSink{
		colorEnabled:   true,
		tableStyle:     customStyle,
		maxColumnWidth: 80,
		out:            os.Stdout,
	}

	for _, option := range options {
		option(sink)
	}

	return sink
}

// Init implements Sink.
func (s *ConsoleSink) Init(ctx context.Context, config map[string]any) error {
	if enabled, ok := config["color"].(bool); ok {
		s.colorEnabled = enabled
	}
	switch width := config["max_column_width"].(type) {
	case int64:
		WithMaxColumnWidth(int(width))(s)
	case float64:
		WithMaxColumnWidth(int(width))(s)
	case int:
		WithMaxColumnWidth(width)(s)
	}
	return nil
}

// Write outputs notifications to the console
func (s *ConsoleSink) Write(ctx context.Context, notifications []*models.Notification) error {
	for _, n := range notifications {
		s.writeNotificationTable(n)
	}
	return nil
}

func (s *ConsoleSink) writeNotificationTable(n *models.Notification) {
	nameColor := color.New(color.FgCyan, color.Bold).SprintFunc()
	priceColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	missingColor := color.New(color.FgYellow).SprintFunc()
	linkColor := color.New(color.FgBlue).SprintFunc()

	if !s.colorEnabled {
		nameColor = fmt.Sprint
		priceColor = fmt.Sprint
		missingColor = fmt.Sprint
		linkColor = fmt.Sprint
	}

	rec := n.Record
	if rec == nil {
		rec = &models.Record{}
	}

	price := transformer.FormatPrice(rec)
	if rec.HasPrice() {
		price = priceColor(price)
	} else {
		price = missingColor(price)
	}

	rows := []table.Row{
		{"Notification", n.ID},
		{"Domain", nameColor(s.valueOrDash(rec.DomainName))},
		{"Type", s.valueOrDash(rec.EventType)},
		{"Price", price},
		{"Created", s.valueOrDash(rec.CreatedAt)},
	}
	if rec.TransactionHash != "" {
		rows = append(rows, table.Row{"Transaction", linkColor(s.truncateString(rec.TransactionHash))})
	}
	if rec.SellerAddress != "" {
		rows = append(rows, table.Row{"Seller", s.truncateString(rec.SellerAddress)})
	}
	if rec.TokenAddress != "" {
		rows = append(rows, table.Row{"Token", linkColor(s.truncateString(rec.TokenAddress))})
	}

	summaryTable := table.NewWriter()
	summaryTable.AppendRows(rows)
	summaryTable.SetStyle(s.tableStyle)
	summaryTable.Style().Options.DrawBorder = false

	eventTable := table.NewWriter()
	eventTable.SetOutputMirror(s.out)
	eventTable.AppendRow(table.Row{summaryTable.Render()})

	if n.Text != "" {
		eventTable.AppendRow(table.Row{""})
		eventTable.AppendRow(table.Row{text.Bold.Sprint("Message")})
		eventTable.AppendRow(table.Row{strings.TrimRight(n.Text, "\n")})
	}

	eventTable.SetStyle(s.tableStyle)
	eventTable.SetTitle(fmt.Sprintf("%s %s", s.valueOrDash(rec.EventType), s.valueOrDash(rec.DomainName)))

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, strings.Repeat("─", 100))
	eventTable.Render()
	fmt.Fprintln(s.out)
}

func (s *ConsoleSink) valueOrDash(v string) string {
	if v == "" {
		return "-"
	}
	return s.truncateString(v)
}

// truncateString truncates a string if it's longer than maxColumnWidth
func (s *ConsoleSink) truncateString(str string) string {
	if len(str) <= s.maxColumnWidth {
		return str
	}
	return str[:s.maxColumnWidth-3] + "..."
}

// Flush implements the Sink interface, no buffering for console output
func (s *ConsoleSink) Flush(ctx context.Context) error {
	return nil
}

// Close implements the Sink interface
func (s *ConsoleSink) Close() error {
	return nil
}

// Type returns the type of this sink
func (s *ConsoleSink) Type() string {
	return TypeConsole
}

var _ Sink = (*ConsoleSink)(nil)
