package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/pkg/log"
)

type StdoutSink struct {
	prettyPrint bool
	out         io.Writer
}

func NewStdoutSink() *StdoutSink {
	return &StdoutSink{
		prettyPrint: true,
		out:         os.Stdout,
	}
}

// NewStdoutSinkTo writes to w instead of stdout.
func NewStdoutSinkTo(w io.Writer, prettyPrint bool) *StdoutSink {
	return &StdoutSink{prettyPrint: prettyPrint, out: w}
}

func (s *StdoutSink) Init(ctx context.Context, config map[string]any) error {
	log.Debugf("StdoutSink Init")

	// Check if pretty print is enabled in the config
	if prettyPrint, ok := config["pretty_print"].(bool); ok {
		s.prettyPrint = prettyPrint
	}

	return nil
}

func (s *StdoutSink) Close() error {
	log.Debugf("StdoutSink Close")
	return nil
}

func (s *StdoutSink) Flush(ctx context.Context) error {
	return nil
}

func (s *StdoutSink) Type() string {
	return TypeStdout
}

func (s *StdoutSink) Write(ctx context.Context, notifications []*models.Notification) error {
	log.Debugf("StdoutSink Write %d notifications", len(notifications))

	if len(notifications) == 0 {
		return nil
	}

	if s.prettyPrint {
		_, err := fmt.Fprint(s.out, s.buildPrettyOutput(notifications))
		return err
	}

	var outputs []string
	for _, n := range notifications {
		data, err := json.Marshal(n)
		if err != nil {
			log.Errorf("Failed to marshal notification %s: %v", n.ID, err)
			continue
		}
		outputs = append(outputs, string(data))
	}
	_, err := fmt.Fprintln(s.out, strings.Join(outputs, "\n"))
	return err
}

func (s *StdoutSink) buildPrettyOutput(notifications []*models.Notification) string {
	var sb strings.Builder

	for i, n := range notifications {
		if i > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString("----------------------------------------\n")
		sb.WriteString(fmt.Sprintf("Notification: %s\n", n.ID))
		sb.WriteString(fmt.Sprintf("Timestamp: %s\n", n.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(strings.TrimRight(n.Text, "\n"))
		sb.WriteString("\n")
		sb.WriteString("----------------------------------------\n")
	}

	return sb.String()
}

var _ Sink = (*StdoutSink)(nil)
