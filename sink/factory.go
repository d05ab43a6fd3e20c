package sink

import (
	"fmt"

	"github.com/web3tea/doma-sentinel/pkg/log"
)

// New builds the sink selected by cfg.Type. Init is left to the caller.
func New(cfg Config, logger log.Logger) (Sink, error) {
	switch cfg.Type {
	case TypeHTTP:
		return NewHTTPSink(cfg.HTTP, logger), nil
	case TypeTelegram:
		return NewTelegramSink(cfg.Telegram, logger), nil
	case TypeNATS:
		return NewNATSSink(cfg.NATS, logger), nil
	case TypeKafka:
		return NewKafkaSink(cfg.Kafka), nil
	case TypeConsole:
		return NewConsoleSink(), nil
	case TypeStdout:
		return NewStdoutSink(), nil
	case TypeDebug:
		return NewDebugSink(), nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", cfg.Type)
	}
}

// Types lists every supported sink type.
func Types() []string {
	return []string{TypeHTTP, TypeTelegram, TypeNATS, TypeKafka, TypeConsole, TypeStdout, TypeDebug}
}
