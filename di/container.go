package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/do/v2"
	"github.com/web3tea/doma-sentinel/api"
	"github.com/web3tea/doma-sentinel/capturer"
	"github.com/web3tea/doma-sentinel/config"
	"github.com/web3tea/doma-sentinel/metrics"
	"github.com/web3tea/doma-sentinel/pkg/log"
	"github.com/web3tea/doma-sentinel/processor"
	"github.com/web3tea/doma-sentinel/processor/filter"
	"github.com/web3tea/doma-sentinel/processor/transformer"
	"github.com/web3tea/doma-sentinel/relay"
	"github.com/web3tea/doma-sentinel/sentinel"
	"github.com/web3tea/doma-sentinel/sink"
	"github.com/web3tea/doma-sentinel/store"
)

// Names of the two sink/relay pairs: the poller relays what it fetches, the
// API receiver delivers what is posted to /api/trigger-telegram.
const (
	PollerSink    = "sink.poller"
	ReceiverSink  = "sink.receiver"
	PollerRelay   = "relay.poller"
	ReceiverRelay = "relay.receiver"
)

type closer struct {
	name  string
	close func() error
}

// closers records what the providers built so Close only touches those.
type closers struct {
	mu  sync.Mutex
	all []closer
}

func (c *closers) add(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = append(c.all, closer{name: name, close: fn})
}

func SetupContainer(cfgPath string) do.Injector {
	injector := do.New()

	do.ProvideNamedValue(injector, "configPath", cfgPath)
	do.Provide(injector, NewConfig)
	provideComponents(injector)

	return injector
}

// SetupContainerWithConfig is SetupContainer for an already loaded config.
func SetupContainerWithConfig(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	provideComponents(injector)

	return injector
}

func provideComponents(i do.Injector) {
	do.ProvideValue(i, &closers{})
	do.Provide(i, NewLogger)
	do.Provide(i, NewStore)
	do.Provide(i, NewCapturer)
	do.Provide(i, NewMetrics)
	do.Provide(i, NewEngine)
	do.Provide(i, NewProcessor)
	do.Provide(i, NewFormatter)
	do.ProvideNamed(i, PollerSink, func(i do.Injector) (sink.Sink, error) {
		return newSink(i, PollerSink, do.MustInvoke[*config.Config](i).Sink)
	})
	do.ProvideNamed(i, ReceiverSink, func(i do.Injector) (sink.Sink, error) {
		return newSink(i, ReceiverSink, do.MustInvoke[*config.Config](i).API.Sink)
	})
	do.ProvideNamed(i, PollerRelay, func(i do.Injector) (*relay.Relay, error) {
		return newRelay(i, PollerSink, metrics.StagePoller)
	})
	do.ProvideNamed(i, ReceiverRelay, func(i do.Injector) (*relay.Relay, error) {
		return newRelay(i, ReceiverSink, metrics.StageReceiver)
	})
	do.Provide(i, NewSentinel)
	do.Provide(i, NewAPIServer)
}

func NewConfig(i do.Injector) (*config.Config, error) {
	return config.Load(do.MustInvokeNamed[string](i, "configPath"))
}

func NewLogger(i do.Injector) (log.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if err := log.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return log.Named(cfg.AppName), nil
}

// named returns a component logger once logging has been set up.
func named(i do.Injector, name string) log.Logger {
	do.MustInvoke[log.Logger](i)
	return log.Named(name)
}

func NewStore(i do.Injector) (store.Store, error) {
	st := store.NewMemoryStore()
	do.MustInvoke[*closers](i).add("store", st.Close)
	return st, nil
}

func NewCapturer(i do.Injector) (capturer.Capturer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return capturer.NewDomaCapturer(cfg.Capturer, capturer.WithLogger(named(i, "capturer"))), nil
}

func NewMetrics(i do.Injector) (*metrics.Metrics, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return metrics.New(cfg.Metrics.Namespace), nil
}

func NewEngine(i do.Injector) (*filter.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	engine, err := filter.NewEngine(cfg.Processor.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter engine: %w", err)
	}
	return engine, nil
}

func NewProcessor(i do.Injector) (processor.Processor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	engine := do.MustInvoke[*filter.Engine](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	chain := processor.NewProcessorChain()
	if cfg.Processor.Debug {
		chain.AddFilter(filter.NewDebugFilter())
	}
	chain.AddFilter(filter.NewEngineFilter(engine, m, named(i, "filter")))

	if cfg.Processor.ChecksumAddresses {
		chain.AddTransformer(transformer.NewChecksumTransformer())
	}
	if cfg.Processor.Debug {
		chain.AddTransformer(transformer.NewDebugTransformer())
	}
	return chain, nil
}

func NewFormatter(i do.Injector) (*transformer.Formatter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return transformer.NewFormatter(cfg.Explorer.URL), nil
}

func newSink(i do.Injector, name string, sc sink.Config) (sink.Sink, error) {
	s, err := sink.New(sc, named(i, "sink."+sc.Type))
	if err != nil {
		return nil, err
	}
	if err := s.Init(context.Background(), sc.Options); err != nil {
		return nil, fmt.Errorf("failed to init %s sink: %w", sc.Type, err)
	}
	do.MustInvoke[*closers](i).add(name, s.Close)
	return s, nil
}

func newRelay(i do.Injector, sinkName, stage string) (*relay.Relay, error) {
	s, err := do.InvokeNamed[sink.Sink](i, sinkName)
	if err != nil {
		return nil, err
	}
	return relay.New(
		do.MustInvoke[processor.Processor](i),
		s,
		relay.WithObserver(do.MustInvoke[*metrics.Metrics](i).Stage(stage)),
		relay.WithLogger(named(i, "relay")),
	), nil
}

func NewSentinel(i do.Injector) (*sentinel.Sentinel, error) {
	cfg := do.MustInvoke[*config.Config](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	r, err := do.InvokeNamed[*relay.Relay](i, PollerRelay)
	if err != nil {
		return nil, err
	}

	s := sentinel.NewSentinel(
		do.MustInvoke[capturer.Capturer](i),
		r,
		sentinel.WithInterval(cfg.Poller.Interval),
		sentinel.WithStore(do.MustInvoke[store.Store](i)),
		sentinel.WithFormatter(do.MustInvoke[*transformer.Formatter](i)),
		sentinel.WithSkipAck(cfg.Poller.SkipAck),
		sentinel.WithStatusReporter(m),
		sentinel.WithObserver(m),
		sentinel.WithLogger(named(i, "sentinel")),
	)
	do.MustInvoke[*closers](i).add("sentinel", s.Close)
	return s, nil
}

func NewAPIServer(i do.Injector) (*api.Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	receiver, err := do.InvokeNamed[*relay.Relay](i, ReceiverRelay)
	if err != nil {
		return nil, err
	}
	local, err := do.InvokeNamed[sink.Sink](i, ReceiverSink)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithFormatter(do.MustInvoke[*transformer.Formatter](i)),
		api.WithLogger(named(i, "api")),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, api.WithMetrics(do.MustInvoke[*metrics.Metrics](i).Handler()))
	}

	return api.NewServer(
		cfg.API,
		do.MustInvoke[*filter.Engine](i),
		do.MustInvoke[*sentinel.Sentinel](i),
		receiver,
		local,
		opts...,
	), nil
}

// Close releases what the container built, in reverse order of creation.
// Services that were never invoked are not built by Close.
func Close(i do.Injector) error {
	c, err := do.Invoke[*closers](i)
	if err != nil {
		return err
	}
	c.mu.Lock()
	all := c.all
	c.all = nil
	c.mu.Unlock()

	var errs []error
	for k := len(all) - 1; k >= 0; k-- {
		if err := all[k].close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", all[k].name, err))
		}
	}
	return errors.Join(errs...)
}
