package relay_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor"
	"github.com/web3tea/doma-sentinel/processor/filter"
	"github.com/web3tea/doma-sentinel/relay"
	"github.com/web3tea/doma-sentinel/sink"
	"github.com/web3tea/doma-sentinel/sink/sinktest"
)

type countingObserver struct {
	delivered int
	errors    int
}

func (o *countingObserver) ObserveDelivered(string)  { o.delivered++ }
func (o *countingObserver) ObserveRelayError(string) { o.errors++ }

func setup(t *testing.T, cfg models.FilterConfig) (*relay.Relay, *sinktest.MemorySink, *countingObserver) {
	t.Helper()
	engine, err := filter.NewEngine(cfg)
	require.NoError(t, err)

	chain := processor.NewProcessorChain()
	chain.AddFilter(filter.NewEngineFilter(engine, nil, nil))

	mem := sinktest.New()
	obs := &countingObserver{}
	return relay.New(chain, mem, relay.WithObserver(obs)), mem, obs
}

func record() *models.Record {
	return &models.Record{
		DomainName:     "ai.xyz",
		EventType:      "NAME_TOKEN_LISTED",
		PriceWei:       big.NewInt(500000000000000000),
		CurrencySymbol: "ETH",
	}
}

func TestRelayDelivers(t *testing.T) {
	r, mem, obs := setup(t, models.DefaultFilterConfig())

	res, err := r.Relay(context.Background(), "Price: 0.500000 ETH", record(), map[string]any{"lastId": "1"}, "1")
	require.NoError(t, err)
	assert.Equal(t, relay.Result{Delivered: true}, res)

	written := mem.Written()
	require.Len(t, written, 1)
	assert.Equal(t, "Price: 0.500000 ETH", written[0].Text)
	assert.Equal(t, "ai.xyz", written[0].Record.DomainName)
	assert.Equal(t, "1", written[0].Raw["lastId"])
	assert.Equal(t, 1, obs.delivered)
	assert.Equal(t, "memory", r.SinkType())
}

func TestRelayFilteredNeverTouchesSink(t *testing.T) {
	maxPrice := decimal.RequireFromString("0.1")
	r, mem, obs := setup(t, models.FilterConfig{MaxPrice: &maxPrice})

	res, err := r.Relay(context.Background(), "msg", record(), nil, "1")
	require.NoError(t, err)
	assert.True(t, res.Filtered)
	assert.False(t, res.Delivered)
	assert.Equal(t, filter.CriterionPrice, res.Criterion)
	assert.Zero(t, mem.Calls())
	assert.Zero(t, obs.delivered)
}

func TestRelaySinkError(t *testing.T) {
	r, mem, obs := setup(t, models.DefaultFilterConfig())
	mem.SetErr(errors.New("connection refused"))

	res, err := r.Relay(context.Background(), "msg", record(), nil, "1")
	require.Error(t, err)
	assert.False(t, res.Delivered)
	assert.False(t, res.Filtered)
	assert.Equal(t, 1, obs.errors)
}

func TestRelayRemoteFiltered(t *testing.T) {
	r, mem, obs := setup(t, models.DefaultFilterConfig())
	mem.SetErr(sink.ErrRemoteFiltered)

	res, err := r.Relay(context.Background(), "msg", record(), nil, "1")
	require.NoError(t, err)
	assert.Equal(t, relay.Result{Filtered: true}, res)
	assert.Zero(t, obs.errors)
}

func TestRelayDoesNotMutateInput(t *testing.T) {
	chain := processor.NewProcessorChain()
	chain.AddTransformer(mutator{})
	mem := sinktest.New()
	r := relay.New(chain, mem)

	in := record()
	_, err := r.Relay(context.Background(), "msg", in, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "ai.xyz", in.DomainName)
	assert.Equal(t, "changed", mem.Written()[0].Record.DomainName)
}

type mutator struct{}

func (mutator) Process(rec *models.Record) (*models.Record, error) {
	rec.DomainName = "changed"
	return rec, nil
}
