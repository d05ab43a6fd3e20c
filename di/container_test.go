package di_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3tea/doma-sentinel/api"
	"github.com/web3tea/doma-sentinel/config"
	"github.com/web3tea/doma-sentinel/di"
	"github.com/web3tea/doma-sentinel/metrics"
	"github.com/web3tea/doma-sentinel/processor/filter"
	"github.com/web3tea/doma-sentinel/sentinel"
	"github.com/web3tea/doma-sentinel/sink"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Log.Output = "stderr"
	cfg.Capturer.BaseURL = baseURL
	cfg.Sink = sink.Config{Type: sink.TypeDebug}
	cfg.API.Sink = sink.Config{Type: sink.TypeDebug}
	cfg.Metrics.Namespace = "di_test"
	return &cfg
}

func TestContainerWiresPipeline(t *testing.T) {
	var acked atomic.Value
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/poll/ack/") {
			acked.Store(strings.TrimPrefix(r.URL.Path, "/v1/poll/ack/"))
			return
		}
		_, _ = w.Write([]byte(`{"events":[{"name":"ai.xyz","type":"NAME_TOKEN_LISTED"}],"lastId":"7"}`))
	}))
	defer feed.Close()

	injector := di.SetupContainerWithConfig(testConfig(feed.URL))

	s, err := do.Invoke[*sentinel.Sentinel](injector)
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, "7", s.LastID(context.Background()))
	assert.Equal(t, "7", acked.Load())

	// the API shares the engine with the pipeline
	engine := do.MustInvoke[*filter.Engine](injector)
	_, err = do.Invoke[*api.Server](injector)
	require.NoError(t, err)
	assert.True(t, engine.Current().IsEmpty())

	m := do.MustInvoke[*metrics.Metrics](injector)
	assert.NotNil(t, m.Registry())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveredTotal.WithLabelValues(metrics.StagePoller, sink.TypeDebug)))
	assert.Zero(t, testutil.ToFloat64(m.DeliveredTotal.WithLabelValues(metrics.StageReceiver, sink.TypeDebug)))

	require.NoError(t, di.Close(injector))

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, sentinel.ErrSentinelClosed)
}

func TestContainerSkipAck(t *testing.T) {
	var acks atomic.Int32
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/poll/ack/") {
			acks.Add(1)
			return
		}
		_, _ = w.Write([]byte(`{"events":[{"name":"ai.xyz"}],"lastId":"9"}`))
	}))
	defer feed.Close()

	cfg := testConfig(feed.URL)
	cfg.Poller.SkipAck = true
	injector := di.SetupContainerWithConfig(cfg)
	defer func() { require.NoError(t, di.Close(injector)) }()

	s := do.MustInvoke[*sentinel.Sentinel](injector)
	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Acked)
	assert.Zero(t, acks.Load())
}

func TestContainerRejectsUnknownSink(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Sink.Type = "carrier-pigeon"
	injector := di.SetupContainerWithConfig(cfg)

	_, err := do.Invoke[*sentinel.Sentinel](injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sink type")
}

func TestCloseWithoutInvocations(t *testing.T) {
	injector := di.SetupContainerWithConfig(testConfig("http://127.0.0.1:1"))
	require.NoError(t, di.Close(injector))
}
