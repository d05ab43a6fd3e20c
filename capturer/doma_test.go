package capturer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/web3tea/doma-sentinel/capturer"
)

func TestDomaCapturerSuite(t *testing.T) {
	suite.Run(t, new(domaSuite))
}

type domaSuite struct {
	suite.Suite

	handler http.HandlerFunc
	server  *httptest.Server
}

func (s *domaSuite) R() *require.Assertions {
	return s.Require()
}

func (s *domaSuite) SetupTest() {
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
}

func (s *domaSuite) TearDownTest() {
	s.server.Close()
}

func (s *domaSuite) newCapturer() *capturer.DomaCapturer {
	return capturer.NewDomaCapturer(capturer.Config{
		BaseURL:        s.server.URL + "/",
		APIKey:         "secret",
		RequestTimeout: time.Second,
	})
}

func (s *domaSuite) TestFetchSendsQueryAndHeader() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodGet, r.Method)
		s.Equal("/v1/poll", r.URL.Path)
		s.Equal("NAME_TOKEN_LISTED", r.URL.Query().Get("eventTypes"))
		s.Equal("1", r.URL.Query().Get("limit"))
		s.Equal("secret", r.Header.Get("Api-Key"))
		_, _ = w.Write([]byte(`{"events":[{"id":7,"name":"ai.xyz","type":"NAME_TOKEN_LISTED","eventData":{"payment":{"price":"500000000000000000","currencySymbol":"ETH"}}}],"lastId":"42"}`))
	}

	batch, err := s.newCapturer().Fetch(context.Background())
	s.R().NoError(err)
	s.R().False(batch.Empty())
	s.R().Len(batch.Events, 1)
	s.Equal("42", batch.LastID)
	s.Equal("7", batch.Events[0].ID())

	payment := batch.Events[0]["eventData"].(map[string]any)["payment"].(map[string]any)
	s.Equal("500000000000000000", payment["price"])
}

func (s *domaSuite) TestFetchNumericLastID() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"name":"a.io"}],"lastId":123456789012345678}`))
	}

	batch, err := s.newCapturer().Fetch(context.Background())
	s.R().NoError(err)
	s.Equal("123456789012345678", batch.LastID)
}

func (s *domaSuite) TestFetchEmpty() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events":[]}`))
	}

	batch, err := s.newCapturer().Fetch(context.Background())
	s.R().NoError(err)
	s.True(batch.Empty())
	s.Empty(batch.LastID)
}

func (s *domaSuite) TestFetchUpstreamError() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}

	batch, err := s.newCapturer().Fetch(context.Background())
	s.R().Error(err)
	s.Nil(batch)
	s.ErrorIs(err, capturer.ErrUpstream)
	s.True(capturer.IsTransient(err))

	var upstream *capturer.UpstreamError
	s.R().ErrorAs(err, &upstream)
	s.Equal(http.StatusUnauthorized, upstream.StatusCode)
	s.Contains(upstream.Body, "invalid api key")
}

func (s *domaSuite) TestFetchMalformed() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}

	_, err := s.newCapturer().Fetch(context.Background())
	s.ErrorIs(err, capturer.ErrMalformedResponse)
	s.False(capturer.IsTransient(err))
}

func (s *domaSuite) TestFetchTimeout() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	c := capturer.NewDomaCapturer(capturer.Config{
		BaseURL:        s.server.URL,
		RequestTimeout: 50 * time.Millisecond,
	})
	_, err := c.Fetch(context.Background())
	s.ErrorIs(err, capturer.ErrTransient)
}

func (s *domaSuite) TestACK() {
	var acked atomic.Value
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("secret", r.Header.Get("Api-Key"))
		acked.Store(r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}

	s.R().NoError(s.newCapturer().ACK(context.Background(), "42"))
	s.Equal("/v1/poll/ack/42", acked.Load())
}

func (s *domaSuite) TestACKFailure() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	err := s.newCapturer().ACK(context.Background(), "42")
	s.ErrorIs(err, capturer.ErrAcknowledge)
	s.ErrorIs(err, capturer.ErrUpstream)

	err = s.newCapturer().ACK(context.Background(), "")
	s.ErrorIs(err, capturer.ErrAcknowledge)
}

func TestBatchResponseData(t *testing.T) {
	b := &capturer.Batch{
		Events: []capturer.Event{{"name": "ai.xyz"}},
		LastID: "9",
	}

	data := b.ResponseData(b.Events[0])
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.JSONEq(t, `{"events":[{"name":"ai.xyz"}],"lastId":"9"}`, string(raw))
}
