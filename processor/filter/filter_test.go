package filter_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3tea/doma-sentinel/extractor"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor"
	"github.com/web3tea/doma-sentinel/processor/filter"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

// wei converts a display price to base units.
func wei(display string) *big.Int {
	return dec(display).Shift(models.PriceDecimals).BigInt()
}

func TestNoFiltersMatchesEverything(t *testing.T) {
	cfg := models.DefaultFilterConfig()
	records := []*models.Record{
		{},
		{DomainName: "ai.xyz", PriceWei: wei("0.5")},
		{DomainName: "huge.io", PriceWei: wei("1000000")},
		{DomainName: "zero.io", PriceWei: big.NewInt(0)},
	}
	for _, rec := range records {
		assert.True(t, filter.Matches(rec, cfg), rec.DomainName)
	}
	assert.True(t, filter.Matches(nil, cfg))
}

func TestSignedHexPriceMatchesDefaults(t *testing.T) {
	rec := extractor.Extract(map[string]any{
		"name":      "signed.xyz",
		"eventData": map[string]any{"payment": map[string]any{"price": "0x-de0b6b3a7640000"}},
	})
	assert.Nil(t, rec.PriceWei)
	assert.True(t, filter.Matches(rec, models.DefaultFilterConfig()))
	assert.Empty(t, filter.Rejection(rec, models.DefaultFilterConfig()))
}

func TestPriceBounds(t *testing.T) {
	tests := []struct {
		name  string
		price string
		min   string
		max   *decimal.Decimal
		want  bool
	}{
		{"inside", "0.5", "0.1", decPtr("1"), true},
		{"at min", "0.1", "0.1", decPtr("1"), true},
		{"at max", "1", "0.1", decPtr("1"), true},
		{"below min", "0.09", "0.1", decPtr("1"), false},
		{"above max", "1.000000000000000001", "0.1", decPtr("1"), false},
		{"unbounded max", "999999", "1", nil, true},
		{"min equals max", "2", "2", decPtr("2"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.FilterConfig{MinPrice: dec(tt.min), MaxPrice: tt.max}
			rec := &models.Record{DomainName: "x.io", PriceWei: wei(tt.price)}
			assert.Equal(t, tt.want, filter.Matches(rec, cfg))
		})
	}
}

func TestAbsentPriceIsTreatedAsZero(t *testing.T) {
	rec := &models.Record{DomainName: "noprice.xyz"}

	// with a positive minimum the absent price compares as 0 and is rejected
	cfg := models.FilterConfig{MinPrice: dec("1")}
	assert.False(t, filter.Matches(rec, cfg))
	assert.Equal(t, filter.CriterionPrice, filter.Rejection(rec, cfg))

	// without a minimum it passes even when a maximum is set
	cfg = models.FilterConfig{MaxPrice: decPtr("0.1")}
	assert.True(t, filter.Matches(rec, cfg))
}

func TestMaxLetters(t *testing.T) {
	cfg := models.FilterConfig{MaxLetters: intPtr(3)}

	assert.True(t, filter.Matches(&models.Record{DomainName: "abc.xyz"}, cfg))
	assert.False(t, filter.Matches(&models.Record{DomainName: "abcd.xyz"}, cfg))
	assert.True(t, filter.Matches(&models.Record{DomainName: "日本語.io"}, cfg))
	assert.Equal(t, filter.CriterionLetters, filter.Rejection(&models.Record{}, cfg))

	cfg.MaxLetters = intPtr(0)
	assert.True(t, filter.Matches(&models.Record{DomainName: "verylongname.xyz"}, cfg))
}

func TestExtensionIsCaseSensitiveSuffix(t *testing.T) {
	cfg := models.FilterConfig{AllowedExtensions: []string{".io", ".xyz"}}

	assert.True(t, filter.Matches(&models.Record{DomainName: "foo.io"}, cfg))
	assert.True(t, filter.Matches(&models.Record{DomainName: "bar.xyz"}, cfg))
	assert.False(t, filter.Matches(&models.Record{DomainName: "foo.IO"}, cfg))
	assert.False(t, filter.Matches(&models.Record{DomainName: "foo.com"}, cfg))
	assert.False(t, filter.Matches(&models.Record{}, cfg))
	assert.Equal(t, filter.CriterionExtension, filter.Rejection(&models.Record{DomainName: "foo.IO"}, cfg))
}

func TestKeywordIsCaseInsensitive(t *testing.T) {
	cfg := models.FilterConfig{Keyword: "crypto"}

	assert.True(t, filter.Matches(&models.Record{DomainName: "CryptoKing.com"}, cfg))
	assert.True(t, filter.Matches(&models.Record{DomainName: "mycrypto.io"}, cfg))
	assert.False(t, filter.Matches(&models.Record{DomainName: "bitcoin.io"}, cfg))

	cfg.Keyword = "KING"
	assert.True(t, filter.Matches(&models.Record{DomainName: "CryptoKing.com"}, cfg))
}

func TestSellerExactMatch(t *testing.T) {
	seller := "0xAbC0000000000000000000000000000000000001"
	cfg := models.FilterConfig{SellerAddress: seller}

	assert.True(t, filter.Matches(&models.Record{SellerAddress: seller}, cfg))
	assert.False(t, filter.Matches(&models.Record{SellerAddress: "0xabc0000000000000000000000000000000000001"}, cfg))
	assert.False(t, filter.Matches(&models.Record{}, cfg))
}

func TestRejectionOrder(t *testing.T) {
	cfg := models.FilterConfig{
		MinPrice:          dec("1"),
		AllowedExtensions: []string{".io"},
		Keyword:           "zzz",
	}
	rec := &models.Record{DomainName: "abc.com", PriceWei: wei("0.5")}
	assert.Equal(t, filter.CriterionPrice, filter.Rejection(rec, cfg))

	rec.PriceWei = wei("2")
	assert.Equal(t, filter.CriterionExtension, filter.Rejection(rec, cfg))

	rec.DomainName = "abc.io"
	assert.Equal(t, filter.CriterionKeyword, filter.Rejection(rec, cfg))

	rec.DomainName = "zzz.io"
	assert.Empty(t, filter.Rejection(rec, cfg))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "ai", filter.Label("ai.xyz"))
	assert.Equal(t, "a.b", filter.Label("a.b.io"))
	assert.Equal(t, "plain", filter.Label("plain"))
	assert.Equal(t, ".io", filter.Label(".io"))
}

func TestEngineConfigure(t *testing.T) {
	e, err := filter.NewEngine(models.DefaultFilterConfig())
	require.NoError(t, err)

	good := models.FilterConfig{MinPrice: dec("0.1"), MaxPrice: decPtr("5"), Keyword: " crypto "}
	require.NoError(t, e.Configure(good))
	assert.Equal(t, "crypto", e.Current().Keyword)

	err = e.Configure(models.FilterConfig{MinPrice: dec("2"), MaxPrice: decPtr("1")})
	require.ErrorIs(t, err, filter.ErrInvalidRange)

	// the failed attempt left the previous configuration in place
	cur := e.Current()
	assert.True(t, cur.MinPrice.Equal(dec("0.1")))
	require.NotNil(t, cur.MaxPrice)
	assert.True(t, cur.MaxPrice.Equal(dec("5")))

	assert.ErrorIs(t, e.Configure(models.FilterConfig{MaxLetters: intPtr(-1)}), filter.ErrInvalidFilter)
	assert.ErrorIs(t, e.Configure(models.FilterConfig{MinPrice: dec("-1")}), filter.ErrInvalidFilter)
	assert.ErrorIs(t, e.Configure(models.FilterConfig{MaxPrice: decPtr("-1")}), filter.ErrInvalidFilter)
	assert.Equal(t, "crypto", e.Current().Keyword)

	_, err = filter.NewEngine(models.FilterConfig{MinPrice: dec("3"), MaxPrice: decPtr("1")})
	assert.ErrorIs(t, err, filter.ErrInvalidRange)
}

func TestEngineCurrentIsACopy(t *testing.T) {
	e, err := filter.NewEngine(models.FilterConfig{MaxPrice: decPtr("1"), AllowedExtensions: []string{".io"}})
	require.NoError(t, err)

	cur := e.Current()
	*cur.MaxPrice = dec("100")
	cur.AllowedExtensions[0] = ".com"

	assert.True(t, e.Current().MaxPrice.Equal(dec("1")))
	assert.Equal(t, []string{".io"}, e.Current().AllowedExtensions)
}

func TestEngineConcurrentConfigure(t *testing.T) {
	e, err := filter.NewEngine(models.DefaultFilterConfig())
	require.NoError(t, err)

	rec := &models.Record{DomainName: "ai.xyz", PriceWei: wei("0.5")}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = e.Configure(models.FilterConfig{MaxPrice: decPtr("0.1")})
			} else {
				_ = e.Configure(models.DefaultFilterConfig())
			}
		}(i)
		go func() {
			defer wg.Done()
			c := e.Evaluate(rec)
			assert.Contains(t, []string{"", filter.CriterionPrice}, c)
		}()
	}
	wg.Wait()
}

type observer struct {
	seen []string
}

func (o *observer) ObserveFiltered(c string) {
	o.seen = append(o.seen, c)
}

func TestEngineFilter(t *testing.T) {
	e, err := filter.NewEngine(models.FilterConfig{MaxPrice: decPtr("0.1")})
	require.NoError(t, err)
	obs := &observer{}

	chain := processor.NewProcessorChain()
	chain.AddFilter(filter.NewEngineFilter(e, obs, nil))

	_, err = chain.Process(&models.Record{DomainName: "ai.xyz", PriceWei: wei("0.5")})
	require.Error(t, err)
	assert.True(t, processor.IsFiltered(err))
	assert.Equal(t, []string{filter.CriterionPrice}, obs.seen)

	out, err := chain.Process(&models.Record{DomainName: "cheap.xyz", PriceWei: wei("0.01")})
	require.NoError(t, err)
	assert.Equal(t, "cheap.xyz", out.DomainName)
}
