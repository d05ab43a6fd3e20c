package transformer_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3tea/doma-sentinel/models"
	"github.com/web3tea/doma-sentinel/processor/transformer"
)

func TestFormat(t *testing.T) {
	price, _ := new(big.Int).SetString("500000000000000000", 10)
	rec := &models.Record{
		DomainName:      "ai.xyz",
		EventType:       "NAME_TOKEN_LISTED",
		PriceWei:        price,
		CurrencySymbol:  "ETH",
		CreatedAt:       "2025-08-01T10:00:00Z",
		TransactionHash: "0xfeed",
		TokenAddress:    "0x2222222222222222222222222222222222222222",
	}

	msg := transformer.NewFormatter("https://explorer.example/").Format(rec, "42")
	assert.Contains(t, msg, "Name: ai.xyz")
	assert.Contains(t, msg, "Type: NAME_TOKEN_LISTED")
	assert.Contains(t, msg, "0.500000 ETH")
	assert.Contains(t, msg, "Created: 2025-08-01T10:00:00Z")
	assert.Contains(t, msg, "LastId: 42")
	assert.Contains(t, msg, "https://explorer.example/tx/0xfeed")
	assert.Contains(t, msg, "https://explorer.example/address/0x2222222222222222222222222222222222222222")

	// pure: same input, same output
	assert.Equal(t, msg, transformer.Format(rec, "42", "https://explorer.example"))
}

func TestFormatOptionalParts(t *testing.T) {
	msg := transformer.Format(&models.Record{DomainName: "bare.io"}, "", transformer.DefaultExplorerURL)
	assert.Contains(t, msg, "Price: N/A")
	assert.Contains(t, msg, "Type: Unknown")
	assert.NotContains(t, msg, "LastId")
	assert.NotContains(t, msg, "/tx/")
	assert.NotContains(t, msg, "/address/")

	assert.NotPanics(t, func() { transformer.Format(nil, "", "") })
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0.000000", transformer.FormatPrice(&models.Record{PriceWei: big.NewInt(1)}))
	assert.Equal(t, "1.234568 USDC", transformer.FormatPrice(&models.Record{
		PriceWei:       big.NewInt(1234567800000000000),
		CurrencySymbol: "USDC",
	}))
	assert.Equal(t, "N/A", transformer.FormatPrice(nil))
}

func TestChecksumTransformer(t *testing.T) {
	in := &models.Record{
		SellerAddress: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		TokenAddress:  "not-an-address",
	}
	out, err := transformer.NewChecksumTransformer().Process(in)
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", out.SellerAddress)
	assert.Equal(t, "not-an-address", out.TokenAddress)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", in.SellerAddress)
}
