package models

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the number of implied decimal places of on-chain prices.
const PriceDecimals = 18

// Record is the normalized view of an upstream event.
// Optional string fields use the empty string as "absent".
type Record struct {
	// EventID is the upstream identifier of the event, if it carried one
	EventID string `json:"eventId,omitempty"`

	// DomainName is the domain the event is about, e.g. "ai.xyz"
	DomainName string `json:"name,omitempty"`

	// EventType is the upstream event type, e.g. "NAME_TOKEN_LISTED"
	EventType string `json:"type,omitempty"`

	// PriceWei is the price in base units; nil when the event carried no usable price
	PriceWei *big.Int `json:"priceWei,omitempty"`

	CurrencySymbol string `json:"currencySymbol,omitempty"`

	// CreatedAt is kept verbatim as delivered by the feed
	CreatedAt string `json:"createdAt,omitempty"`

	TransactionHash string `json:"transactionHash,omitempty"`
	SellerAddress   string `json:"sellerAddress,omitempty"`
	TokenAddress    string `json:"tokenAddress,omitempty"`
}

// HasPrice reports whether the record carries a price.
func (r *Record) HasPrice() bool {
	return r != nil && r.PriceWei != nil
}

// DisplayPrice returns PriceWei / 10^18. An absent price yields zero.
func (r *Record) DisplayPrice() decimal.Decimal {
	if !r.HasPrice() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(r.PriceWei, -PriceDecimals)
}

// Clone returns a deep copy so processors never mutate a shared record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.PriceWei != nil {
		c.PriceWei = new(big.Int).Set(r.PriceWei)
	}
	return &c
}
