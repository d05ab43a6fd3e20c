package models

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// FilterConfig holds the criteria deciding which records are relayed.
// The zero value matches everything.
type FilterConfig struct {
	MinPrice          decimal.Decimal  `json:"minPrice" yaml:"min_price" toml:"min_price"`
	MaxPrice          *decimal.Decimal `json:"maxPrice,omitempty" yaml:"max_price,omitempty" toml:"max_price,omitempty"` // nil is unbounded
	MaxLetters        *int             `json:"maxLetters,omitempty" yaml:"max_letters,omitempty" toml:"max_letters,omitempty"`
	AllowedExtensions []string         `json:"domainExtensions,omitempty" yaml:"domain_extensions,omitempty" toml:"domain_extensions,omitempty"`
	Keyword           string           `json:"keyword,omitempty" yaml:"keyword,omitempty" toml:"keyword,omitempty"`
	SellerAddress     string           `json:"sellerAddress,omitempty" yaml:"seller_address,omitempty" toml:"seller_address,omitempty"`
}

// DefaultFilterConfig returns the configuration active at process start.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{MinPrice: decimal.Zero}
}

// IsEmpty reports whether no criterion is set.
func (c FilterConfig) IsEmpty() bool {
	return c.MinPrice.IsZero() &&
		c.MaxPrice == nil &&
		(c.MaxLetters == nil || *c.MaxLetters <= 0) &&
		len(c.AllowedExtensions) == 0 &&
		c.Keyword == "" &&
		c.SellerAddress == ""
}

// Normalized trims string criteria and drops blank or duplicate extensions.
func (c FilterConfig) Normalized() FilterConfig {
	n := c
	n.Keyword = strings.TrimSpace(c.Keyword)
	n.SellerAddress = strings.TrimSpace(c.SellerAddress)
	exts := lo.Map(c.AllowedExtensions, func(e string, _ int) string { return strings.TrimSpace(e) })
	n.AllowedExtensions = lo.Uniq(lo.Compact(exts))
	if c.MaxPrice != nil {
		m := *c.MaxPrice
		n.MaxPrice = &m
	}
	if c.MaxLetters != nil {
		l := *c.MaxLetters
		n.MaxLetters = &l
	}
	return n
}
