package extractor

import (
	"encoding/json"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/web3tea/doma-sentinel/models"
)

var (
	nameAccessors      = paths("name")
	typeAccessors      = paths("type")
	idAccessors        = paths("id")
	priceAccessors     = paths("eventData.payment.price", "price")
	currencyAccessors  = paths("eventData.payment.currencySymbol")
	createdAtAccessors = paths("eventData.eventCreatedAt", "createdAt")

	// upstream has used all three spellings
	txHashAccessors = paths("txhash", "txHash", "transactionHash")

	sellerAccessors = paths("seller", "sellerAddress", "eventData.seller", "eventData.sellerAddress")
	tokenAccessors  = tokenCandidates("tokenAddress", "token_address", "address", "contractAddress", "contract_address")
)

// tokenCandidates checks every key on the event itself before looking into eventData.
func tokenCandidates(keys ...string) Accessors {
	out := make(Accessors, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, Accessor{k})
	}
	for _, k := range keys {
		out = append(out, Accessor{"eventData", k})
	}
	return out
}

// Extract normalizes a raw event. It never fails: anything missing or
// malformed is left absent on the record.
func Extract(ev map[string]any) *models.Record {
	rec := &models.Record{}
	if ev == nil {
		return rec
	}

	rec.EventID = idAccessors.FirstString(ev)
	rec.DomainName = nameAccessors.FirstString(ev)
	rec.EventType = typeAccessors.FirstString(ev)
	rec.CurrencySymbol = currencyAccessors.FirstString(ev)
	rec.CreatedAt = createdAtAccessors.FirstString(ev)
	rec.TransactionHash = txHashAccessors.FirstString(ev)
	rec.SellerAddress = sellerAccessors.FirstString(ev)

	if v, ok := priceAccessors.First(ev); ok {
		rec.PriceWei = ParsePriceWei(v)
	}

	rec.TokenAddress = tokenAccessors.FirstString(ev)
	if rec.TokenAddress == "" {
		rec.TokenAddress = findAddress(ev)
	}

	return rec
}

// ExtractResponse extracts the first event of a poll response shaped
// {"events": [...], "lastId": ...}. ok is false when there is no event.
func ExtractResponse(resp map[string]any) (rec *models.Record, ok bool) {
	events, _ := resp["events"].([]any)
	for _, e := range events {
		if m, isMap := e.(map[string]any); isMap {
			return Extract(m), true
		}
	}
	return &models.Record{}, false
}

// ParsePriceWei converts a price in base units to an integer. Strings,
// JSON numbers and floats are accepted, as are 0x-prefixed hex strings.
// Fractions are truncated. Negative or unparsable input returns nil.
func ParsePriceWei(v any) *big.Int {
	var d decimal.Decimal
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			// SetString accepts a sign after the prefix
			n, ok := new(big.Int).SetString(s[2:], 16)
			if !ok || n.Sign() < 0 {
				return nil
			}
			return n
		}
		var err error
		if d, err = decimal.NewFromString(s); err != nil {
			return nil
		}
	case json.Number:
		var err error
		if d, err = decimal.NewFromString(t.String()); err != nil {
			return nil
		}
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	default:
		return nil
	}
	if d.IsNegative() {
		return nil
	}
	return d.Truncate(0).BigInt()
}

// findAddress walks the event depth first, visiting map keys in sorted
// order, and returns the first 0x-prefixed 20 byte hex string.
func findAddress(v any) string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if len(s) == 2+2*common.AddressLength && strings.HasPrefix(s, "0x") && common.IsHexAddress(s) {
			return s
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if a := findAddress(t[k]); a != "" {
				return a
			}
		}
	case []any:
		for _, item := range t {
			if a := findAddress(item); a != "" {
				return a
			}
		}
	}
	return ""
}
