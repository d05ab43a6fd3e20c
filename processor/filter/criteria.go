package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/web3tea/doma-sentinel/models"
)

// Criterion names, in evaluation order.
const (
	CriterionPrice     = "price"
	CriterionLetters   = "letters"
	CriterionExtension = "extension"
	CriterionKeyword   = "keyword"
	CriterionSeller    = "seller"
)

type criterion struct {
	name  string
	check func(rec *models.Record, cfg *models.FilterConfig) bool
}

var criteria = []criterion{
	{CriterionPrice, priceInRange},
	{CriterionLetters, withinMaxLetters},
	{CriterionExtension, hasAllowedExtension},
	{CriterionKeyword, containsKeyword},
	{CriterionSeller, sellerMatches},
}

// Matches reports whether rec passes every configured criterion of cfg.
func Matches(rec *models.Record, cfg models.FilterConfig) bool {
	return Rejection(rec, cfg) == ""
}

// Rejection returns the name of the first criterion rec fails, or "" when
// it passes all of them.
func Rejection(rec *models.Record, cfg models.FilterConfig) string {
	if rec == nil {
		rec = &models.Record{}
	}
	for _, c := range criteria {
		if !c.check(rec, &cfg) {
			return c.name
		}
	}
	return ""
}

// priceInRange treats an absent price as zero.
func priceInRange(rec *models.Record, cfg *models.FilterConfig) bool {
	price := rec.DisplayPrice()
	if price.LessThan(cfg.MinPrice) {
		return false
	}
	if cfg.MaxPrice != nil && price.GreaterThan(*cfg.MaxPrice) {
		return false
	}
	return true
}

func withinMaxLetters(rec *models.Record, cfg *models.FilterConfig) bool {
	if cfg.MaxLetters == nil || *cfg.MaxLetters <= 0 {
		return true
	}
	if rec.DomainName == "" {
		return false
	}
	return utf8.RuneCountInString(Label(rec.DomainName)) <= *cfg.MaxLetters
}

func hasAllowedExtension(rec *models.Record, cfg *models.FilterConfig) bool {
	if len(cfg.AllowedExtensions) == 0 {
		return true
	}
	if rec.DomainName == "" {
		return false
	}
	return lo.SomeBy(cfg.AllowedExtensions, func(ext string) bool {
		return ext != "" && strings.HasSuffix(rec.DomainName, ext)
	})
}

func containsKeyword(rec *models.Record, cfg *models.FilterConfig) bool {
	if cfg.Keyword == "" {
		return true
	}
	if rec.DomainName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(rec.DomainName), strings.ToLower(cfg.Keyword))
}

func sellerMatches(rec *models.Record, cfg *models.FilterConfig) bool {
	if cfg.SellerAddress == "" {
		return true
	}
	return rec.SellerAddress == cfg.SellerAddress
}

// Label strips the last ".ext" suffix: "ai.xyz" -> "ai", "a.b.io" -> "a.b".
func Label(domain string) string {
	if i := strings.LastIndexByte(domain, '.'); i > 0 {
		return domain[:i]
	}
	return domain
}

// Validate checks cfg without installing it.
func Validate(cfg models.FilterConfig) error {
	if cfg.MinPrice.IsNegative() {
		return invalidFilter("minPrice must not be negative, got %s", cfg.MinPrice)
	}
	if cfg.MaxPrice != nil {
		if cfg.MaxPrice.IsNegative() {
			return invalidFilter("maxPrice must not be negative, got %s", *cfg.MaxPrice)
		}
		if cfg.MinPrice.GreaterThan(*cfg.MaxPrice) {
			return invalidRange(cfg.MinPrice, *cfg.MaxPrice)
		}
	}
	if cfg.MaxLetters != nil && *cfg.MaxLetters < 0 {
		return invalidFilter("maxLetters must not be negative, got %d", *cfg.MaxLetters)
	}
	return nil
}

func formatBound(d *decimal.Decimal) string {
	if d == nil {
		return "inf"
	}
	return d.String()
}
