package filter

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/web3tea/doma-sentinel/models"
)

var (
	ErrInvalidRange  = errors.New("invalid price range")
	ErrInvalidFilter = errors.New("invalid filter configuration")
)

func invalidRange(minPrice, maxPrice decimal.Decimal) error {
	return fmt.Errorf("%w: minPrice %s is greater than maxPrice %s", ErrInvalidRange, minPrice, maxPrice)
}

func invalidFilter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}

// Engine owns the active filter configuration. Readers always see a whole
// configuration; Configure replaces it with a single store.
type Engine struct {
	active atomic.Pointer[models.FilterConfig]
}

func NewEngine(initial models.FilterConfig) (*Engine, error) {
	e := &Engine{}
	if err := e.Configure(initial); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure validates cfg and makes it the active configuration. On error
// the previous configuration stays active.
func (e *Engine) Configure(cfg models.FilterConfig) error {
	n := cfg.Normalized()
	if err := Validate(n); err != nil {
		return err
	}
	e.active.Store(&n)
	return nil
}

// Current returns a copy of the active configuration.
func (e *Engine) Current() models.FilterConfig {
	cfg := e.active.Load()
	if cfg == nil {
		return models.DefaultFilterConfig()
	}
	return cfg.Normalized()
}

// Matches evaluates rec against the active configuration.
func (e *Engine) Matches(rec *models.Record) bool {
	return e.Evaluate(rec) == ""
}

// Evaluate returns the first criterion rec fails under the active
// configuration, or "" when it passes.
func (e *Engine) Evaluate(rec *models.Record) string {
	cfg := e.active.Load()
	if cfg == nil {
		d := models.DefaultFilterConfig()
		cfg = &d
	}
	return Rejection(rec, *cfg)
}

// Describe renders the active configuration on one line for logs.
func (e *Engine) Describe() string {
	cfg := e.Current()
	letters := "any"
	if cfg.MaxLetters != nil && *cfg.MaxLetters > 0 {
		letters = fmt.Sprint(*cfg.MaxLetters)
	}
	return fmt.Sprintf("price=[%s,%s] maxLetters=%s extensions=%v keyword=%q seller=%q",
		cfg.MinPrice, formatBound(cfg.MaxPrice), letters, cfg.AllowedExtensions, cfg.Keyword, cfg.SellerAddress)
}
