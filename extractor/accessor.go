package extractor

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Accessor is a path of keys into a nested event.
type Accessor []string

// Path builds an Accessor from a dotted path such as "eventData.payment.price".
func Path(dotted string) Accessor {
	return strings.Split(dotted, ".")
}

func (a Accessor) String() string {
	return strings.Join(a, ".")
}

// Lookup walks the path and returns the value at its end.
func (a Accessor) Lookup(m map[string]any) (any, bool) {
	var cur any = m
	for _, key := range a {
		obj, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Accessors is an ordered list of candidates; the first present value wins.
type Accessors []Accessor

func (as Accessors) First(m map[string]any) (any, bool) {
	for _, a := range as {
		if v, ok := a.Lookup(m); ok {
			return v, true
		}
	}
	return nil, false
}

// FirstString returns the first candidate holding a non-empty scalar.
func (as Accessors) FirstString(m map[string]any) string {
	for _, a := range as {
		v, ok := a.Lookup(m)
		if !ok {
			continue
		}
		if s := strings.TrimSpace(toString(v)); s != "" {
			return s
		}
	}
	return ""
}

func paths(dotted ...string) Accessors {
	out := make(Accessors, 0, len(dotted))
	for _, d := range dotted {
		out = append(out, Path(d))
	}
	return out
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	default:
		return ""
	}
}
