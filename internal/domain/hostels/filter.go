package hostels

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Criteria narrows a fetched hostel set. PriceMax of +Inf means unbounded.
type Criteria struct {
	Query    string
	PriceMin float64
	PriceMax float64
}

// AnyCriteria matches every hostel with a numeric, non-negative price.
func AnyCriteria() Criteria {
	return Criteria{PriceMax: math.Inf(1)}
}

// ParseCriteria builds criteria from raw search inputs. A blank min is 0 and a
// blank max is unbounded; a bound that is not a number is a validation error.
func ParseCriteria(query, minRaw, maxRaw string) (Criteria, error) {
	c := AnyCriteria()
	c.Query = query
	verr := &ValidationError{}
	if value, ok, err := parseBound(minRaw); err != nil {
		verr.add("price_min", err.Error())
	} else if math.IsInf(value, 0) {
		verr.add("price_min", fmt.Sprintf("price bound %q must be finite", strings.TrimSpace(minRaw)))
	} else if ok {
		c.PriceMin = value
	}
	// +Inf is the unbounded default; -Inf can never match.
	if value, ok, err := parseBound(maxRaw); err != nil {
		verr.add("price_max", err.Error())
	} else if math.IsInf(value, -1) {
		verr.add("price_max", fmt.Sprintf("price bound %q must be finite", strings.TrimSpace(maxRaw)))
	} else if ok {
		c.PriceMax = value
	}
	if len(verr.Fields) > 0 {
		return AnyCriteria(), verr
	}
	return c, nil
}

func parseBound(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) {
		return 0, false, fmt.Errorf("price bound %q is not a number", raw)
	}
	return value, true, nil
}

// Matches reports whether h satisfies both the text and the price criteria.
func (c Criteria) Matches(h Hostel) bool {
	return c.matchesText(h) && c.matchesPrice(h)
}

func (c Criteria) matchesText(h Hostel) bool {
	if c.Query == "" {
		return true
	}
	needle := strings.ToLower(c.Query)
	for _, field := range [...]string{h.Name, h.Description, h.OwnerName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (c Criteria) matchesPrice(h Hostel) bool {
	price, ok := h.PriceValue()
	if !ok {
		return false
	}
	return c.PriceMin <= price && price <= c.PriceMax
}

// Filter returns the hostels matching c, in input order. The result never
// shares backing arrays with items, and items is left untouched.
func Filter(items []Hostel, c Criteria) []Hostel {
	out := make([]Hostel, 0, len(items))
	for _, item := range items {
		if c.Matches(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}
