// Package catalog holds the read-only service metadata: base price, minimum
// duration and category for every style reference.
package catalog

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

type Category int

const (
	CategoryHaircut Category = iota + 1
	CategoryBeard
)

func (c Category) String() string {
	switch c {
	case CategoryHaircut:
		return "haircut"
	case CategoryBeard:
		return "beard"
	default:
		return "unknown"
	}
}

type Style struct {
	Reference   model.StyleReference
	DisplayName string
	BasePrice   decimal.Decimal
	MinDuration time.Duration
	Category    Category
}

// Provider is what the importer, the pricing engine and validation depend on.
type Provider interface {
	Lookup(ref model.StyleReference) (Style, bool)
}

// Catalog is immutable after construction.
type Catalog struct {
	styles map[model.StyleReference]Style
}

// New copies styles into a new catalog. Every style must have a category and a
// non-negative price, and references may not repeat.
func New(styles []Style) (*Catalog, error) {
	m := make(map[model.StyleReference]Style, len(styles))
	for _, s := range styles {
		if !s.Reference.Valid() {
			return nil, fmt.Errorf("catalog: invalid style reference %d", int(s.Reference))
		}
		if _, dup := m[s.Reference]; dup {
			return nil, fmt.Errorf("catalog: duplicate entry for %s", s.Reference)
		}
		if s.Category != CategoryHaircut && s.Category != CategoryBeard {
			return nil, fmt.Errorf("catalog: %s has no category", s.Reference)
		}
		if s.BasePrice.IsNegative() || s.MinDuration < 0 {
			return nil, fmt.Errorf("catalog: %s has a negative price or duration", s.Reference)
		}
		m[s.Reference] = s
	}
	return &Catalog{styles: m}, nil
}

func (c *Catalog) Lookup(ref model.StyleReference) (Style, bool) {
	s, ok := c.styles[ref]
	return s, ok
}

// BasePrice is zero for styles the catalog does not carry.
func BasePrice(p Provider, ref model.StyleReference) decimal.Decimal {
	if s, ok := p.Lookup(ref); ok {
		return s.BasePrice
	}
	return decimal.Zero
}

// MinimumDuration sums the minimum durations of refs.
func MinimumDuration(p Provider, refs ...model.StyleReference) time.Duration {
	var total time.Duration
	for _, ref := range refs {
		if s, ok := p.Lookup(ref); ok {
			total += s.MinDuration
		}
	}
	return total
}

func IsHaircut(p Provider, ref model.StyleReference) bool {
	s, ok := p.Lookup(ref)
	return ok && s.Category == CategoryHaircut
}

func IsBeard(p Provider, ref model.StyleReference) bool {
	s, ok := p.Lookup(ref)
	return ok && s.Category == CategoryBeard
}

// DisplayName falls back to the enum name.
func DisplayName(p Provider, ref model.StyleReference) string {
	if s, ok := p.Lookup(ref); ok && s.DisplayName != "" {
		return s.DisplayName
	}
	return ref.String()
}
