package catalog

import (
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
	"github.com/shopspring/decimal"
)

func eur(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func style(ref model.StyleReference, name string, cents int64, minutes int, cat Category) Style {
	return Style{
		Reference:   ref,
		DisplayName: name,
		BasePrice:   eur(cents),
		MinDuration: time.Duration(minutes) * time.Minute,
		Category:    cat,
	}
}

// DefaultStyles is the shop's price list (EUR, minutes).
func DefaultStyles() []Style {
	return []Style{
		style(model.Short, "Short cut", 2500, 20, CategoryHaircut),
		style(model.Medium, "Medium cut", 3000, 25, CategoryHaircut),
		style(model.Long, "Long cut", 3500, 30, CategoryHaircut),
		style(model.Faded, "Fade", 4000, 30, CategoryHaircut),
		style(model.Tapered, "Taper", 3800, 30, CategoryHaircut),
		style(model.Undercut, "Undercut", 4200, 35, CategoryHaircut),
		style(model.Layered, "Layered cut", 4500, 40, CategoryHaircut),
		style(model.Textured, "Textured cut", 4800, 40, CategoryHaircut),
		style(model.SlickedBack, "Slicked back", 3500, 25, CategoryHaircut),
		style(model.SideParted, "Side part", 3200, 25, CategoryHaircut),
		style(model.ForwardCrop, "Forward crop", 3800, 30, CategoryHaircut),
		style(model.Voluminous, "Volume styling", 5000, 45, CategoryHaircut),
		style(model.Natural, "Natural", 2800, 20, CategoryHaircut),
		style(model.MulletStyle, "Mullet", 6000, 50, CategoryHaircut),
		style(model.MohawkStyle, "Mohawk", 6500, 50, CategoryHaircut),
		style(model.BeardShaped, "Beard shaping", 1500, 10, CategoryBeard),
		style(model.CleanShaven, "Clean shave", 1200, 10, CategoryBeard),
		style(model.HotTowelShave, "Hot towel shave", 1800, 15, CategoryBeard),
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the shared catalog built from DefaultStyles.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(DefaultStyles())
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
