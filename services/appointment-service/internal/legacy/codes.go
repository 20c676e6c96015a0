package legacy

import (
	"strings"

	"github.com/md-rashed-zaman/barberbook/services/appointment-service/internal/model"
)

// CodeTable maps legacy service codes to style references. Keys are upper case.
type CodeTable map[string]model.StyleReference

// DefaultCodes covers every style reference. HAIRCUT is the legacy spelling of CUT.
func DefaultCodes() CodeTable {
	return CodeTable{
		"SHORT":    model.Short,
		"CUT":      model.Medium,
		"HAIRCUT":  model.Medium,
		"MEDIUM":   model.Medium,
		"LONG":     model.Long,
		"FADE":     model.Faded,
		"TAPER":    model.Tapered,
		"UNDERCUT": model.Undercut,
		"LAYERED":  model.Layered,
		"TEXTURED": model.Textured,
		"SLICK":    model.SlickedBack,
		"SIDEPART": model.SideParted,
		"CROP":     model.ForwardCrop,
		"VOLUME":   model.Voluminous,
		"NATURAL":  model.Natural,
		"MULLET":   model.MulletStyle,
		"MOHAWK":   model.MohawkStyle,
		"BEARD":    model.BeardShaped,
		"SHAVE":    model.CleanShaven,
		"HOTTOWEL": model.HotTowelShave,
	}
}

// Resolve is case-insensitive. Codes missing from the table fall back to the
// enum names, so "HotTowelShave" resolves as well.
func (t CodeTable) Resolve(code string) (model.StyleReference, bool) {
	code = strings.TrimSpace(code)
	if ref, ok := t[strings.ToUpper(code)]; ok {
		return ref, true
	}
	return model.ParseStyleReference(code)
}
