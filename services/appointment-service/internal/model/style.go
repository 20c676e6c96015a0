package model

import (
	"fmt"
	"strings"
)

// StyleReference identifies one service offering of the shop.
type StyleReference int

const (
	// Base length / structure
	Short StyleReference = iota
	Medium
	Long

	// Cut characteristics
	Faded
	Tapered
	Undercut
	Layered
	Textured

	// Styling
	SlickedBack
	SideParted
	ForwardCrop
	Voluminous
	Natural

	// Statement styles
	MulletStyle
	MohawkStyle

	// Beard / shave
	BeardShaped
	CleanShaven
	HotTowelShave
)

var styleNames = [...]string{
	Short:         "Short",
	Medium:        "Medium",
	Long:          "Long",
	Faded:         "Faded",
	Tapered:       "Tapered",
	Undercut:      "Undercut",
	Layered:       "Layered",
	Textured:      "Textured",
	SlickedBack:   "SlickedBack",
	SideParted:    "SideParted",
	ForwardCrop:   "ForwardCrop",
	Voluminous:    "Voluminous",
	Natural:       "Natural",
	MulletStyle:   "MulletStyle",
	MohawkStyle:   "MohawkStyle",
	BeardShaped:   "BeardShaped",
	CleanShaven:   "CleanShaven",
	HotTowelShave: "HotTowelShave",
}

// AllStyles lists every member of the enumeration in declaration order.
func AllStyles() []StyleReference {
	out := make([]StyleReference, len(styleNames))
	for i := range styleNames {
		out[i] = StyleReference(i)
	}
	return out
}

func (s StyleReference) Valid() bool {
	return s >= 0 && int(s) < len(styleNames)
}

func (s StyleReference) String() string {
	if !s.Valid() {
		return fmt.Sprintf("StyleReference(%d)", int(s))
	}
	return styleNames[s]
}

// ParseStyleReference matches enum names case-insensitively.
func ParseStyleReference(name string) (StyleReference, bool) {
	name = strings.TrimSpace(name)
	for i, n := range styleNames {
		if strings.EqualFold(n, name) {
			return StyleReference(i), true
		}
	}
	return 0, false
}

func (s StyleReference) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid style reference %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *StyleReference) UnmarshalText(text []byte) error {
	v, ok := ParseStyleReference(string(text))
	if !ok {
		return fmt.Errorf("unknown style reference %q", string(text))
	}
	*s = v
	return nil
}
