package taxonomy

import (
	"fmt"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Mode selects the cardinality policy for one Resolve call.
type Mode string

const (
	// ModeRestricted applies per-category caps and the total ceiling. Default for book management.
	ModeRestricted Mode = "restricted"
	// ModeUnrestricted keeps only the total ceiling.
	ModeUnrestricted Mode = "unrestricted"
)

// MaxSelections is the ceiling on selections per book in every mode.
const MaxSelections = 20

// RecommendedMinimum is the soft floor for restricted mode. Falling short only
// produces a warning: back-catalogue imports often carry sparse taxonomy data.
const RecommendedMinimum = 5

// ParseMode converts a wire value into a Mode. Empty means restricted.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRestricted:
		return ModeRestricted, nil
	case ModeUnrestricted:
		return ModeUnrestricted, nil
	default:
		return "", fmt.Errorf("unknown taxonomy mode %q", s)
	}
}

// ModeFor maps the boolean config switch to a Mode.
func ModeFor(restricted bool) Mode {
	if restricted {
		return ModeRestricted
	}
	return ModeUnrestricted
}

// Policy is the set of limits a Mode stands for.
type Policy struct {
	Caps     map[domain.Category]int // zero or missing means uncapped
	MaxTotal int
	MinTotal int // soft; 0 disables the below-minimum warning
}

// Policy returns the limits for the mode.
func (m Mode) Policy() Policy {
	if m == ModeUnrestricted {
		return Policy{MaxTotal: MaxSelections}
	}
	return Policy{
		Caps: map[domain.Category]int{
			domain.CategoryGenre:    2,
			domain.CategorySubgenre: 5,
			domain.CategoryTheme:    6,
			domain.CategoryTrope:    7,
		},
		MaxTotal: MaxSelections,
		MinTotal: RecommendedMinimum,
	}
}

// Cap returns the per-category cap, or 0 when the category is uncapped.
func (p Policy) Cap(c domain.Category) int {
	return p.Caps[c]
}
