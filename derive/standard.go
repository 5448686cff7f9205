package derive

import (
	"errors"
	"fmt"
)

// ErrUnknownStandard is returned for a standard tag outside the four
// supported conventions.
var ErrUnknownStandard = errors.New("unknown address standard")

// Standard identifies one address derivation convention.
type Standard string

const (
	StandardLegacy       Standard = "legacy"
	StandardNestedSegwit Standard = "nested-segwit"
	StandardNativeSegwit Standard = "native-segwit"
	StandardTaproot      Standard = "taproot"
)

// AllStandards lists the supported conventions in purpose order.
func AllStandards() []Standard {
	return []Standard{StandardLegacy, StandardNestedSegwit, StandardNativeSegwit, StandardTaproot}
}

// Purpose returns the hardened purpose field the standard uses in its
// derivation path.
func (s Standard) Purpose() (uint32, error) {
	switch s {
	case StandardLegacy:
		return 44, nil
	case StandardNestedSegwit:
		return 49, nil
	case StandardNativeSegwit:
		return 84, nil
	case StandardTaproot:
		return 86, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStandard, string(s))
	}
}
