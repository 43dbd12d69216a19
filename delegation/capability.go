package delegation

import (
	"fmt"
	"strings"

	"fam.dev/fam/codec"
)

// Capability is one granted ability on one resource.
type Capability struct {
	// Can is the ability, e.g. "space/blob/add", "clock/*" or "*".
	Can string `cbor:"can"`
	// With is the resource URI, usually a DID.
	With string `cbor:"with"`
	// Nb holds optional caveats as a structured value map.
	Nb map[string]any `cbor:"nb,omitempty"`
}

// ValidateCapability checks the shape of c. It does not evaluate policy.
func ValidateCapability(c Capability) error {
	if err := validateAbility(c.Can); err != nil {
		return wrapError(KindCapability, "DLG-CAP-001", fmt.Sprintf("invalid ability %q", c.Can), err)
	}
	if err := validateResource(c.With); err != nil {
		return wrapError(KindCapability, "DLG-CAP-002", fmt.Sprintf("invalid resource %q", c.With), err)
	}
	return nil
}

// Matches reports whether ability can is covered by pattern, where pattern may
// end in a "/*" wildcard segment or be "*".
func Matches(pattern, can string) bool {
	if pattern == "*" || pattern == can {
		return true
	}
	prefix, ok := strings.CutSuffix(pattern, "/*")
	return ok && strings.HasPrefix(can, prefix+"/")
}

func validateAbility(can string) error {
	if can == "*" {
		return nil
	}
	segments := strings.Split(can, "/")
	if len(segments) < 2 {
		return fmt.Errorf("ability must be \"*\" or namespace/action")
	}
	for i, seg := range segments {
		if seg == "" {
			return fmt.Errorf("empty segment")
		}
		if seg == "*" {
			if i != len(segments)-1 {
				return fmt.Errorf("wildcard must be the last segment")
			}
			continue
		}
		for j := 0; j < len(seg); j++ {
			c := seg[j]
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.') {
				return fmt.Errorf("invalid character %q", c)
			}
		}
	}
	return nil
}

// validateResource requires an absolute URI: scheme ":" rest.
func validateResource(with string) error {
	scheme, rest, ok := strings.Cut(with, ":")
	if !ok || scheme == "" || rest == "" {
		return fmt.Errorf("resource must be an absolute URI")
	}
	for i := 0; i < len(scheme); i++ {
		c := scheme[i]
		switch {
		case c >= 'a' && c <= 'z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return fmt.Errorf("invalid scheme character %q", c)
		}
	}
	return nil
}

func normalizeCapability(c Capability) (Capability, error) {
	if err := ValidateCapability(c); err != nil {
		return Capability{}, err
	}
	if len(c.Nb) == 0 {
		return Capability{Can: c.Can, With: c.With}, nil
	}
	nb, err := codec.Normalize(c.Nb)
	if err != nil {
		return Capability{}, wrapError(KindCapability, "DLG-CAP-003", "invalid caveats", err)
	}
	return Capability{Can: c.Can, With: c.With, Nb: nb.(map[string]any)}, nil
}
