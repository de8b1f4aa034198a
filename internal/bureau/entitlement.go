package bureau

import "strings"

// IsUnlocked reports whether code appears in the entitlement list. Matching is
// case-insensitive and ignores surrounding whitespace; an empty or nil list
// unlocks nothing.
func IsUnlocked(code Code, entitlements []string) bool {
	want := strings.ToLower(strings.TrimSpace(string(code)))
	if want == "" {
		return false
	}
	for _, e := range entitlements {
		if strings.ToLower(strings.TrimSpace(e)) == want {
			return true
		}
	}
	return false
}

// NormalizeEntitlements lower-cases, trims and de-duplicates an entitlement
// list, dropping unknown bureaus. Order follows first appearance.
func NormalizeEntitlements(entitlements []string) []Code {
	seen := make(map[Code]struct{}, len(entitlements))
	out := make([]Code, 0, len(entitlements))
	for _, e := range entitlements {
		c, err := ParseCode(e)
		if err != nil {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
