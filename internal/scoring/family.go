package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s and strips diacritics so "Gestão" and "gestao" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

var riskScaleMarkers = []string{"organizacao", "sofrimento", "danos"}

// FamilyForScale resolves the canonical table of a scale from its name. Management
// style is checked first because its scale names may also mention the organization.
func FamilyForScale(scale string) Family {
	name := fold(scale)
	if strings.Contains(name, "gestao") {
		return FamilyManagementStyle
	}
	for _, m := range riskScaleMarkers {
		if strings.Contains(name, m) {
			return FamilyRisk
		}
	}
	return FamilyUnknown
}

// ParseRiskLevel maps a risk label as stored with a response to its tier.
func ParseRiskLevel(label string) Tier {
	switch fold(label) {
	case "baixo", "low", "low_risk":
		return TierLowRisk
	case "moderado", "medio", "moderate", "medium", "moderate_risk":
		return TierModerateRisk
	case "alto", "high", "high_risk":
		return TierHighRisk
	default:
		return TierUnknown
	}
}
