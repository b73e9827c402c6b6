package scoring

import "math"

// Purpose tells what a threshold table is for. Canonical tables produce the PROART
// risk/characterization result; display tables only drive color coding.
type Purpose string

const (
	PurposeCanonical       Purpose = "canonical"
	PurposeDisplaySeverity Purpose = "display-severity"
)

// Family selects the canonical threshold table for a scale.
type Family string

const (
	FamilyUnknown Family = ""
	// FamilyRisk covers the work organization, suffering and damage scales.
	FamilyRisk Family = "A"
	// FamilyManagementStyle covers the management style scales.
	FamilyManagementStyle Family = "B"
)

// Tier is a canonical classification result.
type Tier string

const (
	TierUnknown           Tier = ""
	TierLowRisk           Tier = "low_risk"
	TierModerateRisk      Tier = "moderate_risk"
	TierHighRisk          Tier = "high_risk"
	TierNotCharacteristic Tier = "not_characteristic"
	TierModeratePresence  Tier = "moderate_presence"
	TierPredominant       Tier = "predominant"
)

var tierLabels = map[Tier]string{
	TierLowRisk:           "Baixo",
	TierModerateRisk:      "Moderado",
	TierHighRisk:          "Alto",
	TierNotCharacteristic: "Pouco característico",
	TierModeratePresence:  "Moderado",
	TierPredominant:       "Predominante",
}

// Label returns the pt-BR text shown for the tier.
func (t Tier) Label() string {
	return tierLabels[t]
}

// Severity is the display-only four band color level.
type Severity string

const (
	SeverityBest    Severity = "best"
	SeverityGood    Severity = "good"
	SeverityWarning Severity = "warning"
	SeverityWorst   Severity = "worst"
)

// Band is one row of a threshold table. A score falls into the band when it is above
// Lower, or equal to it and LowerInclusive is set.
type Band[T comparable] struct {
	Lower          float64
	LowerInclusive bool
	Value          T
}

func (b Band[T]) contains(score float64) bool {
	return score > b.Lower || (b.LowerInclusive && score == b.Lower)
}

// Table is an ordered set of bands, highest first, with a floor value for anything
// below the last band.
type Table[T comparable] struct {
	Purpose Purpose
	Bands   []Band[T]
	Floor   T
}

// Lookup classifies score. NaN and anything under the lowest band return Floor.
func (t Table[T]) Lookup(score float64) T {
	for _, b := range t.Bands {
		if b.contains(score) {
			return b.Value
		}
	}
	return t.Floor
}

// RiskTable is the canonical table for FamilyRisk scales.
var RiskTable = Table[Tier]{
	Purpose: PurposeCanonical,
	Bands: []Band[Tier]{
		{Lower: 3.70, LowerInclusive: true, Value: TierLowRisk},
		{Lower: 2.30, LowerInclusive: true, Value: TierModerateRisk},
	},
	Floor: TierHighRisk,
}

// ManagementStyleTable is the canonical table for FamilyManagementStyle scales.
// 2.50 itself is a moderate presence; only scores strictly below it are not
// characteristic.
var ManagementStyleTable = Table[Tier]{
	Purpose: PurposeCanonical,
	Bands: []Band[Tier]{
		{Lower: 3.50, LowerInclusive: false, Value: TierPredominant},
		{Lower: 2.50, LowerInclusive: true, Value: TierModeratePresence},
	},
	Floor: TierNotCharacteristic,
}

// SeverityTable drives the color of a raw average. It is not a risk classification.
var SeverityTable = Table[Severity]{
	Purpose: PurposeDisplaySeverity,
	Bands: []Band[Severity]{
		{Lower: 4.0, LowerInclusive: true, Value: SeverityBest},
		{Lower: 3.0, LowerInclusive: true, Value: SeverityGood},
		{Lower: 2.0, LowerInclusive: true, Value: SeverityWarning},
	},
	Floor: SeverityWorst,
}

// Classify returns the canonical tier of score for the given family.
func Classify(score float64, family Family) Tier {
	switch family {
	case FamilyRisk:
		return RiskTable.Lookup(score)
	case FamilyManagementStyle:
		return ManagementStyleTable.Lookup(score)
	default:
		return TierUnknown
	}
}

// Level returns the display severity of a raw average.
func Level(score float64) Severity {
	return SeverityTable.Lookup(score)
}

// LegendEntry describes one band of a table for the rendering layer.
type LegendEntry struct {
	Key   string   `json:"key"`
	Label string   `json:"label,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	// MinInclusive is false when the band starts strictly above Min.
	MinInclusive bool `json:"minInclusive"`
}

// LegendTable is a threshold table rendered as plain data.
type LegendTable struct {
	Name    string        `json:"name"`
	Purpose Purpose       `json:"purpose"`
	Family  Family        `json:"family,omitempty"`
	Entries []LegendEntry `json:"entries"`
}

// Legend exports every threshold table, highest band first.
func Legend() []LegendTable {
	return []LegendTable{
		{
			Name:    "risk",
			Purpose: RiskTable.Purpose,
			Family:  FamilyRisk,
			Entries: legendEntries(RiskTable, func(t Tier) (string, string) { return string(t), t.Label() }),
		},
		{
			Name:    "management_style",
			Purpose: ManagementStyleTable.Purpose,
			Family:  FamilyManagementStyle,
			Entries: legendEntries(ManagementStyleTable, func(t Tier) (string, string) { return string(t), t.Label() }),
		},
		{
			Name:    "severity",
			Purpose: SeverityTable.Purpose,
			Entries: legendEntries(SeverityTable, func(s Severity) (string, string) { return string(s), "" }),
		},
	}
}

func legendEntries[T comparable](t Table[T], describe func(T) (string, string)) []LegendEntry {
	out := make([]LegendEntry, 0, len(t.Bands)+1)
	upper := math.NaN()
	for _, b := range t.Bands {
		key, label := describe(b.Value)
		e := LegendEntry{Key: key, Label: label, Min: ptr(b.Lower), MinInclusive: b.LowerInclusive}
		if !math.IsNaN(upper) {
			e.Max = ptr(upper)
		}
		out = append(out, e)
		upper = b.Lower
	}
	key, label := describe(t.Floor)
	floor := LegendEntry{Key: key, Label: label}
	if !math.IsNaN(upper) {
		floor.Max = ptr(upper)
	}
	return append(out, floor)
}

func ptr(v float64) *float64 { return &v }
