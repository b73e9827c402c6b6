package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		score  float64
		family Family
		want   Tier
	}{
		{"risk 3.70 is low", 3.70, FamilyRisk, TierLowRisk},
		{"risk 3.69 is moderate", 3.69, FamilyRisk, TierModerateRisk},
		{"risk 2.30 is moderate", 2.30, FamilyRisk, TierModerateRisk},
		{"risk 2.29 is high", 2.29, FamilyRisk, TierHighRisk},
		{"risk 5.00 is low", 5.00, FamilyRisk, TierLowRisk},
		{"risk 1.00 is high", 1.00, FamilyRisk, TierHighRisk},
		{"risk above scale stays low", 7.5, FamilyRisk, TierLowRisk},
		{"risk below scale stays high", -1, FamilyRisk, TierHighRisk},
		{"style 2.50 is moderate", 2.50, FamilyManagementStyle, TierModeratePresence},
		{"style 2.49 is not characteristic", 2.49, FamilyManagementStyle, TierNotCharacteristic},
		{"style 3.50 is moderate", 3.50, FamilyManagementStyle, TierModeratePresence},
		{"style 3.51 is predominant", 3.51, FamilyManagementStyle, TierPredominant},
		{"unknown family", 3.0, FamilyUnknown, TierUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.score, tc.family))
		})
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		score float64
		want  Severity
	}{
		{5.0, SeverityBest},
		{4.0, SeverityBest},
		{3.99, SeverityGood},
		{3.0, SeverityGood},
		{2.99, SeverityWarning},
		{2.0, SeverityWarning},
		{1.99, SeverityWorst},
		{0, SeverityWorst},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Level(tc.score), "score %v", tc.score)
	}
}

func TestNaNFallsToFloor(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, TierHighRisk, Classify(nan, FamilyRisk))
	assert.Equal(t, TierNotCharacteristic, Classify(nan, FamilyManagementStyle))
	assert.Equal(t, SeverityWorst, Level(nan))
}

func TestTablePurposes(t *testing.T) {
	assert.Equal(t, PurposeCanonical, RiskTable.Purpose)
	assert.Equal(t, PurposeCanonical, ManagementStyleTable.Purpose)
	assert.Equal(t, PurposeDisplaySeverity, SeverityTable.Purpose)
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "Baixo", TierLowRisk.Label())
	assert.Equal(t, "Predominante", TierPredominant.Label())
	assert.Equal(t, "", TierUnknown.Label())
}

func TestLegend(t *testing.T) {
	legend := Legend()
	require.Len(t, legend, 3)

	risk := legend[0]
	assert.Equal(t, "risk", risk.Name)
	assert.Equal(t, FamilyRisk, risk.Family)
	require.Len(t, risk.Entries, 3)
	assert.Equal(t, string(TierLowRisk), risk.Entries[0].Key)
	assert.Nil(t, risk.Entries[0].Max)
	require.NotNil(t, risk.Entries[0].Min)
	assert.Equal(t, 3.70, *risk.Entries[0].Min)
	assert.Equal(t, string(TierHighRisk), risk.Entries[2].Key)
	assert.Nil(t, risk.Entries[2].Min)
	require.NotNil(t, risk.Entries[2].Max)
	assert.Equal(t, 2.30, *risk.Entries[2].Max)

	style := legend[1]
	assert.False(t, style.Entries[0].MinInclusive)
	assert.True(t, style.Entries[1].MinInclusive)

	severity := legend[2]
	assert.Equal(t, PurposeDisplaySeverity, severity.Purpose)
	assert.Len(t, severity.Entries, 4)
}

func TestFamilyForScale(t *testing.T) {
	cases := map[string]Family{
		"Escala dos Estilos de Gestão":                      FamilyManagementStyle,
		"ESCALA DE ESTILOS DE GESTAO":                       FamilyManagementStyle,
		"Escala de Organização Prescrita do Trabalho":       FamilyRisk,
		"Escala de Sofrimento Patogênico no Trabalho":       FamilyRisk,
		"Escala de Danos Relacionados ao Trabalho":          FamilyRisk,
		"Estilos de Gestão da Organização":                  FamilyManagementStyle,
		"Something else":                                    FamilyUnknown,
		"":                                                  FamilyUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, FamilyForScale(name), name)
	}
}

func TestParseRiskLevel(t *testing.T) {
	assert.Equal(t, TierLowRisk, ParseRiskLevel("Baixo"))
	assert.Equal(t, TierModerateRisk, ParseRiskLevel(" moderado "))
	assert.Equal(t, TierModerateRisk, ParseRiskLevel("Médio"))
	assert.Equal(t, TierHighRisk, ParseRiskLevel("ALTO"))
	assert.Equal(t, TierHighRisk, ParseRiskLevel("high"))
	assert.Equal(t, TierUnknown, ParseRiskLevel("crítico"))
}
