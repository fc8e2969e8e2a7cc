package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Assess_Critical(t *testing.T) {
	e := NewEngine()

	result := e.Assess("I have severe chest pain and I can barely stand")

	assert.Equal(t, SeverityCritical, result.SeverityLevel)
	assert.Equal(t, "Cardiology", result.RecommendedDepartment)
	assert.True(t, result.NeedsImmediateAttention)
	assert.True(t, result.NeedsAmbulance)
	require.NotEmpty(t, result.DetectedSymptoms)
	assert.Equal(t, "chest pain", result.DetectedSymptoms[0])
	assert.Contains(t, result.FirstAidTips[0], "emergency services")
}

func TestEngine_Assess_MildSymptom(t *testing.T) {
	e := NewEngine()

	result := e.Assess("I have a slight runny nose")

	assert.Equal(t, SeverityNonUrgent, result.SeverityLevel)
	assert.InDelta(t, 0.1, result.SeverityScore, 0.001)
	assert.False(t, result.NeedsAmbulance)
	assert.False(t, result.NeedsImmediateAttention)
	// "runny nose" precedes the ENT "nose" rule in the table.
	assert.Equal(t, DefaultDepartment, result.RecommendedDepartment)
}

func TestEngine_Assess_EmptyMessage(t *testing.T) {
	e := NewEngine()

	result := e.Assess("")

	assert.Equal(t, SeverityNonUrgent, result.SeverityLevel)
	assert.InDelta(t, 0.1, result.SeverityScore, 0.001)
	assert.Equal(t, DefaultDepartment, result.RecommendedDepartment)
	assert.Empty(t, result.DetectedSymptoms)
	assert.Equal(t, genericTips, result.FirstAidTips)
	assert.Contains(t, result.TriageNotes, "No specific symptoms")
}

func TestEngine_SeverityThresholds(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name      string
		message   string
		wantScore float64
		wantLevel string
	}{
		// "shortness of breath" weighs exactly 0.8, the critical boundary.
		{"exactly 0.8 is critical", "shortness of breath", 0.8, SeverityCritical},
		// Five 0.35-weight symptoms: base 0.35 plus the capped 0.15
		// compounding bonus lands exactly on the urgent boundary.
		{"exactly 0.5 is urgent", "headache, nausea, joint pain, ear pain and body pain", 0.5, SeverityUrgent},
		// Base 0.4 (fever) plus the three-symptom bonus stays just under 0.5.
		{"just under 0.5 is non-urgent", "fever, cough and headache", 0.49, SeverityNonUrgent},
		{"baseline is non-urgent", "hello", 0.1, SeverityNonUrgent},
		{"max is critical", "chest pain and stroke", 1.0, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Assess(tt.message)
			assert.InDelta(t, tt.wantScore, result.SeverityScore, 0.001)
			assert.Equal(t, tt.wantLevel, result.SeverityLevel)
		})
	}
}

func TestEngine_AmbulanceIndependentOfLevel(t *testing.T) {
	e := NewEngine()

	// shortness of breath weighs 0.8: critical level but below the 0.9
	// ambulance threshold.
	result := e.Assess("shortness of breath")
	assert.Equal(t, SeverityCritical, result.SeverityLevel)
	assert.True(t, result.NeedsImmediateAttention)
	assert.False(t, result.NeedsAmbulance)
}

func TestEngine_CompoundingBonus(t *testing.T) {
	e := NewEngine()

	single := e.Assess("I have a fever")
	multi := e.Assess("I have a fever, a cough and a headache")

	assert.Greater(t, multi.SeverityScore, single.SeverityScore)
	assert.Len(t, multi.DetectedSymptoms, 3)
	// Base 0.4 (fever) + 3*0.03 bonus.
	assert.InDelta(t, 0.49, multi.SeverityScore, 0.001)
}

func TestEngine_BonusCappedAtOne(t *testing.T) {
	e := NewEngine()

	result := e.Assess("chest pain, stroke, unconscious, seizure, severe bleeding, choking")
	assert.LessOrEqual(t, result.SeverityScore, 1.0)
	assert.Equal(t, SeverityCritical, result.SeverityLevel)
}

func TestEngine_SymptomsSortedByWeight(t *testing.T) {
	e := NewEngine()

	result := e.Assess("I have a cough and chest pain")
	require.Len(t, result.DetectedSymptoms, 2)
	assert.Equal(t, "chest pain", result.DetectedSymptoms[0])
	assert.Equal(t, "cough", result.DetectedSymptoms[1])
}

func TestEngine_DepartmentTableOrder(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		text string
		want string
	}{
		{"my heart is racing", "Cardiology"},
		{"trouble breathing during exercise", "Pulmonology"},
		{"I think I broke a bone", "Orthopedics"},
		{"my baby has a rash", "Pediatrics"}, // baby precedes rash in the table
		{"weird rash on my arm", "Dermatology"},
		{"feeling anxious lately", "Psychiatry"},
		{"nothing specific", DefaultDepartment},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Assess(tt.text).RecommendedDepartment)
		})
	}
}

func TestEngine_FirstAidForBleeding(t *testing.T) {
	e := NewEngine()

	result := e.Assess("severe bleeding from my leg")
	assert.Contains(t, result.FirstAidTips, "Apply direct pressure with clean cloth")
}

func TestEngine_NotesFormat(t *testing.T) {
	e := NewEngine()

	result := e.Assess("high fever and a headache")
	assert.Contains(t, result.TriageNotes, "Triage Assessment: URGENT")
	assert.Contains(t, result.TriageNotes, "high fever")
	assert.Contains(t, result.TriageNotes, "Symptom count: 2")
}

func TestEngine_ScoreAlwaysInRange(t *testing.T) {
	e := NewEngine()

	inputs := []string{
		"", "hello", "chest pain", "chest pain stroke unconscious seizure",
		"runny nose", "fever cough headache nausea vomiting diarrhea",
	}
	for _, input := range inputs {
		result := e.Assess(input)
		assert.GreaterOrEqual(t, result.SeverityScore, 0.0, "input %q", input)
		assert.LessOrEqual(t, result.SeverityScore, 1.0, "input %q", input)
	}
}
