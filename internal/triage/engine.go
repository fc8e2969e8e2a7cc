// Package triage scores patient messages for medical urgency and
// coordinates the emergency response workflow built on those scores.
package triage

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Severity levels derived from the numeric score.
const (
	SeverityCritical  = "CRITICAL"
	SeverityUrgent    = "URGENT"
	SeverityNonUrgent = "NON_URGENT"
)

// DefaultDepartment is returned when no department keyword matches.
const DefaultDepartment = "General Medicine"

// Score thresholds. Ambulance and immediate-attention flags are computed
// from the numeric score, independent of the level boundary.
const (
	criticalThreshold  = 0.8
	urgentThreshold    = 0.5
	ambulanceThreshold = 0.9
	baselineScore      = 0.1
)

// Assessment is the structured triage output for one message.
type Assessment struct {
	SeverityScore           float64  `json:"severity_score"`
	SeverityLevel           string   `json:"severity_level"`
	RecommendedDepartment   string   `json:"recommended_department"`
	DetectedSymptoms        []string `json:"detected_symptoms"`
	NeedsImmediateAttention bool     `json:"needs_immediate_attention"`
	NeedsAmbulance          bool     `json:"needs_ambulance"`
	TriageNotes             string   `json:"triage_notes"`
	FirstAidTips            []string `json:"first_aid_tips"`
}

// symptomWeights maps symptom phrases to severity weights on a 0-1 scale.
var symptomWeights = map[string]float64{
	// Critical (0.9-1.0)
	"chest pain":        1.0,
	"heart attack":      1.0,
	"cardiac arrest":    1.0,
	"not breathing":     1.0,
	"stopped breathing": 1.0,
	"choking":           0.95,
	"severe bleeding":   0.95,
	"unconscious":       1.0,
	"seizure":           0.95,
	"stroke":            1.0,
	"anaphylaxis":       1.0,
	"overdose":          0.95,
	"poisoning":         0.95,
	"severe burn":       0.9,
	"gunshot":           1.0,
	"stab":              1.0,

	// Urgent (0.5-0.89)
	"difficulty breathing":  0.85,
	"shortness of breath":   0.8,
	"high fever":            0.7,
	"severe headache":       0.7,
	"blurred vision":        0.65,
	"broken bone":           0.75,
	"fracture":              0.75,
	"deep cut":              0.7,
	"persistent vomiting":   0.65,
	"blood in stool":        0.7,
	"blood in urine":        0.65,
	"severe abdominal pain": 0.75,
	"allergic reaction":     0.7,
	"fainting":              0.65,
	"dehydration":           0.6,
	"dizziness":             0.55,
	"chest tightness":       0.75,
	"confusion":             0.7,
	"numbness":              0.6,
	"paralysis":             0.85,

	// Moderate (0.3-0.49)
	"fever":        0.4,
	"cough":        0.3,
	"headache":     0.35,
	"body pain":    0.35,
	"sore throat":  0.3,
	"ear pain":     0.35,
	"back pain":    0.4,
	"joint pain":   0.35,
	"rash":         0.3,
	"nausea":       0.35,
	"vomiting":     0.45,
	"diarrhea":     0.35,
	"stomach pain": 0.4,
	"toothache":    0.3,

	// Low (0.1-0.29)
	"cold":          0.15,
	"runny nose":    0.1,
	"mild headache": 0.2,
	"fatigue":       0.2,
	"insomnia":      0.15,
	"anxiety":       0.25,
	"stress":        0.2,
	"itching":       0.15,
	"minor cut":     0.1,
	"bruise":        0.1,
}

type departmentRule struct {
	keyword    string
	department string
}

// departmentRules is scanned in declaration order; the first match wins.
var departmentRules = []departmentRule{
	{"chest pain", "Cardiology"},
	{"heart", "Cardiology"},
	{"cardiac", "Cardiology"},
	{"breathing", "Pulmonology"},
	{"cough", "Pulmonology"},
	{"asthma", "Pulmonology"},
	{"headache", "Neurology"},
	{"seizure", "Neurology"},
	{"stroke", "Neurology"},
	{"numbness", "Neurology"},
	{"confusion", "Neurology"},
	{"paralysis", "Neurology"},
	{"bone", "Orthopedics"},
	{"fracture", "Orthopedics"},
	{"joint", "Orthopedics"},
	{"back pain", "Orthopedics"},
	{"sprain", "Orthopedics"},
	{"child", "Pediatrics"},
	{"baby", "Pediatrics"},
	{"infant", "Pediatrics"},
	{"skin", "Dermatology"},
	{"rash", "Dermatology"},
	{"itching", "Dermatology"},
	{"acne", "Dermatology"},
	{"eye", "Ophthalmology"},
	{"vision", "Ophthalmology"},
	{"runny nose", "General Medicine"},
	{"ear", "ENT"},
	{"nose", "ENT"},
	{"throat", "ENT"},
	{"sore throat", "ENT"},
	{"stomach", "Gastroenterology"},
	{"abdomen", "Gastroenterology"},
	{"digestive", "Gastroenterology"},
	{"anxiety", "Psychiatry"},
	{"depression", "Psychiatry"},
	{"mental", "Psychiatry"},
	{"suicidal", "Psychiatry"},
	{"pregnancy", "Gynecology"},
	{"menstrual", "Gynecology"},
	{"fever", "General Medicine"},
	{"cold", "General Medicine"},
	{"fatigue", "General Medicine"},
}

// firstAidRules maps trigger symptoms to condition-specific tips.
var firstAidRules = []struct {
	symptoms []string
	tips     []string
}{
	{
		symptoms: []string{"chest pain", "heart attack", "cardiac arrest"},
		tips: []string{
			"If patient has prescribed nitroglycerin, help them take it",
			"Have the patient sit upright and stay calm",
			"Loosen any tight clothing",
			"If patient becomes unresponsive, begin CPR",
		},
	},
	{
		symptoms: []string{"not breathing", "stopped breathing", "choking"},
		tips: []string{
			"Check airway for obstructions",
			"If choking: perform Heimlich maneuver (abdominal thrusts)",
			"If not breathing: begin rescue breathing / CPR",
			"Tilt head back, lift chin to open airway",
		},
	},
	{
		symptoms: []string{"severe bleeding", "deep cut"},
		tips: []string{
			"Apply direct pressure with clean cloth",
			"Elevate the wound above heart level if possible",
			"Do NOT remove embedded objects",
			"Apply tourniquet only as last resort for life-threatening limb bleeding",
		},
	},
	{
		symptoms: []string{"seizure"},
		tips: []string{
			"Clear area around patient of hard objects",
			"Do NOT restrain or put anything in their mouth",
			"Turn patient on their side after seizure stops",
			"Time the seizure and call emergency services if it lasts over 5 minutes",
		},
	},
	{
		symptoms: []string{"severe burn"},
		tips: []string{
			"Cool the burn under cool running water for 10+ minutes",
			"Do NOT apply ice, butter, or ointments",
			"Cover with clean, non-stick dressing",
			"Remove jewelry near the burn before swelling starts",
		},
	},
	{
		symptoms: []string{"fracture", "broken bone"},
		tips: []string{
			"Immobilize the injured area and do not try to realign",
			"Apply ice wrapped in cloth to reduce swelling",
			"Splint the area if trained to do so",
		},
	},
	{
		symptoms: []string{"high fever", "fever"},
		tips: []string{
			"Stay hydrated with plenty of fluids",
			"Rest in a cool, comfortable environment",
			"Use a damp cloth on forehead for comfort",
		},
	},
	{
		symptoms: []string{"allergic reaction", "anaphylaxis"},
		tips: []string{
			"Use EpiPen if available and trained to do so",
			"Help patient sit upright for easier breathing",
			"Remove known allergen if identifiable",
		},
	},
}

var genericTips = []string{
	"Rest and stay hydrated",
	"Monitor symptoms and note any changes",
	"Seek medical attention if symptoms worsen",
}

var criticalPreamble = []string{
	"Call emergency services (108) IMMEDIATELY",
	"Do NOT move the patient unless in immediate danger",
	"Monitor consciousness and breathing",
}

type weightedSymptom struct {
	name   string
	weight float64
}

// Engine assesses symptom severity from raw message text. Pure and
// deterministic; no I/O.
type Engine struct{}

// NewEngine creates a triage engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Assess runs the full triage assessment on a patient message.
func (e *Engine) Assess(message string) Assessment {
	lower := strings.ToLower(message)

	detected := detectSymptoms(lower)
	score := calculateSeverity(detected)
	department := determineDepartment(lower)

	var level string
	switch {
	case score >= criticalThreshold:
		level = SeverityCritical
	case score >= urgentThreshold:
		level = SeverityUrgent
	default:
		level = SeverityNonUrgent
	}

	names := make([]string, len(detected))
	for i, s := range detected {
		names[i] = s.name
	}

	return Assessment{
		SeverityScore:           math.Round(score*1000) / 1000,
		SeverityLevel:           level,
		RecommendedDepartment:   department,
		DetectedSymptoms:        names,
		NeedsImmediateAttention: score >= criticalThreshold,
		NeedsAmbulance:          score >= ambulanceThreshold,
		TriageNotes:             buildNotes(names, level, department),
		FirstAidTips:            firstAidTips(names, level),
	}
}

// detectSymptoms returns matched symptoms sorted by weight, highest first.
func detectSymptoms(lower string) []weightedSymptom {
	var detected []weightedSymptom
	for symptom, weight := range symptomWeights {
		if strings.Contains(lower, symptom) {
			detected = append(detected, weightedSymptom{name: symptom, weight: weight})
		}
	}
	sort.Slice(detected, func(i, j int) bool {
		if detected[i].weight != detected[j].weight {
			return detected[i].weight > detected[j].weight
		}
		return detected[i].name < detected[j].name
	})
	return detected
}

// calculateSeverity takes the highest symptom weight as the base and adds a
// capped compounding bonus when several symptoms co-occur.
func calculateSeverity(detected []weightedSymptom) float64 {
	if len(detected) == 0 {
		return baselineScore
	}
	score := detected[0].weight
	if len(detected) > 1 {
		bonus := math.Min(0.15, float64(len(detected))*0.03)
		score = math.Min(1.0, score+bonus)
	}
	return score
}

func determineDepartment(lower string) string {
	for _, rule := range departmentRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.department
		}
	}
	return DefaultDepartment
}

func firstAidTips(symptoms []string, level string) []string {
	var tips []string
	if level == SeverityCritical {
		tips = append(tips, criticalPreamble...)
	}

	present := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		present[s] = true
	}

	for _, rule := range firstAidRules {
		for _, s := range rule.symptoms {
			if present[s] {
				tips = append(tips, rule.tips...)
				break
			}
		}
	}

	if len(tips) == 0 {
		tips = append(tips, genericTips...)
	}
	return tips
}

func buildNotes(symptoms []string, level, department string) string {
	if len(symptoms) == 0 {
		return fmt.Sprintf("No specific symptoms detected. Recommended: %s consultation.", department)
	}
	return fmt.Sprintf(
		"Triage Assessment: %s | Symptoms: %s | Recommended Dept: %s | Symptom count: %d",
		level, strings.Join(symptoms, ", "), department, len(symptoms),
	)
}
