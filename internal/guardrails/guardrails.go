// Package guardrails filters generated replies so diagnostic or
// prescriptive language never reaches a patient.
package guardrails

import (
	"regexp"
	"strings"
)

// Replacement placeholders for matched unsafe phrasing.
const (
	diagnosisPlaceholder    = "[I cannot make diagnoses - please consult a doctor]"
	prescriptionPlaceholder = "[I cannot prescribe medications - please consult a doctor]"
	unsafeClaimPlaceholder  = "[Please seek professional medical advice]"
)

// MedicalDisclaimer is appended when a reply discusses symptoms.
const MedicalDisclaimer = "\n\nPlease note: I'm an AI hospital assistant and cannot provide " +
	"medical diagnosis or prescriptions. For medical concerns, please consult " +
	"with a healthcare professional or visit the hospital."

// EmergencyDisclaimer is appended on the emergency path only.
const EmergencyDisclaimer = "\n\nIf you are experiencing a medical emergency, please call " +
	"emergency services (108) immediately or go to the nearest emergency room."

type patternFamily struct {
	patterns    []*regexp.Regexp
	replacement string
}

var diagnosisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you have \w+`),
	regexp.MustCompile(`(?i)you are suffering from`),
	regexp.MustCompile(`(?i)diagnosed with`),
	regexp.MustCompile(`(?i)this is (likely|probably|definitely) \w+`),
	regexp.MustCompile(`(?i)it sounds like you have`),
	regexp.MustCompile(`(?i)you might have`),
	regexp.MustCompile(`(?i)this could be \w+ disease`),
}

var prescriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)take \d+ mg`),
	regexp.MustCompile(`(?i)you should take \w+ medication`),
	regexp.MustCompile(`(?i)prescribe`),
	regexp.MustCompile(`(?i)dosage`),
	regexp.MustCompile(`(?i)take (aspirin|ibuprofen|paracetamol|acetaminophen)`),
	regexp.MustCompile(`(?i)medication for \w+`),
	regexp.MustCompile(`(?i)i recommend taking`),
}

var unsafeClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)don't worry.{0,20}not serious`),
	regexp.MustCompile(`(?i)nothing to worry about`),
	regexp.MustCompile(`(?i)this is not an emergency`),
	regexp.MustCompile(`(?i)you don't need to see a doctor`),
	regexp.MustCompile(`(?i)no need for hospital`),
	regexp.MustCompile(`(?i)home remedy will cure`),
	regexp.MustCompile(`(?i)guaranteed to work`),
}

var families = []patternFamily{
	{diagnosisPatterns, diagnosisPlaceholder},
	{prescriptionPatterns, prescriptionPlaceholder},
	{unsafeClaimPatterns, unsafeClaimPlaceholder},
}

// symptomKeywords trigger the medical disclaimer when present.
var symptomKeywords = []string{"pain", "fever", "bleeding", "symptom", "condition", "suffer"}

// Filter scans generated replies against fixed unsafe-phrasing patterns.
// Total and side-effect free.
type Filter struct{}

// NewFilter creates a guardrail filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Check replaces unsafe phrasing in a generated reply and appends the
// medical disclaimer when symptoms are discussed. Returns the filtered
// reply and whether it was modified. Re-running Check on its own output
// never duplicates the disclaimer; an existing disclaimer is lifted out
// before the pattern scan so its own wording is never rewritten.
func (f *Filter) Check(reply string) (string, bool) {
	body := reply
	hadDisclaimer := false
	if strings.Contains(body, MedicalDisclaimer) {
		hadDisclaimer = true
		body = strings.Replace(body, MedicalDisclaimer, "", 1)
	}

	filtered := body
	modified := false

	for _, family := range families {
		for _, re := range family.patterns {
			if re.MatchString(filtered) {
				filtered = re.ReplaceAllString(filtered, family.replacement)
				modified = true
			}
		}
	}

	needsDisclaimer := hadDisclaimer
	if !needsDisclaimer {
		lower := strings.ToLower(body)
		for _, kw := range symptomKeywords {
			if strings.Contains(lower, kw) {
				needsDisclaimer = true
				break
			}
		}
	}
	if needsDisclaimer {
		filtered += MedicalDisclaimer
		if !hadDisclaimer {
			modified = true
		}
	}

	return filtered, modified
}

// AddEmergencyDisclaimer appends the emergency-services notice unless the
// reply already carries it. Emergency path only.
func AddEmergencyDisclaimer(reply string) string {
	if strings.Contains(reply, EmergencyDisclaimer) {
		return reply
	}
	return reply + EmergencyDisclaimer
}
