package criteria

import (
	"strings"

	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// foldContains reports whether needle appears in haystack,
// case-insensitively. Needles shorter than four characters (drug
// abbreviations, short codes) must match the whole field exactly
// rather than merely appear as a substring, since a short token like
// "mtx" would otherwise false-positive against unrelated text.
func foldContains(haystack, needle string) bool {
	h := strings.ToLower(strings.TrimSpace(haystack))
	n := strings.ToLower(strings.TrimSpace(needle))
	if h == "" || n == "" {
		return false
	}
	if len(n) < 4 {
		return h == n
	}
	return strings.Contains(h, n)
}

// matchesDrug reports whether a prior treatment's medication name or
// drug class matches any of the criterion's configured drug names or
// classes.
func matchesDrug(t patientnorm.PriorTreatment, drugNames, drugClasses []string) bool {
	for _, n := range drugNames {
		if foldContains(t.MedicationName, n) {
			return true
		}
	}
	for _, c := range drugClasses {
		if t.DrugClass != "" && foldContains(t.DrugClass, c) {
			return true
		}
	}
	return false
}

// findMatchingTreatments returns every prior treatment on the patient
// record matching the criterion's drug name/class list. An empty
// drug-name/class list on the criterion matches every treatment on
// record (the criterion is about "any prior treatment", not a
// specific drug).
func findMatchingTreatments(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) []patientnorm.PriorTreatment {
	if len(c.DrugNames) == 0 && len(c.DrugClasses) == 0 {
		return patient.PriorTreatments
	}
	var out []patientnorm.PriorTreatment
	for _, t := range patient.PriorTreatments {
		if matchesDrug(t, c.DrugNames, c.DrugClasses) {
			out = append(out, t)
		}
	}
	return out
}

// failureOutcomes is the set of TreatmentOutcome values that count as
// a documented treatment failure for prior_treatment_failed
// evaluation. partial_response is included: a partial response to a
// biologic is conventionally treated as an inadequate trial outcome
// by utilization-management criteria, not a success.
var failureOutcomes = map[string]bool{
	string(patientnorm.OutcomeFailed):             true,
	string(patientnorm.OutcomeInadequateResponse): true,
	string(patientnorm.OutcomePartialResponse):    true,
	string(patientnorm.OutcomeSteroidDependent):   true,
}

func isFailureOutcome(outcome string) bool { return failureOutcomes[outcome] }

// MatchesDrug exposes matchesDrug for step-therapy evaluation, which
// needs to test a single required drug name or class against one
// treatment record at a time.
func MatchesDrug(t patientnorm.PriorTreatment, drugNames, drugClasses []string) bool {
	return matchesDrug(t, drugNames, drugClasses)
}

// AcceptableStepTherapyOutcome reports whether a prior treatment's
// recorded outcome satisfies a step-therapy trial requirement. Beyond
// the standard failure outcomes, intolerance and contraindication
// count only when the requirement explicitly accepts them.
func AcceptableStepTherapyOutcome(outcome string, intoleranceAcceptable, contraindicationAcceptable bool) bool {
	if isFailureOutcome(outcome) {
		return true
	}
	if intoleranceAcceptable && outcome == string(patientnorm.OutcomeIntolerant) {
		return true
	}
	if contraindicationAcceptable && outcome == string(patientnorm.OutcomeContraindicated) {
		return true
	}
	return false
}

// findLOINCCode returns the criterion's configured LOINC code, if any.
func findLOINCCode(c *policyschema.AtomicCriterion) string {
	for _, cc := range c.ClinicalCodes {
		if cc.System == policyschema.SystemLOINC && cc.Code != "" {
			return cc.Code
		}
	}
	return ""
}

// findMatchingLab locates the lab result the criterion refers to. A
// configured LOINC code takes priority over name matching, since
// LOINC is unambiguous where test names are not.
func findMatchingLab(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) (patientnorm.LabResult, bool) {
	if loinc := findLOINCCode(c); loinc != "" {
		for _, r := range patient.LabResults {
			if r.LOINCCode != "" && r.LOINCCode == loinc {
				return r, true
			}
		}
	}
	for _, r := range patient.LabResults {
		if foldContains(r.TestName, c.Name) {
			return r, true
		}
	}
	return patientnorm.LabResult{}, false
}

// findMatchingScreening locates the patient's screening entry for the
// token named by the criterion's Category field (the canonical
// screening-type token assigned during digitalization, e.g. "tb").
func findMatchingScreening(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) (patientnorm.Screening, bool) {
	want := strings.ToLower(strings.TrimSpace(c.Category))
	if want == "" {
		return patientnorm.Screening{}, false
	}
	for _, s := range patient.CompletedScreenings {
		if strings.ToLower(s.ScreeningType) == want {
			return s, true
		}
	}
	return patientnorm.Screening{}, false
}

// diagnosisCodeMatches implements the bidirectional-prefix resolution
// for ICD-style codes: both codes are upper-cased with dots removed,
// and they match when equal or when either is a prefix of the other.
// A patient code of "K5010" therefore matches criterion codes "K50"
// and "K50.10", and a criterion of "K50.10" also matches a broader
// patient code of "K50".
func diagnosisCodeMatches(criterionCode, patientCode string) bool {
	a := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(criterionCode), ".", ""))
	b := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(patientCode), ".", ""))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return strings.HasPrefix(b, a) || strings.HasPrefix(a, b)
}
