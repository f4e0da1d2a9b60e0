package patientnorm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/policycore/internal/clock"
)

// outcomeAliases maps loosely-formatted outcome strings to the
// controlled vocabulary. Keys are pre-normalized (lower-cased,
// whitespace/hyphens collapsed to a single underscore) before lookup.
var outcomeAliases = map[string]TreatmentOutcome{
	"failed":               OutcomeFailed,
	"failure":              OutcomeFailed,
	"inadequate_response":  OutcomeInadequateResponse,
	"inadequate":           OutcomeInadequateResponse,
	"partial_response":     OutcomePartialResponse,
	"partial":              OutcomePartialResponse,
	"steroid_dependent":    OutcomeSteroidDependent,
	"steroid_dependence":   OutcomeSteroidDependent,
	"intolerant":           OutcomeIntolerant,
	"intolerance":          OutcomeIntolerant,
	"contraindicated":      OutcomeContraindicated,
	"contraindication":     OutcomeContraindicated,
}

// screeningAliases maps loosely-formatted screening type tokens to
// their canonical form.
var screeningAliases = map[string]string{
	"tb":             "tb",
	"tuberculosis":   "tb",
	"hep_b":          "hepatitis_b",
	"hepb":           "hepatitis_b",
	"hepatitis_b":    "hepatitis_b",
	"hep_c":          "hepatitis_c",
	"hepc":           "hepatitis_c",
	"hepatitis_c":    "hepatitis_c",
}

// Normalize flattens a raw, loosely-structured patient record into a
// NormalizedPatientData. It never fails for missing fields — a
// partial result is always returned — and fails only when raw is not
// a mapping at its root.
func Normalize(raw map[string]interface{}, clk clock.Clock) (NormalizedPatientData, error) {
	if raw == nil {
		return NormalizedPatientData{}, fmt.Errorf("patientnorm: root document is not a mapping")
	}

	var out NormalizedPatientData

	out.PatientID = getString(raw, "patient_id")
	out.Gender = getString(raw, "gender")
	out.PrescriberSpecialty = getString(raw, "prescriber_specialty")
	out.PrescriberNPI = getString(raw, "prescriber_npi")
	out.DiseaseSeverity = normalizeToken(getString(raw, "disease_severity"))
	out.Staging = getString(raw, "staging")
	out.SiteOfCare = getString(raw, "site_of_care")

	out.AgeYears = resolveAge(raw, clk)
	out.DiagnosisCodes = collectDiagnosisCodes(raw)
	out.PriorTreatments = collectPriorTreatments(raw)
	out.LabResults = collectLabResults(raw)
	out.CompletedScreenings = collectScreenings(raw)
	out.ImagingResults = collectStringList(raw, "imaging_results")
	out.ProgramEnrollments = collectStringList(raw, "program_enrollments")
	out.Biomarkers = collectStringMap(raw, "biomarkers")
	out.GeneticTests = collectStringMap(raw, "genetic_tests")
	out.FunctionalScores = collectFloatMap(raw, "functional_scores")

	return out, nil
}

func resolveAge(raw map[string]interface{}, clk clock.Clock) *float64 {
	if dob := getString(raw, "date_of_birth"); dob != "" {
		if t, err := parseDate(dob); err == nil {
			years := completedYears(t, clk.Now())
			f := float64(years)
			return &f
		}
	}
	if v, ok := getFloatOK(raw, "age_years"); ok {
		return &v
	}
	if v, ok := getFloatOK(raw, "age"); ok {
		return &v
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// completedYears is the integer floor of completed years between dob
// and now.
func completedYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func collectDiagnosisCodes(raw map[string]interface{}) []string {
	list, ok := raw["diagnoses"].([]interface{})
	if !ok {
		return nil
	}
	var codes []string
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if code := getString(m, "code"); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func collectPriorTreatments(raw map[string]interface{}) []PriorTreatment {
	list, ok := raw["prior_treatments"].([]interface{})
	if !ok {
		return nil
	}
	var out []PriorTreatment
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		t := PriorTreatment{
			MedicationName: getString(m, "medication_name"),
			DrugClass:      getString(m, "drug_class"),
			Outcome:        normalizeOutcome(getString(m, "outcome")),
		}
		if v, ok := getFloatOK(m, "duration_weeks"); ok {
			t.DurationWeeks = &v
		}
		if v, ok := m["adequate_trial"].(bool); ok {
			t.AdequateTrial = &v
		}
		out = append(out, t)
	}
	return out
}

// collectLabResults flattens the nested lab-panel map (panel name ->
// list of test results) into a single list.
func collectLabResults(raw map[string]interface{}) []LabResult {
	panels, ok := raw["lab_panels"].(map[string]interface{})
	if !ok {
		// Also accept a flat "lab_results" list.
		if list, ok := raw["lab_results"].([]interface{}); ok {
			return labResultsFromList(list)
		}
		return nil
	}

	var out []LabResult
	for _, panel := range panels {
		list, ok := panel.([]interface{})
		if !ok {
			continue
		}
		out = append(out, labResultsFromList(list)...)
	}
	return out
}

func labResultsFromList(list []interface{}) []LabResult {
	var out []LabResult
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		r := LabResult{
			TestName:  getString(m, "test_name"),
			LOINCCode: getString(m, "loinc_code"),
			Unit:      getString(m, "unit"),
			Date:      getString(m, "date"),
			Flag:      getString(m, "flag"),
		}
		if v, ok := valueToFloat(m["value"]); ok {
			r.Value = &v
		}
		out = append(out, r)
	}
	return out
}

// collectScreenings reads the fixed "screenings" sub-document and
// maps each known key to a canonical token. Completion requires an
// explicit completion marker, not merely the key's presence.
func collectScreenings(raw map[string]interface{}) []Screening {
	doc, ok := raw["screenings"].(map[string]interface{})
	if !ok {
		return nil
	}
	var out []Screening
	for key, v := range doc {
		m, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		canon, known := screeningAliases[normalizeToken(key)]
		if !known {
			canon = normalizeToken(key)
		}
		s := Screening{
			ScreeningType: canon,
			Date:          getString(m, "date"),
		}
		if completed, ok := m["completed"].(bool); ok {
			s.Completed = completed
		}
		if neg, ok := m["result_negative"].(bool); ok {
			s.ResultNegative = &neg
		}
		out = append(out, s)
	}
	return out
}

func collectStringList(raw map[string]interface{}, key string) []string {
	list, ok := raw[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func collectStringMap(raw map[string]interface{}, key string) map[string]string {
	m, ok := raw[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func collectFloatMap(raw map[string]interface{}, key string) map[string]float64 {
	m, ok := raw[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := valueToFloat(v); ok {
			out[k] = f
		}
	}
	return out
}

func getString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getFloatOK(m map[string]interface{}, key string) (float64, bool) {
	return valueToFloat(m[key])
}

// valueToFloat parses a numeric value present as a float64 (typical
// json.Unmarshal output), an int, or a numeric string. Non-parseable
// values yield (0, false) rather than a zero default.
func valueToFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// normalizeToken lower-cases and collapses whitespace/hyphens to
// underscores, used for disease_severity and screening-type matching.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	fields := strings.Fields(s)
	return strings.Join(fields, "_")
}

// normalizeOutcome lower-cases, collapses whitespace/hyphens, and
// maps through the alias table to the controlled vocabulary. Unmapped
// outcomes pass through as-is.
func normalizeOutcome(s string) string {
	if s == "" {
		return ""
	}
	tok := normalizeToken(s)
	if canon, ok := outcomeAliases[tok]; ok {
		return string(canon)
	}
	return tok
}
