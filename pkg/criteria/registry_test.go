package criteria

import (
	"testing"

	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

func f(v float64) *float64 { return &v }

func TestEvaluateUnknownCriterionTypeIsInsufficientData(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: "future_type"}
	got := Evaluate(c, patientnorm.NormalizedPatientData{})
	if got.Verdict != policyschema.VerdictInsufficientData {
		t.Fatalf("expected insufficient_data, got %s", got.Verdict)
	}
}

func TestAgeInsufficientDataWhenMissing(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: policyschema.CriterionAge, ComparisonOperator: policyschema.OpGTE, ThresholdValue: f(18)}
	got := Evaluate(c, patientnorm.NormalizedPatientData{})
	if got.Verdict != policyschema.VerdictInsufficientData {
		t.Fatalf("expected insufficient_data for missing age, got %s (not not_met)", got.Verdict)
	}
}

func TestAgeMetAndNotMet(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: policyschema.CriterionAge, ComparisonOperator: policyschema.OpGTE, ThresholdValue: f(18)}
	adult := Evaluate(c, patientnorm.NormalizedPatientData{AgeYears: f(25)})
	if adult.Verdict != policyschema.VerdictMet {
		t.Errorf("expected met for age 25 >= 18, got %s", adult.Verdict)
	}
	minor := Evaluate(c, patientnorm.NormalizedPatientData{AgeYears: f(10)})
	if minor.Verdict != policyschema.VerdictNotMet {
		t.Errorf("expected not_met for age 10 >= 18, got %s", minor.Verdict)
	}
}

func TestLabValueMissingThresholdIsInsufficientData(t *testing.T) {
	c := &policyschema.AtomicCriterion{
		CriterionID:   "c1",
		CriterionType: policyschema.CriterionLabValue,
		Name:          "CRP",
		ComparisonOperator: policyschema.OpGTE,
	}
	patient := patientnorm.NormalizedPatientData{LabResults: []patientnorm.LabResult{{TestName: "CRP", Value: f(12)}}}
	got := Evaluate(c, patient)
	if got.Verdict != policyschema.VerdictInsufficientData {
		t.Fatalf("expected insufficient_data when no threshold configured, got %s", got.Verdict)
	}
}

func TestLabValueLOINCPriorityOverName(t *testing.T) {
	c := &policyschema.AtomicCriterion{
		CriterionID:   "c1",
		CriterionType: policyschema.CriterionLabValue,
		Name:          "Nonmatching Name",
		ClinicalCodes: []policyschema.ClinicalCode{{System: policyschema.SystemLOINC, Code: "1-1"}},
		ComparisonOperator: policyschema.OpGTE,
		ThresholdValue:     f(5),
	}
	patient := patientnorm.NormalizedPatientData{
		LabResults: []patientnorm.LabResult{{TestName: "Other", LOINCCode: "1-1", Value: f(10)}},
	}
	got := Evaluate(c, patient)
	if got.Verdict != policyschema.VerdictMet {
		t.Fatalf("expected match via LOINC code, got %s", got.Verdict)
	}
}

func TestPriorTreatmentTriedInsufficientVsNotMet(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: policyschema.CriterionPriorTreatmentTried, DrugNames: []string{"methotrexate"}}
	noHistory := Evaluate(c, patientnorm.NormalizedPatientData{})
	if noHistory.Verdict != policyschema.VerdictInsufficientData {
		t.Errorf("expected insufficient_data with no treatment history, got %s", noHistory.Verdict)
	}
	unrelated := Evaluate(c, patientnorm.NormalizedPatientData{PriorTreatments: []patientnorm.PriorTreatment{{MedicationName: "ibuprofen"}}})
	if unrelated.Verdict != policyschema.VerdictNotMet {
		t.Errorf("expected not_met with unrelated treatment history, got %s", unrelated.Verdict)
	}
	matched := Evaluate(c, patientnorm.NormalizedPatientData{PriorTreatments: []patientnorm.PriorTreatment{{MedicationName: "Methotrexate"}}})
	if matched.Verdict != policyschema.VerdictMet {
		t.Errorf("expected met with matching treatment, got %s", matched.Verdict)
	}
}

func TestPriorTreatmentFailedRecognizesPartialResponse(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: policyschema.CriterionPriorTreatmentFailed, DrugNames: []string{"adalimumab"}}
	got := Evaluate(c, patientnorm.NormalizedPatientData{
		PriorTreatments: []patientnorm.PriorTreatment{{MedicationName: "adalimumab", Outcome: string(patientnorm.OutcomePartialResponse)}},
	})
	if got.Verdict != policyschema.VerdictMet {
		t.Fatalf("expected partial_response to count as a failure, got %s", got.Verdict)
	}
}

func TestShortDrugNameRequiresExactMatch(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: policyschema.CriterionPriorTreatmentTried, DrugNames: []string{"mtx"}}
	noisy := Evaluate(c, patientnorm.NormalizedPatientData{PriorTreatments: []patientnorm.PriorTreatment{{MedicationName: "somextxdrug"}}})
	if noisy.Verdict != policyschema.VerdictNotMet {
		t.Fatalf("expected short needle 'mtx' to require exact match, got %s", noisy.Verdict)
	}
	exact := Evaluate(c, patientnorm.NormalizedPatientData{PriorTreatments: []patientnorm.PriorTreatment{{MedicationName: "MTX"}}})
	if exact.Verdict != policyschema.VerdictMet {
		t.Fatalf("expected exact case-insensitive match for short needle, got %s", exact.Verdict)
	}
}

func TestDiagnosisCodePrefixMatch(t *testing.T) {
	c := &policyschema.AtomicCriterion{
		CriterionID:   "c1",
		CriterionType: policyschema.CriterionDiagnosisConfirmed,
		ClinicalCodes: []policyschema.ClinicalCode{{System: policyschema.SystemICD10, Code: "K50"}},
	}
	specific := Evaluate(c, patientnorm.NormalizedPatientData{DiagnosisCodes: []string{"K50.10"}})
	if specific.Verdict != policyschema.VerdictMet {
		t.Fatalf("expected broad criterion code K50 to match specific patient code K50.10, got %s", specific.Verdict)
	}

	c2 := &policyschema.AtomicCriterion{
		CriterionID:   "c2",
		CriterionType: policyschema.CriterionDiagnosisConfirmed,
		ClinicalCodes: []policyschema.ClinicalCode{{System: policyschema.SystemICD10, Code: "K50.10"}},
	}
	broad := Evaluate(c2, patientnorm.NormalizedPatientData{DiagnosisCodes: []string{"K51"}})
	if broad.Verdict != policyschema.VerdictNotMet {
		t.Fatalf("expected specific criterion code to not match an unrelated patient code, got %s", broad.Verdict)
	}
}

func TestSafetyScreeningCompletedVsMissing(t *testing.T) {
	c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: policyschema.CriterionSafetyScreeningCompleted, Category: "tb"}
	missing := Evaluate(c, patientnorm.NormalizedPatientData{})
	if missing.Verdict != policyschema.VerdictInsufficientData {
		t.Errorf("expected insufficient_data when screening is absent, got %s", missing.Verdict)
	}
	incomplete := Evaluate(c, patientnorm.NormalizedPatientData{CompletedScreenings: []patientnorm.Screening{{ScreeningType: "tb", Completed: false}}})
	if incomplete.Verdict != policyschema.VerdictNotMet {
		t.Errorf("expected not_met when screening present but incomplete, got %s", incomplete.Verdict)
	}
	done := Evaluate(c, patientnorm.NormalizedPatientData{CompletedScreenings: []patientnorm.Screening{{ScreeningType: "tb", Completed: true}}})
	if done.Verdict != policyschema.VerdictMet {
		t.Errorf("expected met when screening completed, got %s", done.Verdict)
	}
}

func TestManualReviewCriterionTypesNeverGuess(t *testing.T) {
	types := []policyschema.CriterionType{
		policyschema.CriterionDocumentationPresent,
		policyschema.CriterionDiseaseDuration,
		policyschema.CriterionCustom,
		policyschema.CriterionClinicalMarkerPresent,
		policyschema.CriterionConcurrentTherapy,
		policyschema.CriterionNoConcurrentTherapy,
	}
	for _, ct := range types {
		c := &policyschema.AtomicCriterion{CriterionID: "c1", CriterionType: ct}
		got := Evaluate(c, patientnorm.NormalizedPatientData{
			PriorTreatments: []patientnorm.PriorTreatment{{MedicationName: "x", Outcome: "failed"}},
			Biomarkers:      map[string]string{"x": "y"},
		})
		if got.Verdict != policyschema.VerdictInsufficientData {
			t.Errorf("%s: expected insufficient_data manual-review passthrough, got %s", ct, got.Verdict)
		}
	}
}

func TestPrescriberSpecialtyMatchesAllowedValues(t *testing.T) {
	c := &policyschema.AtomicCriterion{
		CriterionID:   "c1",
		CriterionType: policyschema.CriterionPrescriberSpecialty,
		AllowedValues: []string{"Rheumatology"},
	}
	match := Evaluate(c, patientnorm.NormalizedPatientData{PrescriberSpecialty: "rheumatology"})
	if match.Verdict != policyschema.VerdictMet {
		t.Errorf("expected met for case-insensitive allowed_values match, got %s", match.Verdict)
	}
	mismatch := Evaluate(c, patientnorm.NormalizedPatientData{PrescriberSpecialty: "cardiology"})
	if mismatch.Verdict != policyschema.VerdictNotMet {
		t.Errorf("expected not_met outside allowed_values, got %s", mismatch.Verdict)
	}
}

func TestPrescriberSpecialtyFallsBackToKeywordMatch(t *testing.T) {
	c := &policyschema.AtomicCriterion{
		CriterionID:   "c1",
		CriterionType: policyschema.CriterionPrescriberSpecialty,
		Name:          "Specialist prescriber",
		Description:   "Must be prescribed by a rheumatologist",
	}
	got := Evaluate(c, patientnorm.NormalizedPatientData{PrescriberSpecialty: "Rheumatologist"})
	if got.Verdict != policyschema.VerdictMet {
		t.Errorf("expected met via description keyword match, got %s", got.Verdict)
	}
	unrelated := Evaluate(c, patientnorm.NormalizedPatientData{PrescriberSpecialty: "Family Medicine"})
	if unrelated.Verdict != policyschema.VerdictNotMet {
		t.Errorf("expected not_met when no keyword matches, got %s", unrelated.Verdict)
	}
}

func TestPrescriberConsultationDelegatesToSpecialtyMatching(t *testing.T) {
	c := &policyschema.AtomicCriterion{
		CriterionID:   "c1",
		CriterionType: policyschema.CriterionPrescriberConsultation,
		AllowedValues: []string{"Gastroenterology"},
	}
	got := Evaluate(c, patientnorm.NormalizedPatientData{PrescriberSpecialty: "Gastroenterology"})
	if got.Verdict != policyschema.VerdictMet {
		t.Errorf("expected consultation to reuse specialty matching, got %s", got.Verdict)
	}
	missing := Evaluate(c, patientnorm.NormalizedPatientData{})
	if missing.Verdict != policyschema.VerdictInsufficientData {
		t.Errorf("expected insufficient_data when specialty is not recorded, got %s", missing.Verdict)
	}
}
