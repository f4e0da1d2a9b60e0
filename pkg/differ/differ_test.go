package differ

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func samplePolicy() *policyschema.DigitizedPolicy {
	return &policyschema.DigitizedPolicy{
		PolicyID:     "pol-1",
		PayerName:    "Acme Health",
		MedicationName: "Humira",
		Version:      "v1",
		AtomicCriteria: map[string]*policyschema.AtomicCriterion{
			"age": {
				CriterionID:        "age",
				CriterionType:      policyschema.CriterionAge,
				Name:               "Age requirement",
				ComparisonOperator: policyschema.OpGTE,
				ThresholdValue:     floatPtr(18),
				IsRequired:         true,
			},
			"diag": {
				CriterionID:   "diag",
				CriterionType: policyschema.CriterionDiagnosisConfirmed,
				Name:          "Diagnosis confirmed",
				ClinicalCodes: []policyschema.ClinicalCode{{System: policyschema.SystemICD10CM, Code: "K50.0"}},
				IsRequired:    true,
			},
		},
		Indications: []policyschema.IndicationCriteria{
			{IndicationID: "ind1", IndicationName: "Crohn's Disease", InitialApprovalCriteria: "g1"},
		},
		StepTherapyRequirements: []policyschema.StepTherapyRequirement{
			{RequirementID: "st1", MinimumTrials: 1, RequiredDrugs: []string{"methotrexate"}},
		},
		Exclusions: []policyschema.Exclusion{
			{ExclusionID: "ex1", TriggerCriteria: []string{"pregnancy"}},
		},
	}
}

// Testable Property 10 / scenario S6: diffing a policy against an
// identical copy yields zero added/removed/modified changes and an
// overall low_impact assessment.
func TestDiffIdenticalPolicyIsLowImpact(t *testing.T) {
	old := samplePolicy()
	identical := samplePolicy()

	result := Diff(old, identical)

	require.Zero(t, result.Summary.AddedCount)
	require.Zero(t, result.Summary.RemovedCount)
	require.Zero(t, result.Summary.ModifiedCount)
	require.Greater(t, result.Summary.UnchangedCount, 0)
	require.Equal(t, LowImpact, result.Summary.SeverityAssessment)
}

func TestDiffIsDeterministic(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["age"].ThresholdValue = floatPtr(21)

	first := Diff(old, newP)
	second := Diff(old, newP)
	require.Equal(t, first, second)
}

// A newly required criterion is a breaking change (§4.8).
func TestAddedRequiredCriterionIsBreaking(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["bmi"] = &policyschema.AtomicCriterion{
		CriterionID: "bmi", Name: "BMI threshold", IsRequired: true,
	}

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "bmi")
	require.Equal(t, ChangeAdded, change.ChangeType)
	require.Equal(t, SeverityBreaking, change.Severity)
}

// An optional added criterion is material, not breaking.
func TestAddedOptionalCriterionIsMaterial(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["bmi"] = &policyschema.AtomicCriterion{
		CriterionID: "bmi", Name: "BMI threshold", IsRequired: false,
	}

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "bmi")
	require.Equal(t, SeverityMaterial, change.Severity)
}

func TestRemovedCriterionIsMinor(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	delete(newP.AtomicCriteria, "diag")

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "diag")
	require.Equal(t, ChangeRemoved, change.ChangeType)
	require.Equal(t, SeverityMinor, change.Severity)
}

// A tightened gte threshold (raised minimum age) is breaking.
func TestTightenedGTEThresholdIsBreaking(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["age"].ThresholdValue = floatPtr(25)

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "age")
	require.Equal(t, SeverityBreaking, change.Severity)
}

// A loosened gte threshold (lowered minimum age) is material.
func TestLoosenedGTEThresholdIsMaterial(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["age"].ThresholdValue = floatPtr(12)

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "age")
	require.Equal(t, SeverityMaterial, change.Severity)
}

// Narrowing the clinical code list (removing an acceptable code) is
// breaking; expanding it is material.
func TestNarrowedCodeListIsBreaking(t *testing.T) {
	old := samplePolicy()
	old.AtomicCriteria["diag"].ClinicalCodes = []policyschema.ClinicalCode{
		{System: policyschema.SystemICD10CM, Code: "K50.0"},
		{System: policyschema.SystemICD10CM, Code: "K50.1"},
	}
	newP := samplePolicy()
	newP.AtomicCriteria["diag"].ClinicalCodes = []policyschema.ClinicalCode{
		{System: policyschema.SystemICD10CM, Code: "K50.0"},
	}

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "diag")
	require.Equal(t, SeverityBreaking, change.Severity)
}

func TestExpandedCodeListIsMaterial(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["diag"].ClinicalCodes = append(
		append([]policyschema.ClinicalCode{}, old.AtomicCriteria["diag"].ClinicalCodes...),
		policyschema.ClinicalCode{System: policyschema.SystemICD10CM, Code: "K50.1"},
	)

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "diag")
	require.Equal(t, SeverityMaterial, change.Severity)
}

// Changing only name/description/policy_text is minor.
func TestNonSemanticFieldChangeIsMinor(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.AtomicCriteria["diag"].Name = "Diagnosis confirmed (renamed)"
	newP.AtomicCriteria["diag"].Description = "updated wording"

	result := Diff(old, newP)
	change := mustFind(t, result.CriteriaChanges, "diag")
	require.Equal(t, SeverityMinor, change.Severity)
}

// Step-therapy: minimum_trials raised is breaking; lowered is material;
// a brand-new requirement is always breaking.
func TestStepTherapyMinimumTrialsRaisedIsBreaking(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.StepTherapyRequirements[0].MinimumTrials = 2

	result := Diff(old, newP)
	change := mustFind(t, result.StepTherapyChanges, "st1")
	require.Equal(t, SeverityBreaking, change.Severity)
}

func TestStepTherapyMinimumTrialsLoweredIsMaterial(t *testing.T) {
	old := samplePolicy()
	old.StepTherapyRequirements[0].MinimumTrials = 2
	newP := samplePolicy()
	newP.StepTherapyRequirements[0].MinimumTrials = 1

	result := Diff(old, newP)
	change := mustFind(t, result.StepTherapyChanges, "st1")
	require.Equal(t, SeverityMaterial, change.Severity)
}

func TestStepTherapyRequirementAddedIsBreaking(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.StepTherapyRequirements = append(newP.StepTherapyRequirements, policyschema.StepTherapyRequirement{
		RequirementID: "st2", MinimumTrials: 1,
	})

	result := Diff(old, newP)
	change := mustFind(t, result.StepTherapyChanges, "st2")
	require.Equal(t, ChangeAdded, change.ChangeType)
	require.Equal(t, SeverityBreaking, change.Severity)
}

// Removing an indication entirely is breaking (patients previously
// covered under it lose coverage).
func TestIndicationRemovedIsBreaking(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.Indications = nil

	result := Diff(old, newP)
	change := mustFind(t, result.IndicationChanges, "ind1")
	require.Equal(t, ChangeRemoved, change.ChangeType)
	require.Equal(t, SeverityBreaking, change.Severity)
}

// Raising an indication's minimum age is breaking.
func TestIndicationMinAgeRaisedIsBreaking(t *testing.T) {
	old := samplePolicy()
	old.Indications[0].MinAgeYears = floatPtr(12)
	newP := samplePolicy()
	newP.Indications[0].MinAgeYears = floatPtr(18)

	result := Diff(old, newP)
	change := mustFind(t, result.IndicationChanges, "ind1")
	require.Equal(t, SeverityBreaking, change.Severity)
}

func TestOverallAssessmentEscalatesWithWorstChange(t *testing.T) {
	old := samplePolicy()
	newP := samplePolicy()
	newP.Exclusions[0].TriggerCriteria = []string{"pregnancy", "breastfeeding"}

	result := Diff(old, newP)
	require.Equal(t, MediumImpact, result.Summary.SeverityAssessment)

	newP.AtomicCriteria["age"].ThresholdValue = floatPtr(30)
	result = Diff(old, newP)
	require.Equal(t, HighImpact, result.Summary.SeverityAssessment)
}

func mustFind(t *testing.T, changes []Change, id string) Change {
	t.Helper()
	for _, c := range changes {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("no change found for id %q", id)
	return Change{}
}
