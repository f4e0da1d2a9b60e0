package impact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/policycore/pkg/differ"
	"github.com/Mindburn-Labs/policycore/pkg/evaluator"
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

func floatPtr(v float64) *float64 { return &v }

func agePolicy(minAge float64) *policyschema.DigitizedPolicy {
	return &policyschema.DigitizedPolicy{
		PolicyID: "pol-1",
		AtomicCriteria: map[string]*policyschema.AtomicCriterion{
			"age": {
				CriterionID:        "age",
				CriterionType:      policyschema.CriterionAge,
				Name:               "Age requirement",
				ComparisonOperator: policyschema.OpGTE,
				ThresholdValue:     floatPtr(minAge),
				IsRequired:         true,
			},
		},
		CriterionGroups: map[string]*policyschema.CriterionGroup{
			"g1": {GroupID: "g1", Operator: policyschema.OperatorAND, Criteria: []string{"age"}},
		},
		Indications: []policyschema.IndicationCriteria{
			{IndicationID: "ind1", IndicationName: "Condition X", InitialApprovalCriteria: "g1"},
		},
	}
}

// Scenario S2: tightening an age threshold above a patient's age
// flips their verdict from MET to NOT_MET, yielding exactly one
// verdict_flip.
func TestAgeThresholdTighteningProducesOneVerdictFlip(t *testing.T) {
	oldPolicy := agePolicy(18)
	newPolicy := agePolicy(25)

	diffResult := differ.Diff(oldPolicy, newPolicy)

	cases := []Case{
		{CaseID: "case-1", Patient: patientnorm.NormalizedPatientData{PatientID: "p1", AgeYears: floatPtr(20)}},
		{CaseID: "case-2", Patient: patientnorm.NormalizedPatientData{PatientID: "p2", AgeYears: floatPtr(30)}},
	}

	report := AnalyzeImpact(diffResult, oldPolicy, newPolicy, cases)

	require.Equal(t, 2, report.TotalActiveCases)
	require.Equal(t, 1, report.VerdictFlips)
	require.Equal(t, 1, report.ImpactedCases)

	flipped := mustFind(t, report.PatientImpacts, "case-1")
	require.Equal(t, ClassVerdictFlip, flipped.Class)
	require.Equal(t, "met", flipped.OldVerdict)
	require.Equal(t, "not_met", flipped.NewVerdict)

	unaffected := mustFind(t, report.PatientImpacts, "case-2")
	require.Equal(t, ClassNoImpact, unaffected.Class)
}

func TestNoChangeYieldsNoImpactForAllCases(t *testing.T) {
	policy := agePolicy(18)
	diffResult := differ.Diff(policy, policy)

	cases := []Case{
		{CaseID: "case-1", Patient: patientnorm.NormalizedPatientData{AgeYears: floatPtr(20)}},
	}

	report := AnalyzeImpact(diffResult, policy, policy, cases)
	require.Zero(t, report.VerdictFlips)
	require.Zero(t, report.ImpactedCases)
	require.Equal(t, ClassNoImpact, report.PatientImpacts[0].Class)
}

func TestPreComputedEvaluationsAreReused(t *testing.T) {
	oldPolicy := agePolicy(18)
	newPolicy := agePolicy(25)
	diffResult := differ.Diff(oldPolicy, newPolicy)

	oldEval := evaluateFixture(t, oldPolicy, 20)
	newEval := evaluateFixture(t, newPolicy, 20)

	cases := []Case{
		{CaseID: "case-1", OldEvaluation: &oldEval, NewEvaluation: &newEval},
	}

	report := AnalyzeImpact(diffResult, oldPolicy, newPolicy, cases)
	require.Equal(t, 1, report.VerdictFlips)
}

func evaluateFixture(t *testing.T, policy *policyschema.DigitizedPolicy, age float64) evaluator.PolicyEvaluationResult {
	t.Helper()
	return evaluator.EvaluatePolicy(policy, patientnorm.NormalizedPatientData{AgeYears: floatPtr(age)})
}

func mustFind(t *testing.T, impacts []PatientImpact, caseID string) PatientImpact {
	t.Helper()
	for _, i := range impacts {
		if i.CaseID == caseID {
			return i
		}
	}
	t.Fatalf("no impact found for case %q", caseID)
	return PatientImpact{}
}
