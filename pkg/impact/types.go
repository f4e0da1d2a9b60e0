// Package impact implements the impact analyzer (§4.9): it
// re-evaluates a set of active cases under an old and a new policy
// version and classifies the effect of the change on each patient.
package impact

import (
	"github.com/Mindburn-Labs/policycore/pkg/evaluator"
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
)

// ImpactClass classifies how a policy change affected one case.
type ImpactClass string

const (
	ClassVerdictFlip ImpactClass = "verdict_flip"
	ClassAtRisk       ImpactClass = "at_risk"
	ClassNoImpact     ImpactClass = "no_impact"
)

// Case is one active case to re-evaluate: a patient record
// (already normalized by the caller, since normalization rules are
// therapeutic-area-specific and outside this package's concern) plus
// its identifying case id. Callers may supply pre-computed evaluations
// under either version to avoid recomputation.
type Case struct {
	CaseID  string
	Patient patientnorm.NormalizedPatientData

	OldEvaluation *evaluator.PolicyEvaluationResult
	NewEvaluation *evaluator.PolicyEvaluationResult
}

// PatientImpact is the per-case classification result.
type PatientImpact struct {
	CaseID        string      `json:"case_id"`
	Class         ImpactClass `json:"class"`
	OldVerdict    string      `json:"old_verdict"`
	NewVerdict    string      `json:"new_verdict"`
	ChangedCriteria []string  `json:"changed_criteria,omitempty"`
	Action        string      `json:"action,omitempty"`
}

// PolicyImpactReport is the full output of AnalyzeImpact.
type PolicyImpactReport struct {
	TotalActiveCases int             `json:"total_active_cases"`
	ImpactedCases    int             `json:"impacted_cases"`
	VerdictFlips     int             `json:"verdict_flips"`
	AtRiskCases      int             `json:"at_risk_cases"`
	PatientImpacts   []PatientImpact `json:"patient_impacts"`
	ActionItems      []string        `json:"action_items,omitempty"`
}
