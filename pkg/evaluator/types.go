// Package evaluator implements the deterministic, side-effect-free
// criteria evaluator: recursive group combination (§4.4) and the
// top-level policy evaluation that assembles indications,
// exclusions, step therapy, readiness, and gaps (§4.5).
package evaluator

import (
	"github.com/Mindburn-Labs/policycore/pkg/criteria"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// GroupEvaluation is the recursive result of evaluating one
// CriterionGroup.
type GroupEvaluation struct {
	GroupID         string                        `json:"group_id"`
	Operator        policyschema.LogicalOperator  `json:"operator"`
	Verdict         policyschema.Verdict          `json:"verdict"`
	Reasoning       string                        `json:"reasoning"`
	CriteriaResults []criteria.CriterionEvaluation `json:"criteria_results,omitempty"`
	SubgroupResults []GroupEvaluation             `json:"subgroup_results,omitempty"`
}

// ExclusionEvaluation records whether an exclusion's triggers fired.
type ExclusionEvaluation struct {
	ExclusionID    string                          `json:"exclusion_id"`
	Active         bool                            `json:"active"`
	TriggerResults []criteria.CriterionEvaluation `json:"trigger_results,omitempty"`
}

// StepTherapyDrugResult is one required drug or drug class's trial
// status within a StepTherapyRequirement.
type StepTherapyDrugResult struct {
	Drug     string `json:"drug"`
	Tried    bool   `json:"tried"`
	Failed   bool   `json:"failed"`
	Evidence string `json:"evidence,omitempty"`
}

// StepTherapyEvaluation is the outcome of one StepTherapyRequirement.
type StepTherapyEvaluation struct {
	RequirementID string                  `json:"requirement_id"`
	Indication    string                  `json:"indication"`
	MinimumTrials int                     `json:"minimum_trials"`
	DrugsTried    int                     `json:"drugs_tried"`
	DrugsFailed   int                     `json:"drugs_failed"`
	Satisfied     bool                    `json:"satisfied"`
	DrugResults   []StepTherapyDrugResult `json:"drug_results,omitempty"`
}

// IndicationEvaluation is the per-indication rollup of its
// approval-criteria group evaluation.
type IndicationEvaluation struct {
	IndicationID           string               `json:"indication_id"`
	IndicationName         string               `json:"indication_name"`
	OverallVerdict         policyschema.Verdict `json:"overall_verdict"`
	ApprovalCriteriaResult GroupEvaluation      `json:"approval_criteria_result"`
	CriteriaMetCount       int                  `json:"criteria_met_count"`
	CriteriaTotalCount     int                  `json:"criteria_total_count"`
	UnmetCriteria          []string             `json:"unmet_criteria,omitempty"`
	InsufficientCriteria   []string             `json:"insufficient_criteria,omitempty"`
}

// GapType distinguishes a documented failure from an unknown fact.
type GapType string

const (
	GapInsufficientData GapType = "insufficient_data"
	GapNotMet           GapType = "not_met"
)

// Gap is one actionable item blocking or threatening approval.
type Gap struct {
	CriterionID   string  `json:"criterion_id"`
	CriterionName string  `json:"criterion_name"`
	Indication    string  `json:"indication"`
	GapType       GapType `json:"gap_type"`
	Action        string  `json:"action"`
}

// PolicyEvaluationResult is the top-level output of EvaluatePolicy.
type PolicyEvaluationResult struct {
	PolicyID               string                  `json:"policy_id"`
	PatientID              string                  `json:"patient_id,omitempty"`
	IndicationEvaluations  []IndicationEvaluation  `json:"indication_evaluations"`
	ExclusionEvaluations   []ExclusionEvaluation   `json:"exclusion_evaluations,omitempty"`
	StepTherapyEvaluations []StepTherapyEvaluation `json:"step_therapy_evaluations,omitempty"`
	OverallReadiness       float64                 `json:"overall_readiness"`
	OverallVerdict         policyschema.Verdict    `json:"overall_verdict"`
	Gaps                   []Gap                   `json:"gaps,omitempty"`
}
