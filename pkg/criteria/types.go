// Package criteria holds the per-criterion-type evaluator registry
// (§4.2) and the treatment/lab/screening matching rules (§4.3). Every
// evaluator is a pure function: (AtomicCriterion, NormalizedPatientData)
// -> CriterionEvaluation. None perform I/O.
package criteria

import (
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// CriterionEvaluation is the verdict produced for one atomic
// criterion, carrying human-readable evidence quoting actual patient
// values and a short reasoning string.
type CriterionEvaluation struct {
	CriterionID   string                  `json:"criterion_id"`
	CriterionName string                  `json:"criterion_name"`
	Verdict       policyschema.Verdict    `json:"verdict"`
	Confidence    policyschema.ExtractionConfidence `json:"confidence,omitempty"`
	Evidence      []string                `json:"evidence,omitempty"`
	Reasoning     string                  `json:"reasoning"`
	IsRequired    bool                    `json:"is_required"`
}

// EvaluatorFunc is the pure function shape every criterion-type
// evaluator implements.
type EvaluatorFunc func(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation

func insufficientData(c *policyschema.AtomicCriterion, reasoning string) CriterionEvaluation {
	return CriterionEvaluation{
		CriterionID:   c.CriterionID,
		CriterionName: c.Name,
		Verdict:       policyschema.VerdictInsufficientData,
		Reasoning:     reasoning,
		IsRequired:    c.IsRequired,
	}
}

func met(c *policyschema.AtomicCriterion, reasoning string, evidence ...string) CriterionEvaluation {
	return CriterionEvaluation{
		CriterionID:   c.CriterionID,
		CriterionName: c.Name,
		Verdict:       policyschema.VerdictMet,
		Reasoning:     reasoning,
		Evidence:      evidence,
		IsRequired:    c.IsRequired,
	}
}

func notMet(c *policyschema.AtomicCriterion, reasoning string, evidence ...string) CriterionEvaluation {
	return CriterionEvaluation{
		CriterionID:   c.CriterionID,
		CriterionName: c.Name,
		Verdict:       policyschema.VerdictNotMet,
		Reasoning:     reasoning,
		Evidence:      evidence,
		IsRequired:    c.IsRequired,
	}
}
