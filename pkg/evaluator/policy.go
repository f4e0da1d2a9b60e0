package evaluator

import (
	"fmt"

	"github.com/Mindburn-Labs/policycore/pkg/criteria"
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// EvaluatePolicy is the top-level, pure evaluation entry point (§4.5).
// It performs no I/O and reads no clock; the only time-sensitive
// input, patient age, must already be resolved by the caller via
// patientnorm.Normalize.
func EvaluatePolicy(policy *policyschema.DigitizedPolicy, patient patientnorm.NormalizedPatientData) PolicyEvaluationResult {
	result := PolicyEvaluationResult{
		PolicyID:  policy.PolicyID,
		PatientID: patient.PatientID,
	}

	var metTotal, evaluatedTotal int

	for _, ind := range policy.Indications {
		groupEval := EvaluateGroup(policy, ind.InitialApprovalCriteria, patient, map[string]bool{})
		flat := flattenCriteria(groupEval)

		indEval := IndicationEvaluation{
			IndicationID:           ind.IndicationID,
			IndicationName:         ind.IndicationName,
			OverallVerdict:         groupEval.Verdict,
			ApprovalCriteriaResult: groupEval,
		}

		for _, c := range flat {
			if c.Verdict == policyschema.VerdictNotApplicable {
				continue
			}
			indEval.CriteriaTotalCount++
			evaluatedTotal++
			switch c.Verdict {
			case policyschema.VerdictMet:
				indEval.CriteriaMetCount++
				metTotal++
			case policyschema.VerdictNotMet:
				indEval.UnmetCriteria = append(indEval.UnmetCriteria, c.CriterionID)
			case policyschema.VerdictInsufficientData:
				indEval.InsufficientCriteria = append(indEval.InsufficientCriteria, c.CriterionID)
			}

			if c.Verdict == policyschema.VerdictInsufficientData {
				result.Gaps = append(result.Gaps, Gap{
					CriterionID:   c.CriterionID,
					CriterionName: c.CriterionName,
					Indication:    ind.IndicationName,
					GapType:       GapInsufficientData,
					Action:        fmt.Sprintf("Obtain documentation to resolve: %s", c.CriterionName),
				})
			} else if c.Verdict == policyschema.VerdictNotMet && c.IsRequired {
				result.Gaps = append(result.Gaps, Gap{
					CriterionID:   c.CriterionID,
					CriterionName: c.CriterionName,
					Indication:    ind.IndicationName,
					GapType:       GapNotMet,
					Action:        fmt.Sprintf("Required criterion not met: %s", c.CriterionName),
				})
			}
		}

		result.IndicationEvaluations = append(result.IndicationEvaluations, indEval)
	}

	for _, excl := range policy.Exclusions {
		result.ExclusionEvaluations = append(result.ExclusionEvaluations, evaluateExclusion(policy, excl, patient))
	}

	for _, req := range policy.StepTherapyRequirements {
		result.StepTherapyEvaluations = append(result.StepTherapyEvaluations, evaluateStepTherapy(req, patient))
	}

	if evaluatedTotal > 0 {
		result.OverallReadiness = float64(metTotal) / float64(evaluatedTotal)
	}
	result.OverallVerdict = overallVerdict(result.IndicationEvaluations)

	return result
}

func evaluateExclusion(policy *policyschema.DigitizedPolicy, excl policyschema.Exclusion, patient patientnorm.NormalizedPatientData) ExclusionEvaluation {
	eval := ExclusionEvaluation{ExclusionID: excl.ExclusionID}
	for _, cid := range excl.TriggerCriteria {
		c, ok := policy.ResolveCriterion(cid)
		if !ok {
			eval.TriggerResults = append(eval.TriggerResults, criteria.CriterionEvaluation{
				CriterionID: cid,
				Verdict:     policyschema.VerdictNotApplicable,
				Reasoning:   "trigger criterion reference does not resolve",
			})
			continue
		}
		res := evaluateCriterionSafely(c, patient)
		eval.TriggerResults = append(eval.TriggerResults, res)
		if res.Verdict == policyschema.VerdictMet {
			eval.Active = true
		}
	}
	return eval
}

func evaluateStepTherapy(req policyschema.StepTherapyRequirement, patient patientnorm.NormalizedPatientData) StepTherapyEvaluation {
	eval := StepTherapyEvaluation{
		RequirementID: req.RequirementID,
		Indication:    req.Indication,
		MinimumTrials: req.MinimumTrials,
	}

	evaluateItem := func(item string, isClass bool) StepTherapyDrugResult {
		var drugNames, drugClasses []string
		if isClass {
			drugClasses = []string{item}
		} else {
			drugNames = []string{item}
		}
		for _, t := range patient.PriorTreatments {
			if !criteria.MatchesDrug(t, drugNames, drugClasses) {
				continue
			}
			failed := criteria.AcceptableStepTherapyOutcome(t.Outcome, req.IntoleranceAcceptable, req.ContraindicationAcceptable)
			return StepTherapyDrugResult{Drug: item, Tried: true, Failed: failed, Evidence: t.MedicationName + ": " + t.Outcome}
		}
		return StepTherapyDrugResult{Drug: item, Tried: false, Failed: false}
	}

	for _, drug := range req.RequiredDrugs {
		eval.DrugResults = append(eval.DrugResults, evaluateItem(drug, false))
	}
	for _, class := range req.RequiredDrugClasses {
		eval.DrugResults = append(eval.DrugResults, evaluateItem(class, true))
	}

	for _, dr := range eval.DrugResults {
		if dr.Tried {
			eval.DrugsTried++
		}
		if dr.Failed {
			eval.DrugsFailed++
		}
	}
	eval.Satisfied = eval.DrugsFailed >= req.MinimumTrials

	return eval
}

// overallVerdict ranks MET above INSUFFICIENT_DATA above NOT_MET,
// skipping indications that never produced a real verdict
// (NOT_APPLICABLE). A policy with no real verdicts anywhere is itself
// NOT_APPLICABLE.
func overallVerdict(indications []IndicationEvaluation) policyschema.Verdict {
	rank := map[policyschema.Verdict]int{
		policyschema.VerdictMet:             3,
		policyschema.VerdictInsufficientData: 2,
		policyschema.VerdictNotMet:           1,
	}
	best := policyschema.VerdictNotApplicable
	bestRank := 0
	for _, ind := range indications {
		if ind.OverallVerdict == policyschema.VerdictNotApplicable {
			continue
		}
		if r := rank[ind.OverallVerdict]; r > bestRank {
			bestRank = r
			best = ind.OverallVerdict
		}
	}
	return best
}
