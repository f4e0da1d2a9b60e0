package impact

import (
	"fmt"

	"github.com/Mindburn-Labs/policycore/pkg/differ"
	"github.com/Mindburn-Labs/policycore/pkg/evaluator"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// AnalyzeImpact re-evaluates every case under oldPolicy and newPolicy
// and classifies the per-case effect of the change (§4.9). A case
// carrying a pre-computed OldEvaluation/NewEvaluation skips that
// re-evaluation.
func AnalyzeImpact(diff differ.PolicyDiffResult, oldPolicy, newPolicy *policyschema.DigitizedPolicy, cases []Case) PolicyImpactReport {
	changedCriteria := changedCriterionIDs(diff)

	report := PolicyImpactReport{TotalActiveCases: len(cases)}

	for _, c := range cases {
		oldEval := c.OldEvaluation
		if oldEval == nil {
			e := evaluator.EvaluatePolicy(oldPolicy, c.Patient)
			oldEval = &e
		}
		newEval := c.NewEvaluation
		if newEval == nil {
			e := evaluator.EvaluatePolicy(newPolicy, c.Patient)
			newEval = &e
		}

		impact := classify(c.CaseID, oldEval, newEval, changedCriteria)
		if impact.Class != ClassNoImpact {
			report.ImpactedCases++
		}
		switch impact.Class {
		case ClassVerdictFlip:
			report.VerdictFlips++
		case ClassAtRisk:
			report.AtRiskCases++
		}
		report.PatientImpacts = append(report.PatientImpacts, impact)
	}

	report.ActionItems = actionItems(report)
	return report
}

// classify applies §4.9's classification rules in priority order:
// verdict_flip (MET → not MET) beats at_risk (INSUFFICIENT_DATA →
// NOT_MET, or any diff-changed criterion's verdict moved) beats
// no_impact.
func classify(caseID string, oldEval, newEval *evaluator.PolicyEvaluationResult, changedCriteria map[string]bool) PatientImpact {
	impact := PatientImpact{
		CaseID:     caseID,
		OldVerdict: string(oldEval.OverallVerdict),
		NewVerdict: string(newEval.OverallVerdict),
	}

	oldVerdicts := criterionVerdicts(oldEval)
	newVerdicts := criterionVerdicts(newEval)
	for id := range changedCriteria {
		ov, hasOld := oldVerdicts[id]
		nv, hasNew := newVerdicts[id]
		if hasOld && hasNew && ov != nv {
			impact.ChangedCriteria = append(impact.ChangedCriteria, id)
		}
	}

	switch {
	case oldEval.OverallVerdict == policyschema.VerdictMet && newEval.OverallVerdict != policyschema.VerdictMet:
		impact.Class = ClassVerdictFlip
		impact.Action = "re-evaluate case immediately"
	case oldEval.OverallVerdict == policyschema.VerdictInsufficientData && newEval.OverallVerdict == policyschema.VerdictNotMet:
		impact.Class = ClassAtRisk
	case len(impact.ChangedCriteria) > 0:
		impact.Class = ClassAtRisk
	default:
		impact.Class = ClassNoImpact
	}

	return impact
}

// changedCriterionIDs collects the atomic-criterion ids touched by the
// diff (added, removed, or modified), used by classify to detect
// at_risk cases whose verdict didn't change overall but whose
// underlying criterion did.
func changedCriterionIDs(diff differ.PolicyDiffResult) map[string]bool {
	ids := make(map[string]bool)
	for _, c := range diff.CriteriaChanges {
		if c.ChangeType != differ.ChangeUnchanged {
			ids[c.ID] = true
		}
	}
	return ids
}

// criterionVerdicts walks the evaluation tree recursively (§4.9),
// gathering ids from root indication groups, all sub-groups, and
// exclusion trigger results into a flat criterion_id -> verdict map.
func criterionVerdicts(result *evaluator.PolicyEvaluationResult) map[string]policyschema.Verdict {
	verdicts := make(map[string]policyschema.Verdict)
	for _, ind := range result.IndicationEvaluations {
		walkGroup(ind.ApprovalCriteriaResult, verdicts)
	}
	for _, excl := range result.ExclusionEvaluations {
		for _, tr := range excl.TriggerResults {
			verdicts[tr.CriterionID] = tr.Verdict
		}
	}
	return verdicts
}

func walkGroup(group evaluator.GroupEvaluation, verdicts map[string]policyschema.Verdict) {
	for _, c := range group.CriteriaResults {
		verdicts[c.CriterionID] = c.Verdict
	}
	for _, sub := range group.SubgroupResults {
		walkGroup(sub, verdicts)
	}
}

// actionItems derives a small set of prose action items from the
// report's aggregate counts (§4.9).
func actionItems(report PolicyImpactReport) []string {
	var items []string
	if report.VerdictFlips > 0 {
		items = append(items, fmt.Sprintf("URGENT: %d case(s) may flip from MET to a non-MET verdict under the new policy", report.VerdictFlips))
	}
	if report.AtRiskCases > 0 {
		items = append(items, fmt.Sprintf("%d case(s) are at risk and should be reviewed before the new policy version takes effect", report.AtRiskCases))
	}
	if report.VerdictFlips == 0 && report.AtRiskCases == 0 {
		items = append(items, "no active cases are impacted by this policy change")
	}
	return items
}
