package evaluator

import (
	"fmt"

	"github.com/Mindburn-Labs/policycore/pkg/criteria"
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// EvaluateGroup recursively evaluates a CriterionGroup against
// normalized patient data. visited is path-local: the caller passes
// an empty map for the root call, and recursion adds and releases
// group ids as it descends and returns, so the same group reached
// through two distinct subgroup paths (a diamond) evaluates cleanly
// on each path while a true cycle is caught.
func EvaluateGroup(policy *policyschema.DigitizedPolicy, groupID string, patient patientnorm.NormalizedPatientData, visited map[string]bool) GroupEvaluation {
	group, ok := policy.ResolveGroup(groupID)
	if !ok {
		return GroupEvaluation{GroupID: groupID, Verdict: policyschema.VerdictNotApplicable, Reasoning: "group reference does not resolve"}
	}
	if visited[groupID] {
		return GroupEvaluation{GroupID: groupID, Operator: group.Operator, Verdict: policyschema.VerdictInsufficientData, Reasoning: "Circular group reference detected"}
	}
	visited[groupID] = true
	defer delete(visited, groupID)

	criteriaResults := make([]criteria.CriterionEvaluation, 0, len(group.Criteria))
	for _, cid := range group.Criteria {
		c, ok := policy.ResolveCriterion(cid)
		if !ok {
			criteriaResults = append(criteriaResults, criteria.CriterionEvaluation{
				CriterionID: cid,
				Verdict:     policyschema.VerdictNotApplicable,
				Reasoning:   "criterion reference does not resolve",
			})
			continue
		}
		criteriaResults = append(criteriaResults, evaluateCriterionSafely(c, patient))
	}

	subgroupResults := make([]GroupEvaluation, 0, len(group.Subgroups))
	for _, sid := range group.Subgroups {
		subgroupResults = append(subgroupResults, EvaluateGroup(policy, sid, patient, visited))
	}

	verdict, reasoning := combine(group.Operator, criteriaResults, subgroupResults)
	if group.Negated {
		verdict = flipVerdict(verdict)
		reasoning = "negated: " + reasoning
	}

	return GroupEvaluation{
		GroupID:         groupID,
		Operator:        group.Operator,
		Verdict:         verdict,
		Reasoning:       reasoning,
		CriteriaResults: criteriaResults,
		SubgroupResults: subgroupResults,
	}
}

// evaluateCriterionSafely isolates a single evaluator's panic so a
// broken criterion never takes down the rest of the tree.
func evaluateCriterionSafely(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) (result criteria.CriterionEvaluation) {
	defer func() {
		if r := recover(); r != nil {
			result = criteria.CriterionEvaluation{
				CriterionID:   c.CriterionID,
				CriterionName: c.Name,
				Verdict:       policyschema.VerdictInsufficientData,
				Reasoning:     fmt.Sprintf("criterion evaluator failed: %v", r),
				IsRequired:    c.IsRequired,
			}
		}
	}()
	return criteria.Evaluate(c, patient)
}

func combine(op policyschema.LogicalOperator, criteriaResults []criteria.CriterionEvaluation, subgroupResults []GroupEvaluation) (policyschema.Verdict, string) {
	verdicts := make([]policyschema.Verdict, 0, len(criteriaResults)+len(subgroupResults))
	for _, r := range criteriaResults {
		if r.Verdict != policyschema.VerdictNotApplicable {
			verdicts = append(verdicts, r.Verdict)
		}
	}
	for _, r := range subgroupResults {
		if r.Verdict != policyschema.VerdictNotApplicable {
			verdicts = append(verdicts, r.Verdict)
		}
	}
	if len(verdicts) == 0 {
		return policyschema.VerdictNotApplicable, "no applicable criteria or subgroups"
	}

	switch op {
	case policyschema.OperatorAND:
		return combineAND(verdicts)
	case policyschema.OperatorOR:
		return combineOR(verdicts)
	case policyschema.OperatorNOT:
		return combineNOT(verdicts[0])
	default:
		return policyschema.VerdictInsufficientData, fmt.Sprintf("unrecognized logical operator %q", op)
	}
}

func combineAND(verdicts []policyschema.Verdict) (policyschema.Verdict, string) {
	allMet := true
	for _, v := range verdicts {
		if v == policyschema.VerdictNotMet {
			return policyschema.VerdictNotMet, "AND: at least one criterion is not met"
		}
		if v != policyschema.VerdictMet {
			allMet = false
		}
	}
	if allMet {
		return policyschema.VerdictMet, "AND: all criteria met"
	}
	return policyschema.VerdictInsufficientData, "AND: no unmet criteria but at least one is insufficient data"
}

func combineOR(verdicts []policyschema.Verdict) (policyschema.Verdict, string) {
	allNotMet := true
	for _, v := range verdicts {
		if v == policyschema.VerdictMet {
			return policyschema.VerdictMet, "OR: at least one criterion is met"
		}
		if v != policyschema.VerdictNotMet {
			allNotMet = false
		}
	}
	if allNotMet {
		return policyschema.VerdictNotMet, "OR: all criteria are not met"
	}
	return policyschema.VerdictInsufficientData, "OR: no criterion met but at least one is insufficient data"
}

func combineNOT(first policyschema.Verdict) (policyschema.Verdict, string) {
	switch first {
	case policyschema.VerdictMet:
		return policyschema.VerdictNotMet, "NOT: first child is met"
	case policyschema.VerdictNotMet:
		return policyschema.VerdictMet, "NOT: first child is not met"
	default:
		return first, "NOT: first child verdict propagated unchanged"
	}
}

func flipVerdict(v policyschema.Verdict) policyschema.Verdict {
	switch v {
	case policyschema.VerdictMet:
		return policyschema.VerdictNotMet
	case policyschema.VerdictNotMet:
		return policyschema.VerdictMet
	default:
		return v
	}
}

// flattenCriteria collects every CriterionEvaluation reachable from a
// group evaluation, including through nested subgroups, in
// declaration order.
func flattenCriteria(g GroupEvaluation) []criteria.CriterionEvaluation {
	out := make([]criteria.CriterionEvaluation, 0, len(g.CriteriaResults))
	out = append(out, g.CriteriaResults...)
	for _, sg := range g.SubgroupResults {
		out = append(out, flattenCriteria(sg)...)
	}
	return out
}
