package policyschema

import "fmt"

// UnresolvedReference names a group or criterion id referenced
// somewhere in the policy that does not resolve to a stored entry.
// Collecting these (rather than failing immediately) lets callers
// decide whether to proceed — the evaluator itself always treats an
// unresolved reference as NOT_APPLICABLE rather than crashing.
type UnresolvedReference struct {
	From string // the referencing group/indication/exclusion id
	Kind string // "group" or "criterion"
	ID   string // the unresolved id
}

func (u UnresolvedReference) String() string {
	return fmt.Sprintf("%s references unresolved %s %q", u.From, u.Kind, u.ID)
}

// CheckReferences walks every group id referenced by an indication or
// subgroup list, and every criterion id referenced by a group or an
// exclusion trigger, and reports any that do not resolve inside
// the same policy (§3 invariant).
func (p *DigitizedPolicy) CheckReferences() []UnresolvedReference {
	var problems []UnresolvedReference

	for _, ind := range p.Indications {
		if ind.InitialApprovalCriteria != "" {
			if _, ok := p.ResolveGroup(ind.InitialApprovalCriteria); !ok {
				problems = append(problems, UnresolvedReference{
					From: ind.IndicationID, Kind: "group", ID: ind.InitialApprovalCriteria,
				})
			}
		}
		if ind.ContinuationCriteria != "" {
			if _, ok := p.ResolveGroup(ind.ContinuationCriteria); !ok {
				problems = append(problems, UnresolvedReference{
					From: ind.IndicationID, Kind: "group", ID: ind.ContinuationCriteria,
				})
			}
		}
	}

	for _, ex := range p.Exclusions {
		for _, cid := range ex.TriggerCriteria {
			if _, ok := p.ResolveCriterion(cid); !ok {
				problems = append(problems, UnresolvedReference{
					From: ex.ExclusionID, Kind: "criterion", ID: cid,
				})
			}
		}
	}

	for gid, g := range p.CriterionGroups {
		for _, cid := range g.Criteria {
			if _, ok := p.ResolveCriterion(cid); !ok {
				problems = append(problems, UnresolvedReference{From: gid, Kind: "criterion", ID: cid})
			}
		}
		for _, sub := range g.Subgroups {
			if _, ok := p.ResolveGroup(sub); !ok {
				problems = append(problems, UnresolvedReference{From: gid, Kind: "group", ID: sub})
			}
		}
	}

	return problems
}
