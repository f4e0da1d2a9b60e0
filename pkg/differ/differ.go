package differ

import (
	"reflect"
	"sort"

	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// Diff computes the structural diff between two policy versions
// (§4.8). Key ordering in each dimension is sorted by id for
// deterministic output (Testable Property 1: repeated diffs of the
// same pair are byte-equal).
func Diff(oldPolicy, newPolicy *policyschema.DigitizedPolicy) PolicyDiffResult {
	result := PolicyDiffResult{
		CriteriaChanges:    diffCriteria(oldPolicy, newPolicy),
		StepTherapyChanges: diffStepTherapy(oldPolicy, newPolicy),
		ExclusionChanges:   diffExclusions(oldPolicy, newPolicy),
		IndicationChanges:  diffIndications(oldPolicy, newPolicy),
	}
	result.Summary = summarize(oldPolicy, newPolicy, result)
	return result
}

func summarize(oldPolicy, newPolicy *policyschema.DigitizedPolicy, result PolicyDiffResult) Summary {
	s := Summary{
		TotalCriteriaOld: len(oldPolicy.AtomicCriteria),
		TotalCriteriaNew: len(newPolicy.AtomicCriteria),
	}
	for _, c := range result.allChanges() {
		switch c.ChangeType {
		case ChangeAdded:
			s.AddedCount++
		case ChangeRemoved:
			s.RemovedCount++
		case ChangeModified:
			s.ModifiedCount++
		case ChangeUnchanged:
			s.UnchangedCount++
		}
		switch c.Severity {
		case SeverityBreaking:
			s.BreakingChanges++
		case SeverityMaterial:
			s.MaterialChanges++
		}
	}
	switch {
	case s.BreakingChanges > 0:
		s.SeverityAssessment = HighImpact
	case s.MaterialChanges > 0:
		s.SeverityAssessment = MediumImpact
	default:
		s.SeverityAssessment = LowImpact
	}
	return s
}

// --- Criteria -------------------------------------------------------

func diffCriteria(oldPolicy, newPolicy *policyschema.DigitizedPolicy) []Change {
	ids := unionCriterionIDs(oldPolicy, newPolicy)
	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		oldC, hasOld := oldPolicy.AtomicCriteria[id]
		newC, hasNew := newPolicy.AtomicCriteria[id]
		switch {
		case !hasOld && hasNew:
			sev := SeverityMaterial
			if newC.IsRequired {
				sev = SeverityBreaking
			}
			changes = append(changes, Change{ID: id, Name: newC.Name, ChangeType: ChangeAdded, Severity: sev})
		case hasOld && !hasNew:
			changes = append(changes, Change{ID: id, Name: oldC.Name, ChangeType: ChangeRemoved, Severity: SeverityMinor})
		default:
			changes = append(changes, diffCriterion(id, oldC, newC))
		}
	}
	return changes
}

func unionCriterionIDs(oldPolicy, newPolicy *policyschema.DigitizedPolicy) []string {
	seen := map[string]bool{}
	var ids []string
	for id := range oldPolicy.AtomicCriteria {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range newPolicy.AtomicCriteria {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// nonSemanticFields are the criterion fields whose changes alone are
// graded minor (§4.8: "Changes in non-semantic fields (name,
// description, policy_text only) ⇒ minor").
var nonSemanticFields = map[string]bool{"name": true, "description": true, "policy_text": true}

func diffCriterion(id string, a, b *policyschema.AtomicCriterion) Change {
	var diffs []FieldDiff

	if a.Name != b.Name {
		diffs = append(diffs, FieldDiff{Field: "name", Old: a.Name, New: b.Name})
	}
	if a.Description != b.Description {
		diffs = append(diffs, FieldDiff{Field: "description", Old: a.Description, New: b.Description})
	}
	if a.PolicyText != b.PolicyText {
		diffs = append(diffs, FieldDiff{Field: "policy_text", Old: a.PolicyText, New: b.PolicyText})
	}
	if a.ComparisonOperator != b.ComparisonOperator {
		diffs = append(diffs, FieldDiff{Field: "comparison_operator", Old: a.ComparisonOperator, New: b.ComparisonOperator})
	}
	if !floatPtrEqual(a.ThresholdValue, b.ThresholdValue) {
		diffs = append(diffs, FieldDiff{Field: "threshold_value", Old: a.ThresholdValue, New: b.ThresholdValue})
	}
	if !floatPtrEqual(a.ThresholdValueUpper, b.ThresholdValueUpper) {
		diffs = append(diffs, FieldDiff{Field: "threshold_value_upper", Old: a.ThresholdValueUpper, New: b.ThresholdValueUpper})
	}
	if a.ThresholdUnit != b.ThresholdUnit {
		diffs = append(diffs, FieldDiff{Field: "threshold_unit", Old: a.ThresholdUnit, New: b.ThresholdUnit})
	}
	if !stringSliceEqual(a.AllowedValues, b.AllowedValues) {
		diffs = append(diffs, FieldDiff{Field: "allowed_values", Old: a.AllowedValues, New: b.AllowedValues})
	}
	if !stringSliceEqual(a.DrugNames, b.DrugNames) {
		diffs = append(diffs, FieldDiff{Field: "drug_names", Old: a.DrugNames, New: b.DrugNames})
	}
	if !stringSliceEqual(a.DrugClasses, b.DrugClasses) {
		diffs = append(diffs, FieldDiff{Field: "drug_classes", Old: a.DrugClasses, New: b.DrugClasses})
	}
	if !intPtrEqual(a.MinimumDurationDays, b.MinimumDurationDays) {
		diffs = append(diffs, FieldDiff{Field: "minimum_duration_days", Old: a.MinimumDurationDays, New: b.MinimumDurationDays})
	}
	if a.IsRequired != b.IsRequired {
		diffs = append(diffs, FieldDiff{Field: "is_required", Old: a.IsRequired, New: b.IsRequired})
	}
	if !reflect.DeepEqual(a.ClinicalCodes, b.ClinicalCodes) {
		diffs = append(diffs, FieldDiff{Field: "clinical_codes", Old: a.ClinicalCodes, New: b.ClinicalCodes})
	}

	if len(diffs) == 0 {
		return Change{ID: id, Name: b.Name, ChangeType: ChangeUnchanged, Severity: SeverityMinor}
	}

	return Change{ID: id, Name: b.Name, ChangeType: ChangeModified, Severity: criterionSeverity(a, b, diffs), FieldDiffs: diffs}
}

// criterionSeverity applies §4.8's severity rules in priority order:
// newly-required beats code-list narrowing beats threshold
// tightening beats a generic semantic field change beats
// code-list expansion/threshold loosening beats the non-semantic-only
// fallback.
func criterionSeverity(a, b *policyschema.AtomicCriterion, diffs []FieldDiff) Severity {
	if !a.IsRequired && b.IsRequired {
		return SeverityBreaking
	}

	codeNarrowed, codeExpanded := codeListChange(a.ClinicalCodes, b.ClinicalCodes)
	if codeNarrowed {
		return SeverityBreaking
	}

	if tightened, loosened := thresholdChange(a, b); tightened {
		return SeverityBreaking
	} else if loosened {
		return SeverityMaterial
	}

	if codeExpanded {
		return SeverityMaterial
	}

	if onlyNonSemantic(diffs) {
		return SeverityMinor
	}
	return SeverityMaterial
}

func onlyNonSemantic(diffs []FieldDiff) bool {
	for _, d := range diffs {
		if !nonSemanticFields[d.Field] {
			return false
		}
	}
	return true
}

// codeListChange reports whether b's clinical code set is a strict
// subset (narrowed) or strict superset (expanded) of a's. Neither is
// true when the sets are equal, disjoint, or overlap without
// containment.
func codeListChange(a, b []policyschema.ClinicalCode) (narrowed, expanded bool) {
	setA := codeSet(a)
	setB := codeSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return false, false
	}
	aSubsetB := isSubset(setA, setB)
	bSubsetA := isSubset(setB, setA)
	if aSubsetB && !bSubsetA {
		return false, true // a ⊂ b: code list expanded
	}
	if bSubsetA && !aSubsetB {
		return true, false // b ⊂ a: code list narrowed
	}
	return false, false
}

func codeSet(codes []policyschema.ClinicalCode) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[string(c.System)+":"+c.Code] = true
	}
	return set
}

func isSubset(sub, super map[string]bool) bool {
	for k := range sub {
		if !super[k] {
			return false
		}
	}
	return true
}

// thresholdChange reports whether b's threshold is a tightening or
// loosening of a's, with respect to a's comparison operator (§4.8:
// "gte threshold increased; lte threshold decreased; between range
// narrowed"). A changed operator is itself a semantic change handled
// by the generic fallback, not by this function.
func thresholdChange(a, b *policyschema.AtomicCriterion) (tightened, loosened bool) {
	if a.ComparisonOperator != b.ComparisonOperator {
		return false, false
	}
	if a.ThresholdValue == nil || b.ThresholdValue == nil {
		return false, false
	}
	switch a.ComparisonOperator {
	case policyschema.OpGTE, policyschema.OpGT:
		if *b.ThresholdValue > *a.ThresholdValue {
			return true, false
		}
		if *b.ThresholdValue < *a.ThresholdValue {
			return false, true
		}
	case policyschema.OpLTE, policyschema.OpLT:
		if *b.ThresholdValue < *a.ThresholdValue {
			return true, false
		}
		if *b.ThresholdValue > *a.ThresholdValue {
			return false, true
		}
	case policyschema.OpBetween:
		if a.ThresholdValueUpper == nil || b.ThresholdValueUpper == nil {
			return false, false
		}
		oldRange := *a.ThresholdValueUpper - *a.ThresholdValue
		newRange := *b.ThresholdValueUpper - *b.ThresholdValue
		if newRange < oldRange && *b.ThresholdValue >= *a.ThresholdValue && *b.ThresholdValueUpper <= *a.ThresholdValueUpper {
			return true, false
		}
		if newRange > oldRange && *b.ThresholdValue <= *a.ThresholdValue && *b.ThresholdValueUpper >= *a.ThresholdValueUpper {
			return false, true
		}
	}
	return false, false
}

// --- Step therapy -----------------------------------------------------

func diffStepTherapy(oldPolicy, newPolicy *policyschema.DigitizedPolicy) []Change {
	oldByID := indexStepTherapy(oldPolicy.StepTherapyRequirements)
	newByID := indexStepTherapy(newPolicy.StepTherapyRequirements)
	ids := unionKeys(oldByID, newByID)

	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		a, hasOld := oldByID[id]
		b, hasNew := newByID[id]
		switch {
		case !hasOld && hasNew:
			changes = append(changes, Change{ID: id, ChangeType: ChangeAdded, Severity: SeverityBreaking})
		case hasOld && !hasNew:
			changes = append(changes, Change{ID: id, ChangeType: ChangeRemoved, Severity: SeverityMinor})
		default:
			changes = append(changes, diffStepTherapyReq(id, a, b))
		}
	}
	return changes
}

func indexStepTherapy(reqs []policyschema.StepTherapyRequirement) map[string]policyschema.StepTherapyRequirement {
	out := make(map[string]policyschema.StepTherapyRequirement, len(reqs))
	for _, r := range reqs {
		out[r.RequirementID] = r
	}
	return out
}

func diffStepTherapyReq(id string, a, b policyschema.StepTherapyRequirement) Change {
	var diffs []FieldDiff
	if a.MinimumTrials != b.MinimumTrials {
		diffs = append(diffs, FieldDiff{Field: "minimum_trials", Old: a.MinimumTrials, New: b.MinimumTrials})
	}
	if !stringSliceEqual(a.RequiredDrugs, b.RequiredDrugs) {
		diffs = append(diffs, FieldDiff{Field: "required_drugs", Old: a.RequiredDrugs, New: b.RequiredDrugs})
	}
	if !stringSliceEqual(a.RequiredDrugClasses, b.RequiredDrugClasses) {
		diffs = append(diffs, FieldDiff{Field: "required_drug_classes", Old: a.RequiredDrugClasses, New: b.RequiredDrugClasses})
	}
	if a.IntoleranceAcceptable != b.IntoleranceAcceptable {
		diffs = append(diffs, FieldDiff{Field: "intolerance_acceptable", Old: a.IntoleranceAcceptable, New: b.IntoleranceAcceptable})
	}
	if a.ContraindicationAcceptable != b.ContraindicationAcceptable {
		diffs = append(diffs, FieldDiff{Field: "contraindication_acceptable", Old: a.ContraindicationAcceptable, New: b.ContraindicationAcceptable})
	}

	if len(diffs) == 0 {
		return Change{ID: id, ChangeType: ChangeUnchanged, Severity: SeverityMinor}
	}

	sev := SeverityMinor
	if b.MinimumTrials > a.MinimumTrials {
		sev = SeverityBreaking
	} else if b.MinimumTrials < a.MinimumTrials {
		sev = SeverityMaterial
	} else if len(diffs) > 0 {
		sev = SeverityMaterial
	}
	return Change{ID: id, ChangeType: ChangeModified, Severity: sev, FieldDiffs: diffs}
}

// --- Exclusions -------------------------------------------------------

func diffExclusions(oldPolicy, newPolicy *policyschema.DigitizedPolicy) []Change {
	oldByID := indexExclusions(oldPolicy.Exclusions)
	newByID := indexExclusions(newPolicy.Exclusions)
	ids := unionKeys(oldByID, newByID)

	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		a, hasOld := oldByID[id]
		b, hasNew := newByID[id]
		switch {
		case !hasOld && hasNew:
			changes = append(changes, Change{ID: id, ChangeType: ChangeAdded, Severity: SeverityBreaking})
		case hasOld && !hasNew:
			changes = append(changes, Change{ID: id, ChangeType: ChangeRemoved, Severity: SeverityMinor})
		default:
			if stringSliceEqual(a.TriggerCriteria, b.TriggerCriteria) {
				changes = append(changes, Change{ID: id, ChangeType: ChangeUnchanged, Severity: SeverityMinor})
			} else {
				changes = append(changes, Change{
					ID: id, ChangeType: ChangeModified, Severity: SeverityMaterial,
					FieldDiffs: []FieldDiff{{Field: "trigger_criteria", Old: a.TriggerCriteria, New: b.TriggerCriteria}},
				})
			}
		}
	}
	return changes
}

func indexExclusions(excls []policyschema.Exclusion) map[string]policyschema.Exclusion {
	out := make(map[string]policyschema.Exclusion, len(excls))
	for _, e := range excls {
		out[e.ExclusionID] = e
	}
	return out
}

// --- Indications --------------------------------------------------------

func diffIndications(oldPolicy, newPolicy *policyschema.DigitizedPolicy) []Change {
	oldByID := indexIndications(oldPolicy.Indications)
	newByID := indexIndications(newPolicy.Indications)
	ids := unionKeys(oldByID, newByID)

	changes := make([]Change, 0, len(ids))
	for _, id := range ids {
		a, hasOld := oldByID[id]
		b, hasNew := newByID[id]
		switch {
		case !hasOld && hasNew:
			changes = append(changes, Change{ID: id, Name: b.IndicationName, ChangeType: ChangeAdded, Severity: SeverityMaterial})
		case hasOld && !hasNew:
			changes = append(changes, Change{ID: id, Name: a.IndicationName, ChangeType: ChangeRemoved, Severity: SeverityBreaking})
		default:
			changes = append(changes, diffIndication(id, a, b))
		}
	}
	return changes
}

func indexIndications(inds []policyschema.IndicationCriteria) map[string]policyschema.IndicationCriteria {
	out := make(map[string]policyschema.IndicationCriteria, len(inds))
	for _, i := range inds {
		out[i.IndicationID] = i
	}
	return out
}

func diffIndication(id string, a, b policyschema.IndicationCriteria) Change {
	var diffs []FieldDiff
	if a.InitialApprovalCriteria != b.InitialApprovalCriteria {
		diffs = append(diffs, FieldDiff{Field: "initial_approval_criteria", Old: a.InitialApprovalCriteria, New: b.InitialApprovalCriteria})
	}
	if a.ContinuationCriteria != b.ContinuationCriteria {
		diffs = append(diffs, FieldDiff{Field: "continuation_criteria", Old: a.ContinuationCriteria, New: b.ContinuationCriteria})
	}
	if !floatPtrEqual(a.MinAgeYears, b.MinAgeYears) {
		diffs = append(diffs, FieldDiff{Field: "min_age_years", Old: a.MinAgeYears, New: b.MinAgeYears})
	}
	if !floatPtrEqual(a.MaxAgeYears, b.MaxAgeYears) {
		diffs = append(diffs, FieldDiff{Field: "max_age_years", Old: a.MaxAgeYears, New: b.MaxAgeYears})
	}

	if len(diffs) == 0 {
		return Change{ID: id, Name: b.IndicationName, ChangeType: ChangeUnchanged, Severity: SeverityMinor}
	}

	sev := SeverityMaterial
	if ageTightened(a.MinAgeYears, b.MinAgeYears, false) || ageTightened(a.MaxAgeYears, b.MaxAgeYears, true) {
		sev = SeverityBreaking
	}
	return Change{ID: id, Name: b.IndicationName, ChangeType: ChangeModified, Severity: sev, FieldDiffs: diffs}
}

// ageTightened reports whether an age bound became more restrictive:
// a minimum raised, or (upper=true) a maximum lowered.
func ageTightened(oldVal, newVal *float64, upper bool) bool {
	if oldVal == nil || newVal == nil {
		return false
	}
	if upper {
		return *newVal < *oldVal
	}
	return *newVal > *oldVal
}

// --- shared helpers -----------------------------------------------------

func unionKeys[V any](a, b map[string]V) []string {
	seen := map[string]bool{}
	var ids []string
	for id := range a {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range b {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
