// Package differ computes structural diffs between two policy
// versions (§4.8), classifying every change as added / removed /
// modified / unchanged and grading each as breaking / material /
// minor.
package differ

// ChangeType classifies how an entity changed between two policy
// versions.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeRemoved   ChangeType = "removed"
	ChangeModified  ChangeType = "modified"
	ChangeUnchanged ChangeType = "unchanged"
)

// Severity grades the practical impact of a change.
type Severity string

const (
	SeverityBreaking Severity = "breaking"
	SeverityMaterial Severity = "material"
	SeverityMinor    Severity = "minor"
)

// FieldDiff is one field-level difference inside a modified entity.
type FieldDiff struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
}

// Change is one entity-level diff entry: a criterion, step-therapy
// requirement, exclusion, or indication.
type Change struct {
	ID         string      `json:"id"`
	Name       string      `json:"name,omitempty"`
	ChangeType ChangeType  `json:"change_type"`
	Severity   Severity    `json:"severity"`
	FieldDiffs []FieldDiff `json:"field_diffs,omitempty"`
}

// SeverityAssessment is the diff's overall impact rating.
type SeverityAssessment string

const (
	HighImpact   SeverityAssessment = "high_impact"
	MediumImpact SeverityAssessment = "medium_impact"
	LowImpact    SeverityAssessment = "low_impact"
)

// Summary aggregates counts across all four change dimensions.
type Summary struct {
	TotalCriteriaOld  int                `json:"total_criteria_old"`
	TotalCriteriaNew  int                `json:"total_criteria_new"`
	AddedCount        int                `json:"added_count"`
	RemovedCount      int                `json:"removed_count"`
	ModifiedCount     int                `json:"modified_count"`
	UnchangedCount    int                `json:"unchanged_count"`
	BreakingChanges   int                `json:"breaking_changes"`
	MaterialChanges   int                `json:"material_changes"`
	SeverityAssessment SeverityAssessment `json:"severity_assessment"`
}

// PolicyDiffResult is the full output of Diff.
type PolicyDiffResult struct {
	CriteriaChanges    []Change `json:"criteria_changes"`
	StepTherapyChanges []Change `json:"step_therapy_changes"`
	ExclusionChanges   []Change `json:"exclusion_changes"`
	IndicationChanges  []Change `json:"indication_changes"`
	Summary            Summary  `json:"summary"`
}

// allChanges returns every Change across all four dimensions, in a
// stable dimension-then-id order, used to compute the summary.
func (r PolicyDiffResult) allChanges() []Change {
	out := make([]Change, 0, len(r.CriteriaChanges)+len(r.StepTherapyChanges)+len(r.ExclusionChanges)+len(r.IndicationChanges))
	out = append(out, r.CriteriaChanges...)
	out = append(out, r.StepTherapyChanges...)
	out = append(out, r.ExclusionChanges...)
	out = append(out, r.IndicationChanges...)
	return out
}
