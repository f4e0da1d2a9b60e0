// Package policyschema is the typed, versioned data model for
// digitized coverage policies: atomic criteria, criterion groups,
// indications, step-therapy requirements, exclusions, and the
// aggregate DigitizedPolicy root.
package policyschema

import "time"

// Verdict is the outcome of evaluating a single criterion or group.
type Verdict string

const (
	VerdictMet               Verdict = "met"
	VerdictNotMet             Verdict = "not_met"
	VerdictInsufficientData   Verdict = "insufficient_data"
	VerdictNotApplicable      Verdict = "not_applicable"
)

// LogicalOperator composes a CriterionGroup.
type LogicalOperator string

const (
	OperatorAND LogicalOperator = "AND"
	OperatorOR  LogicalOperator = "OR"
	OperatorNOT LogicalOperator = "NOT"
)

// ComparisonOperator is used by numeric/enum criterion evaluation.
type ComparisonOperator string

const (
	OpGTE    ComparisonOperator = "gte"
	OpGT     ComparisonOperator = "gt"
	OpLT     ComparisonOperator = "lt"
	OpLTE    ComparisonOperator = "lte"
	OpEQ     ComparisonOperator = "eq"
	OpNEQ    ComparisonOperator = "neq"
	OpBetween ComparisonOperator = "between"
	OpIn     ComparisonOperator = "in"
	OpNotIn  ComparisonOperator = "not_in"
)

// ExtractionConfidence grades how confident the extraction pass was
// about a single criterion.
type ExtractionConfidence string

const (
	ConfidenceHigh   ExtractionConfidence = "high"
	ConfidenceMedium ExtractionConfidence = "medium"
	ConfidenceLow    ExtractionConfidence = "low"
)

// CodeSystem names a clinical terminology. Only format is validated,
// not semantic existence (see pkg/codesys).
type CodeSystem string

const (
	SystemICD10    CodeSystem = "ICD-10"
	SystemICD10CM  CodeSystem = "ICD-10-CM"
	SystemHCPCS    CodeSystem = "HCPCS"
	SystemCPT      CodeSystem = "CPT"
	SystemLOINC    CodeSystem = "LOINC"
	SystemNDC      CodeSystem = "NDC"
	SystemRxNorm   CodeSystem = "RxNorm"
	SystemSNOMED   CodeSystem = "SNOMED"
)

// ClinicalCode is a single coded reference into a named terminology.
type ClinicalCode struct {
	System  CodeSystem `json:"system"`
	Code    string     `json:"code"`
	Display string     `json:"display,omitempty"`
}

// CriterionType enumerates the stable set of criterion kinds the
// evaluator registry knows how to dispatch (§4.2). Adding a new value
// is a breaking schema change.
type CriterionType string

const (
	CriterionAge                        CriterionType = "age"
	CriterionGender                     CriterionType = "gender"
	CriterionDiagnosisConfirmed         CriterionType = "diagnosis_confirmed"
	CriterionDiagnosisSeverity          CriterionType = "diagnosis_severity"
	CriterionPriorTreatmentTried        CriterionType = "prior_treatment_tried"
	CriterionPriorTreatmentFailed       CriterionType = "prior_treatment_failed"
	CriterionPriorTreatmentIntolerant   CriterionType = "prior_treatment_intolerant"
	CriterionPriorTreatmentContraind    CriterionType = "prior_treatment_contraindicated"
	CriterionPriorTreatmentDuration     CriterionType = "prior_treatment_duration"
	CriterionLabValue                   CriterionType = "lab_value"
	CriterionLabTestCompleted           CriterionType = "lab_test_completed"
	CriterionSafetyScreeningCompleted   CriterionType = "safety_screening_completed"
	CriterionSafetyScreeningNegative    CriterionType = "safety_screening_negative"
	CriterionPrescriberSpecialty        CriterionType = "prescriber_specialty"
	CriterionPrescriberConsultation     CriterionType = "prescriber_consultation"
	CriterionDocumentationPresent       CriterionType = "documentation_present"
	CriterionClinicalMarkerPresent      CriterionType = "clinical_marker_present"
	CriterionDiseaseDuration            CriterionType = "disease_duration"
	CriterionConcurrentTherapy          CriterionType = "concurrent_therapy"
	CriterionNoConcurrentTherapy        CriterionType = "no_concurrent_therapy"
	CriterionCustom                     CriterionType = "custom"
)

// AtomicCriterion is an indivisible policy requirement.
type AtomicCriterion struct {
	CriterionID   string             `json:"criterion_id"`
	CriterionType CriterionType      `json:"criterion_type"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	PolicyText    string             `json:"policy_text,omitempty"`

	ClinicalCodes []ClinicalCode `json:"clinical_codes,omitempty"`

	ComparisonOperator  ComparisonOperator `json:"comparison_operator,omitempty"`
	ThresholdValue      *float64           `json:"threshold_value,omitempty"`
	ThresholdValueUpper *float64           `json:"threshold_value_upper,omitempty"`
	ThresholdUnit       string             `json:"threshold_unit,omitempty"`

	AllowedValues []string `json:"allowed_values,omitempty"`

	DrugNames  []string `json:"drug_names,omitempty"`
	DrugClasses []string `json:"drug_classes,omitempty"`

	MinimumDurationDays *int `json:"minimum_duration_days,omitempty"`

	IsRequired bool `json:"is_required"`

	Category             string                `json:"category,omitempty"`
	ExtractionConfidence ExtractionConfidence  `json:"extraction_confidence,omitempty"`
	CodesValidated       bool                  `json:"codes_validated"`
}

// CriterionGroup is a logical composition node over criteria and/or
// sub-groups under AND/OR/NOT.
type CriterionGroup struct {
	GroupID  string          `json:"group_id"`
	Name     string          `json:"name"`
	Operator LogicalOperator `json:"operator"`
	Criteria []string        `json:"criteria,omitempty"`  // criterion IDs, declaration order
	Subgroups []string       `json:"subgroups,omitempty"` // group IDs, declaration order
	Negated  bool            `json:"negated"`
}

// DosingRequirement captures a dosing rule tied to an indication.
type DosingRequirement struct {
	Description string `json:"description,omitempty"`
}

// IndicationCriteria is a covered condition with its own
// approval-criteria group.
type IndicationCriteria struct {
	IndicationID             string              `json:"indication_id"`
	IndicationName           string              `json:"indication_name"`
	IndicationCodes          []ClinicalCode      `json:"indication_codes,omitempty"`
	InitialApprovalCriteria  string              `json:"initial_approval_criteria"` // group id
	ContinuationCriteria     string              `json:"continuation_criteria,omitempty"`
	InitialApprovalDurationDays int             `json:"initial_approval_duration_days,omitempty"`
	ContinuationDurationDays    int             `json:"continuation_duration_days,omitempty"`
	DosingRequirements       []DosingRequirement `json:"dosing_requirements,omitempty"`
	MinAgeYears              *float64            `json:"min_age_years,omitempty"`
	MaxAgeYears              *float64            `json:"max_age_years,omitempty"`
}

// StepTherapyRequirement requires that prior alternative drugs have
// been tried and failed before the requested medication is covered.
type StepTherapyRequirement struct {
	RequirementID          string   `json:"requirement_id"`
	Indication             string   `json:"indication"`
	RequiredDrugs          []string `json:"required_drugs,omitempty"`
	RequiredDrugClasses    []string `json:"required_drug_classes,omitempty"`
	MinimumTrials          int      `json:"minimum_trials"`
	MinimumDurationDays    *int     `json:"minimum_duration_days,omitempty"`
	FailureRequired        bool     `json:"failure_required"`
	IntoleranceAcceptable  bool     `json:"intolerance_acceptable"`
	ContraindicationAcceptable bool `json:"contraindication_acceptable"`
}

// Exclusion is triggered active when any trigger criterion is MET.
type Exclusion struct {
	ExclusionID     string   `json:"exclusion_id"`
	TriggerCriteria []string `json:"trigger_criteria"`
}

// Provenance links a criterion back to the source policy text with
// extraction confidence.
type Provenance struct {
	PolicyText string               `json:"policy_text,omitempty"`
	Page       *int                 `json:"page,omitempty"`
	Confidence ExtractionConfidence `json:"confidence,omitempty"`
	Validated  bool                 `json:"validated"`
}

// ExtractionQuality grades the digitalization run's overall quality.
type ExtractionQuality string

const (
	QualityGood        ExtractionQuality = "good"
	QualityNeedsReview  ExtractionQuality = "needs_review"
	QualityPoor         ExtractionQuality = "poor"
)

// DigitizedPolicy is the aggregate root produced by the reference
// validator at the end of a digitalization run.
type DigitizedPolicy struct {
	PolicyID     string `json:"policy_id"`
	PolicyNumber string `json:"policy_number,omitempty"`
	PolicyTitle  string `json:"policy_title,omitempty"`

	PayerName    string `json:"payer_name"`
	MedicationName string `json:"medication_name"`
	MedicationBrandNames   []string       `json:"medication_brand_names,omitempty"`
	MedicationGenericNames []string       `json:"medication_generic_names,omitempty"`
	MedicationCodes        []ClinicalCode `json:"medication_codes,omitempty"`

	EffectiveDate    *time.Time `json:"effective_date,omitempty"`
	LastRevisionDate *time.Time `json:"last_revision_date,omitempty"`

	// Version is a label string; default "latest".
	Version string `json:"version"`

	AtomicCriteria map[string]*AtomicCriterion `json:"atomic_criteria"`
	CriterionGroups map[string]*CriterionGroup `json:"criterion_groups"`

	Indications []IndicationCriteria `json:"indications"`
	Exclusions  []Exclusion          `json:"exclusions,omitempty"`
	StepTherapyRequirements []StepTherapyRequirement `json:"step_therapy_requirements,omitempty"`

	Provenances map[string]Provenance `json:"provenances,omitempty"`

	ExtractionTimestamp *time.Time        `json:"extraction_timestamp,omitempty"`
	ExtractionModel     string            `json:"extraction_model,omitempty"`
	SourceDocumentHash  string            `json:"source_document_hash,omitempty"`
	ExtractionQuality   ExtractionQuality `json:"extraction_quality,omitempty"`
}

// VersionOrDefault returns the policy's version label, defaulting to
// "latest" when unset.
func (p *DigitizedPolicy) VersionOrDefault() string {
	if p.Version == "" {
		return "latest"
	}
	return p.Version
}

// ResolveGroup returns the group for id, or (nil, false) if id does
// not resolve inside this policy. Unresolved references are treated
// as NOT_APPLICABLE by the evaluator, never as a crash.
func (p *DigitizedPolicy) ResolveGroup(id string) (*CriterionGroup, bool) {
	if p.CriterionGroups == nil {
		return nil, false
	}
	g, ok := p.CriterionGroups[id]
	return g, ok
}

// ResolveCriterion returns the criterion for id, or (nil, false) if
// id does not resolve inside this policy.
func (p *DigitizedPolicy) ResolveCriterion(id string) (*AtomicCriterion, bool) {
	if p.AtomicCriteria == nil {
		return nil, false
	}
	c, ok := p.AtomicCriteria[id]
	return c, ok
}
