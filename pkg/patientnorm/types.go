// Package patientnorm flattens a raw, loosely-structured patient
// record into the evaluator-friendly canonical NormalizedPatientData
// shape (§3, §4.1).
package patientnorm

// TreatmentOutcome is the controlled vocabulary for prior-treatment
// outcomes. Unmapped input strings pass through as-is and are treated
// by the evaluator as non-matching for any outcome class.
type TreatmentOutcome string

const (
	OutcomeFailed             TreatmentOutcome = "failed"
	OutcomeInadequateResponse TreatmentOutcome = "inadequate_response"
	OutcomePartialResponse    TreatmentOutcome = "partial_response"
	OutcomeSteroidDependent   TreatmentOutcome = "steroid_dependent"
	OutcomeIntolerant         TreatmentOutcome = "intolerant"
	OutcomeContraindicated    TreatmentOutcome = "contraindicated"
)

// PriorTreatment is a single medication trial on the patient's record.
type PriorTreatment struct {
	MedicationName string   `json:"medication_name"`
	DrugClass      string   `json:"drug_class,omitempty"`
	DurationWeeks  *float64 `json:"duration_weeks,omitempty"`
	Outcome        string   `json:"outcome,omitempty"`
	AdequateTrial  *bool    `json:"adequate_trial,omitempty"`
}

// LabResult is a single flattened lab observation.
type LabResult struct {
	TestName  string   `json:"test_name"`
	LOINCCode string   `json:"loinc_code,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	Date      string   `json:"date,omitempty"`
	Flag      string   `json:"flag,omitempty"`
}

// Screening is a single completed-or-not safety screening.
type Screening struct {
	ScreeningType    string `json:"screening_type"` // canonical token, e.g. "tb", "hepatitis_b"
	Completed        bool   `json:"completed"`
	ResultNegative   *bool  `json:"result_negative,omitempty"`
	Date             string `json:"date,omitempty"`
}

// NormalizedPatientData is the evaluator's entire input shape: flat,
// no free text, controlled vocabularies throughout.
type NormalizedPatientData struct {
	PatientID string   `json:"patient_id,omitempty"`
	AgeYears  *float64 `json:"age_years,omitempty"`
	Gender    string   `json:"gender,omitempty"`

	DiagnosisCodes  []string `json:"diagnosis_codes,omitempty"`
	DiseaseSeverity string   `json:"disease_severity,omitempty"`

	PriorTreatments     []PriorTreatment `json:"prior_treatments,omitempty"`
	LabResults          []LabResult      `json:"lab_results,omitempty"`
	CompletedScreenings []Screening      `json:"completed_screenings,omitempty"`

	PrescriberSpecialty string `json:"prescriber_specialty,omitempty"`
	PrescriberNPI       string `json:"prescriber_npi,omitempty"`

	// Cross-therapeutic extensions (§3). Kept as opaque string-keyed
	// maps since their shape varies by therapeutic area; evaluators
	// that need one of these data points read it directly.
	Biomarkers         map[string]string `json:"biomarkers,omitempty"`
	FunctionalScores   map[string]float64 `json:"functional_scores,omitempty"`
	Staging            string            `json:"staging,omitempty"`
	ImagingResults      []string          `json:"imaging_results,omitempty"`
	GeneticTests        map[string]string `json:"genetic_tests,omitempty"`
	ProgramEnrollments  []string          `json:"program_enrollments,omitempty"`
	SiteOfCare          string            `json:"site_of_care,omitempty"`
}
