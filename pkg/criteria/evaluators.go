package criteria

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

func evalAge(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if patient.AgeYears == nil {
		return insufficientData(c, "patient age is not recorded")
	}
	ok, known := compareNumeric(c.ComparisonOperator, *patient.AgeYears, c.ThresholdValue, c.ThresholdValueUpper)
	if !known {
		return insufficientData(c, "criterion has no usable age threshold configured")
	}
	evidence := fmt.Sprintf("patient age: %g years", *patient.AgeYears)
	if ok {
		return met(c, fmt.Sprintf("age satisfies %s", formatThreshold(c.ComparisonOperator, c.ThresholdValue, c.ThresholdValueUpper, "years")), evidence)
	}
	return notMet(c, fmt.Sprintf("age does not satisfy %s", formatThreshold(c.ComparisonOperator, c.ThresholdValue, c.ThresholdValueUpper, "years")), evidence)
}

func evalGender(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if patient.Gender == "" {
		return insufficientData(c, "patient gender is not recorded")
	}
	ok, known := compareToken(c.ComparisonOperator, patient.Gender, c.AllowedValues)
	if !known {
		return insufficientData(c, "criterion has no allowed gender values configured")
	}
	if ok {
		return met(c, "gender is within the allowed set", "patient gender: "+patient.Gender)
	}
	return notMet(c, "gender is outside the allowed set", "patient gender: "+patient.Gender)
}

func evalDiagnosisConfirmed(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if len(c.ClinicalCodes) == 0 {
		return insufficientData(c, "criterion has no diagnosis codes configured")
	}
	if len(patient.DiagnosisCodes) == 0 {
		return insufficientData(c, "patient has no diagnosis codes recorded")
	}
	for _, want := range c.ClinicalCodes {
		for _, have := range patient.DiagnosisCodes {
			if diagnosisCodeMatches(want.Code, have) {
				return met(c, "matching diagnosis code found", "matched code: "+have)
			}
		}
	}
	return notMet(c, "no recorded diagnosis code matches the required codes")
}

func evalDiagnosisSeverity(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if patient.DiseaseSeverity == "" {
		return insufficientData(c, "patient disease severity is not recorded")
	}
	ok, known := compareToken(c.ComparisonOperator, patient.DiseaseSeverity, c.AllowedValues)
	if !known {
		return insufficientData(c, "criterion has no allowed severity values configured")
	}
	if ok {
		return met(c, "disease severity matches required level", "severity: "+patient.DiseaseSeverity)
	}
	return notMet(c, "disease severity does not match required level", "severity: "+patient.DiseaseSeverity)
}

func evalPriorTreatmentTried(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if len(patient.PriorTreatments) == 0 {
		return insufficientData(c, "no prior treatment history is recorded")
	}
	matches := findMatchingTreatments(c, patient)
	if len(matches) == 0 {
		return notMet(c, "no prior trial of the required medication(s) is recorded")
	}
	return met(c, "a prior trial of the required medication(s) is recorded", treatmentEvidence(matches[0]))
}

func evalPriorTreatmentFailed(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if len(patient.PriorTreatments) == 0 {
		return insufficientData(c, "no prior treatment history is recorded")
	}
	matches := findMatchingTreatments(c, patient)
	if len(matches) == 0 {
		return insufficientData(c, "no prior trial of the required medication(s) is recorded")
	}
	for _, t := range matches {
		if isFailureOutcome(t.Outcome) {
			return met(c, "a documented treatment failure is recorded", treatmentEvidence(t))
		}
	}
	return notMet(c, "no documented treatment failure is recorded for the prior trial(s)", treatmentEvidence(matches[0]))
}

func evalPriorTreatmentIntolerant(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	matches := findMatchingTreatments(c, patient)
	if len(matches) == 0 {
		return insufficientData(c, "no prior trial of the required medication(s) is recorded")
	}
	for _, t := range matches {
		if t.Outcome == string(patientnorm.OutcomeIntolerant) {
			return met(c, "documented intolerance is recorded", treatmentEvidence(t))
		}
	}
	return notMet(c, "no documented intolerance is recorded", treatmentEvidence(matches[0]))
}

func evalPriorTreatmentContraindicated(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	matches := findMatchingTreatments(c, patient)
	if len(matches) == 0 {
		return insufficientData(c, "no prior trial of the required medication(s) is recorded")
	}
	for _, t := range matches {
		if t.Outcome == string(patientnorm.OutcomeContraindicated) {
			return met(c, "documented contraindication is recorded", treatmentEvidence(t))
		}
	}
	return notMet(c, "no documented contraindication is recorded", treatmentEvidence(matches[0]))
}

func evalPriorTreatmentDuration(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	matches := findMatchingTreatments(c, patient)
	if len(matches) == 0 {
		return insufficientData(c, "no prior trial of the required medication(s) is recorded")
	}
	if c.MinimumDurationDays == nil {
		return insufficientData(c, "criterion has no minimum duration configured")
	}
	minWeeks := float64(*c.MinimumDurationDays) / 7.0
	for _, t := range matches {
		if t.DurationWeeks != nil && *t.DurationWeeks >= minWeeks {
			return met(c, fmt.Sprintf("trial duration of %g weeks satisfies the %d day minimum", *t.DurationWeeks, *c.MinimumDurationDays), treatmentEvidence(t))
		}
	}
	if matches[0].DurationWeeks == nil {
		return insufficientData(c, "prior trial duration is not recorded")
	}
	return notMet(c, "recorded trial duration is shorter than required", treatmentEvidence(matches[0]))
}

func treatmentEvidence(t patientnorm.PriorTreatment) string {
	if t.Outcome != "" {
		return fmt.Sprintf("%s: %s", t.MedicationName, t.Outcome)
	}
	return t.MedicationName
}

func evalLabValue(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	lab, found := findMatchingLab(c, patient)
	if !found {
		return insufficientData(c, "required lab result is not recorded")
	}
	if lab.Value == nil {
		return insufficientData(c, "matching lab result has no numeric value recorded")
	}
	ok, known := compareNumeric(c.ComparisonOperator, *lab.Value, c.ThresholdValue, c.ThresholdValueUpper)
	if !known {
		return insufficientData(c, "criterion has no usable lab threshold configured")
	}
	evidence := fmt.Sprintf("%s: %g %s", lab.TestName, *lab.Value, lab.Unit)
	if ok {
		return met(c, fmt.Sprintf("lab value satisfies %s", formatThreshold(c.ComparisonOperator, c.ThresholdValue, c.ThresholdValueUpper, c.ThresholdUnit)), evidence)
	}
	return notMet(c, fmt.Sprintf("lab value does not satisfy %s", formatThreshold(c.ComparisonOperator, c.ThresholdValue, c.ThresholdValueUpper, c.ThresholdUnit)), evidence)
}

func evalLabTestCompleted(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	lab, found := findMatchingLab(c, patient)
	if !found {
		return insufficientData(c, "required lab test is not recorded as performed")
	}
	return met(c, "required lab test is recorded", lab.TestName)
}

func evalSafetyScreeningCompleted(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	s, found := findMatchingScreening(c, patient)
	if !found {
		return insufficientData(c, "required safety screening is not recorded")
	}
	if s.Completed {
		return met(c, "required safety screening is recorded as completed", s.ScreeningType)
	}
	return notMet(c, "required safety screening is recorded but not marked completed", s.ScreeningType)
}

func evalSafetyScreeningNegative(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	s, found := findMatchingScreening(c, patient)
	if !found || s.ResultNegative == nil {
		return insufficientData(c, "safety screening result is not recorded")
	}
	if *s.ResultNegative {
		return met(c, "safety screening result is negative", s.ScreeningType)
	}
	return notMet(c, "safety screening result is positive", s.ScreeningType)
}

// specialtyKeywords are the stems checked against a criterion's
// description and name when it names no explicit allowed_values.
var specialtyKeywords = []string{"gastroenterolog", "rheumatolog", "dermatolog", "neurolog", "oncolog"}

func evalPrescriberSpecialty(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	if patient.PrescriberSpecialty == "" {
		return insufficientData(c, "prescriber specialty is not recorded")
	}
	specialtyLower := strings.ToLower(patient.PrescriberSpecialty)

	var isMatch bool
	if len(c.AllowedValues) > 0 {
		isMatch, _ = compareToken(policyschema.OpIn, patient.PrescriberSpecialty, c.AllowedValues)
	} else {
		descLower := strings.ToLower(c.Description)
		nameLower := strings.ToLower(c.Name)
		for _, keyword := range specialtyKeywords {
			if strings.Contains(descLower, keyword) && strings.Contains(specialtyLower, keyword) {
				isMatch = true
				break
			}
		}
		if !isMatch {
			for _, keyword := range specialtyKeywords {
				if strings.Contains(nameLower, keyword) && strings.Contains(specialtyLower, keyword) {
					isMatch = true
					break
				}
			}
		}
	}

	if isMatch {
		return met(c, "prescriber specialty matches the requirement", patient.PrescriberSpecialty)
	}
	return notMet(c, "prescriber specialty does not match the requirement", patient.PrescriberSpecialty)
}

// manualReview covers criterion types this model cannot resolve from
// structured patient data alone (free-text documentation, custom
// policy logic). They always read as insufficient data rather than
// guessing, leaving the verdict for a human reviewer to supply out of
// band.
func manualReview(c *policyschema.AtomicCriterion, reason string) CriterionEvaluation {
	return insufficientData(c, reason)
}

// evalPrescriberConsultation: consultation with a specialist counts
// the same as the specialist being the prescriber.
func evalPrescriberConsultation(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	return evalPrescriberSpecialty(c, patient)
}

func evalDocumentationPresent(c *policyschema.AtomicCriterion, _ patientnorm.NormalizedPatientData) CriterionEvaluation {
	return manualReview(c, "documentation presence requires manual review of supporting records")
}

func evalClinicalMarkerPresent(c *policyschema.AtomicCriterion, _ patientnorm.NormalizedPatientData) CriterionEvaluation {
	return manualReview(c, "clinical marker presence requires manual review of supporting records")
}

func evalDiseaseDuration(c *policyschema.AtomicCriterion, _ patientnorm.NormalizedPatientData) CriterionEvaluation {
	return manualReview(c, "disease duration is not captured in normalized patient data")
}

func evalConcurrentTherapy(c *policyschema.AtomicCriterion, _ patientnorm.NormalizedPatientData) CriterionEvaluation {
	return manualReview(c, "concurrent therapy status requires manual clinical review")
}

func evalNoConcurrentTherapy(c *policyschema.AtomicCriterion, _ patientnorm.NormalizedPatientData) CriterionEvaluation {
	return manualReview(c, "concurrent therapy status requires manual clinical review")
}

func evalCustom(c *policyschema.AtomicCriterion, _ patientnorm.NormalizedPatientData) CriterionEvaluation {
	return manualReview(c, "custom criterion logic requires manual adjudication")
}
