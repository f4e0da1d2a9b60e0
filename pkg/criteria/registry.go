package criteria

import (
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// registry is a constant dispatch table built at package
// initialization, not a mutable global: callers cannot register new
// criterion types at runtime, which keeps the evaluable set equal to
// the CriterionType enum by construction.
var registry = map[policyschema.CriterionType]EvaluatorFunc{
	policyschema.CriterionAge:                      evalAge,
	policyschema.CriterionGender:                    evalGender,
	policyschema.CriterionDiagnosisConfirmed:        evalDiagnosisConfirmed,
	policyschema.CriterionDiagnosisSeverity:         evalDiagnosisSeverity,
	policyschema.CriterionPriorTreatmentTried:       evalPriorTreatmentTried,
	policyschema.CriterionPriorTreatmentFailed:      evalPriorTreatmentFailed,
	policyschema.CriterionPriorTreatmentIntolerant:  evalPriorTreatmentIntolerant,
	policyschema.CriterionPriorTreatmentContraind:   evalPriorTreatmentContraindicated,
	policyschema.CriterionPriorTreatmentDuration:    evalPriorTreatmentDuration,
	policyschema.CriterionLabValue:                  evalLabValue,
	policyschema.CriterionLabTestCompleted:          evalLabTestCompleted,
	policyschema.CriterionSafetyScreeningCompleted:  evalSafetyScreeningCompleted,
	policyschema.CriterionSafetyScreeningNegative:   evalSafetyScreeningNegative,
	policyschema.CriterionPrescriberSpecialty:       evalPrescriberSpecialty,
	policyschema.CriterionPrescriberConsultation:    evalPrescriberConsultation,
	policyschema.CriterionDocumentationPresent:      evalDocumentationPresent,
	policyschema.CriterionClinicalMarkerPresent:     evalClinicalMarkerPresent,
	policyschema.CriterionDiseaseDuration:           evalDiseaseDuration,
	policyschema.CriterionConcurrentTherapy:         evalConcurrentTherapy,
	policyschema.CriterionNoConcurrentTherapy:       evalNoConcurrentTherapy,
	policyschema.CriterionCustom:                    evalCustom,
}

// Evaluate dispatches a single atomic criterion against normalized
// patient data. An unrecognized criterion type never panics or
// errors; it reads as insufficient data so that a policy carrying a
// future criterion type still produces a complete, if conservative,
// evaluation.
func Evaluate(c *policyschema.AtomicCriterion, patient patientnorm.NormalizedPatientData) CriterionEvaluation {
	fn, ok := registry[c.CriterionType]
	if !ok {
		return insufficientData(c, "criterion type is not recognized by this evaluator")
	}
	eval := fn(c, patient)
	eval.Confidence = c.ExtractionConfidence
	return eval
}

// Registered reports whether a criterion type has an evaluator.
func Registered(t policyschema.CriterionType) bool {
	_, ok := registry[t]
	return ok
}
