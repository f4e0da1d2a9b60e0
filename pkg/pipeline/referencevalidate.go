package pipeline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/policycore/internal/errorsx"
	"github.com/Mindburn-Labs/policycore/pkg/codesys"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// gradeQuality maps Pass 2's quality score to the coarse
// extraction-quality tag the pipeline stamps on the policy (§4.6).
func gradeQuality(score float64) policyschema.ExtractionQuality {
	switch {
	case score >= 0.8:
		return policyschema.QualityGood
	case score >= 0.5:
		return policyschema.QualityNeedsReview
	default:
		return policyschema.QualityPoor
	}
}

// ReferenceValidate is Pass 3: it deserializes the corrected
// extraction into the typed DigitizedPolicy, format-validates every
// ClinicalCode against pkg/codesys, stamps per-criterion provenance,
// and grades extraction quality. It never fails for malformed codes —
// only for an extraction payload that cannot be deserialized as JSON
// at all, which indicates Pass 1 returned something fundamentally
// broken rather than a structured-but-imperfect extraction.
func ReferenceValidate(extracted map[string]interface{}, qualityScore float64, sourceHash, model string, timestamp time.Time) (*policyschema.DigitizedPolicy, error) {
	raw, err := json.Marshal(extracted)
	if err != nil {
		return nil, errorsx.Validation("reference validator: marshal extracted data: %v", err)
	}

	var policy policyschema.DigitizedPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return nil, errorsx.Validation("reference validator: extracted data does not deserialize as a policy: %v", err)
	}

	if policy.PolicyID == "" {
		policy.PolicyID = uuid.New().String()
	}
	if policy.Version == "" {
		policy.Version = "latest"
	}
	if policy.AtomicCriteria == nil {
		policy.AtomicCriteria = map[string]*policyschema.AtomicCriterion{}
	}
	if policy.CriterionGroups == nil {
		policy.CriterionGroups = map[string]*policyschema.CriterionGroup{}
	}

	policy.Provenances = make(map[string]policyschema.Provenance, len(policy.AtomicCriteria))
	for id, c := range policy.AtomicCriteria {
		allValid := true
		for _, code := range c.ClinicalCodes {
			if !codesys.Valid(code) {
				allValid = false
				break
			}
		}
		c.CodesValidated = allValid
		policy.Provenances[id] = policyschema.Provenance{
			PolicyText: c.PolicyText,
			Confidence: c.ExtractionConfidence,
			Validated:  allValid,
		}
	}

	ts := timestamp
	policy.ExtractionTimestamp = &ts
	policy.ExtractionModel = model
	policy.SourceDocumentHash = sourceHash
	policy.ExtractionQuality = gradeQuality(qualityScore)

	return &policy, nil
}
