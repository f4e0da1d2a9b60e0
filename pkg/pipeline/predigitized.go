package pipeline

import (
	"encoding/json"

	"github.com/Mindburn-Labs/policycore/internal/errorsx"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// policyFromPreDigitizedJSON deserializes a pre-digitized policy JSON
// file (same shape as the schema's serialized form, §6) directly into
// the typed policy, bypassing all three passes. A malformed file is
// reported so the caller can fall through to raw-source
// digitalization instead.
func policyFromPreDigitizedJSON(data []byte) (*policyschema.DigitizedPolicy, error) {
	var policy policyschema.DigitizedPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, errorsx.Validation("pre-digitized policy JSON is malformed: %v", err)
	}
	if policy.PolicyID == "" || (len(policy.AtomicCriteria) == 0 && len(policy.Indications) == 0) {
		return nil, errorsx.Validation("pre-digitized policy JSON is missing required content")
	}
	return &policy, nil
}
