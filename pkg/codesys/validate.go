// Package codesys format-validates clinical terminology codes. It
// never verifies semantic existence against a real code system — only
// shape.
package codesys

import (
	"regexp"

	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

var (
	icd10Pattern  = regexp.MustCompile(`^[A-Za-z]\d{2}(\.[A-Za-z0-9]{1,4})?$`)
	hcpcsPattern  = regexp.MustCompile(`^[A-Za-z]\d{4}$`)
	cptPattern    = regexp.MustCompile(`^\d{5}$`)
	loincPattern  = regexp.MustCompile(`^\d+-\d$`)
)

// Valid reports whether code.Code has the correct shape for
// code.System. Unknown systems accept any non-empty token.
func Valid(code policyschema.ClinicalCode) bool {
	if code.Code == "" {
		return false
	}
	switch code.System {
	case policyschema.SystemICD10, policyschema.SystemICD10CM:
		return icd10Pattern.MatchString(code.Code)
	case policyschema.SystemHCPCS:
		return hcpcsPattern.MatchString(code.Code)
	case policyschema.SystemCPT:
		return cptPattern.MatchString(code.Code)
	case policyschema.SystemLOINC:
		return loincPattern.MatchString(code.Code)
	case policyschema.SystemNDC, policyschema.SystemRxNorm, policyschema.SystemSNOMED:
		return true
	default:
		return true
	}
}
