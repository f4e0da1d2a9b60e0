package criteria

import (
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// compareNumeric applies a ComparisonOperator to a measured value
// against the criterion's threshold(s). The second return value is
// false when the operator requires a threshold that was never set on
// the criterion, which the caller must surface as insufficient data
// rather than a false "not met".
func compareNumeric(op policyschema.ComparisonOperator, value float64, threshold, upper *float64) (bool, bool) {
	switch op {
	case policyschema.OpGTE:
		if threshold == nil {
			return false, false
		}
		return value >= *threshold, true
	case policyschema.OpGT:
		if threshold == nil {
			return false, false
		}
		return value > *threshold, true
	case policyschema.OpLT:
		if threshold == nil {
			return false, false
		}
		return value < *threshold, true
	case policyschema.OpLTE:
		if threshold == nil {
			return false, false
		}
		return value <= *threshold, true
	case policyschema.OpEQ:
		if threshold == nil {
			return false, false
		}
		return value == *threshold, true
	case policyschema.OpNEQ:
		if threshold == nil {
			return false, false
		}
		return value != *threshold, true
	case policyschema.OpBetween:
		if threshold == nil || upper == nil {
			return false, false
		}
		return value >= *threshold && value <= *upper, true
	default:
		return false, false
	}
}

// compareToken applies "in"/"not_in" membership semantics against a
// criterion's AllowedValues, comparing case-insensitively.
func compareToken(op policyschema.ComparisonOperator, value string, allowed []string) (bool, bool) {
	if len(allowed) == 0 {
		return false, false
	}
	member := false
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(value)) {
			member = true
			break
		}
	}
	switch op {
	case policyschema.OpIn, "":
		return member, true
	case policyschema.OpNotIn:
		return !member, true
	case policyschema.OpEQ:
		return member, true
	case policyschema.OpNEQ:
		return !member, true
	default:
		return false, false
	}
}

func formatThreshold(op policyschema.ComparisonOperator, threshold, upper *float64, unit string) string {
	switch op {
	case policyschema.OpBetween:
		if threshold != nil && upper != nil {
			return fmt.Sprintf("between %g and %g %s", *threshold, *upper, unit)
		}
	default:
		if threshold != nil {
			return fmt.Sprintf("%s %g %s", op, *threshold, unit)
		}
	}
	return string(op)
}
