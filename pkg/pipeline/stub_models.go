package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/Mindburn-Labs/policycore/internal/jsonx"
)

// StubExtractor is a minimal, deterministic stand-in for the real
// structured-extraction model collaborator (§4.6 treats Pass 1 as an
// opaque collaborator). It recognizes a small line-oriented policy
// grammar so the pipeline is exercisable end-to-end without a real
// LLM, the same role the teacher's setupLiteMode plays for its
// storage layer: a deterministic substitute that keeps the surface
// testable.
//
// Recognized grammar, one directive per line:
//
//	PAYER: <name>
//	MEDICATION: <name>
//	INDICATION: <id> | <name> | <group id>
//	GROUP: <id> | <AND|OR|NOT> | <criterion id>,<criterion id>,... | <subgroup id>,...
//	CRITERION: <id> | <type> | <name> | <required true|false>
//
// Any input that yields zero criteria and zero indications is a
// legitimate stub response (the empty-extraction guard in Pipeline
// handles it), not an error from the stub itself.
type StubExtractor struct{}

// NewStubExtractor constructs the deterministic extraction stub.
func NewStubExtractor() *StubExtractor { return &StubExtractor{} }

var stubLineSplit = regexp.MustCompile(`\s*\|\s*`)

func (StubExtractor) Extract(_ context.Context, source string, sourceType SourceType, model string) (RawExtractionResult, error) {
	data := map[string]interface{}{
		"atomic_criteria":           map[string]interface{}{},
		"criterion_groups":          map[string]interface{}{},
		"indications":               []interface{}{},
		"exclusions":                []interface{}{},
		"step_therapy_requirements": []interface{}{},
	}

	criteria := data["atomic_criteria"].(map[string]interface{})
	groups := data["criterion_groups"].(map[string]interface{})
	var indications []interface{}

	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "PAYER:"):
			data["payer_name"] = strings.TrimSpace(strings.TrimPrefix(line, "PAYER:"))
		case strings.HasPrefix(line, "MEDICATION:"):
			data["medication_name"] = strings.TrimSpace(strings.TrimPrefix(line, "MEDICATION:"))
		case strings.HasPrefix(line, "CRITERION:"):
			parts := stubLineSplit.Split(strings.TrimSpace(strings.TrimPrefix(line, "CRITERION:")), -1)
			if len(parts) < 3 {
				continue
			}
			id := parts[0]
			entry := map[string]interface{}{
				"criterion_id":   id,
				"criterion_type": parts[1],
				"name":           parts[2],
				"is_required":    len(parts) > 3 && strings.EqualFold(parts[3], "true"),
			}
			criteria[id] = entry
		case strings.HasPrefix(line, "GROUP:"):
			parts := stubLineSplit.Split(strings.TrimSpace(strings.TrimPrefix(line, "GROUP:")), -1)
			if len(parts) < 2 {
				continue
			}
			id := parts[0]
			entry := map[string]interface{}{
				"group_id": id,
				"operator": parts[1],
			}
			if len(parts) > 2 && parts[2] != "" {
				entry["criteria"] = strings.Split(parts[2], ",")
			}
			if len(parts) > 3 && parts[3] != "" {
				entry["subgroups"] = strings.Split(parts[3], ",")
			}
			groups[id] = entry
		case strings.HasPrefix(line, "INDICATION:"):
			parts := stubLineSplit.Split(strings.TrimSpace(strings.TrimPrefix(line, "INDICATION:")), -1)
			if len(parts) < 3 {
				continue
			}
			indications = append(indications, map[string]interface{}{
				"indication_id":             parts[0],
				"indication_name":           parts[1],
				"initial_approval_criteria": parts[2],
			})
		}
	}
	data["indications"] = indications

	hash, err := jsonx.ContentHash(source)
	if err != nil {
		return RawExtractionResult{}, err
	}

	return RawExtractionResult{
		ExtractedData:   data,
		SourceHash:      hash,
		SourceType:      sourceType,
		ExtractionModel: model,
	}, nil
}

// StubValidator is a deterministic stand-in for the Pass 2 correction
// model. It proposes no corrections and reports a fixed quality score,
// leaving the door open for a real model to be substituted without
// changing Pipeline's control flow.
type StubValidator struct {
	// QualityScore is returned for every call; defaults to 0.75 (grades
	// to "needs_review") when the zero value is used.
	QualityScore float64
}

// NewStubValidator constructs the deterministic validation stub.
func NewStubValidator() *StubValidator { return &StubValidator{QualityScore: 0.75} }

func (v StubValidator) Validate(_ context.Context, _ map[string]interface{}, _ string) (ValidationResult, error) {
	score := v.QualityScore
	if score == 0 {
		score = 0.75
	}
	return ValidationResult{QualityScore: score}, nil
}
