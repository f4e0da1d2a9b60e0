package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Mindburn-Labs/policycore/internal/clock"
	"github.com/Mindburn-Labs/policycore/internal/errorsx"
	"github.com/Mindburn-Labs/policycore/internal/pathsafe"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
	"github.com/Mindburn-Labs/policycore/pkg/repository"
)

// DefaultModelTimeout is the per-model-call timeout the pipeline
// enforces around Pass 1 and Pass 2 (§5: "default 120s for PDF
// extraction").
const DefaultModelTimeout = 120 * time.Second

// ValidationQualityFloor is the quality score substituted when Pass 2
// returns a malformed corrections payload (§7's "Validation
// failure": the pipeline logs and falls through to Pass 3 with the
// uncorrected extraction and a quality score lowered to this floor).
const ValidationQualityFloor = 0.3

// SkipValidationQualityScore is the placeholder quality score used
// when the caller sets skip_validation (§4.6 Pass 2).
const SkipValidationQualityScore = 0.6

// Pipeline is the three-pass digitalization orchestrator (§4.6). It
// is deterministic control logic: the only suspension points are the
// Extractor/Validator collaborators and the Repository/filesystem I/O
// it drives.
type Pipeline struct {
	Extractor Extractor
	Validator Validator
	Repo      *repository.Repository
	Clock     clock.Clock

	// PoliciesRoot is the on-disk root the pipeline is confined to via
	// internal/pathsafe when resolving pre-digitized JSON or raw
	// source files for GetOrDigitalize (§4.6, §6).
	PoliciesRoot string

	ExtractionModel string
	ValidationModel string
	ModelTimeout    time.Duration

	Logger *slog.Logger
}

// New constructs a Pipeline with the given collaborators and
// sensible defaults for everything else.
func New(extractor Extractor, validator Validator, repo *repository.Repository, policiesRoot string) *Pipeline {
	return &Pipeline{
		Extractor:       extractor,
		Validator:       validator,
		Repo:            repo,
		Clock:           clock.Real{},
		PoliciesRoot:    policiesRoot,
		ExtractionModel: "stub-extractor-v1",
		ValidationModel: "stub-validator-v1",
		ModelTimeout:    DefaultModelTimeout,
		Logger:          slog.Default(),
	}
}

// DigitalizePolicy runs all three passes over raw policy source and
// persists the resulting typed policy. On an extraction failure the
// repository is left untouched.
func (p *Pipeline) DigitalizePolicy(ctx context.Context, source string, sourceType SourceType, skipValidation bool) (*policyschema.DigitizedPolicy, error) {
	extractCtx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	extracted, err := p.Extractor.Extract(extractCtx, source, sourceType, p.ExtractionModel)
	if err != nil {
		return nil, errorsx.Extraction("pass 1 extraction failed (source length %d, model %q): %v", len(source), p.ExtractionModel, err)
	}

	if isEmptyExtraction(extracted.ExtractedData) {
		return nil, errorsx.Extraction("pass 1 yielded zero atomic criteria and zero indications (source length %d, model %q)", len(source), p.ExtractionModel)
	}

	var qualityScore float64
	if skipValidation {
		qualityScore = SkipValidationQualityScore
	} else {
		validateCtx, vcancel := context.WithTimeout(ctx, p.timeout())
		result, verr := p.Validator.Validate(validateCtx, extracted.ExtractedData, p.ValidationModel)
		vcancel()
		if verr != nil {
			p.Logger.Warn("pipeline: pass 2 validation failed, falling through with uncorrected extraction",
				"error", verr, "model", p.ValidationModel)
			qualityScore = ValidationQualityFloor
		} else {
			applied := applyCorrections(extracted.ExtractedData, result.Corrections)
			p.Logger.Info("pipeline: pass 2 applied corrections", "count", applied, "proposed", len(result.Corrections))
			qualityScore = result.QualityScore
		}
	}

	policy, err := ReferenceValidate(extracted.ExtractedData, qualityScore, extracted.SourceHash, extracted.ExtractionModel, p.Clock.Now())
	if err != nil {
		return nil, err
	}

	if p.Repo != nil {
		if err := p.Repo.Store(ctx, policy); err != nil {
			return nil, err
		}
	}

	return policy, nil
}

// GetOrDigitalize implements §4.6's lookup chain: repository cache
// hit, then a pre-digitized JSON file, then raw source digitalization,
// in that order. Every filesystem path is produced exclusively
// through internal/pathsafe, so a path-traversal attempt in payer or
// medication surfaces as a not-found error, never a leaked detail.
func (p *Pipeline) GetOrDigitalize(ctx context.Context, payer, medication string) (*policyschema.DigitizedPolicy, error) {
	if p.Repo != nil {
		if policy, ok, err := p.Repo.Load(ctx, payer, medication, "latest"); err != nil {
			if errorsx.Is(err, errorsx.ErrInvalidInput) {
				return nil, errorsx.NotFound("policy not found for %s/%s", payer, medication)
			}
			return nil, err
		} else if ok {
			return policy, nil
		}
	}

	npPayer := pathsafe.NormalizeSegment(payer)
	npMed := pathsafe.NormalizeSegment(medication)
	if err := pathsafe.ValidateSegment(npPayer); err != nil {
		return nil, errorsx.NotFound("policy not found for %s/%s", payer, medication)
	}
	if err := pathsafe.ValidateSegment(npMed); err != nil {
		return nil, errorsx.NotFound("policy not found for %s/%s", payer, medication)
	}
	base := fmt.Sprintf("%s_%s", npPayer, npMed)

	if jsonPath, err := pathsafe.ResolveFile(p.PoliciesRoot, nil, base+"_digitized.json"); err == nil {
		if data, rerr := os.ReadFile(jsonPath); rerr == nil {
			policy, perr := policyFromPreDigitizedJSON(data)
			if perr == nil {
				if p.Repo != nil {
					_ = p.Repo.Store(ctx, policy)
				}
				return policy, nil
			}
			p.Logger.Warn("pipeline: pre-digitized JSON failed to parse, falling through to raw source", "path", jsonPath, "error", perr)
		}
	}

	if textPath, err := pathsafe.ResolveFile(p.PoliciesRoot, nil, base+".txt"); err == nil {
		if data, rerr := os.ReadFile(textPath); rerr == nil {
			return p.DigitalizePolicy(ctx, string(data), SourceText, false)
		}
	}

	if pdfPath, err := pathsafe.ResolveFile(p.PoliciesRoot, nil, base+".pdf"); err == nil {
		if data, rerr := os.ReadFile(pdfPath); rerr == nil {
			return p.DigitalizePolicy(ctx, string(data), SourcePDF, false)
		}
	}

	return nil, errorsx.NotFound("policy not found for %s/%s", payer, medication)
}

func (p *Pipeline) timeout() time.Duration {
	if p.ModelTimeout <= 0 {
		return DefaultModelTimeout
	}
	return p.ModelTimeout
}

func isEmptyExtraction(data map[string]interface{}) bool {
	criteria, _ := data["atomic_criteria"].(map[string]interface{})
	indications, _ := data["indications"].([]interface{})
	return len(criteria) == 0 && len(indications) == 0
}
