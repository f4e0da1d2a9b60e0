package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mindburn-Labs/policycore/internal/clock"
	"github.com/Mindburn-Labs/policycore/pkg/config"
	"github.com/Mindburn-Labs/policycore/pkg/differ"
	"github.com/Mindburn-Labs/policycore/pkg/impact"
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
)

// rawCase is one line of the --cases input file: a case id paired
// with a raw, unnormalized patient payload.
type rawCase struct {
	CaseID  string                 `json:"case_id"`
	Patient map[string]interface{} `json:"patient"`
}

func runImpactCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("impact", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var payer, medication, oldVersion, newVersion, casesPath string
	cmd.StringVar(&payer, "payer", "", "Payer name (REQUIRED)")
	cmd.StringVar(&medication, "medication", "", "Medication name (REQUIRED)")
	cmd.StringVar(&oldVersion, "old-version", "", "Old version label (REQUIRED)")
	cmd.StringVar(&newVersion, "new-version", "", "New version label (REQUIRED)")
	cmd.StringVar(&casesPath, "cases", "", "Path to a JSON array of active cases (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if payer == "" || medication == "" || oldVersion == "" || newVersion == "" || casesPath == "" {
		fmt.Fprintln(stderr, "Error: --payer, --medication, --old-version, --new-version, and --cases are required")
		cmd.Usage()
		return 2
	}

	casesData, err := os.ReadFile(casesPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading cases file: %v\n", err)
		return 2
	}
	var rawCases []rawCase
	if err := json.Unmarshal(casesData, &rawCases); err != nil {
		fmt.Fprintf(stderr, "Error parsing cases JSON: %v\n", err)
		return 2
	}

	cases := make([]impact.Case, 0, len(rawCases))
	for _, rc := range rawCases {
		patient, err := patientnorm.Normalize(rc.Patient, clock.Real{})
		if err != nil {
			fmt.Fprintf(stderr, "Error normalizing case %s: %v\n", rc.CaseID, err)
			return 1
		}
		cases = append(cases, impact.Case{CaseID: rc.CaseID, Patient: patient})
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	repo, err := openRepository(ctx, config.Load(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	oldPolicy, ok, err := repo.Load(ctx, payer, medication, oldVersion)
	if err != nil || !ok {
		fmt.Fprintf(stderr, "No stored policy for %s / %s (version %s)\n", payer, medication, oldVersion)
		return 1
	}
	newPolicy, ok, err := repo.Load(ctx, payer, medication, newVersion)
	if err != nil || !ok {
		fmt.Fprintf(stderr, "No stored policy for %s / %s (version %s)\n", payer, medication, newVersion)
		return 1
	}

	diffResult := differ.Diff(oldPolicy, newPolicy)
	report := impact.AnalyzeImpact(diffResult, oldPolicy, newPolicy, cases)

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}
