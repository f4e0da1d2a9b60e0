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
	"github.com/Mindburn-Labs/policycore/pkg/evaluator"
	"github.com/Mindburn-Labs/policycore/pkg/patientnorm"
)

func runEvaluateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var payer, medication, version, patientPath string
	cmd.StringVar(&payer, "payer", "", "Payer name (REQUIRED)")
	cmd.StringVar(&medication, "medication", "", "Medication name (REQUIRED)")
	cmd.StringVar(&version, "version", "latest", "Policy version label")
	cmd.StringVar(&patientPath, "patient", "", "Path to a raw patient JSON record (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if payer == "" || medication == "" || patientPath == "" {
		fmt.Fprintln(stderr, "Error: --payer, --medication, and --patient are required")
		cmd.Usage()
		return 2
	}

	rawData, err := os.ReadFile(patientPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading patient record: %v\n", err)
		return 2
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(rawData, &raw); err != nil {
		fmt.Fprintf(stderr, "Error parsing patient JSON: %v\n", err)
		return 2
	}

	patient, err := patientnorm.Normalize(raw, clock.Real{})
	if err != nil {
		fmt.Fprintf(stderr, "Error normalizing patient record: %v\n", err)
		return 1
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	repo, err := openRepository(ctx, config.Load(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	policy, ok, err := repo.Load(ctx, payer, medication, version)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading policy: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintf(stderr, "No stored policy for %s / %s (version %s)\n", payer, medication, version)
		return 1
	}

	result := evaluator.EvaluatePolicy(policy, patient)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}
