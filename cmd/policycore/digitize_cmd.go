package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mindburn-Labs/policycore/pkg/config"
	"github.com/Mindburn-Labs/policycore/pkg/pipeline"
)

func runDigitizeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("digitize", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		sourcePath     string
		sourceTypeFlag string
		skipValidation bool
		jsonOutput     bool
	)
	cmd.StringVar(&sourcePath, "source", "", "Path to the raw policy source file (REQUIRED)")
	cmd.StringVar(&sourceTypeFlag, "source-type", "text", "Source kind: text or pdf")
	cmd.BoolVar(&skipValidation, "skip-validation", false, "Skip pass 2 and use the placeholder quality score")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the digitized policy as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if sourcePath == "" {
		fmt.Fprintln(stderr, "Error: --source is required")
		cmd.Usage()
		return 2
	}

	sourceType := pipeline.SourceText
	if sourceTypeFlag == "pdf" {
		sourceType = pipeline.SourcePDF
	}

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading source: %v\n", err)
		return 2
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	p, err := newPipeline(ctx, config.Load(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	policy, err := p.DigitalizePolicy(ctx, string(data), sourceType, skipValidation)
	if err != nil {
		fmt.Fprintf(stderr, "Digitalization failed: %v\n", err)
		return 1
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(policy, "", "  ")
		fmt.Fprintln(stdout, string(out))
	} else {
		fmt.Fprintf(stdout, "Digitized policy %s for %s / %s (quality: %s)\n",
			policy.PolicyID, policy.PayerName, policy.MedicationName, policy.ExtractionQuality)
	}
	return 0
}
