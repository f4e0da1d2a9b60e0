package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/policycore/pkg/config"
)

func runGetOrDigitizeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("get-or-digitize", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var payer, medication string
	var jsonOutput bool
	cmd.StringVar(&payer, "payer", "", "Payer name (REQUIRED)")
	cmd.StringVar(&medication, "medication", "", "Medication name (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the policy as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if payer == "" || medication == "" {
		fmt.Fprintln(stderr, "Error: --payer and --medication are required")
		cmd.Usage()
		return 2
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	p, err := newPipeline(ctx, config.Load(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	policy, err := p.GetOrDigitalize(ctx, payer, medication)
	if err != nil {
		fmt.Fprintf(stderr, "Lookup failed: %v\n", err)
		return 1
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(policy, "", "  ")
		fmt.Fprintln(stdout, string(out))
	} else {
		fmt.Fprintf(stdout, "%s / %s: policy %s (version %s)\n", payer, medication, policy.PolicyID, policy.VersionOrDefault())
	}
	return 0
}
