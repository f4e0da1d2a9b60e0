package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/policycore/pkg/config"
	"github.com/Mindburn-Labs/policycore/pkg/differ"
)

func runDiffCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("diff", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var payer, medication, oldVersion, newVersion string
	cmd.StringVar(&payer, "payer", "", "Payer name (REQUIRED)")
	cmd.StringVar(&medication, "medication", "", "Medication name (REQUIRED)")
	cmd.StringVar(&oldVersion, "old-version", "", "Old version label (REQUIRED)")
	cmd.StringVar(&newVersion, "new-version", "", "New version label (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if payer == "" || medication == "" || oldVersion == "" || newVersion == "" {
		fmt.Fprintln(stderr, "Error: --payer, --medication, --old-version, and --new-version are required")
		cmd.Usage()
		return 2
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

	result := differ.Diff(oldPolicy, newPolicy)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}
