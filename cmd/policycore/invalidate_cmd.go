package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/policycore/pkg/config"
)

func runInvalidateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("invalidate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var payer, medication string
	var confirm bool
	cmd.StringVar(&payer, "payer", "", "Payer name (REQUIRED)")
	cmd.StringVar(&medication, "medication", "", "Medication name (REQUIRED)")
	cmd.BoolVar(&confirm, "yes", false, "Confirm deletion of every stored version")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if payer == "" || medication == "" {
		fmt.Fprintln(stderr, "Error: --payer and --medication are required")
		cmd.Usage()
		return 2
	}
	if !confirm {
		fmt.Fprintln(stderr, "Error: --yes is required to confirm deleting all stored versions")
		return 2
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	repo, err := openRepository(ctx, config.Load(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := repo.Invalidate(ctx, payer, medication); err != nil {
		fmt.Fprintf(stderr, "Error invalidating: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Invalidated all stored versions for %s / %s\n", payer, medication)
	return 0
}
