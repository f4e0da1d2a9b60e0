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

func runVersionsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("versions", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var payer, medication string
	var jsonOutput bool
	cmd.StringVar(&payer, "payer", "", "Payer name (REQUIRED)")
	cmd.StringVar(&medication, "medication", "", "Medication name (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

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
	repo, err := openRepository(ctx, config.Load(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	versions, err := repo.ListVersions(ctx, payer, medication)
	if err != nil {
		fmt.Fprintf(stderr, "Error listing versions: %v\n", err)
		return 1
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(versions, "", "  ")
		fmt.Fprintln(stdout, string(out))
		return 0
	}

	if len(versions) == 0 {
		fmt.Fprintf(stdout, "No stored versions for %s / %s\n", payer, medication)
		return 0
	}
	for _, v := range versions {
		fmt.Fprintf(stdout, "%s  cached_at=%s  content_hash=%s\n", v.Version, v.CachedAt.Format("2006-01-02T15:04:05Z07:00"), v.ContentHash)
	}
	return 0
}
