// Command policycore is the CLI surface over the digitalization
// pipeline, evaluator, differ, and impact analyzer: everything the
// HTTP/WebSocket surface, agent orchestration, and SPA frontend sit
// on top of (those layers are deliberately out of scope here).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/Mindburn-Labs/policycore/internal/clock"
	"github.com/Mindburn-Labs/policycore/pkg/config"
	"github.com/Mindburn-Labs/policycore/pkg/pipeline"
	"github.com/Mindburn-Labs/policycore/pkg/repository"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing: it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 0
	}

	switch args[1] {
	case "digitize":
		return runDigitizeCmd(args[2:], stdout, stderr)
	case "get-or-digitize":
		return runGetOrDigitizeCmd(args[2:], stdout, stderr)
	case "evaluate":
		return runEvaluateCmd(args[2:], stdout, stderr)
	case "diff":
		return runDiffCmd(args[2:], stdout, stderr)
	case "impact":
		return runImpactCmd(args[2:], stdout, stderr)
	case "versions":
		return runVersionsCmd(args[2:], stdout, stderr)
	case "invalidate":
		return runInvalidateCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "policycore: policy digitalization and evaluation core")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  policycore <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  digitize          Run the three-pass pipeline over a raw source file")
	fmt.Fprintln(w, "  get-or-digitize   Look up a (payer, medication) policy, digitizing on miss")
	fmt.Fprintln(w, "  evaluate          Evaluate a normalized patient record against a stored policy")
	fmt.Fprintln(w, "  diff              Structurally diff two stored policy versions")
	fmt.Fprintln(w, "  impact            Re-evaluate a set of cases under two policy versions")
	fmt.Fprintln(w, "  versions          List stored versions for a (payer, medication) pair")
	fmt.Fprintln(w, "  invalidate        Delete all stored versions for a (payer, medication) pair")
	fmt.Fprintln(w, "  help              Show this help")
}

// openRepository opens the storage backend selected by cfg.DatabaseURL:
// any non-empty URL is opened with the Postgres driver and dialect;
// an empty one falls back to an embedded SQLite file under cfg.PoliciesRoot,
// mirroring the teacher's Lite Mode fallback idiom.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repository.Repository, error) {
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return repository.New(db, repository.DialectPostgres, logger)
	}

	if err := os.MkdirAll(cfg.PoliciesRoot, 0o750); err != nil {
		return nil, fmt.Errorf("create policies root: %w", err)
	}
	dbPath := cfg.PoliciesRoot + "/policycore.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	log.Printf("[policycore] lite mode: using sqlite at %s", dbPath)
	return repository.New(db, repository.DialectSQLite, logger)
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	p := pipeline.New(pipeline.NewStubExtractor(), pipeline.NewStubValidator(), repo, cfg.PoliciesRoot)
	p.Clock = clock.Real{}
	p.ExtractionModel = cfg.ExtractionModel
	p.ValidationModel = cfg.ValidationModel
	p.Logger = logger
	return p, nil
}
