// Package repository is the versioned, content-addressed policy store
// (§4.7). Rows are keyed by (payer_normalized, medication_normalized,
// version_label); the content hash is a truncated SHA-256 over the
// policy's canonical JSON (internal/jsonx), and a corrupted row is
// treated as a cache miss, never an exception propagated to the
// caller.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/Mindburn-Labs/policycore/internal/errorsx"
	"github.com/Mindburn-Labs/policycore/internal/jsonx"
	"github.com/Mindburn-Labs/policycore/internal/pathsafe"
	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

// VersionInfo is one entry of Repository.ListVersions.
type VersionInfo struct {
	Version     string    `json:"version"`
	CachedAt    time.Time `json:"cached_at"`
	ContentHash string    `json:"content_hash"`
}

// Dialect selects the placeholder style and upsert syntax for the
// backing driver: SQLite (the embedded default, matching the
// teacher's "Lite Mode" fallback) or Postgres.
type Dialect int

const (
	// DialectSQLite backs the store with modernc.org/sqlite (no cgo).
	DialectSQLite Dialect = iota
	// DialectPostgres backs the store with github.com/lib/pq.
	DialectPostgres
)

// Repository is the versioned policy store, backed by database/sql so
// the same code runs against modernc.org/sqlite (embedded, the
// default) or github.com/lib/pq (Postgres), mirroring the teacher's
// dual-driver wiring in cmd/helm/main.go.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New wraps an already-open *sql.DB and ensures the repository's
// schema exists.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{db: db, dialect: dialect, logger: logger}
	if err := r.migrate(context.Background()); err != nil {
		return nil, errorsx.Storage(err, "repository: migrate schema")
	}
	return r, nil
}

func (r *Repository) migrate(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS policy_versions (
	payer TEXT NOT NULL,
	medication TEXT NOT NULL,
	version TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	policy_json TEXT NOT NULL,
	cached_at TIMESTAMP NOT NULL,
	PRIMARY KEY (payer, medication, version)
)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// normalizeKey validates and normalizes the (payer, medication,
// version) triple the way pathsafe normalizes on-disk path segments,
// since they share the same naming policy (§4.7, §6).
func normalizeKey(payer, medication, version string) (string, string, string, error) {
	if version == "" {
		version = "latest"
	}
	np := pathsafe.NormalizeSegment(payer)
	nm := pathsafe.NormalizeSegment(medication)
	nv := pathsafe.NormalizeSegment(version)
	if err := pathsafe.ValidateSegment(np); err != nil {
		return "", "", "", errorsx.InvalidInput("repository: invalid payer %q", payer)
	}
	if err := pathsafe.ValidateSegment(nm); err != nil {
		return "", "", "", errorsx.InvalidInput("repository: invalid medication %q", medication)
	}
	if err := pathsafe.ValidateSegment(nv); err != nil {
		return "", "", "", errorsx.InvalidInput("repository: invalid version %q", version)
	}
	return np, nm, nv, nil
}

// Store upserts policy at (payer, medication, policy.VersionOrDefault()).
// Concurrent stores under the same key are serialized by the
// underlying transaction.
func (r *Repository) Store(ctx context.Context, policy *policyschema.DigitizedPolicy) error {
	return r.StoreVersion(ctx, policy, policy.VersionOrDefault())
}

// StoreVersion sets policy.Version to versionLabel, then stores it.
// Convenience wrapper used when introducing a new explicit version
// label for an existing (payer, medication) key.
func (r *Repository) StoreVersion(ctx context.Context, policy *policyschema.DigitizedPolicy, versionLabel string) error {
	if policy == nil {
		return errorsx.InvalidInput("repository: nil policy")
	}
	policy.Version = versionLabel

	payer, medication, version, err := normalizeKey(policy.PayerName, policy.MedicationName, versionLabel)
	if err != nil {
		return err
	}

	canonical, err := jsonx.Canonical(policy)
	if err != nil {
		return errorsx.Storage(err, "repository: canonicalize policy")
	}
	hash := jsonx.HashBytes(canonical)[:16]

	raw, err := json.Marshal(policy)
	if err != nil {
		return errorsx.Storage(err, "repository: marshal policy")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errorsx.Storage(err, "repository: begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.upsertQuery(), payer, medication, version, hash, string(raw), time.Now().UTC()); err != nil {
		return errorsx.Storage(err, "repository: upsert policy row")
	}
	if err := tx.Commit(); err != nil {
		return errorsx.Storage(err, "repository: commit transaction")
	}
	return nil
}

// Load returns the typed policy for (payer, medication, version),
// defaulting version to "latest". A cache miss, or a row that fails
// to deserialize, returns (nil, false, nil): corruption never
// propagates as an error to the caller, only a logged warning.
func (r *Repository) Load(ctx context.Context, payer, medication, version string) (*policyschema.DigitizedPolicy, bool, error) {
	np, nm, nv, err := normalizeKey(payer, medication, version)
	if err != nil {
		return nil, false, err
	}

	var raw string
	err = r.db.QueryRowContext(ctx, r.selectQuery(), np, nm, nv).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errorsx.Storage(err, "repository: load policy row")
	}

	var policy policyschema.DigitizedPolicy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		r.logger.Warn("repository: corrupted policy row treated as cache miss",
			"payer", np, "medication", nm, "version", nv, "error", err)
		return nil, false, nil
	}
	return &policy, true, nil
}

// ListVersions returns every stored version for (payer, medication),
// newest first: by semver precedence when every label parses as a
// semantic version, otherwise in descending cache-time order.
func (r *Repository) ListVersions(ctx context.Context, payer, medication string) ([]VersionInfo, error) {
	np := pathsafe.NormalizeSegment(payer)
	nm := pathsafe.NormalizeSegment(medication)
	if err := pathsafe.ValidateSegment(np); err != nil {
		return nil, errorsx.InvalidInput("repository: invalid payer %q", payer)
	}
	if err := pathsafe.ValidateSegment(nm); err != nil {
		return nil, errorsx.InvalidInput("repository: invalid medication %q", medication)
	}

	rows, err := r.db.QueryContext(ctx, r.listVersionsQuery(), np, nm)
	if err != nil {
		return nil, errorsx.Storage(err, "repository: list versions")
	}
	defer func() { _ = rows.Close() }()

	var out []VersionInfo
	for rows.Next() {
		var v VersionInfo
		if err := rows.Scan(&v.Version, &v.ContentHash, &v.CachedAt); err != nil {
			return nil, errorsx.Storage(err, "repository: scan version row")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errorsx.Storage(err, "repository: iterate version rows")
	}
	sortVersions(out)
	return out, nil
}

// sortVersions reorders version labels that all parse as semantic
// versions into semver precedence order (newest first), leaving the
// cache-time ordering untouched when any label (e.g. "latest" or a
// free-form payer label) doesn't parse as semver.
func sortVersions(versions []VersionInfo) {
	type parsedVersion struct {
		info VersionInfo
		semv *semver.Version
	}
	parsed := make([]parsedVersion, len(versions))
	for i, v := range versions {
		sv, err := semver.NewVersion(v.Version)
		if err != nil {
			return
		}
		parsed[i] = parsedVersion{info: v, semv: sv}
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].semv.GreaterThan(parsed[j].semv)
	})
	for i, p := range parsed {
		versions[i] = p.info
	}
}

// Invalidate deletes every stored version for (payer, medication).
func (r *Repository) Invalidate(ctx context.Context, payer, medication string) error {
	np := pathsafe.NormalizeSegment(payer)
	nm := pathsafe.NormalizeSegment(medication)
	if err := pathsafe.ValidateSegment(np); err != nil {
		return errorsx.InvalidInput("repository: invalid payer %q", payer)
	}
	if err := pathsafe.ValidateSegment(nm); err != nil {
		return errorsx.InvalidInput("repository: invalid medication %q", medication)
	}
	_, err := r.db.ExecContext(ctx, r.deleteQuery(), np, nm)
	if err != nil {
		return errorsx.Storage(err, "repository: invalidate")
	}
	return nil
}

// The four query builders below are the only place dialect-specific
// SQL syntax appears: SQLite takes positional "?" placeholders and an
// "INSERT ... ON CONFLICT" upsert identical to Postgres's, but
// Postgres requires numbered "$n" placeholders (github.com/lib/pq does
// not support "?"), mirroring the teacher's split between its SQLite
// receipt store and its dedicated Postgres idempotency store.
func (r *Repository) upsertQuery() string {
	if r.dialect == DialectPostgres {
		return `
INSERT INTO policy_versions (payer, medication, version, content_hash, policy_json, cached_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (payer, medication, version)
DO UPDATE SET content_hash = excluded.content_hash, policy_json = excluded.policy_json, cached_at = excluded.cached_at`
	}
	return `
INSERT INTO policy_versions (payer, medication, version, content_hash, policy_json, cached_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (payer, medication, version)
DO UPDATE SET content_hash = excluded.content_hash, policy_json = excluded.policy_json, cached_at = excluded.cached_at`
}

func (r *Repository) selectQuery() string {
	if r.dialect == DialectPostgres {
		return `SELECT policy_json FROM policy_versions WHERE payer = $1 AND medication = $2 AND version = $3`
	}
	return `SELECT policy_json FROM policy_versions WHERE payer = ? AND medication = ? AND version = ?`
}

func (r *Repository) listVersionsQuery() string {
	if r.dialect == DialectPostgres {
		return `SELECT version, content_hash, cached_at FROM policy_versions WHERE payer = $1 AND medication = $2 ORDER BY cached_at DESC`
	}
	return `SELECT version, content_hash, cached_at FROM policy_versions WHERE payer = ? AND medication = ? ORDER BY cached_at DESC`
}

func (r *Repository) deleteQuery() string {
	if r.dialect == DialectPostgres {
		return `DELETE FROM policy_versions WHERE payer = $1 AND medication = $2`
	}
	return `DELETE FROM policy_versions WHERE payer = ? AND medication = ?`
}
