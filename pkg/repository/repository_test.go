package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/policycore/pkg/policyschema"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS policy_versions").WillReturnResult(sqlmock.NewResult(0, 0))
	repo, err := New(db, DialectSQLite, nil)
	require.NoError(t, err)
	return repo, mock
}

func samplePolicy() *policyschema.DigitizedPolicy {
	return &policyschema.DigitizedPolicy{
		PolicyID:       "pol-1",
		PayerName:      "Acme Health",
		MedicationName: "Humira",
		AtomicCriteria: map[string]*policyschema.AtomicCriterion{},
		CriterionGroups: map[string]*policyschema.CriterionGroup{},
	}
}

func TestStoreUpsertsUnderNormalizedKey(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO policy_versions").
		WithArgs("acme_health", "humira", "latest", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Store(context.Background(), samplePolicy())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMissingReturnsFalseNotError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT policy_json FROM policy_versions").
		WithArgs("acme_health", "humira", "latest").
		WillReturnError(sql.ErrNoRows)

	p, ok, err := repo.Load(context.Background(), "Acme Health", "Humira", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, p)
}

func TestLoadCorruptedRowIsMissNotError(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"policy_json"}).AddRow("{not valid json")
	mock.ExpectQuery("SELECT policy_json FROM policy_versions").
		WithArgs("acme_health", "humira", "latest").
		WillReturnRows(rows)

	p, ok, err := repo.Load(context.Background(), "Acme Health", "Humira", "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, p)
}

func TestInvalidPayerRejectedBeforeAnyWork(t *testing.T) {
	repo, _ := newMockRepo(t)
	_, ok, err := repo.Load(context.Background(), "../../etc/passwd", "humira", "")
	require.Error(t, err)
	require.False(t, ok)
}

func TestListVersionsOrdersDescendingByCacheTime(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"version", "content_hash", "cached_at"}).
		AddRow("v2", "hash2", now).
		AddRow("v1", "hash1", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT version, content_hash, cached_at FROM policy_versions").
		WithArgs("acme_health", "humira").
		WillReturnRows(rows)

	versions, err := repo.ListVersions(context.Background(), "Acme Health", "Humira")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, "v2", versions[0].Version)
}

func TestListVersionsAppliesSemverPrecedenceOverLexicographicOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	// Rows arrive in cache-time order, but semver precedence (1.10.0 >
	// 1.2.0) differs from lexicographic string order.
	rows := sqlmock.NewRows([]string{"version", "content_hash", "cached_at"}).
		AddRow("1.2.0", "hash2", now).
		AddRow("1.10.0", "hash1", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT version, content_hash, cached_at FROM policy_versions").
		WithArgs("acme_health", "humira").
		WillReturnRows(rows)

	versions, err := repo.ListVersions(context.Background(), "Acme Health", "Humira")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	require.Equal(t, "1.10.0", versions[0].Version)
}

func TestListVersionsFallsBackToCacheTimeWhenNotAllSemver(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"version", "content_hash", "cached_at"}).
		AddRow("latest", "hash2", now).
		AddRow("1.0.0", "hash1", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT version, content_hash, cached_at FROM policy_versions").
		WithArgs("acme_health", "humira").
		WillReturnRows(rows)

	versions, err := repo.ListVersions(context.Background(), "Acme Health", "Humira")
	require.NoError(t, err)
	require.Equal(t, "latest", versions[0].Version)
}

func TestInvalidateDeletesAllVersions(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM policy_versions").
		WithArgs("acme_health", "humira").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.Invalidate(context.Background(), "Acme Health", "Humira")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
