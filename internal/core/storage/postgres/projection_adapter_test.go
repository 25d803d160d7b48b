package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestProjectionAdapter_InStreamCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	row := storage.Row{"id": "org-1", "name": "Acme", "updated_at": at}
	upsertSQL, _ := buildUpsert(mustSpec(t, storage.TableOrganizations), row)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryLockStream)).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(upsertSQL)).
		WithArgs("org-1", "Acme", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryMarkProcessed)).
		WithArgs("evt-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	adapter := NewProjectionAdapter(db)
	err = adapter.InStream(context.Background(), "org-1", func(tx storage.StreamTx) error {
		if err := tx.Upsert(context.Background(), storage.TableOrganizations, row); err != nil {
			return err
		}
		return tx.MarkProcessed(context.Background(), "evt-1", at)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectionAdapter_InStreamRollsBackOnHandlerError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryLockStream)).
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := errors.New("handler failed")
	adapter := NewProjectionAdapter(db)
	err = adapter.InStream(context.Background(), "org-1", func(tx storage.StreamTx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectionAdapter_MarkProcessedTwiceFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryLockStream)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(queryMarkProcessed)).
		WithArgs("evt-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	adapter := NewProjectionAdapter(db)
	err = adapter.InStream(context.Background(), "org-1", func(tx storage.StreamTx) error {
		return tx.MarkProcessed(context.Background(), "evt-1", at)
	})
	require.ErrorContains(t, err, "already processed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectionAdapter_RejectsUnknownColumnBeforeSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryLockStream)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	adapter := NewProjectionAdapter(db)
	err = adapter.InStream(context.Background(), "org-1", func(tx storage.StreamTx) error {
		return tx.Upsert(context.Background(), storage.TableOrganizations,
			storage.Row{"id": "org-1", "name; DROP TABLE events": "x"})
	})
	require.ErrorIs(t, err, storage.ErrUnknownColumn)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectionReader_GetNormalizesDriverValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	spec := mustSpec(t, storage.TableRolePermissions)
	key := storage.Row{"role_id": "r-1", "permission_id": "p-1"}
	selectSQL, _ := buildSelect(spec, key, 1)
	grantedAt := time.Date(2026, 2, 8, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))

	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WithArgs("p-1", "r-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "permission_id", "granted_at"}).
			AddRow([]byte("r-1"), []byte("p-1"), grantedAt))

	row, err := NewProjectionAdapter(db).Reader().Get(context.Background(), storage.TableRolePermissions, key)
	require.NoError(t, err)
	require.Equal(t, "r-1", row["role_id"])
	require.Equal(t, "p-1", row["permission_id"])
	require.Equal(t, time.UTC, row["granted_at"].(time.Time).Location())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectionReader_GetMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	spec := mustSpec(t, storage.TableOrganizations)
	selectSQL, _ := buildSelect(spec, storage.Row{"id": "nope"}, 1)
	mock.ExpectQuery(regexp.QuoteMeta(selectSQL)).
		WithArgs("nope", 1).
		WillReturnRows(sqlmock.NewRows(spec.AllColumns()))

	_, err = NewProjectionAdapter(db).Reader().Get(context.Background(), storage.TableOrganizations, storage.Row{"id": "nope"})
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
