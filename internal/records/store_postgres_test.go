package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditlens/internal/bureau"
	"creditlens/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresStore_GetColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("bureau columns", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"crif_score", "raw_crif_data", "cibil_score"}).
			AddRow(int64(782), []byte(`{"data":{}}`), nil)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "crif_score", "raw_crif_data", "cibil_score" FROM "credit_reports" WHERE id = $1`)).
			WithArgs("rep-1").
			WillReturnRows(rows)

		rec, err := store.GetColumns(ctx, "rep-1", []string{"crif_score", "raw_crif_data", "cibil_score"})
		require.NoError(t, err)
		require.NotNil(t, rec.Score(bureau.CRIF))
		assert.Equal(t, 782, *rec.Score(bureau.CRIF))
		assert.JSONEq(t, `{"data":{}}`, string(rec.RawData(bureau.CRIF)))
		assert.Nil(t, rec.Score(bureau.CIBIL))
		assert.Nil(t, rec.RawData(bureau.CIBIL))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("identity columns", func(t *testing.T) {
		store, mock := newMockStore(t)
		created := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"full_name", "selected_bureaus", "created_at", "gender"}).
			AddRow("PURAN MAL TANK", []byte(`{cibil,crif}`), created, nil)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "full_name", "selected_bureaus", "created_at", "gender" FROM "credit_reports" WHERE id = $1`)).
			WithArgs("rep-1").
			WillReturnRows(rows)

		rec, err := store.GetColumns(ctx, "rep-1", []string{ColumnFullName, ColumnSelectedBureaus, ColumnCreatedAt, ColumnGender})
		require.NoError(t, err)
		assert.Equal(t, "PURAN MAL TANK", rec.Text(ColumnFullName))
		assert.Equal(t, []string{"cibil", "crif"}, rec.SelectedBureaus())
		assert.True(t, created.Equal(rec.CreatedAt()))
		assert.Nil(t, rec[ColumnGender])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing report", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "crif_score" FROM "credit_reports" WHERE id = $1`)).
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetColumns(ctx, "nope", []string{"crif_score"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure is wrapped", func(t *testing.T) {
		store, mock := newMockStore(t)
		boom := errors.New("connection reset")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "crif_score"`)).WillReturnError(boom)

		_, err := store.GetColumns(ctx, "rep-1", []string{"crif_score"})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unknown column never reaches the database", func(t *testing.T) {
		store, mock := newMockStore(t)
		_, err := store.GetColumns(ctx, "rep-1", []string{"crif_score; DROP TABLE credit_reports"})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_UpdateColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("writes score and raw payload", func(t *testing.T) {
		store, mock := newMockStore(t)
		score := 782
		raw := json.RawMessage(`{"data":{"credit_score":782}}`)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "credit_reports" SET "crif_score" = $1, "raw_crif_data" = $2 WHERE id = $3`)).
			WithArgs(int64(782), string(raw), "rep-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateColumns(ctx, "rep-1", Record{}.WithScore(bureau.CRIF, &score, raw))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null values and arrays", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "credit_reports" SET "cibil_score" = $1, "selected_bureaus" = $2 WHERE id = $3`)).
			WithArgs(nil, sqlmock.AnyArg(), "rep-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateColumns(ctx, "rep-1", Record{
			"cibil_score":         nil,
			ColumnSelectedBureaus: []string{"cibil"},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows affected is not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "credit_reports"`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateColumns(ctx, "missing", Record{ColumnGender: "Female"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("rejects id and unknown columns", func(t *testing.T) {
		store, mock := newMockStore(t)
		assert.Error(t, store.UpdateColumns(ctx, "rep-1", Record{ColumnID: "other"}))
		assert.Error(t, store.UpdateColumns(ctx, "rep-1", Record{"balance": 1}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects mistyped values", func(t *testing.T) {
		store, mock := newMockStore(t)
		assert.Error(t, store.UpdateColumns(ctx, "rep-1", Record{"crif_score": "high"}))
		assert.Error(t, store.UpdateColumns(ctx, "rep-1", Record{ColumnCreatedAt: "yesterday"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty record is a no-op", func(t *testing.T) {
		store, mock := newMockStore(t)
		assert.NoError(t, store.UpdateColumns(ctx, "rep-1", Record{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
