package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealercrm/internal/gateway"
	"dealercrm/internal/models"
)

func openSQLite(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := OpenSQL(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "data", "backups.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ticker() func() time.Time {
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func newGateway(repo gateway.Repository) *gateway.Gateway {
	logger, _ := test.NewNullLogger()
	return gateway.New(repo, gateway.WithClock(ticker()), gateway.WithLogger(logger))
}

func payload(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"version":"1.0","data":{"customer-store":{"state":{"customers":[{"id":"c%d"}]}},"survey-storage":{"state":{"responses":[]}}}}`, i))
}

func TestSQLiteGatewayRetention(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t)
	g := newGateway(repo)

	var ids []string
	for i := 0; i < 12; i++ {
		res, err := g.Save(ctx, gateway.SaveRequest{Data: payload(i), SkipIfSame: true})
		require.NoError(t, err)
		require.False(t, res.Skipped)
		ids = append(ids, res.ID)
	}

	records, err := g.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 10)
	assert.Equal(t, ids[11], records[0].ID)
	assert.Equal(t, ids[2], records[9].ID)
	assert.Empty(t, records[0].Payload, "listing does not load payloads")

	require.NotNil(t, records[0].Metadata.Customers)
	assert.Equal(t, 1, *records[0].Metadata.Customers)
	require.NotNil(t, records[0].Metadata.SurveyResponses)
	assert.Equal(t, 0, *records[0].Metadata.SurveyResponses)
	assert.Nil(t, records[0].Metadata.Contracts)

	_, err = repo.Get(ctx, ids[0])
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestSQLiteGatewaySkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t)
	g := newGateway(repo)

	first, err := g.Save(ctx, gateway.SaveRequest{Data: payload(1), SkipIfSame: true})
	require.NoError(t, err)

	second, err := g.Save(ctx, gateway.SaveRequest{Data: payload(1), SkipIfSame: true})
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	records, err := g.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	rec, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, rec.Hash)
	assert.Equal(t, len(rec.Payload), rec.SizeBytes)
	assert.JSONEq(t, string(payload(1)), rec.Payload)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 1, 0, 0, time.UTC), rec.CreatedAt)
}

func TestSQLiteLatestOnEmptyTable(t *testing.T) {
	latest, err := openSQLite(t).Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestSQLiteRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := openSQLite(t)

	err := repo.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.Insert(ctx, models.BackupRecord{ID: "backup_1", CreatedAt: time.Now(), Payload: "{}", Hash: "00000000"}))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	records, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "postgres", "dsn")
	assert.ErrorContains(t, err, "unsupported")
}

var summaryCols = []string{"id", "created_at", "size_bytes", "data_hash", "metadata"}

func newMockRepository(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(sqlx.NewDb(db, DriverMySQL), DriverMySQL), mock
}

func TestMySQLSaveRunsInOneTransaction(t *testing.T) {
	repo, mock := newMockRepository(t)
	g := newGateway(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, created_at, size_bytes, data_hash, metadata FROM crm_backups ORDER BY created_at DESC, id DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(summaryCols).AddRow("backup_old", int64(1), 10, "ffffffff", `{}`))
	mock.ExpectExec(`INSERT INTO crm_backups`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM crm_backups WHERE id NOT IN`).
		WithArgs(gateway.DefaultRetention).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	res, err := g.Save(context.Background(), gateway.SaveRequest{Data: payload(1), SkipIfSame: true})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSaveSkipCommitsWithoutWrites(t *testing.T) {
	repo, mock := newMockRepository(t)
	g := newGateway(repo)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM crm_backups ORDER BY created_at DESC, id DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(summaryCols).AddRow("backup_old", int64(1), 10, "client-hash", `{"customers":3}`))
	mock.ExpectCommit()

	res, err := g.Save(context.Background(), gateway.SaveRequest{Data: payload(1), DataHash: "client-hash", SkipIfSame: true})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSaveRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRepository(t)
	g := newGateway(repo)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO crm_backups`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := g.Save(context.Background(), gateway.SaveRequest{Data: payload(1)})
	require.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLGetMapsMissingRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`FROM crm_backups WHERE id = \?`).
		WithArgs("backup_x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "payload", "size_bytes", "data_hash", "metadata"}))

	_, err := repo.Get(context.Background(), "backup_x")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
