package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobsift/ncss-crawler/internal/crawler"
)

func sampleRecord() crawler.JobRecord {
	date := time.Date(2023, 11, 15, 0, 0, 0, 0, time.Local)
	return crawler.JobRecord{
		JobID:           "J1",
		JobName:         "Engineer",
		Salary:          5000,
		Degree:          "BA",
		Category:        "计算机/网络/技术类",
		Major:           "",
		Welfare:         "",
		HeadCount:       "3",
		PublishDate:     date,
		UpdateDate:      date,
		Source:          "大学生就业服务平台",
		CompanyName:     "Acme",
		Area:            "City",
		CompanyScale:    "",
		CompanyProperty: "Private",
	}
}

func newMockedStore(t *testing.T) (*JobStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewJobStoreWithPool(mock, "", zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

func TestPersistInsertsUnseenRecord(t *testing.T) {
	t.Parallel()

	store, mock := newMockedStore(t)
	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT job_id FROM jobs_info").
		WithArgs(record.JobName, record.Area, record.CompanyName).
		WillReturnRows(pgxmock.NewRows([]string{"job_id"}))
	mock.ExpectExec("INSERT INTO jobs_info").
		WithArgs(
			record.JobID, record.JobName, record.Salary, record.Degree,
			record.Category, record.Major, record.Welfare, record.HeadCount,
			"2023-11-15", "2023-11-15", record.Source, record.CompanyName,
			record.Area, record.CompanyScale, record.CompanyProperty,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome, err := store.Persist(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, crawler.PersistInserted, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistSkipsExistingRecord(t *testing.T) {
	t.Parallel()

	store, mock := newMockedStore(t)
	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT job_id FROM jobs_info").
		WithArgs(record.JobName, record.Area, record.CompanyName).
		WillReturnRows(pgxmock.NewRows([]string{"job_id"}).AddRow("J0"))
	mock.ExpectCommit()

	outcome, err := store.Persist(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, crawler.PersistAlreadyExists, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnQueryError(t *testing.T) {
	t.Parallel()

	store, mock := newMockedStore(t)
	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT job_id FROM jobs_info").
		WithArgs(record.JobName, record.Area, record.CompanyName).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	outcome, err := store.Persist(context.Background(), record)
	require.Error(t, err)
	require.Contains(t, err.Error(), "existence check")
	require.Equal(t, crawler.PersistFailed, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnInsertError(t *testing.T) {
	t.Parallel()

	store, mock := newMockedStore(t)
	record := sampleRecord()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT job_id FROM jobs_info").
		WithArgs(record.JobName, record.Area, record.CompanyName).
		WillReturnRows(pgxmock.NewRows([]string{"job_id"}))
	mock.ExpectExec("INSERT INTO jobs_info").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	outcome, err := store.Persist(context.Background(), record)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert record")
	require.Equal(t, crawler.PersistFailed, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistFailsWhenBeginFails(t *testing.T) {
	t.Parallel()

	store, mock := newMockedStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	outcome, err := store.Persist(context.Background(), sampleRecord())
	require.Error(t, err)
	require.Equal(t, crawler.PersistFailed, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewJobStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewJobStoreWithPool(nil, "", zap.NewNop())
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewJobStoreWithPool(mock, "jobs; DROP TABLE jobs", zap.NewNop())
	require.Error(t, err)

	store, err := NewJobStoreWithPool(mock, "archive_2023", zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestNewJobStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewJobStore(context.Background(), Config{}, zap.NewNop())
	require.Error(t, err)
}
