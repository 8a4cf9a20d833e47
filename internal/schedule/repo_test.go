package schedule

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewRepository(db)
}

func testBatch() Batch {
	e := Entry{Date: "2024-03-09", PersonID: "P1", Selector: AllBuildings()}
	return Batch{Entry: e, Rows: []Row{
		{Date: e.Date, PersonID: e.PersonID, LocationID: "w1"},
		{Date: e.Date, PersonID: e.PersonID, LocationID: "e1"},
	}}
}

func TestApplyBatch_InsertsAllRowsInOneTransaction(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("P1", "2024-03-09").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("P1", "2024-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO schedules \(id, schedule_date, person_id, location_id\) VALUES \(\$1, \$2, \$3, \$4\), \(\$5, \$6, \$7, \$8\)`).
		WithArgs(sqlmock.AnyArg(), "2024-03-09", "P1", "w1", sqlmock.AnyArg(), "2024-03-09", "P1", "e1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyBatch(context.Background(), testBatch()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_ExistingAssignmentRollsBack(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.ApplyBatch(context.Background(), testBatch())
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyBatch_UniqueViolationMapsToDuplicate(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO schedules`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.ApplyBatch(context.Background(), testBatch())
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingAssignments_FiltersToRequestedDates(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT person_id`).
		WithArgs("2024-03-09", "2024-03-12").
		WillReturnRows(sqlmock.NewRows([]string{"person_id", "date"}).
			AddRow("P1", "2024-03-09").
			AddRow("P2", "2024-03-10").
			AddRow("P3", "2024-03-12"))

	set, err := repo.ExistingAssignments(context.Background(), []string{"2024-03-12", "2024-03-09"})
	require.NoError(t, err)

	assert.True(t, set.Has(Assignment{PersonID: "P1", Date: "2024-03-09"}))
	assert.False(t, set.Has(Assignment{PersonID: "P2", Date: "2024-03-10"}))
	assert.True(t, set.Has(Assignment{PersonID: "P3", Date: "2024-03-12"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByDate_OrphanedLocation(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	cols := []string{"date", "person_id", "name", "location_id", "known", "location_name", "building"}
	mock.ExpectQuery(`LEFT JOIN locations l`).
		WithArgs("2024-03-09", "P1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("2024-03-09", "P1", "Budi Santoso", "w1", true, "West Lobby", "West Building").
			AddRow("2024-03-09", "P1", "Budi Santoso", "gone", false, "", ""))

	res, err := repo.ListByDate(context.Background(), "2024-03-09", "P1")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].Location.Known)
	assert.Equal(t, "w1", res[0].Location.ID)
	assert.False(t, res[1].Location.Known)
	assert.Equal(t, "gone", res[1].Location.ID)
}

func TestMoveAssignment_TargetTaken(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("P2", "2024-03-09").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("P2", "2024-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.MoveAssignment(context.Background(),
		Assignment{PersonID: "P1", Date: "2024-03-09"},
		Assignment{PersonID: "P2", Date: "2024-03-09"})
	assert.ErrorIs(t, err, ErrDuplicateAssignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssignment_NothingToDelete(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM schedules WHERE person_id = \$1 AND schedule_date = \$2`).
		WithArgs("P1", "2024-03-09").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.DeleteAssignment(context.Background(), "P1", "2024-03-09")
	assert.ErrorIs(t, err, ErrNotFound)
}
