package attendance

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satpam/internal/location"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Repository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewRepository(db)
}

func TestInsertReport_AssignsID(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	at := time.Date(2024, 3, 9, 19, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO check_area_reports`).
		WithArgs(sqlmock.AnyArg(), "P1", "A", at, "https://cdn/x.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rep, err := repo.InsertReport(context.Background(), Report{PersonID: "P1", LocationID: "A", SubmittedAt: at, EvidenceURL: "https://cdn/x.jpg"})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReport_NotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM check_area_reports WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "location_id", "submitted_at", "evidence_url"}))

	_, err := repo.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestReportsBetween_FiltersByPerson(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	start := time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	mock.ExpectQuery(`submitted_at >= \$1 AND submitted_at < \$2 AND person_id = \$3 ORDER BY submitted_at, id`).
		WithArgs(start, end, "P1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "person_id", "location_id", "submitted_at", "evidence_url"}).
			AddRow("r1", "P1", "A", start.Add(time.Hour), "u1"))

	reps, err := repo.ReportsBetween(context.Background(), start, end, "P1")
	require.NoError(t, err)
	require.Len(t, reps, 1)
	assert.Equal(t, "r1", reps[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignedLocations_KeepsOrphans(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`LEFT JOIN locations l`).
		WithArgs("2024-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"location_id", "known", "name", "building", "qr_payload"}).
			AddRow("gone", false, "", "", "").
			AddRow("A", true, "Lobby", "West Building", "satpam:loc:A"))

	locs, err := repo.AssignedLocations(context.Background(), "2024-03-09", "")
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.False(t, locs[0].Known)
	assert.Equal(t, location.BuildingWest, locs[1].Building)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSelfieCheck_Upserts(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	score := 0.93
	mock.ExpectExec(`ON CONFLICT \(report_id\) DO UPDATE`).
		WithArgs("r1", "passed", 1, &score, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveSelfieCheck(context.Background(), SelfieCheck{ReportID: "r1", Outcome: "passed", FacesDetected: 1, Score: &score})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
