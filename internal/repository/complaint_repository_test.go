package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

var complaintRowColumns = []string{"id", "user_id", "state", "district", "city", "issue_type", "severity", "description", "image", "department", "priority", "status", "classified_by", "location_source", "created_at", "updated_at"}

func complaintRow(rows *sqlmock.Rows, id int64, severity models.Severity, now time.Time) *sqlmock.Rows {
	return rows.AddRow(id, "u-1", "Illinois", "Springfield County", "Springfield", "Road", string(severity), "pothole", "", "Road Department", string(severity), models.StatusPending, "text", "client", now, now)
}

func TestCreateComplaint(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	complaint := &models.Complaint{
		UserID:       "u-1",
		IssueType:    models.IssueRoad,
		Severity:     models.SeverityLow,
		Description:  "pothole on main road",
		Department:   "Road Department",
		Priority:     models.SeverityLow,
		Status:       models.StatusPending,
		ClassifiedBy: models.ClassifiedByText,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO complaints (user_id, state, district, city, issue_type, severity, description, image, department, priority, status, classified_by, location_source, created_at, updated_at)")).
		WithArgs("u-1", "", "", "", models.IssueRoad, models.SeverityLow, "pothole on main road", "", "Road Department", models.SeverityLow, models.StatusPending, models.ClassifiedByText, models.LocationNone, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(context.Background(), complaint))
	assert.Equal(t, int64(42), complaint.ID)
	assert.False(t, complaint.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindComplaintByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(complaintRow(sqlmock.NewRows(complaintRowColumns), 7, models.SeverityHigh, now))

	complaint, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), complaint.ID)
	assert.Equal(t, models.SeverityHigh, complaint.Priority)
	assert.Equal(t, models.LocationClient, complaint.LocationSource)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindComplaintByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery("FROM complaints WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListComplaintsByOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(complaintRowColumns)
	complaintRow(rows, 2, models.SeverityLow, now)
	complaintRow(rows, 1, models.SeverityCritical, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints WHERE user_id = $1 ORDER BY id DESC")).
		WithArgs("u-1").
		WillReturnRows(rows)

	complaints, err := repo.ListByOwner(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, complaints, 2)
	assert.Equal(t, int64(2), complaints[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllComplaintsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM complaints ORDER BY id DESC")).
		WillReturnRows(sqlmock.NewRows(complaintRowColumns))

	complaints, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, complaints)
	assert.Empty(t, complaints)
}

func TestUpdateComplaintStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(int64(3), "Resolved", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status")).
		WithArgs(int64(404), "Resolved", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), 3, "Resolved", now))
	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), 404, "Resolved", now), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
