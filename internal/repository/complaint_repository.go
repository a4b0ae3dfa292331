package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

const complaintColumns = `id, user_id, state, district, city, issue_type, severity, description, image, department, priority, status, classified_by, location_source, created_at, updated_at`

// ComplaintRepository persists complaints in PostgreSQL.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts the complaint and fills in the generated id and timestamps.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	now := time.Now().UTC()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	complaint.UpdatedAt = now

	const query = `INSERT INTO complaints (user_id, state, district, city, issue_type, severity, description, image, department, priority, status, classified_by, location_source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query,
		complaint.UserID,
		complaint.State,
		complaint.District,
		complaint.City,
		complaint.IssueType,
		complaint.Severity,
		complaint.Description,
		complaint.Image,
		complaint.Department,
		complaint.Priority,
		complaint.Status,
		complaint.ClassifiedBy,
		complaint.LocationSource,
		complaint.CreatedAt,
		complaint.UpdatedAt,
	)
	if err := row.Scan(&complaint.ID); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// FindByID returns a complaint or sql.ErrNoRows.
func (r *ComplaintRepository) FindByID(ctx context.Context, id int64) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint by id: %w", err)
	}
	return &complaint, nil
}

// ListByOwner returns the complaints submitted by a user, newest first.
func (r *ComplaintRepository) ListByOwner(ctx context.Context, userID string) ([]models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE user_id = $1 ORDER BY id DESC`
	complaints := []models.Complaint{}
	if err := r.db.SelectContext(ctx, &complaints, query, userID); err != nil {
		return nil, fmt.Errorf("list complaints by owner: %w", err)
	}
	return complaints, nil
}

// ListAll returns every complaint. Ordering for triage is applied by the caller.
func (r *ComplaintRepository) ListAll(ctx context.Context) ([]models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints ORDER BY id DESC`
	complaints := []models.Complaint{}
	if err := r.db.SelectContext(ctx, &complaints, query); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return complaints, nil
}

// UpdateStatus sets a new status. It returns sql.ErrNoRows for unknown ids.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	const query = `UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, updatedAt)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check complaint status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
