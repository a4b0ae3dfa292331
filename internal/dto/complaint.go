package dto

import (
	"time"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

// SubmitComplaintRequest is a citizen submission after the multipart form
// has been read. Latitude and Longitude are the raw browser values.
type SubmitComplaintRequest struct {
	Description   string `validate:"max=5000"`
	Image         []byte `validate:"-"`
	ImageFilename string `validate:"max=255"`
	Latitude      string `validate:"max=32"`
	Longitude     string `validate:"max=32"`
}

// HasImage reports whether a non-empty photo was attached.
func (r SubmitComplaintRequest) HasImage() bool {
	return len(r.Image) > 0
}

// ComplaintResponse is the full record returned to the submitting citizen.
type ComplaintResponse struct {
	models.Complaint
	ImageURL       string     `json:"image_url,omitempty"`
	ImageExpiresAt *time.Time `json:"image_expires_at,omitempty"`
}

// ComplaintSummary is the dashboard row shown to employees and citizens.
type ComplaintSummary struct {
	ID             int64            `json:"id"`
	State          string           `json:"state"`
	District       string           `json:"district"`
	City           string           `json:"city"`
	IssueType      models.IssueType `json:"issue_type"`
	Severity       models.Severity  `json:"severity"`
	Priority       models.Severity  `json:"priority"`
	Department     string           `json:"department"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	ImageURL       string           `json:"image,omitempty"`
	ImageExpiresAt *time.Time       `json:"image_expires_at,omitempty"`
}

// UpdateStatusRequest changes the workflow status of a complaint.
type UpdateStatusRequest struct {
	Status    string `json:"status" validate:"required,max=50"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportResult carries a rendered export file.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ImageDownload is a stored complaint photo ready to stream.
type ImageDownload struct {
	ContentType string
	Data        []byte
}
