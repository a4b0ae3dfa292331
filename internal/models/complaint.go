package models

import "time"

// Severity is one of the four triage tiers.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Weight orders severities for ranking; unknown values weigh zero.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// IssueType is the category assigned to a complaint.
type IssueType string

const (
	IssueRoad       IssueType = "Road"
	IssueDrainage   IssueType = "Drainage"
	IssueElectrical IssueType = "Electrical"
	IssueSanitation IssueType = "Sanitation"
)

// Department returns the routing department for the issue type.
func (t IssueType) Department() string {
	return string(t) + " Department"
}

// StatusPending is the status every complaint starts with.
const StatusPending = "Pending"

// ClassificationSource records which classifier produced the issue type and severity.
type ClassificationSource string

const (
	ClassifiedByImage ClassificationSource = "image"
	ClassifiedByText  ClassificationSource = "text"
)

// LocationSource records where the administrative location came from.
type LocationSource string

const (
	LocationNone     LocationSource = ""
	LocationImageGPS LocationSource = "image_gps"
	LocationClient   LocationSource = "client"
)

// Complaint is a citizen-submitted civic complaint stored in the complaints table.
// Priority always mirrors Severity; both columns are exposed to clients.
type Complaint struct {
	ID             int64                `db:"id" json:"id"`
	UserID         string               `db:"user_id" json:"user_id"`
	State          string               `db:"state" json:"state"`
	District       string               `db:"district" json:"district"`
	City           string               `db:"city" json:"city"`
	IssueType      IssueType            `db:"issue_type" json:"issue_type"`
	Severity       Severity             `db:"severity" json:"severity"`
	Description    string               `db:"description" json:"description"`
	Image          string               `db:"image" json:"-"`
	Department     string               `db:"department" json:"department"`
	Priority       Severity             `db:"priority" json:"priority"`
	Status         string               `db:"status" json:"status"`
	ClassifiedBy   ClassificationSource `db:"classified_by" json:"classified_by"`
	LocationSource LocationSource       `db:"location_source" json:"location_source"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// HasImage reports whether a photo was stored with the complaint.
func (c Complaint) HasImage() bool {
	return c.Image != ""
}
