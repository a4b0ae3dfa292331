// Package classifier assigns an issue type and severity to a complaint, from
// the dominant colour of its photo or from keywords in its description.
package classifier

import "github.com/noah-isme/civic-complaints-api/internal/models"

// Result is the outcome of a classification.
type Result struct {
	IssueType models.IssueType `json:"issue_type"`
	Severity  models.Severity  `json:"severity"`
}
