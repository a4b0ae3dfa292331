package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

func ids(complaints []models.Complaint) []int64 {
	out := make([]int64, len(complaints))
	for i, c := range complaints {
		out[i] = c.ID
	}
	return out
}

func TestRankComplaintsBySeverityThenID(t *testing.T) {
	input := []models.Complaint{
		{ID: 1, Severity: models.SeverityLow},
		{ID: 2, Severity: models.SeverityCritical},
		{ID: 3, Severity: models.SeverityHigh},
		{ID: 4, Severity: models.SeverityCritical},
	}

	ranked := RankComplaints(input)

	assert.Equal(t, []int64{4, 2, 3, 1}, ids(ranked))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(input))
}

func TestRankComplaintsUnknownSeveritySinksToBottom(t *testing.T) {
	input := []models.Complaint{
		{ID: 10, Severity: models.Severity("Urgent")},
		{ID: 5, Severity: models.SeverityLow},
		{ID: 7, Severity: models.SeverityMedium},
		{ID: 11, Severity: ""},
	}

	assert.Equal(t, []int64{7, 5, 11, 10}, ids(RankComplaints(input)))
}

func TestRankComplaintsEmpty(t *testing.T) {
	assert.Empty(t, RankComplaints(nil))
}
