package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

func TestClassifyText(t *testing.T) {
	cases := []struct {
		name        string
		description string
		expected    Result
	}{
		{"pothole defaults to low", "pothole on main road", Result{models.IssueRoad, models.SeverityLow}},
		{"flood is critical drainage", "Flood near the market", Result{models.IssueDrainage, models.SeverityCritical}},
		{"broken light", "Street LIGHT is broken", Result{models.IssueElectrical, models.SeverityHigh}},
		{"live wire phrase", "a live wire is hanging", Result{models.IssueElectrical, models.SeverityCritical}},
		{"garbage leak", "garbage truck leak", Result{models.IssueSanitation, models.SeverityMedium}},
		{"no keywords", "something smells odd", Result{models.IssueSanitation, models.SeverityLow}},
		{"empty description", "", Result{models.IssueSanitation, models.SeverityLow}},
		{"issue tier order beats position", "water leaking onto the road", Result{models.IssueRoad, models.SeverityMedium}},
		{"severity tier order beats position", "minor fire", Result{models.IssueSanitation, models.SeverityCritical}},
		{"substring containment", "the drainage is blocked", Result{models.IssueDrainage, models.SeverityHigh}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyText(tc.description))
		})
	}
}

func TestTextClassifierIsReusable(t *testing.T) {
	c := NewTextClassifier()
	assert.Equal(t, models.IssueRoad, c.Classify("crack").IssueType)
	assert.Equal(t, models.IssueDrainage, c.Classify("drain").IssueType)
}
