package classifier

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

type tier[T any] struct {
	value    T
	keywords []string
	matcher  *ahocorasick.Matcher
}

func newTier[T any](value T, keywords ...string) tier[T] {
	return tier[T]{value: value, keywords: keywords, matcher: ahocorasick.NewStringMatcher(keywords)}
}

// TextClassifier maps a description onto severity and issue tiers. Tiers are
// checked in order and the first tier with any keyword contained in the
// lower-cased text wins. Matchers are immutable after construction.
type TextClassifier struct {
	severity        []tier[models.Severity]
	issues          []tier[models.IssueType]
	defaultSeverity models.Severity
	defaultIssue    models.IssueType
}

// NewTextClassifier builds the keyword tiers.
func NewTextClassifier() *TextClassifier {
	return &TextClassifier{
		severity: []tier[models.Severity]{
			newTier(models.SeverityCritical, "flood", "overflow", "fire", "live wire", "collapsed"),
			newTier(models.SeverityHigh, "blocked", "danger", "broken", "damaged"),
			newTier(models.SeverityMedium, "minor", "slow", "leak"),
		},
		issues: []tier[models.IssueType]{
			newTier(models.IssueRoad, "road", "pothole", "crack"),
			newTier(models.IssueDrainage, "drain", "water", "flood"),
			newTier(models.IssueElectrical, "light", "electric", "wire"),
			newTier(models.IssueSanitation, "garbage", "waste", "dirty"),
		},
		defaultSeverity: models.SeverityLow,
		defaultIssue:    models.IssueSanitation,
	}
}

// Classify always returns a result; unmatched text falls back to Low/Sanitation.
func (c *TextClassifier) Classify(description string) Result {
	text := []byte(strings.ToLower(description))
	return Result{
		IssueType: firstMatch(c.issues, text, c.defaultIssue),
		Severity:  firstMatch(c.severity, text, c.defaultSeverity),
	}
}

func firstMatch[T any](tiers []tier[T], text []byte, fallback T) T {
	for _, t := range tiers {
		if len(t.matcher.Match(text)) > 0 {
			return t.value
		}
	}
	return fallback
}

var defaultText = NewTextClassifier()

// ClassifyText classifies a description with the default keyword tiers.
func ClassifyText(description string) Result {
	return defaultText.Classify(description)
}
