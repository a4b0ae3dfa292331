package service

import (
	"sort"

	"github.com/noah-isme/civic-complaints-api/internal/models"
)

// RankComplaints orders complaints for triage: severity weight descending,
// then id descending so newer complaints lead within a tier. The input slice
// is left untouched.
func RankComplaints(complaints []models.Complaint) []models.Complaint {
	ranked := make([]models.Complaint, len(complaints))
	copy(ranked, complaints)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := ranked[i].Severity.Weight(), ranked[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		return ranked[i].ID > ranked[j].ID
	})
	return ranked
}
