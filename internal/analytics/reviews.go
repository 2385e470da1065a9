package analytics

import (
	"sort"

	"repo-insights/internal/github"
)

// ReviewerActivity is the review activity of one reviewer.
type ReviewerActivity struct {
	Reviewer string `json:"reviewer"`
	Count    int    `json:"count"`
}

// ReviewStats summarizes review outcomes across pull requests.
type ReviewStats struct {
	Total            int                `json:"total"`
	Approved         int                `json:"approved"`
	ChangesRequested int                `json:"changes_requested"`
	Commented        int                `json:"commented"`
	ApprovalRate     float64            `json:"approval_rate"` // 0..100
	Reviewers        []ReviewerActivity `json:"reviewers,omitempty"`
}

// ComputeReviewStats tallies review outcomes. Reviews with a zero
// submission time are skipped. Reviewers are sorted descending by count;
// ties keep encounter order.
func ComputeReviewStats(reviews []github.Review) ReviewStats {
	var stats ReviewStats
	byReviewer := make(map[string]int)
	var order []string

	for _, r := range reviews {
		if r.SubmittedAt.IsZero() {
			continue
		}
		stats.Total++
		switch r.State {
		case "approved":
			stats.Approved++
		case "changes_requested":
			stats.ChangesRequested++
		case "commented":
			stats.Commented++
		}
		if r.Reviewer != "" {
			if _, ok := byReviewer[r.Reviewer]; !ok {
				order = append(order, r.Reviewer)
			}
			byReviewer[r.Reviewer]++
		}
	}

	if stats.Total > 0 {
		stats.ApprovalRate = float64(stats.Approved) / float64(stats.Total) * 100
	}
	for _, name := range order {
		stats.Reviewers = append(stats.Reviewers, ReviewerActivity{Reviewer: name, Count: byReviewer[name]})
	}
	sort.SliceStable(stats.Reviewers, func(i, j int) bool {
		return stats.Reviewers[i].Count > stats.Reviewers[j].Count
	})
	return stats
}
