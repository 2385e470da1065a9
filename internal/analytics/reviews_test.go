package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-insights/internal/github"
)

func review(reviewer, state string, pr int) github.Review {
	return github.Review{
		PRNumber:    pr,
		Reviewer:    reviewer,
		State:       state,
		SubmittedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeReviewStats(t *testing.T) {
	reviews := []github.Review{
		review("alice", "approved", 1),
		review("alice", "approved", 2),
		review("bob", "changes_requested", 1),
		review("carol", "commented", 3),
	}

	stats := ComputeReviewStats(reviews)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.ChangesRequested)
	assert.Equal(t, 1, stats.Commented)
	assert.InDelta(t, 50, stats.ApprovalRate, 1e-9)

	require.Len(t, stats.Reviewers, 3)
	assert.Equal(t, ReviewerActivity{Reviewer: "alice", Count: 2}, stats.Reviewers[0])
}

func TestComputeReviewStatsSkipsZeroSubmission(t *testing.T) {
	reviews := []github.Review{
		{PRNumber: 1, Reviewer: "ghost", State: "approved"}, // never submitted
		review("alice", "approved", 1),
	}

	stats := ComputeReviewStats(reviews)

	assert.Equal(t, 1, stats.Total)
	assert.Len(t, stats.Reviewers, 1)
}

func TestComputeReviewStatsEmpty(t *testing.T) {
	stats := ComputeReviewStats(nil)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.ApprovalRate)
}
