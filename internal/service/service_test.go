package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"repo-insights/internal/analytics"
	"repo-insights/internal/cache"
	"repo-insights/internal/github"
)

// MockFetcher mocks the fetch orchestrator.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchRepository(ctx context.Context, owner, repo string) (*github.Repository, github.RateLimitInfo, error) {
	args := m.Called(ctx, owner, repo)
	var r *github.Repository
	if v := args.Get(0); v != nil {
		r = v.(*github.Repository)
	}
	return r, args.Get(1).(github.RateLimitInfo), args.Error(2)
}

func (m *MockFetcher) FetchCommits(ctx context.Context, owner, repo, author string, since, until time.Time, opts github.FetchOptions) (*github.Result[github.Commit], error) {
	args := m.Called(ctx, owner, repo, author, since, until, opts)
	return resultArg[github.Commit](args.Get(0)), args.Error(1)
}

func (m *MockFetcher) FetchCommitDetails(ctx context.Context, owner, repo string, shas []string, opts github.FetchOptions) (*github.Result[github.CommitDetail], error) {
	args := m.Called(ctx, owner, repo, shas, opts)
	return resultArg[github.CommitDetail](args.Get(0)), args.Error(1)
}

func (m *MockFetcher) FetchPullRequests(ctx context.Context, owner, repo, state string, opts github.FetchOptions) (*github.Result[github.PullRequest], error) {
	args := m.Called(ctx, owner, repo, state, opts)
	return resultArg[github.PullRequest](args.Get(0)), args.Error(1)
}

func (m *MockFetcher) FetchReviews(ctx context.Context, owner, repo string, number int, opts github.FetchOptions) (*github.Result[github.Review], error) {
	args := m.Called(ctx, owner, repo, number, opts)
	return resultArg[github.Review](args.Get(0)), args.Error(1)
}

func (m *MockFetcher) FetchBranches(ctx context.Context, owner, repo, defaultBranch string, opts github.FetchOptions) (*github.Result[github.Branch], error) {
	args := m.Called(ctx, owner, repo, defaultBranch, opts)
	return resultArg[github.Branch](args.Get(0)), args.Error(1)
}

func (m *MockFetcher) FetchContributors(ctx context.Context, owner, repo string, opts github.FetchOptions) (*github.Result[github.Contributor], error) {
	args := m.Called(ctx, owner, repo, opts)
	return resultArg[github.Contributor](args.Get(0)), args.Error(1)
}

func (m *MockFetcher) FetchWeeklyActivity(ctx context.Context, owner, repo string, opts github.FetchOptions) (*github.Result[github.WeeklyActivity], error) {
	args := m.Called(ctx, owner, repo, opts)
	return resultArg[github.WeeklyActivity](args.Get(0)), args.Error(1)
}

func resultArg[T any](v any) *github.Result[T] {
	if v == nil {
		return nil
	}
	return v.(*github.Result[T])
}

func okResult[T any](records ...T) *github.Result[T] {
	return &github.Result[T]{
		Records:   records,
		RateLimit: github.RateLimitInfo{Limit: 5000, Remaining: 4000},
	}
}

func newTestService(fetcher Fetcher) *Service {
	return New(fetcher, cache.New(time.Minute, 0), cache.New(time.Minute, 0), github.FetchOptions{})
}

func testRepo() *github.Repository {
	return &github.Repository{Owner: "octo", Name: "hello", FullName: "octo/hello", DefaultBranch: "main"}
}

func TestAnalyticsData(t *testing.T) {
	now := time.Now().UTC()
	merged := now.AddDate(0, 0, -2)
	commits := []github.Commit{
		{SHA: "c1", AuthorLogin: "alice", Date: now.AddDate(0, 0, -3)},
		{SHA: "c2", AuthorLogin: "bob", Date: now.AddDate(0, 0, -1)},
	}
	details := []github.CommitDetail{
		{Commit: commits[0], Files: []github.FileChange{{Filename: "main.go", Status: "modified", Additions: 5, Deletions: 2}}},
	}
	prs := []github.PullRequest{
		{Number: 1, State: "merged", HeadRef: "feat/x", CreatedAt: now.AddDate(0, 0, -4), MergedAt: &merged},
		{Number: 2, State: "open", CreatedAt: now.AddDate(0, 0, -1)},
	}
	reviews := []github.Review{
		{PRNumber: 1, Reviewer: "carol", State: "approved", SubmittedAt: now.AddDate(0, 0, -3)},
	}
	branches := []github.Branch{
		{Name: "main", CommitSHA: "c2", CommitDate: now.AddDate(0, 0, -1), IsDefault: true},
		{Name: "feat/x", CommitSHA: "c1", CommitDate: now.AddDate(0, 0, -3)},
	}

	fetcher := new(MockFetcher)
	fetcher.On("FetchRepository", mock.Anything, "octo", "hello").Return(testRepo(), github.RateLimitInfo{Limit: 5000, Remaining: 4500}, nil).Once()
	fetcher.On("FetchCommits", mock.Anything, "octo", "hello", "", mock.Anything, mock.Anything, mock.Anything).Return(okResult(commits...), nil).Once()
	fetcher.On("FetchCommitDetails", mock.Anything, "octo", "hello", []string{"c1", "c2"}, mock.Anything).Return(okResult(details...), nil).Once()
	fetcher.On("FetchPullRequests", mock.Anything, "octo", "hello", "all", mock.Anything).Return(okResult(prs...), nil).Once()
	fetcher.On("FetchReviews", mock.Anything, "octo", "hello", 1, mock.Anything).Return(okResult(reviews...), nil).Once()
	fetcher.On("FetchReviews", mock.Anything, "octo", "hello", 2, mock.Anything).Return(okResult[github.Review](), nil).Once()
	fetcher.On("FetchBranches", mock.Anything, "octo", "hello", "main", mock.Anything).Return(okResult(branches...), nil).Once()
	fetcher.On("FetchContributors", mock.Anything, "octo", "hello", mock.Anything).Return(okResult(github.Contributor{Login: "alice"}, github.Contributor{Login: "bob"}), nil).Once()

	svc := newTestService(fetcher)
	result, err := svc.AnalyticsData(context.Background(), "octo", "hello", analytics.Period30Days, nil)

	require.NoError(t, err)
	assert.Equal(t, "octo/hello", result.Repository.FullName)
	assert.Equal(t, analytics.Period30Days, result.Period)

	assert.Equal(t, 2, result.Summary.TotalCommits)
	assert.Equal(t, 2, result.Summary.TotalPullRequests)
	assert.Equal(t, 1, result.Summary.OpenPullRequests)
	assert.Equal(t, 1, result.Summary.MergedPullRequests)
	assert.Equal(t, 1, result.Summary.TotalReviews)
	assert.Equal(t, 2, result.Summary.TotalBranches)
	assert.Equal(t, 2, result.Summary.Contributors)
	assert.Equal(t, 5, result.Summary.Additions)
	assert.Equal(t, 2, result.Summary.Deletions)

	assert.Equal(t, 2, result.Heatmap.Total)
	assert.Len(t, result.ContributorTrends.Contributors, 2)
	assert.Equal(t, 2, result.Timeline.TotalOpened)
	assert.Equal(t, 1, result.FileChanges.TotalChanges)
	assert.Equal(t, 1, result.ReviewStats.Approved)

	require.Len(t, result.Branches, 2)
	assert.Equal(t, "active", result.Branches[0].Status)
	assert.Equal(t, "merged", result.Branches[1].Status)

	assert.Equal(t, 4000, result.RateLimit.Remaining)
	assert.False(t, result.RateLimitWarning)

	// A repeat within the transform TTL never touches the fetcher again.
	again, err := svc.AnalyticsData(context.Background(), "octo", "hello", analytics.Period30Days, nil)
	require.NoError(t, err)
	assert.Same(t, result, again)
	fetcher.AssertExpectations(t)
}

func TestAnalyticsDataCancelledBeforeAnyFetch(t *testing.T) {
	fetcher := new(MockFetcher)
	svc := newTestService(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.AnalyticsData(ctx, "octo", "hello", analytics.Period30Days, nil)

	require.Error(t, err)
	assert.Equal(t, github.KindCancelled, github.KindOf(err))
	fetcher.AssertNotCalled(t, "FetchRepository", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyticsDataPropagatesFetchErrors(t *testing.T) {
	fetchErr := errors.New("repository or resource not found")
	fetcher := new(MockFetcher)
	fetcher.On("FetchRepository", mock.Anything, "octo", "gone").Return(nil, github.RateLimitInfo{}, fetchErr)

	svc := newTestService(fetcher)
	_, err := svc.AnalyticsData(context.Background(), "octo", "gone", analytics.Period30Days, nil)

	require.Error(t, err)
	assert.Same(t, fetchErr, err, "fetch failures propagate unchanged")
	fetcher.AssertNotCalled(t, "FetchCommits", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCollectReviewsCapsRecentPRs(t *testing.T) {
	var prs []github.PullRequest
	for i := 1; i <= reviewPRLimit+10; i++ {
		prs = append(prs, github.PullRequest{Number: i, State: "open", CreatedAt: time.Now()})
	}

	fetcher := new(MockFetcher)
	fetcher.On("FetchReviews", mock.Anything, "octo", "hello", mock.Anything, mock.Anything).Return(okResult[github.Review](), nil)

	svc := newTestService(fetcher)
	result := &AnalyticsResult{}
	_, err := svc.collectReviews(context.Background(), "octo", "hello", prs, github.FetchOptions{}, result)

	require.NoError(t, err)
	fetcher.AssertNumberOfCalls(t, "FetchReviews", reviewPRLimit)
}

func TestCollectReviewsStopsOnRateWarning(t *testing.T) {
	prs := []github.PullRequest{{Number: 1}, {Number: 2}, {Number: 3}}

	warned := okResult[github.Review](github.Review{PRNumber: 1, Reviewer: "a", State: "approved", SubmittedAt: time.Now()})
	warned.RateLimitWarning = true

	fetcher := new(MockFetcher)
	fetcher.On("FetchReviews", mock.Anything, "octo", "hello", 1, mock.Anything).Return(warned, nil).Once()

	svc := newTestService(fetcher)
	result := &AnalyticsResult{}
	reviews, err := svc.collectReviews(context.Background(), "octo", "hello", prs, github.FetchOptions{}, result)

	require.NoError(t, err)
	assert.Len(t, reviews, 1, "partial reviews are kept")
	assert.True(t, result.RateLimitWarning)
	fetcher.AssertNumberOfCalls(t, "FetchReviews", 1)
}

func TestHeatmapUsesTransformCache(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("FetchCommits", mock.Anything, "octo", "hello", "", mock.Anything, mock.Anything, mock.Anything).
		Return(okResult(github.Commit{SHA: "c1", AuthorLogin: "alice", Date: time.Now()}), nil).Once()

	svc := newTestService(fetcher)
	first, err := svc.Heatmap(context.Background(), "octo", "hello", analytics.Period30Days, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)

	second, err := svc.Heatmap(context.Background(), "octo", "hello", analytics.Period30Days, nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	fetcher.AssertExpectations(t)
}

func TestWeeklyActivity(t *testing.T) {
	weeks := []github.WeeklyActivity{
		{WeekStart: time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), Total: 9, Days: [7]int{1, 2, 0, 3, 1, 2, 0}},
	}
	fetcher := new(MockFetcher)
	fetcher.On("FetchWeeklyActivity", mock.Anything, "octo", "hello", mock.Anything).Return(okResult(weeks...), nil).Once()

	svc := newTestService(fetcher)
	first, err := svc.WeeklyActivity(context.Background(), "octo", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, weeks, first)

	_, err = svc.WeeklyActivity(context.Background(), "octo", "hello", nil)
	require.NoError(t, err)
	fetcher.AssertExpectations(t)
}

func TestDeriveBranchStatuses(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	merged := now.AddDate(0, 0, -10)
	prs := []github.PullRequest{
		{Number: 1, HeadRef: "feat/done", MergedAt: &merged},
		{Number: 2, HeadRef: "feat/abandoned"}, // closed without merging
	}
	branches := []github.Branch{
		{Name: "main", IsDefault: true, CommitDate: now.AddDate(0, 0, -200)},
		{Name: "feat/done", CommitDate: now.AddDate(0, 0, -10)},
		{Name: "feat/abandoned", CommitDate: now.AddDate(0, 0, -120)},
		{Name: "feat/wip", CommitDate: now.AddDate(0, 0, -5)},
		{Name: "feat/unknown-tip"}, // enrichment cut short, zero date
	}

	statuses := deriveBranchStatuses(branches, prs, now)

	byName := map[string]string{}
	for _, s := range statuses {
		byName[s.Name] = s.Status
	}
	assert.Equal(t, "active", byName["main"], "default branch is active regardless of age")
	assert.Equal(t, "merged", byName["feat/done"])
	assert.Equal(t, "stale", byName["feat/abandoned"])
	assert.Equal(t, "active", byName["feat/wip"])
	assert.Equal(t, "active", byName["feat/unknown-tip"])
}

func TestInvalidateCache(t *testing.T) {
	fetchCache := cache.New(time.Minute, 0)
	transform := cache.New(time.Minute, 0)
	svc := New(new(MockFetcher), fetchCache, transform, github.FetchOptions{})

	fetchCache.Set(cache.Key("octo", "hello", "commits"), 1)
	transform.Set(cache.Key("octo", "hello", "analytics", "30d"), 2)
	transform.Set(cache.Key("octo", "world", "analytics", "30d"), 3)

	removed := svc.InvalidateCache("octo", "hello")
	assert.Equal(t, 2, removed)

	stats := svc.CacheStats()
	assert.Equal(t, 0, stats.Fetch.Total)
	assert.Equal(t, 1, stats.Transform.Total)

	svc.InvalidateCache("", "")
	assert.Equal(t, 0, svc.CacheStats().Transform.Total)
}

func TestFetchOptsMergesDefaults(t *testing.T) {
	defaults := github.FetchOptions{
		MaxRecords:         500,
		RateLimitThreshold: 20,
		PageSize:           50,
		PageDelay:          time.Second,
		Retry:              github.RetryPolicy{MaxRetries: 3, BaseDelay: time.Second},
	}
	svc := New(new(MockFetcher), cache.New(time.Minute, 0), cache.New(time.Minute, 0), defaults)

	assert.Equal(t, defaults, svc.fetchOpts(nil))

	merged := svc.fetchOpts(&github.FetchOptions{MaxRecords: 100})
	assert.Equal(t, 100, merged.MaxRecords)
	assert.Equal(t, 20, merged.RateLimitThreshold)
	assert.Equal(t, 50, merged.PageSize)
	assert.Equal(t, defaults.Retry, merged.Retry)
}
