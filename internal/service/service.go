// Package service orchestrates fetch and aggregation for one repository
// analysis request.
package service

import (
	"context"
	"log"
	"time"

	"repo-insights/internal/analytics"
	"repo-insights/internal/cache"
	"repo-insights/internal/github"
)

// reviewPRLimit caps how many recent pull requests get their reviews
// fetched per analysis; each PR costs one API call.
const reviewPRLimit = 30

// branchStaleDays is the tip age past which a branch counts as stale.
const branchStaleDays = 90

// Fetcher is the slice of the fetch orchestrator the service consumes.
type Fetcher interface {
	FetchRepository(ctx context.Context, owner, repo string) (*github.Repository, github.RateLimitInfo, error)
	FetchCommits(ctx context.Context, owner, repo, author string, since, until time.Time, opts github.FetchOptions) (*github.Result[github.Commit], error)
	FetchCommitDetails(ctx context.Context, owner, repo string, shas []string, opts github.FetchOptions) (*github.Result[github.CommitDetail], error)
	FetchPullRequests(ctx context.Context, owner, repo, state string, opts github.FetchOptions) (*github.Result[github.PullRequest], error)
	FetchReviews(ctx context.Context, owner, repo string, number int, opts github.FetchOptions) (*github.Result[github.Review], error)
	FetchBranches(ctx context.Context, owner, repo, defaultBranch string, opts github.FetchOptions) (*github.Result[github.Branch], error)
	FetchContributors(ctx context.Context, owner, repo string, opts github.FetchOptions) (*github.Result[github.Contributor], error)
	FetchWeeklyActivity(ctx context.Context, owner, repo string, opts github.FetchOptions) (*github.Result[github.WeeklyActivity], error)
}

// BranchStatus is a branch with its derived status.
type BranchStatus struct {
	github.Branch
	Status string `json:"status"` // active, stale, merged
}

// Summary is the headline totals for one analysis.
type Summary struct {
	TotalCommits       int `json:"total_commits"`
	TotalPullRequests  int `json:"total_pull_requests"`
	OpenPullRequests   int `json:"open_pull_requests"`
	MergedPullRequests int `json:"merged_pull_requests"`
	TotalReviews       int `json:"total_reviews"`
	TotalBranches      int `json:"total_branches"`
	Contributors       int `json:"contributors"`
	Additions          int `json:"additions"`
	Deletions          int `json:"deletions"`
}

// AnalyticsResult is the full analysis bundle served to the dashboard.
type AnalyticsResult struct {
	Repository        *github.Repository               `json:"repository"`
	Period            analytics.Period                 `json:"period"`
	Summary           Summary                          `json:"summary"`
	Heatmap           analytics.Heatmap                `json:"heatmap"`
	ContributorTrends analytics.ContributorTrendResult `json:"contributor_trends"`
	Timeline          analytics.Timeline               `json:"timeline"`
	FileChanges       analytics.FileChangeAnalysis     `json:"file_changes"`
	ReviewStats       analytics.ReviewStats            `json:"review_stats"`
	Branches          []BranchStatus                   `json:"branches"`
	RateLimit         github.RateLimitInfo             `json:"rate_limit"`
	RateLimitWarning  bool                             `json:"rate_limit_warning,omitempty"`
	GeneratedAt       time.Time                        `json:"generated_at"`
}

// CacheStats reports both cache layers.
type CacheStats struct {
	Fetch     cache.Stats `json:"fetch"`
	Transform cache.Stats `json:"transform"`
}

// Service orchestrates fetch and aggregation. The transform cache holds
// computed aggregates for a short TTL; the fetch cache lives inside the
// fetcher.
type Service struct {
	fetcher    Fetcher
	fetchCache *cache.Cache
	transform  *cache.Cache
	defaults   github.FetchOptions
}

// New creates a Service.
func New(fetcher Fetcher, fetchCache, transform *cache.Cache, defaults github.FetchOptions) *Service {
	return &Service{
		fetcher:    fetcher,
		fetchCache: fetchCache,
		transform:  transform,
		defaults:   defaults,
	}
}

// fetchOpts merges per-request options over the configured defaults.
func (s *Service) fetchOpts(opts *github.FetchOptions) github.FetchOptions {
	if opts == nil {
		return s.defaults
	}
	merged := *opts
	if merged.MaxRecords == 0 {
		merged.MaxRecords = s.defaults.MaxRecords
	}
	if merged.RateLimitThreshold == 0 {
		merged.RateLimitThreshold = s.defaults.RateLimitThreshold
	}
	if merged.PageSize == 0 {
		merged.PageSize = s.defaults.PageSize
	}
	if merged.PageDelay == 0 {
		merged.PageDelay = s.defaults.PageDelay
	}
	if merged.Retry == (github.RetryPolicy{}) {
		merged.Retry = s.defaults.Retry
	}
	return merged
}

// AnalyticsData runs the full fetch-and-aggregate cycle for one
// repository and period. Computed bundles are served from the transform
// cache while fresh.
func (s *Service) AnalyticsData(ctx context.Context, owner, repo string, period analytics.Period, opts *github.FetchOptions) (*AnalyticsResult, error) {
	if err := github.ContextError(ctx, "while fetching analytics"); err != nil {
		return nil, err
	}

	key := cache.Key(owner, repo, "analytics", string(period))
	if v, ok := s.transform.Get(key); ok {
		return v.(*AnalyticsResult), nil
	}

	fetchOpts := s.fetchOpts(opts)
	window := period.Window()

	repoMeta, rate, err := s.fetcher.FetchRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	result := &AnalyticsResult{
		Repository:  repoMeta,
		Period:      period,
		GeneratedAt: time.Now(),
		RateLimit:   rate,
	}

	commits, err := s.fetcher.FetchCommits(ctx, owner, repo, "", window.Since, window.Until, fetchOpts)
	if err != nil {
		return nil, err
	}
	result.absorb(commits.RateLimit, commits.RateLimitWarning)

	shas := make([]string, 0, len(commits.Records))
	for _, c := range commits.Records {
		shas = append(shas, c.SHA)
	}
	details, err := s.fetcher.FetchCommitDetails(ctx, owner, repo, shas, fetchOpts)
	if err != nil {
		return nil, err
	}
	result.absorb(details.RateLimit, details.RateLimitWarning)

	prs, err := s.fetcher.FetchPullRequests(ctx, owner, repo, "all", fetchOpts)
	if err != nil {
		return nil, err
	}
	result.absorb(prs.RateLimit, prs.RateLimitWarning)

	reviews, err := s.collectReviews(ctx, owner, repo, prs.Records, fetchOpts, result)
	if err != nil {
		return nil, err
	}

	branches, err := s.fetcher.FetchBranches(ctx, owner, repo, repoMeta.DefaultBranch, fetchOpts)
	if err != nil {
		return nil, err
	}
	result.absorb(branches.RateLimit, branches.RateLimitWarning)

	contributors, err := s.fetcher.FetchContributors(ctx, owner, repo, fetchOpts)
	if err != nil {
		return nil, err
	}
	result.absorb(contributors.RateLimit, contributors.RateLimitWarning)

	result.Heatmap = analytics.ComputeHeatmap(commits.Records)
	result.ContributorTrends = analytics.ComputeContributorTrends(commits.Records, period)
	result.Timeline = analytics.ComputeTimeline(prs.Records)
	result.FileChanges = analytics.ComputeFileChangeAnalysis(details.Records, period)
	result.ReviewStats = analytics.ComputeReviewStats(reviews)
	result.Branches = deriveBranchStatuses(branches.Records, prs.Records, time.Now())
	result.Summary = buildSummary(commits.Records, details.Records, prs.Records, reviews, branches.Records, contributors.Records)

	s.transform.Set(key, result)
	log.Printf("[service] %s/%s analytics computed: %d commits, %d PRs, %d branches",
		owner, repo, len(commits.Records), len(prs.Records), len(branches.Records))
	return result, nil
}

// absorb folds one fetch's rate metadata and warning into the result.
func (r *AnalyticsResult) absorb(rate github.RateLimitInfo, warning bool) {
	if rate.Limit > 0 {
		r.RateLimit = rate
	}
	if warning {
		r.RateLimitWarning = true
	}
}

// collectReviews fetches reviews for the most recent PRs, stopping early
// when the rate budget runs low.
func (s *Service) collectReviews(ctx context.Context, owner, repo string, prs []github.PullRequest, opts github.FetchOptions, result *AnalyticsResult) ([]github.Review, error) {
	limit := reviewPRLimit
	if len(prs) < limit {
		limit = len(prs)
	}
	var reviews []github.Review
	for _, pr := range prs[:limit] {
		res, err := s.fetcher.FetchReviews(ctx, owner, repo, pr.Number, opts)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, res.Records...)
		result.absorb(res.RateLimit, res.RateLimitWarning)
		if res.RateLimitWarning {
			break
		}
	}
	return reviews, nil
}

// Heatmap computes the day-of-week heatmap for one repository.
func (s *Service) Heatmap(ctx context.Context, owner, repo string, period analytics.Period, opts *github.FetchOptions) (*analytics.Heatmap, error) {
	if err := github.ContextError(ctx, "while computing heatmap"); err != nil {
		return nil, err
	}
	key := cache.Key(owner, repo, "heatmap", string(period))
	if v, ok := s.transform.Get(key); ok {
		return v.(*analytics.Heatmap), nil
	}
	window := period.Window()
	commits, err := s.fetcher.FetchCommits(ctx, owner, repo, "", window.Since, window.Until, s.fetchOpts(opts))
	if err != nil {
		return nil, err
	}
	hm := analytics.ComputeHeatmap(commits.Records)
	s.transform.Set(key, &hm)
	return &hm, nil
}

// ContributorTrends computes per-contributor trend sequences.
func (s *Service) ContributorTrends(ctx context.Context, owner, repo string, period analytics.Period, opts *github.FetchOptions) (*analytics.ContributorTrendResult, error) {
	if err := github.ContextError(ctx, "while computing contributor trends"); err != nil {
		return nil, err
	}
	key := cache.Key(owner, repo, "trends", string(period))
	if v, ok := s.transform.Get(key); ok {
		return v.(*analytics.ContributorTrendResult), nil
	}
	window := period.Window()
	commits, err := s.fetcher.FetchCommits(ctx, owner, repo, "", window.Since, window.Until, s.fetchOpts(opts))
	if err != nil {
		return nil, err
	}
	trends := analytics.ComputeContributorTrends(commits.Records, period)
	s.transform.Set(key, &trends)
	return &trends, nil
}

// Timeline computes the PR open/merge/close timeline.
func (s *Service) Timeline(ctx context.Context, owner, repo string, opts *github.FetchOptions) (*analytics.Timeline, error) {
	if err := github.ContextError(ctx, "while computing timeline"); err != nil {
		return nil, err
	}
	key := cache.Key(owner, repo, "timeline")
	if v, ok := s.transform.Get(key); ok {
		return v.(*analytics.Timeline), nil
	}
	prs, err := s.fetcher.FetchPullRequests(ctx, owner, repo, "all", s.fetchOpts(opts))
	if err != nil {
		return nil, err
	}
	tl := analytics.ComputeTimeline(prs.Records)
	s.transform.Set(key, &tl)
	return &tl, nil
}

// FileChanges computes the per-file change analysis.
func (s *Service) FileChanges(ctx context.Context, owner, repo string, period analytics.Period, opts *github.FetchOptions) (*analytics.FileChangeAnalysis, error) {
	if err := github.ContextError(ctx, "while computing file changes"); err != nil {
		return nil, err
	}
	key := cache.Key(owner, repo, "files", string(period))
	if v, ok := s.transform.Get(key); ok {
		return v.(*analytics.FileChangeAnalysis), nil
	}
	fetchOpts := s.fetchOpts(opts)
	window := period.Window()
	commits, err := s.fetcher.FetchCommits(ctx, owner, repo, "", window.Since, window.Until, fetchOpts)
	if err != nil {
		return nil, err
	}
	shas := make([]string, 0, len(commits.Records))
	for _, c := range commits.Records {
		shas = append(shas, c.SHA)
	}
	details, err := s.fetcher.FetchCommitDetails(ctx, owner, repo, shas, fetchOpts)
	if err != nil {
		return nil, err
	}
	fa := analytics.ComputeFileChangeAnalysis(details.Records, period)
	s.transform.Set(key, &fa)
	return &fa, nil
}

// WeeklyActivity returns the upstream weekly commit-activity stats.
func (s *Service) WeeklyActivity(ctx context.Context, owner, repo string, opts *github.FetchOptions) ([]github.WeeklyActivity, error) {
	if err := github.ContextError(ctx, "while fetching commit activity"); err != nil {
		return nil, err
	}
	key := cache.Key(owner, repo, "weekly_activity_view")
	if v, ok := s.transform.Get(key); ok {
		return v.([]github.WeeklyActivity), nil
	}
	res, err := s.fetcher.FetchWeeklyActivity(ctx, owner, repo, s.fetchOpts(opts))
	if err != nil {
		return nil, err
	}
	s.transform.Set(key, res.Records)
	return res.Records, nil
}

// Branches lists branches with derived statuses.
func (s *Service) Branches(ctx context.Context, owner, repo string, opts *github.FetchOptions) ([]BranchStatus, error) {
	if err := github.ContextError(ctx, "while fetching branches"); err != nil {
		return nil, err
	}
	key := cache.Key(owner, repo, "branch_status")
	if v, ok := s.transform.Get(key); ok {
		return v.([]BranchStatus), nil
	}
	fetchOpts := s.fetchOpts(opts)
	repoMeta, _, err := s.fetcher.FetchRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	branches, err := s.fetcher.FetchBranches(ctx, owner, repo, repoMeta.DefaultBranch, fetchOpts)
	if err != nil {
		return nil, err
	}
	prs, err := s.fetcher.FetchPullRequests(ctx, owner, repo, "closed", fetchOpts)
	if err != nil {
		return nil, err
	}
	statuses := deriveBranchStatuses(branches.Records, prs.Records, time.Now())
	s.transform.Set(key, statuses)
	return statuses, nil
}

// deriveBranchStatuses computes a status per branch: merged when a
// merged PR's head ref matches the branch, stale when the tip is old,
// active otherwise. The default branch is always active.
func deriveBranchStatuses(branches []github.Branch, prs []github.PullRequest, now time.Time) []BranchStatus {
	mergedHeads := make(map[string]bool)
	for _, pr := range prs {
		if pr.MergedAt != nil {
			mergedHeads[pr.HeadRef] = true
		}
	}

	staleCutoff := now.AddDate(0, 0, -branchStaleDays)
	statuses := make([]BranchStatus, 0, len(branches))
	for _, b := range branches {
		status := "active"
		switch {
		case b.IsDefault:
			status = "active"
		case mergedHeads[b.Name]:
			status = "merged"
		case !b.CommitDate.IsZero() && b.CommitDate.Before(staleCutoff):
			status = "stale"
		}
		statuses = append(statuses, BranchStatus{Branch: b, Status: status})
	}
	return statuses
}

// buildSummary tallies headline totals from the fetched records.
func buildSummary(commits []github.Commit, details []github.CommitDetail, prs []github.PullRequest, reviews []github.Review, branches []github.Branch, contributors []github.Contributor) Summary {
	sum := Summary{
		TotalCommits:  len(commits),
		TotalBranches: len(branches),
		Contributors:  len(contributors),
	}
	for _, d := range details {
		for _, fc := range d.Files {
			sum.Additions += fc.Additions
			sum.Deletions += fc.Deletions
		}
	}
	for _, pr := range prs {
		sum.TotalPullRequests++
		switch pr.State {
		case "open":
			sum.OpenPullRequests++
		case "merged":
			sum.MergedPullRequests++
		}
	}
	for _, r := range reviews {
		if !r.SubmittedAt.IsZero() {
			sum.TotalReviews++
		}
	}
	return sum
}

// InvalidateCache drops cached data. With owner and repo set it drops
// that repository's entries in both layers; with both empty it clears
// everything.
func (s *Service) InvalidateCache(owner, repo string) int {
	if owner == "" && repo == "" {
		s.fetchCache.Clear()
		s.transform.Clear()
		log.Printf("[service] cache cleared")
		return 0
	}
	removed := s.fetchCache.Invalidate(owner, repo) + s.transform.Invalidate(owner, repo)
	log.Printf("[service] cache invalidated for %s/%s: %d entries", owner, repo, removed)
	return removed
}

// CacheStats reports both cache layers.
func (s *Service) CacheStats() CacheStats {
	return CacheStats{
		Fetch:     s.fetchCache.Stats(),
		Transform: s.transform.Stats(),
	}
}

// SweepCaches drops expired entries from both layers.
func (s *Service) SweepCaches() int {
	return s.fetchCache.Sweep() + s.transform.Sweep()
}
