package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repo-insights/internal/cache"

	"github.com/google/go-github/v60/github"
)

// ProgressFunc reports records fetched so far and the current estimate
// of the total. The estimate is revised as new pages arrive.
type ProgressFunc func(fetched, estimatedTotal int)

// FetchOptions bounds one orchestrated fetch.
type FetchOptions struct {
	MaxRecords         int           // truncate exactly at this many records
	RateLimitThreshold int           // stop paginating below this remaining quota
	PageSize           int
	PageDelay          time.Duration // courtesy delay between pages, not retry backoff
	OnProgress         ProgressFunc
	Retry              RetryPolicy
}

// withDefaults fills in unset option fields.
func (o FetchOptions) withDefaults() FetchOptions {
	if o.MaxRecords <= 0 {
		o.MaxRecords = 1000
	}
	if o.RateLimitThreshold <= 0 {
		o.RateLimitThreshold = 10
	}
	if o.PageSize <= 0 || o.PageSize > 100 {
		o.PageSize = 100
	}
	if o.PageDelay <= 0 {
		o.PageDelay = 100 * time.Millisecond
	}
	if o.Retry.MaxRetries <= 0 {
		o.Retry.MaxRetries = 2
	}
	if o.Retry.BaseDelay <= 0 {
		o.Retry.BaseDelay = 500 * time.Millisecond
	}
	return o
}

// Result is the outcome of one orchestrated fetch. RateLimitWarning
// marks a partial result cut short by the rate-limit threshold; partial
// results are returned, not discarded.
type Result[T any] struct {
	Records          []T           `json:"records"`
	RateLimit        RateLimitInfo `json:"rate_limit"`
	RateLimitWarning bool          `json:"rate_limit_warning,omitempty"`
	FromCache        bool          `json:"from_cache,omitempty"`
}

// Fetcher drives bounded, cancellable pagination against the remote API,
// consulting the fetch-level cache before any network round.
type Fetcher struct {
	client *Client
	cache  *cache.Cache
}

// NewFetcher creates a Fetcher around a client and a fetch-level cache.
func NewFetcher(client *Client, c *cache.Cache) *Fetcher {
	return &Fetcher{client: client, cache: c}
}

// belowThreshold reports whether the remaining quota dipped under the
// configured floor. A zero limit means the metadata is unknown (e.g. a
// cache hit) and never trips the check.
func belowThreshold(rate RateLimitInfo, threshold int) bool {
	return rate.Limit > 0 && rate.Remaining < threshold
}

// timeKey formats a window bound for cache keys.
func timeKey(t time.Time) string {
	if t.IsZero() {
		return "all"
	}
	return t.UTC().Format("2006-01-02T15:04:05")
}

// pageFunc fetches one page of records.
type pageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, *github.Response, error)

// pageCall bundles a page of records with its response metadata so the
// pair can pass through the retry wrapper as one value.
type pageCall[T any] struct {
	records []T
	resp    *github.Response
}

// fetchPaged pages forward (1, 2, ...) until there is no next page, the
// record bound is hit, or the remaining rate limit dips below the
// threshold. Cancellation is checked before every request. A non-empty
// key caches the final result.
func fetchPaged[T any](ctx context.Context, f *Fetcher, key, opContext string, opts FetchOptions, page pageFunc[T]) (*Result[T], error) {
	if key != "" {
		if v, ok := f.cache.Get(key); ok {
			cached := v.(*Result[T])
			hit := *cached
			hit.FromCache = true
			return &hit, nil
		}
	}

	result := &Result[T]{Records: []T{}}
	pageNum := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, classify(ctx, err, opContext)
		}

		call, err := retryWithBackoff(ctx, opts.Retry, opContext, func(ctx context.Context) (pageCall[T], error) {
			records, resp, err := page(ctx, pageNum, opts.PageSize)
			return pageCall[T]{records: records, resp: resp}, err
		})
		if err != nil {
			return nil, err
		}

		result.Records = append(result.Records, call.records...)
		truncated := false
		if len(result.Records) >= opts.MaxRecords {
			result.Records = result.Records[:opts.MaxRecords]
			truncated = true
		}
		result.RateLimit = rateInfo(call.resp)

		estimated := len(result.Records)
		if call.resp != nil && call.resp.LastPage > 0 {
			estimated = call.resp.LastPage * opts.PageSize
		}
		if opts.OnProgress != nil {
			opts.OnProgress(len(result.Records), estimated)
		}

		if truncated || call.resp == nil || call.resp.NextPage == 0 {
			break
		}
		if belowThreshold(result.RateLimit, opts.RateLimitThreshold) {
			result.RateLimitWarning = true
			break
		}
		pageNum = call.resp.NextPage

		if err := sleepCtx(ctx, opts.PageDelay); err != nil {
			return nil, classify(ctx, err, opContext)
		}
	}

	if key != "" {
		f.cache.Set(key, result)
	}
	return result, nil
}

// FetchRepository fetches repository metadata, serving repeats from the
// cache.
func (f *Fetcher) FetchRepository(ctx context.Context, owner, repo string) (*Repository, RateLimitInfo, error) {
	key := cache.Key(owner, repo, "repo")
	if v, ok := f.cache.Get(key); ok {
		return v.(*Repository), RateLimitInfo{}, nil
	}
	r, rate, err := f.client.Repository(ctx, owner, repo)
	if err != nil {
		return nil, rate, err
	}
	f.cache.Set(key, r)
	return r, rate, nil
}

// FetchCommits lists commits in the window, optionally filtered by
// author. Zero bounds are unbounded.
func (f *Fetcher) FetchCommits(ctx context.Context, owner, repo, author string, since, until time.Time, opts FetchOptions) (*Result[Commit], error) {
	opts = opts.withDefaults()
	key := cache.Key(owner, repo, "commits", author, timeKey(since), timeKey(until))
	return fetchPaged(ctx, f, key, "while fetching commits", opts, func(ctx context.Context, page, perPage int) ([]Commit, *github.Response, error) {
		listOpts := &github.CommitsListOptions{
			Author:      author,
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		}
		if !since.IsZero() {
			listOpts.Since = since
		}
		if !until.IsZero() {
			listOpts.Until = until
		}
		raw, resp, err := f.client.api.Repositories.ListCommits(ctx, owner, repo, listOpts)
		if err != nil {
			return nil, resp, err
		}
		commits := make([]Commit, 0, len(raw))
		for _, rc := range raw {
			commits = append(commits, convertCommit(rc))
		}
		return commits, resp, nil
	})
}

// FetchCommitDetails fetches the file list for each commit, one request
// per sha, honoring the same bounds as pagination: cancellation before
// every request, courtesy delay between requests, and an early stop with
// a warning when the rate limit dips below the threshold.
func (f *Fetcher) FetchCommitDetails(ctx context.Context, owner, repo string, shas []string, opts FetchOptions) (*Result[CommitDetail], error) {
	opts = opts.withDefaults()
	if len(shas) > opts.MaxRecords {
		shas = shas[:opts.MaxRecords]
	}

	result := &Result[CommitDetail]{Records: make([]CommitDetail, 0, len(shas))}
	for i, sha := range shas {
		if err := ctx.Err(); err != nil {
			return nil, classify(ctx, err, "while fetching commit details")
		}

		detail, rate, err := f.commitDetail(ctx, owner, repo, sha, opts)
		if err != nil {
			return nil, err
		}
		result.Records = append(result.Records, detail)
		if rate.Limit > 0 {
			result.RateLimit = rate
		}
		if opts.OnProgress != nil {
			opts.OnProgress(len(result.Records), len(shas))
		}

		if belowThreshold(result.RateLimit, opts.RateLimitThreshold) {
			result.RateLimitWarning = true
			break
		}
		if i < len(shas)-1 {
			if err := sleepCtx(ctx, opts.PageDelay); err != nil {
				return nil, classify(ctx, err, "while fetching commit details")
			}
		}
	}
	return result, nil
}

// commitDetail fetches one commit's file list, serving repeats from the
// cache at no rate-limit cost.
func (f *Fetcher) commitDetail(ctx context.Context, owner, repo, sha string, opts FetchOptions) (CommitDetail, RateLimitInfo, error) {
	key := cache.Key(owner, repo, "commit", sha)
	if v, ok := f.cache.Get(key); ok {
		return v.(CommitDetail), RateLimitInfo{}, nil
	}

	var resp *github.Response
	rc, err := retryWithBackoff(ctx, opts.Retry, "while fetching commit details", func(ctx context.Context) (*github.RepositoryCommit, error) {
		var innerErr error
		var raw *github.RepositoryCommit
		raw, resp, innerErr = f.client.api.Repositories.GetCommit(ctx, owner, repo, sha, nil)
		return raw, innerErr
	})
	if err != nil {
		return CommitDetail{}, rateInfo(resp), err
	}

	detail := CommitDetail{Commit: convertCommit(rc)}
	for _, cf := range rc.Files {
		detail.Files = append(detail.Files, FileChange{
			CommitSHA: detail.Commit.SHA,
			Filename:  getStringValue(cf.Filename),
			Status:    getStringValue(cf.Status),
			Changes:   getIntValue(cf.Changes),
			Additions: getIntValue(cf.Additions),
			Deletions: getIntValue(cf.Deletions),
		})
	}
	f.cache.Set(key, detail)
	return detail, rateInfo(resp), nil
}

// FetchPullRequests lists pull requests filtered by state ("open",
// "closed" or "all").
func (f *Fetcher) FetchPullRequests(ctx context.Context, owner, repo, state string, opts FetchOptions) (*Result[PullRequest], error) {
	opts = opts.withDefaults()
	if state == "" {
		state = "all"
	}
	key := cache.Key(owner, repo, "pulls", state)
	return fetchPaged(ctx, f, key, "while fetching pull requests", opts, func(ctx context.Context, page, perPage int) ([]PullRequest, *github.Response, error) {
		listOpts := &github.PullRequestListOptions{
			State:       state,
			Sort:        "created",
			Direction:   "desc",
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		}
		raw, resp, err := f.client.api.PullRequests.List(ctx, owner, repo, listOpts)
		if err != nil {
			return nil, resp, err
		}
		prs := make([]PullRequest, 0, len(raw))
		for _, pr := range raw {
			prs = append(prs, convertPullRequest(pr))
		}
		return prs, resp, nil
	})
}

// FetchReviews lists the reviews submitted on one pull request.
func (f *Fetcher) FetchReviews(ctx context.Context, owner, repo string, number int, opts FetchOptions) (*Result[Review], error) {
	opts = opts.withDefaults()
	key := cache.Key(owner, repo, "reviews", fmt.Sprintf("%d", number))
	return fetchPaged(ctx, f, key, "while fetching reviews", opts, func(ctx context.Context, page, perPage int) ([]Review, *github.Response, error) {
		raw, resp, err := f.client.api.PullRequests.ListReviews(ctx, owner, repo, number, &github.ListOptions{Page: page, PerPage: perPage})
		if err != nil {
			return nil, resp, err
		}
		reviews := make([]Review, 0, len(raw))
		for _, rv := range raw {
			review := Review{
				PRNumber:    number,
				State:       strings.ToLower(getStringValue(rv.State)),
				SubmittedAt: getTimeValue(rv.SubmittedAt),
			}
			if rv.User != nil {
				review.Reviewer = getStringValue(rv.User.Login)
			}
			reviews = append(reviews, review)
		}
		return reviews, resp, nil
	})
}

// FetchBranches lists branches and enriches each tip with its commit
// metadata so branch status can be derived downstream. defaultBranch
// marks the repository's default branch.
func (f *Fetcher) FetchBranches(ctx context.Context, owner, repo, defaultBranch string, opts FetchOptions) (*Result[Branch], error) {
	opts = opts.withDefaults()
	key := cache.Key(owner, repo, "branches", defaultBranch)
	if v, ok := f.cache.Get(key); ok {
		cached := v.(*Result[Branch])
		hit := *cached
		hit.FromCache = true
		return &hit, nil
	}

	result, err := fetchPaged(ctx, f, "", "while fetching branches", opts, func(ctx context.Context, page, perPage int) ([]Branch, *github.Response, error) {
		raw, resp, err := f.client.api.Repositories.ListBranches(ctx, owner, repo, &github.BranchListOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		if err != nil {
			return nil, resp, err
		}
		branches := make([]Branch, 0, len(raw))
		for _, b := range raw {
			branch := Branch{Name: getStringValue(b.Name)}
			if b.Commit != nil {
				branch.CommitSHA = getStringValue(b.Commit.SHA)
			}
			branch.IsDefault = branch.Name == defaultBranch
			branches = append(branches, branch)
		}
		return branches, resp, nil
	})
	if err != nil {
		return nil, err
	}

	// Enrich tips until the rate budget runs out; a partial enrichment
	// is still a usable result.
	for i := range result.Records {
		if err := ctx.Err(); err != nil {
			return nil, classify(ctx, err, "while fetching branches")
		}
		if belowThreshold(result.RateLimit, opts.RateLimitThreshold) {
			result.RateLimitWarning = true
			break
		}
		detail, rate, err := f.commitDetail(ctx, owner, repo, result.Records[i].CommitSHA, opts)
		if err != nil {
			return nil, err
		}
		result.Records[i].CommitDate = detail.Commit.Date
		result.Records[i].CommitAuthor = detail.Commit.AuthorName
		result.Records[i].CommitMessage = detail.Commit.Message
		if rate.Limit > 0 {
			result.RateLimit = rate
		}
	}

	f.cache.Set(key, result)
	return result, nil
}

// FetchContributors lists repository contributors.
func (f *Fetcher) FetchContributors(ctx context.Context, owner, repo string, opts FetchOptions) (*Result[Contributor], error) {
	opts = opts.withDefaults()
	key := cache.Key(owner, repo, "contributors")
	return fetchPaged(ctx, f, key, "while fetching contributors", opts, func(ctx context.Context, page, perPage int) ([]Contributor, *github.Response, error) {
		raw, resp, err := f.client.api.Repositories.ListContributors(ctx, owner, repo, &github.ListContributorsOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
		if err != nil {
			return nil, resp, err
		}
		contributors := make([]Contributor, 0, len(raw))
		for _, c := range raw {
			contributors = append(contributors, Contributor{
				Login:         getStringValue(c.Login),
				Contributions: getIntValue(c.Contributions),
				AvatarURL:     getStringValue(c.AvatarURL),
			})
		}
		return contributors, resp, nil
	})
}

// FetchWeeklyActivity fetches the upstream weekly commit-activity stats.
// The stats endpoint answers 202 while computing, which classifies as
// retryable, so the backoff wrapper absorbs the warm-up.
func (f *Fetcher) FetchWeeklyActivity(ctx context.Context, owner, repo string, opts FetchOptions) (*Result[WeeklyActivity], error) {
	opts = opts.withDefaults()
	key := cache.Key(owner, repo, "weekly_activity")
	if v, ok := f.cache.Get(key); ok {
		cached := v.(*Result[WeeklyActivity])
		hit := *cached
		hit.FromCache = true
		return &hit, nil
	}

	var resp *github.Response
	raw, err := retryWithBackoff(ctx, opts.Retry, "while fetching commit activity", func(ctx context.Context) ([]*github.WeeklyCommitActivity, error) {
		var innerErr error
		var weeks []*github.WeeklyCommitActivity
		weeks, resp, innerErr = f.client.api.Repositories.ListCommitActivity(ctx, owner, repo)
		return weeks, innerErr
	})
	if err != nil {
		return nil, err
	}

	result := &Result[WeeklyActivity]{Records: make([]WeeklyActivity, 0, len(raw)), RateLimit: rateInfo(resp)}
	for _, w := range raw {
		wa := WeeklyActivity{
			WeekStart: getTimeValue(w.Week),
			Total:     getIntValue(w.Total),
		}
		for i, d := range w.Days {
			if i < len(wa.Days) {
				wa.Days[i] = d
			}
		}
		result.Records = append(result.Records, wa)
	}
	f.cache.Set(key, result)
	return result, nil
}

// convertCommit maps a raw commit onto the record type. A missing or
// unparsable author date becomes the zero time, which aggregation skips.
func convertCommit(rc *github.RepositoryCommit) Commit {
	c := Commit{SHA: getStringValue(rc.SHA)}
	if rc.Author != nil {
		c.AuthorLogin = getStringValue(rc.Author.Login)
	}
	if rc.Commit != nil {
		c.Message = getStringValue(rc.Commit.Message)
		if rc.Commit.Author != nil {
			c.AuthorName = getStringValue(rc.Commit.Author.Name)
			c.Date = getTimeValue(rc.Commit.Author.Date)
		}
	}
	return c
}

// convertPullRequest maps a raw pull request onto the record type. A PR
// with a merge timestamp is reported as merged regardless of the raw
// closed state.
func convertPullRequest(pr *github.PullRequest) PullRequest {
	record := PullRequest{
		Number:    getIntValue(pr.Number),
		Title:     getStringValue(pr.Title),
		State:     getStringValue(pr.State),
		CreatedAt: getTimeValue(pr.CreatedAt),
		MergedAt:  getTimePointer(pr.MergedAt),
		ClosedAt:  getTimePointer(pr.ClosedAt),
		Additions: getIntValue(pr.Additions),
		Deletions: getIntValue(pr.Deletions),
		IsDraft:   getBoolValue(pr.Draft),
	}
	if pr.User != nil {
		record.Author = getStringValue(pr.User.Login)
	}
	if pr.Head != nil {
		record.HeadRef = getStringValue(pr.Head.Ref)
	}
	for _, l := range pr.Labels {
		record.Labels = append(record.Labels, getStringValue(l.Name))
	}
	if record.MergedAt != nil {
		record.State = "merged"
	}
	return record
}
