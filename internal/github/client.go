// Package github is the thin REST client and fetch orchestration layer
// over the hosting API.
package github

import (
	"context"
	"net/http"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub API client. All raw failures are classified
// into the closed error taxonomy before leaving this package.
type Client struct {
	api *github.Client
}

// NewClient creates a client. An empty token yields an unauthenticated
// client with the lower anonymous rate limit.
func NewClient(token string) *Client {
	var tc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{api: github.NewClient(tc)}
}

// Repository fetches repository metadata.
func (c *Client) Repository(ctx context.Context, owner, repo string) (*Repository, RateLimitInfo, error) {
	r, resp, err := c.api.Repositories.Get(ctx, owner, repo)
	rate := rateInfo(resp)
	if err != nil {
		return nil, rate, classify(ctx, err, "while fetching repository")
	}
	return &Repository{
		Owner:         owner,
		Name:          getStringValue(r.Name),
		FullName:      getStringValue(r.FullName),
		Description:   getStringValue(r.Description),
		DefaultBranch: getStringValue(r.DefaultBranch),
		Stars:         getIntValue(r.StargazersCount),
		Forks:         getIntValue(r.ForksCount),
		OpenIssues:    getIntValue(r.OpenIssuesCount),
		PushedAt:      getTimeValue(r.PushedAt),
	}, rate, nil
}

// rateInfo extracts the rate-limit metadata from a response.
func rateInfo(resp *github.Response) RateLimitInfo {
	if resp == nil {
		return RateLimitInfo{}
	}
	return RateLimitInfo{
		Limit:     resp.Rate.Limit,
		Remaining: resp.Rate.Remaining,
		Reset:     resp.Rate.Reset.Time,
	}
}

// Helper functions for go-github's pointer-heavy types.
func getStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func getIntValue(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func getBoolValue(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func getTimeValue(t *github.Timestamp) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.Time
}

func getTimePointer(t *github.Timestamp) *time.Time {
	if t == nil {
		return nil
	}
	result := t.Time
	return &result
}
