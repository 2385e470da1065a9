package github

import "time"

// Commit is one commit record from the repository history. Date is the
// zero time when the upstream timestamp was missing or unparsable; such
// records are excluded from aggregation rather than crashing it.
type Commit struct {
	SHA         string    `json:"sha"`
	AuthorLogin string    `json:"author_login"` // empty when no account handle is known
	AuthorName  string    `json:"author_name"`
	Message     string    `json:"message"`
	Date        time.Time `json:"date"`
}

// FileChange is one file touched by a commit.
type FileChange struct {
	CommitSHA string `json:"commit_sha"`
	Filename  string `json:"filename"`
	Status    string `json:"status"` // added, modified, removed
	Changes   int    `json:"changes"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// CommitDetail pairs a commit with the files it changed.
type CommitDetail struct {
	Commit Commit       `json:"commit"`
	Files  []FileChange `json:"files"`
}

// PullRequest is one pull request record. A PR with MergedAt set is
// reported as merged regardless of the raw upstream state.
type PullRequest struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"` // open, closed, merged
	Author    string     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Labels    []string   `json:"labels,omitempty"`
	IsDraft   bool       `json:"is_draft"`
	HeadRef   string     `json:"head_ref"`
}

// Review is one review submitted on a pull request.
type Review struct {
	PRNumber    int       `json:"pr_number"`
	Reviewer    string    `json:"reviewer"`
	State       string    `json:"state"` // approved, changes_requested, commented
	SubmittedAt time.Time `json:"submitted_at"`
}

// Branch is one branch with its tip commit. Status (active/stale/merged)
// is derived downstream, not stored upstream.
type Branch struct {
	Name          string    `json:"name"`
	CommitSHA     string    `json:"commit_sha"`
	CommitDate    time.Time `json:"commit_date"`
	CommitAuthor  string    `json:"commit_author"`
	CommitMessage string    `json:"commit_message"`
	IsDefault     bool      `json:"is_default"`
}

// Contributor is one contributor with their total commit count as
// reported by the contributors endpoint.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	AvatarURL     string `json:"avatar_url"`
}

// Repository is repository metadata.
type Repository struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	DefaultBranch string    `json:"default_branch"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	PushedAt      time.Time `json:"pushed_at"`
}

// WeeklyActivity is one week of upstream commit-activity stats.
type WeeklyActivity struct {
	WeekStart time.Time `json:"week_start"`
	Total     int       `json:"total"`
	Days      [7]int    `json:"days"` // Sunday first
}

// RateLimitInfo is the rate-limit metadata carried by every API response.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}
