package pullrequest

import "time"

// types.go - Data structures for the pull request API

// PullRequest represents a pull request as consumed by the metrics pipeline
type PullRequest struct {
	ID            int        `json:"id"`
	Title         string     `json:"title"`
	BranchName    string     `json:"branch_name"`
	URL           string     `json:"url"`
	Username      string     `json:"username"`
	IconURL       string     `json:"icon_url"`
	Repository    string     `json:"repository"`
	Created       time.Time  `json:"created"`
	FirstReviewed *time.Time `json:"first_reviewed,omitempty"`
	LastApproved  *time.Time `json:"last_approved,omitempty"`
	Merged        *time.Time `json:"merged,omitempty"`
}

// InOrder reports whether the lifecycle timestamps that are present are
// non-decreasing: created <= first reviewed <= last approved <= merged.
func (pr PullRequest) InOrder() bool {
	prev := pr.Created
	for _, t := range []*time.Time{pr.FirstReviewed, pr.LastApproved, pr.Merged} {
		if t == nil {
			continue
		}
		if t.Before(prev) {
			return false
		}
		prev = *t
	}
	return true
}

// APIRecord is one element of the JSON array returned by
// GET /api/pull_requests.
type APIRecord struct {
	ID            string        `json:"ID"`
	Number        int           `json:"Number" validate:"required"`
	Title         string        `json:"Title" validate:"required"`
	BaseRefName   string        `json:"BaseRefName"`
	HeadRefName   string        `json:"HeadRefName" validate:"required"`
	Author        APIAuthor     `json:"Author"`
	Repository    APIRepository `json:"Repository"`
	URL           string        `json:"URL" validate:"required"`
	CreatedAt     string        `json:"CreatedAt" validate:"required"`
	FirstReviewed *string       `json:"FirstReviewed"`
	LastApproved  *string       `json:"LastApproved"`
	MergedAt      *string       `json:"MergedAt"`
}

type APIAuthor struct {
	Login     string `json:"Login" validate:"required"`
	AvatarURL string `json:"AvatarURL" validate:"required"`
}

type APIRepository struct {
	Name string `json:"Name" validate:"required"`
}

// Query selects pull requests merged or created within an inclusive date
// range, optionally restricted to a set of developers.
type Query struct {
	StartDate  time.Time
	EndDate    time.Time
	Developers []string
}

// Result holds the records that passed validation plus one warning for every
// record that was dropped.
type Result struct {
	PullRequests []PullRequest
	Warnings     []*InvalidRecordError
}
