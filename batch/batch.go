package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sprint-metrics/pullrequest"
	"sprint-metrics/sprint"
)

// EpicPrefix marks aggregate branches that are excluded from sprint metrics
const EpicPrefix = "epic/"

// Fetcher is the single range query the batch is built on
type Fetcher interface {
	FetchPullRequests(ctx context.Context, q pullrequest.Query) (pullrequest.Result, error)
}

// SprintPullRequests is one sprint's bucket
type SprintPullRequests struct {
	SprintID     int                       `json:"sprint_id"`
	PullRequests []pullrequest.PullRequest `json:"pull_requests"`
}

// DateRange returns the earliest start date and the latest end date across
// all sprints. ok is false for an empty list.
func DateRange(sprints []sprint.Sprint) (start, end time.Time, ok bool) {
	if len(sprints) == 0 {
		return time.Time{}, time.Time{}, false
	}
	start, end = sprints[0].StartDate, sprints[0].EndDate
	for _, s := range sprints[1:] {
		if s.StartDate.Before(start) {
			start = s.StartDate
		}
		if s.EndDate.After(end) {
			end = s.EndDate
		}
	}
	return start, end, true
}

// Developers returns the distinct member names of all sprints in order of
// first appearance.
func Developers(sprints []sprint.Sprint) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range sprints {
		for _, m := range s.Members {
			if !seen[m.Name] {
				seen[m.Name] = true
				names = append(names, m.Name)
			}
		}
	}
	return names
}

// ExcludeEpics drops pull requests whose source branch starts with "epic/"
func ExcludeEpics(prs []pullrequest.PullRequest) []pullrequest.PullRequest {
	filtered := make([]pullrequest.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if strings.HasPrefix(pr.BranchName, EpicPrefix) {
			continue
		}
		filtered = append(filtered, pr)
	}
	return filtered
}

// Partition assigns every merged pull request to each sprint whose window
// contains its merge time. Unmerged pull requests land in no bucket. The
// result has one entry per sprint in input order.
func Partition(prs []pullrequest.PullRequest, sprints []sprint.Sprint) []SprintPullRequests {
	buckets := make([]SprintPullRequests, len(sprints))
	for i, s := range sprints {
		buckets[i] = SprintPullRequests{SprintID: s.ID, PullRequests: []pullrequest.PullRequest{}}
		for _, pr := range prs {
			if pr.Merged != nil && s.Contains(*pr.Merged) {
				buckets[i].PullRequests = append(buckets[i].PullRequests, pr)
			}
		}
	}
	return buckets
}

// FetchBuckets replaces one query per sprint with a single query over the
// union range and union developer set, then splits the result by merge date.
func FetchBuckets(ctx context.Context, f Fetcher, sprints []sprint.Sprint) ([]SprintPullRequests, []*pullrequest.InvalidRecordError, error) {
	start, end, ok := DateRange(sprints)
	if !ok {
		return []SprintPullRequests{}, nil, nil
	}

	result, err := f.FetchPullRequests(ctx, pullrequest.Query{
		StartDate:  start,
		EndDate:    end,
		Developers: Developers(sprints),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching pull requests for %d sprints: %w", len(sprints), err)
	}

	return Partition(ExcludeEpics(result.PullRequests), sprints), result.Warnings, nil
}

// FetchSprint fetches the pull requests of a single sprint, epic branches
// excluded, for the sprint detail view.
func FetchSprint(ctx context.Context, f Fetcher, s sprint.Sprint) ([]pullrequest.PullRequest, []*pullrequest.InvalidRecordError, error) {
	result, err := f.FetchPullRequests(ctx, pullrequest.Query{
		StartDate:  s.StartDate,
		EndDate:    s.EndDate,
		Developers: s.MemberNames(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching pull requests for sprint %d: %w", s.ID, err)
	}
	return ExcludeEpics(result.PullRequests), result.Warnings, nil
}
