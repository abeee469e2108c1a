package metrics

import (
	"sort"
	"time"

	"sprint-metrics/batch"
	"sprint-metrics/pullrequest"
	"sprint-metrics/sprint"
)

// WorkingDaysPerSprint is the sprint length assumed by DevDayDeveloper
const WorkingDaysPerSprint = 5

// Metrics is a single chart point: a score keyed by sprint
type Metrics struct {
	SprintID int     `json:"sprint_id"`
	Score    float64 `json:"score"`
}

// SprintMetrics bundles every metric computed for one sprint
type SprintMetrics struct {
	PRCount            Metrics `json:"pr_count"`
	DevDayDeveloper    Metrics `json:"dev_day_developer"`
	UntilFirstReviewed Metrics `json:"until_first_reviewed"`
	UntilLastApproved  Metrics `json:"until_last_approved"`
	UntilMerged        Metrics `json:"until_merged"`
}

// Series holds one list per metric, each ordered by sprint id ascending
type Series struct {
	PRCount            []Metrics `json:"pr_count"`
	DevDayDeveloper    []Metrics `json:"dev_day_developer"`
	UntilFirstReviewed []Metrics `json:"until_first_reviewed"`
	UntilLastApproved  []Metrics `json:"until_last_approved"`
	UntilMerged        []Metrics `json:"until_merged"`
}

// averageSeconds is the mean of to-from in seconds over pull requests that
// have both stages; 0 when none do.
func averageSeconds(prs []pullrequest.PullRequest, from, to func(pullrequest.PullRequest) *time.Time) float64 {
	var total float64
	var count int
	for _, pr := range prs {
		f, t := from(pr), to(pr)
		if f == nil || t == nil {
			continue
		}
		total += t.Sub(*f).Seconds()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func created(pr pullrequest.PullRequest) *time.Time       { return &pr.Created }
func firstReviewed(pr pullrequest.PullRequest) *time.Time { return pr.FirstReviewed }
func lastApproved(pr pullrequest.PullRequest) *time.Time  { return pr.LastApproved }
func mergedAt(pr pullrequest.PullRequest) *time.Time      { return pr.Merged }

// UntilFirstReviewed is the mean time from creation to first review in seconds
func UntilFirstReviewed(prs []pullrequest.PullRequest) float64 {
	return averageSeconds(prs, created, firstReviewed)
}

// UntilLastApproved is the mean time from first review to last approval in seconds
func UntilLastApproved(prs []pullrequest.PullRequest) float64 {
	return averageSeconds(prs, firstReviewed, lastApproved)
}

// UntilMerged is the mean time from last approval to merge in seconds
func UntilMerged(prs []pullrequest.PullRequest) float64 {
	return averageSeconds(prs, lastApproved, mergedAt)
}

func PRCount(prs []pullrequest.PullRequest) int {
	return len(prs)
}

// DevDayDeveloper is merged pull requests per developer per working day
func DevDayDeveloper(prCount, memberCount int) float64 {
	if memberCount == 0 {
		return 0
	}
	return float64(prCount) / float64(memberCount) / WorkingDaysPerSprint
}

// CalculateSprintMetrics computes every metric for one sprint bucket
func CalculateSprintMetrics(s sprint.Sprint, prs []pullrequest.PullRequest) SprintMetrics {
	count := PRCount(prs)
	return SprintMetrics{
		PRCount:            Metrics{SprintID: s.ID, Score: float64(count)},
		DevDayDeveloper:    Metrics{SprintID: s.ID, Score: DevDayDeveloper(count, len(s.Members))},
		UntilFirstReviewed: Metrics{SprintID: s.ID, Score: UntilFirstReviewed(prs)},
		UntilLastApproved:  Metrics{SprintID: s.ID, Score: UntilLastApproved(prs)},
		UntilMerged:        Metrics{SprintID: s.ID, Score: UntilMerged(prs)},
	}
}

// BuildSeries computes the metrics of every bucket and assembles one series
// per metric ordered by sprint id. Buckets whose sprint id is unknown are
// skipped.
func BuildSeries(sprints []sprint.Sprint, buckets []batch.SprintPullRequests) Series {
	byID := make(map[int]sprint.Sprint, len(sprints))
	for _, s := range sprints {
		byID[s.ID] = s
	}

	all := make([]SprintMetrics, 0, len(buckets))
	for _, b := range buckets {
		s, ok := byID[b.SprintID]
		if !ok {
			continue
		}
		all = append(all, CalculateSprintMetrics(s, b.PullRequests))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PRCount.SprintID < all[j].PRCount.SprintID })

	series := Series{
		PRCount:            make([]Metrics, 0, len(all)),
		DevDayDeveloper:    make([]Metrics, 0, len(all)),
		UntilFirstReviewed: make([]Metrics, 0, len(all)),
		UntilLastApproved:  make([]Metrics, 0, len(all)),
		UntilMerged:        make([]Metrics, 0, len(all)),
	}
	for _, m := range all {
		series.PRCount = append(series.PRCount, m.PRCount)
		series.DevDayDeveloper = append(series.DevDayDeveloper, m.DevDayDeveloper)
		series.UntilFirstReviewed = append(series.UntilFirstReviewed, m.UntilFirstReviewed)
		series.UntilLastApproved = append(series.UntilLastApproved, m.UntilLastApproved)
		series.UntilMerged = append(series.UntilMerged, m.UntilMerged)
	}
	return series
}
