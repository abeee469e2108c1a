package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sprint-metrics/config"
	"sprint-metrics/pullrequest"
	"sprint-metrics/sprint"
	"sprint-metrics/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu     sync.Mutex
	calls  int
	result pullrequest.Result
	err    error
}

func (f *stubFetcher) FetchPullRequests(_ context.Context, _ pullrequest.Query) (pullrequest.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *stubFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func at(t time.Time) *time.Time { return &t }

func testSprints() []sprint.Sprint {
	team := []sprint.Member{{Name: "alice"}, {Name: "bob"}}
	return []sprint.Sprint{
		{ID: 1, StartDate: day(1), EndDate: day(7), Members: team},
		{ID: 2, StartDate: day(8), EndDate: day(14), Members: team},
	}
}

func newTestServer(t *testing.T, f *stubFetcher) *httptest.Server {
	t.Helper()
	cfg := config.Config{APIBaseURL: "http://unused", TimeoutSeconds: 5}
	s := NewServer(cfg, testSprints(), f, telemetry.NewCollector(), nil)
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	code, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestGetMetrics(t *testing.T) {
	created := day(2)
	f := &stubFetcher{result: pullrequest.Result{PullRequests: []pullrequest.PullRequest{
		{ID: 1, BranchName: "feature/a", Created: created, FirstReviewed: at(created.Add(2 * time.Hour)), Merged: at(day(3))},
		{ID: 2, BranchName: "epic/a", Created: created, Merged: at(day(3))},
		{ID: 3, BranchName: "feature/b", Created: created, Merged: at(day(9))},
	}}}
	srv := newTestServer(t, f)

	code, body := getJSON(t, srv.URL+"/api/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["state"])

	data := body["data"].(map[string]interface{})
	series := data["series"].(map[string]interface{})
	prCount := series["pr_count"].([]interface{})
	require.Len(t, prCount, 2)
	assert.Equal(t, 1.0, prCount[0].(map[string]interface{})["score"])
	assert.Equal(t, 1.0, prCount[1].(map[string]interface{})["score"])
	first := series["until_first_reviewed"].([]interface{})
	assert.Equal(t, 7200.0, first[0].(map[string]interface{})["score"])

	getJSON(t, srv.URL+"/api/metrics")
	assert.Equal(t, 1, f.count(), "second request is served from the coordinator")

	getJSON(t, srv.URL+"/api/metrics?refresh=true")
	assert.Equal(t, 2, f.count())
}

func TestGetMetricsUpstreamFailure(t *testing.T) {
	f := &stubFetcher{err: &pullrequest.HTTPError{StatusCode: http.StatusInternalServerError}}
	srv := newTestServer(t, f)

	code, body := getJSON(t, srv.URL+"/api/metrics")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "status 500")
}

func TestGetMetricsCSV(t *testing.T) {
	f := &stubFetcher{result: pullrequest.Result{PullRequests: []pullrequest.PullRequest{
		{ID: 1, BranchName: "feature/a", Created: day(2), Merged: at(day(3))},
	}}}
	srv := newTestServer(t, f)

	resp, err := http.Get(srv.URL + "/api/metrics/csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1,1,0.10,"))
}

func TestGetSprintPullRequests(t *testing.T) {
	f := &stubFetcher{result: pullrequest.Result{
		PullRequests: []pullrequest.PullRequest{
			{ID: 5, BranchName: "feature/x", Created: day(9)},
			{ID: 6, BranchName: "epic/x", Created: day(9)},
		},
		Warnings: []*pullrequest.InvalidRecordError{{Index: 2, Err: pullrequest.ErrInvalidRecord}},
	}}
	srv := newTestServer(t, f)

	code, body := getJSON(t, srv.URL+"/api/sprints/2/pull_requests")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	prs := data["pull_requests"].([]interface{})
	require.Len(t, prs, 1)
	assert.Equal(t, 5.0, prs[0].(map[string]interface{})["id"])
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, 1.0, stats["dropped"])

	code, _ = getJSON(t, srv.URL+"/api/sprints/9/pull_requests")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = getJSON(t, srv.URL+"/api/sprints/abc/pull_requests")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetSprints(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})

	code, body := getJSON(t, srv.URL+"/api/sprints")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)
}

func TestPrometheusEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{})
	getJSON(t, srv.URL+"/health")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",route="/health",status_code="200"} 1`)
}
