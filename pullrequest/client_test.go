package pullrequest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sprint-metrics/config"
	"sprint-metrics/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const twoRecords = `[
  {"ID":"a","Number":1,"Title":"first","BaseRefName":"main","HeadRefName":"feature/a",
   "Author":{"Login":"shiiyan","AvatarURL":"https://a"},"Repository":{"Name":"api"},
   "URL":"https://github.com/acme/api/pull/1","CreatedAt":"2024-01-01T00:00:00Z",
   "FirstReviewed":"2024-01-01T02:00:00Z","LastApproved":null,"MergedAt":"2024-01-02T00:00:00Z"},
  {"ID":"b","Number":2,"Title":"second","BaseRefName":"main","HeadRefName":"feature/b",
   "Author":{"AvatarURL":"https://b"},"Repository":{"Name":"api"},
   "URL":"https://github.com/acme/api/pull/2","CreatedAt":"2024-01-01T00:00:00Z",
   "FirstReviewed":null,"LastApproved":null,"MergedAt":null},
  {"ID":"c","Number":"three"}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc, logger *zap.Logger, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{APIBaseURL: srv.URL, TimeoutSeconds: 5}, logger, opts...)
}

func testQuery() Query {
	return Query{
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		Developers: []string{"shiiyan", "y-oga-819"},
	}
}

func TestFetchPullRequestsBuildsQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	var gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}, nil)

	result, err := client.FetchPullRequests(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Empty(t, result.PullRequests)
	assert.Equal(t, "/api/pull_requests", gotPath)
	assert.Equal(t, []string{"2024-01-01"}, gotQuery["startdate"])
	assert.Equal(t, []string{"2024-01-14"}, gotQuery["enddate"])
	assert.Equal(t, []string{"shiiyan", "y-oga-819"}, gotQuery["developers"])
	assert.NotEmpty(t, gotRequestID)
}

func TestFetchPullRequestsOmitsEmptyDevelopers(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`[]`))
	}, nil)

	q := testQuery()
	q.Developers = nil
	_, err := client.FetchPullRequests(context.Background(), q)
	require.NoError(t, err)

	assert.NotContains(t, gotQuery, "developers")
}

func TestFetchPullRequestsDropsInvalidRecords(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	collector := telemetry.NewCollector()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(twoRecords))
	}, zap.New(core), WithTelemetry(collector))

	result, err := client.FetchPullRequests(context.Background(), testQuery())
	require.NoError(t, err)

	require.Len(t, result.PullRequests, 1)
	assert.Equal(t, 1, result.PullRequests[0].ID)
	assert.Nil(t, result.PullRequests[0].LastApproved)

	require.Len(t, result.Warnings, 2)
	assert.Equal(t, 1, result.Warnings[0].Index)
	assert.Equal(t, 2, result.Warnings[0].Number)
	assert.ErrorIs(t, result.Warnings[0], ErrInvalidRecord)
	assert.Equal(t, 2, result.Warnings[1].Index)
	assert.ErrorIs(t, result.Warnings[1], ErrInvalidRecord)

	assert.Equal(t, 2, logs.FilterMessage("dropping invalid pull request record").Len())
	assert.Equal(t, 1.0, counterValue(t, collector, "pull_request_records_total", "accepted"))
	assert.Equal(t, 2.0, counterValue(t, collector, "pull_request_records_total", "dropped"))
}

func TestFetchPullRequestsErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
				assert.Equal(t, "boom", httpErr.Body)
			},
		},
		{
			name: "html content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html></html>"))
			},
			check: func(t *testing.T, err error) {
				var formatErr *FormatError
				require.True(t, errors.As(err, &formatErr))
				assert.Equal(t, "text/html", formatErr.ContentType)
			},
		},
		{
			name: "object body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"error":"nope"}`))
			},
			check: func(t *testing.T, err error) {
				var formatErr *FormatError
				assert.True(t, errors.As(err, &formatErr))
			},
		},
		{
			name: "null body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`null`))
			},
			check: func(t *testing.T, err error) {
				var formatErr *FormatError
				assert.True(t, errors.As(err, &formatErr))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, nil)

			_, err := client.FetchPullRequests(context.Background(), testQuery())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchPullRequestsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewClient(config.Config{APIBaseURL: base, TimeoutSeconds: 1}, nil)
	_, err := client.FetchPullRequests(context.Background(), testQuery())

	var networkErr *NetworkError
	assert.True(t, errors.As(err, &networkErr))
}

func counterValue(t *testing.T, c *telemetry.Collector, name, result string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
