package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"sprint-metrics/metrics"
)

// Report is the exported result of one metrics run
type Report struct {
	Series      metrics.Series `json:"series"`
	Charts      metrics.Charts `json:"charts"`
	Dropped     int            `json:"dropped_records"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// New builds a report from computed series
func New(series metrics.Series, dropped int) Report {
	return Report{
		Series:      series,
		Charts:      metrics.BuildCharts(series),
		Dropped:     dropped,
		GeneratedAt: time.Now(),
	}
}

// ExportToJSON saves the report to a JSON file
func ExportToJSON(r Report, filename string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportToCSV saves the series to a CSV file
func ExportToCSV(series metrics.Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteCSV(file, series)
}

// WriteCSV writes one row per sprint with a column per metric
func WriteCSV(w io.Writer, series metrics.Series) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{
		"Sprint",
		"PR Count",
		"Dev/Day/Developer",
		"Until First Review (s)",
		"Until Last Approval (s)",
		"Until Merge (s)",
	})

	for i, m := range series.PRCount {
		writer.Write([]string{
			strconv.Itoa(m.SprintID),
			strconv.Itoa(int(m.Score)),
			fmt.Sprintf("%.2f", scoreAt(series.DevDayDeveloper, i)),
			fmt.Sprintf("%.0f", scoreAt(series.UntilFirstReviewed, i)),
			fmt.Sprintf("%.0f", scoreAt(series.UntilLastApproved, i)),
			fmt.Sprintf("%.0f", scoreAt(series.UntilMerged, i)),
		})
	}

	writer.Flush()
	return writer.Error()
}

func scoreAt(ms []metrics.Metrics, i int) float64 {
	if i >= len(ms) {
		return 0
	}
	return ms[i].Score
}

// PrintSummary writes a formatted summary to w
func PrintSummary(w io.Writer, r Report) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 72))
	fmt.Fprintln(w, "SPRINT DELIVERY METRICS REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 72))

	fmt.Fprintf(w, "%-8s %8s %12s %14s %14s %14s\n",
		"Sprint", "PRs", "Dev/Day/Dev", "First review", "Last approval", "Merge")
	fmt.Fprintln(w, strings.Repeat("-", 72))

	for i, m := range r.Series.PRCount {
		fmt.Fprintf(w, "%-8d %8d %12.2f %14s %14s %14s\n",
			m.SprintID,
			int(m.Score),
			scoreAt(r.Series.DevDayDeveloper, i),
			formatSeconds(scoreAt(r.Series.UntilFirstReviewed, i)),
			formatSeconds(scoreAt(r.Series.UntilLastApproved, i)),
			formatSeconds(scoreAt(r.Series.UntilMerged, i)),
		)
	}

	if r.Dropped > 0 {
		fmt.Fprintf(w, "\n%d invalid pull request records were skipped\n", r.Dropped)
	}
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 72))
}

func formatSeconds(s float64) string {
	return (time.Duration(s) * time.Second).Round(time.Minute).String()
}
