package metrics

// Dataset is one bar series of a chart
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor"`
}

// Chart is a bar chart with one label per sprint
type Chart struct {
	Title    string    `json:"title"`
	Labels   []int     `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Charts is the full set of charts shown on the dashboard
type Charts struct {
	Stages          Chart `json:"stages"`
	PRCount         Chart `json:"pr_count"`
	DevDayDeveloper Chart `json:"dev_day_developer"`
}

const (
	colorRed   = "rgb(255, 99, 132)"
	colorGreen = "rgb(75, 192, 192)"
	colorBlue  = "rgb(53, 162, 235)"
)

func labels(ms []Metrics) []int {
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.SprintID)
	}
	return out
}

func scores(ms []Metrics) []float64 {
	out := make([]float64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Score)
	}
	return out
}

// BuildCharts turns series into chart-ready datasets. The stage chart stacks
// the three review stage durations (seconds) per sprint.
func BuildCharts(s Series) Charts {
	return Charts{
		Stages: Chart{
			Title:  "Development metrics per sprint",
			Labels: labels(s.UntilFirstReviewed),
			Datasets: []Dataset{
				{Label: "Time until first review", Data: scores(s.UntilFirstReviewed), BackgroundColor: colorRed},
				{Label: "Time until last approval", Data: scores(s.UntilLastApproved), BackgroundColor: colorGreen},
				{Label: "Time until merge", Data: scores(s.UntilMerged), BackgroundColor: colorBlue},
			},
		},
		PRCount: Chart{
			Title:  "Pull requests per sprint",
			Labels: labels(s.PRCount),
			Datasets: []Dataset{
				{Label: "PR count", Data: scores(s.PRCount), BackgroundColor: colorGreen},
			},
		},
		DevDayDeveloper: Chart{
			Title:  "Dev / Day / Developer",
			Labels: labels(s.DevDayDeveloper),
			Datasets: []Dataset{
				{Label: "Dev / Day / Developer", Data: scores(s.DevDayDeveloper), BackgroundColor: colorGreen},
			},
		},
	}
}
