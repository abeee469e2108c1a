package sprint

import "time"

var defaultTeam = []Member{
	{Name: "y-oga-819", IconURL: "https://avatars.githubusercontent.com/u/6323203?s=72&v=4"},
	{Name: "shiiyan", IconURL: "https://avatars.githubusercontent.com/u/36617009?s=72&v=4"},
	{Name: "yamaoka-chiwawa", IconURL: "https://avatars.githubusercontent.com/u/20041029?s=72&v=4"},
	{Name: "toshi-oliver", IconURL: "https://avatars.githubusercontent.com/u/39400536?s=72&v=4"},
	{Name: "EtsuhisaNakamura", IconURL: "https://avatars.githubusercontent.com/u/53359731?s=72&v=4"},
	{Name: "okamotoshuhei-binc", IconURL: "https://avatars.githubusercontent.com/u/6323203?s=72&v=4"},
}

// Default returns the built-in sprint list: weekly sprints starting
// Wednesday 2023-10-04. From sprint 11 the team has five members, and
// sprint 13 covers the two-week year-end break.
func Default() []Sprint {
	start := time.Date(2023, 10, 4, 0, 0, 0, 0, time.UTC)
	sprints := make([]Sprint, 0, 13)
	for id := 1; id <= 13; id++ {
		length := 7
		if id == 13 {
			length = 14
		}
		members := defaultTeam
		if id >= 11 {
			members = defaultTeam[:5]
		}
		sprints = append(sprints, Sprint{
			ID:        id,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, length-1),
			Members:   append([]Member(nil), members...),
		})
		start = start.AddDate(0, 0, length)
	}
	return sprints
}
