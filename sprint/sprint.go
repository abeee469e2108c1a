package sprint

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

// Member is a developer taking part in a sprint
type Member struct {
	Name    string `json:"name" validate:"required"`
	IconURL string `json:"icon_url,omitempty"`
}

// Sprint is a calendar window with the developers working in it. Both
// dates are inclusive calendar days.
type Sprint struct {
	ID        int       `json:"id" validate:"required"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Members   []Member  `json:"members" validate:"dive"`
}

// Contains reports whether t falls on or after the start date and no later
// than the last instant of the end date.
func (s Sprint) Contains(t time.Time) bool {
	return !t.Before(s.StartDate) && t.Before(s.EndDate.AddDate(0, 0, 1))
}

// MemberNames returns the member names in sprint order
func (s Sprint) MemberNames() []string {
	names := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		names = append(names, m.Name)
	}
	return names
}

// sprintFile is the on-disk shape of a sprint, with plain date strings
type sprintFile struct {
	ID        int      `json:"id" validate:"required"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Members   []Member `json:"members" validate:"dive"`
}

var validate = validator.New()

// Validate checks that every sprint has start <= end, unique member names
// and that sprint ids are unique.
func Validate(sprints []Sprint) error {
	ids := make(map[int]bool, len(sprints))
	for _, s := range sprints {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("sprint %d: %w", s.ID, err)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate sprint id %d", s.ID)
		}
		ids[s.ID] = true

		if s.StartDate.After(s.EndDate) {
			return fmt.Errorf("sprint %d: start date %s is after end date %s",
				s.ID, s.StartDate.Format(DateLayout), s.EndDate.Format(DateLayout))
		}

		seen := make(map[string]bool, len(s.Members))
		for _, m := range s.Members {
			if seen[m.Name] {
				return fmt.Errorf("sprint %d: duplicate member %q", s.ID, m.Name)
			}
			seen[m.Name] = true
		}
	}
	return nil
}

// LoadFile reads a JSON array of sprints with YYYY-MM-DD dates
func LoadFile(filename string) ([]Sprint, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var raw []sprintFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}

	sprints := make([]Sprint, 0, len(raw))
	for _, r := range raw {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("sprint %d: %w", r.ID, err)
		}
		start, _ := time.Parse(DateLayout, r.StartDate)
		end, _ := time.Parse(DateLayout, r.EndDate)
		sprints = append(sprints, Sprint{ID: r.ID, StartDate: start, EndDate: end, Members: r.Members})
	}

	if err := Validate(sprints); err != nil {
		return nil, err
	}
	return sprints, nil
}
