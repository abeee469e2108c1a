package pullrequest

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Empty or unparsable input
// yields nil.
func ParseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseOptional(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return ParseTimestamp(*s)
}

// Transform validates a raw API record and converts it into a PullRequest.
// The returned error wraps ErrInvalidRecord when a required field is missing
// or the creation date cannot be parsed.
func Transform(rec APIRecord) (PullRequest, error) {
	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return PullRequest{}, fmt.Errorf("%w: missing %s", ErrInvalidRecord, verrs[0].Namespace())
		}
		return PullRequest{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	created := ParseTimestamp(rec.CreatedAt)
	if created == nil {
		return PullRequest{}, fmt.Errorf("%w: unparsable CreatedAt %q", ErrInvalidRecord, rec.CreatedAt)
	}

	return PullRequest{
		ID:            rec.Number,
		Title:         rec.Title,
		BranchName:    rec.HeadRefName,
		URL:           rec.URL,
		Username:      rec.Author.Login,
		IconURL:       rec.Author.AvatarURL,
		Repository:    rec.Repository.Name,
		Created:       *created,
		FirstReviewed: parseOptional(rec.FirstReviewed),
		LastApproved:  parseOptional(rec.LastApproved),
		Merged:        parseOptional(rec.MergedAt),
	}, nil
}
