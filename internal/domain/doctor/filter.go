package doctor

import (
	"context"
	"strings"

	"github.com/clinic/clinic/internal/domain/availability"
)

// Criteria narrows a doctor search. Empty fields are ignored.
type Criteria struct {
	Name      string
	Specialty string
	// Period is "AM" or "PM" in any case.
	Period string
}

// Filter picks the narrowest lookup for the fields that are set, then keeps
// only doctors with a window in the requested period. Name is a
// case-insensitive substring; specialty a case-insensitive match.
func (s *Service) Filter(ctx context.Context, c Criteria) ([]*Doctor, error) {
	name := strings.TrimSpace(c.Name)
	specialty := strings.TrimSpace(c.Specialty)

	var period availability.Period
	if p := strings.TrimSpace(c.Period); p != "" {
		parsed, err := availability.ParsePeriod(p)
		if err != nil {
			return nil, err
		}
		period = parsed
	}

	var (
		docs []*Doctor
		err  error
	)
	switch {
	case name != "" && specialty != "":
		docs, err = s.repo.FindByNameAndSpecialty(ctx, name, specialty)
	case name != "":
		docs, err = s.repo.FindByName(ctx, name)
	case specialty != "":
		docs, err = s.repo.FindBySpecialty(ctx, specialty)
	default:
		docs, err = s.repo.ListAll(ctx)
	}
	if err != nil {
		return nil, s.wrap("filter doctors", err)
	}

	if period == "" {
		return docs, nil
	}
	matched := make([]*Doctor, 0, len(docs))
	for _, d := range docs {
		if availability.MatchesAnyWindow(d.AvailableTimes, period) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}
