package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/clinic/clinic/internal/domain/availability"
)

func seedFilterDoctors(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	svc, repo, _ := newTestService()
	ctx := context.Background()
	for _, req := range []CreateRequest{
		createRequest("Alice Morning", "alice@clinic.test", "Cardiology", "08:00-11:00"),
		createRequest("Bob Evening", "bob@clinic.test", "Cardiology", "13:00-17:00"),
		createRequest("Carol Allday", "carol@clinic.test", "Dermatology", "11:00-14:00"),
		createRequest("Alan Nowindows", "alan@clinic.test", "Dermatology"),
	} {
		if _, err := svc.Create(ctx, req); err != nil {
			t.Fatalf("seed %s: %v", req.Name, err)
		}
	}
	repo.calls = nil
	return svc, repo
}

func names(docs []*Doctor) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Name
	}
	return out
}

func TestFilter_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		lookup   string
		want     []string
	}{
		{"none", Criteria{}, "ListAll",
			[]string{"Alan Nowindows", "Alice Morning", "Bob Evening", "Carol Allday"}},
		{"name only", Criteria{Name: "al"}, "FindByName",
			[]string{"Alan Nowindows", "Alice Morning", "Carol Allday"}},
		{"specialty only", Criteria{Specialty: "cardiology"}, "FindBySpecialty",
			[]string{"Alice Morning", "Bob Evening"}},
		{"period only AM", Criteria{Period: "AM"}, "ListAll",
			[]string{"Alice Morning", "Carol Allday"}},
		{"period only PM", Criteria{Period: "pm"}, "ListAll",
			[]string{"Bob Evening", "Carol Allday"}},
		{"name and specialty", Criteria{Name: "al", Specialty: "Dermatology"}, "FindByNameAndSpecialty",
			[]string{"Alan Nowindows", "Carol Allday"}},
		{"name and period", Criteria{Name: "ALI", Period: "PM"}, "FindByName",
			[]string{}},
		{"specialty and period", Criteria{Specialty: "Cardiology", Period: "AM"}, "FindBySpecialty",
			[]string{"Alice Morning"}},
		{"all three", Criteria{Name: "carol", Specialty: "dermatology", Period: "AM"}, "FindByNameAndSpecialty",
			[]string{"Carol Allday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := seedFilterDoctors(t)

			docs, err := svc.Filter(context.Background(), tt.criteria)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(repo.calls) != 1 || repo.calls[0] != tt.lookup {
				t.Errorf("expected lookup %s, got %v", tt.lookup, repo.calls)
			}
			got := names(docs)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestFilter_InvalidPeriod(t *testing.T) {
	svc, repo := seedFilterDoctors(t)

	_, err := svc.Filter(context.Background(), Criteria{Period: "evening"})
	if !errors.Is(err, availability.ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
	if len(repo.calls) != 0 {
		t.Error("no lookup should run for an invalid period")
	}
}

func TestFilter_StorageFailure(t *testing.T) {
	svc, repo := seedFilterDoctors(t)
	repo.err = errors.New("timeout")

	_, err := svc.Filter(context.Background(), Criteria{})
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}
