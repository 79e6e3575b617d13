package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/availability"
	"github.com/clinic/clinic/internal/domain/doctor"
)

// DoctorLookup resolves a doctor by id, returning doctor.ErrNotFound when
// absent.
type DoctorLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
}

type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictInvalid
	VerdictDoctorNotFound
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictInvalid:
		return "invalid"
	case VerdictDoctorNotFound:
		return "doctor not found"
	}
	return "unknown"
}

// Validator checks a requested time against a doctor's free slots.
type Validator struct {
	doctors DoctorLookup
	repo    Repository
}

func NewValidator(doctors DoctorLookup, repo Repository) *Validator {
	return &Validator{doctors: doctors, repo: repo}
}

// FreeSlots returns the doctor's bookable hours on date. An unknown doctor
// yields doctor.ErrNotFound.
func (v *Validator) FreeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	d, err := v.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return v.slotsFor(ctx, d, date, uuid.Nil)
}

// slotsFor computes free slots, treating the appointment with id ignore as
// not booked.
func (v *Validator) slotsFor(ctx context.Context, d *doctor.Doctor, date time.Time, ignore uuid.UUID) ([]string, error) {
	from, to := availability.DayBounds(date)
	appts, err := v.repo.ListByDoctorAndRange(ctx, d.ID, from, to)
	if err != nil {
		return nil, err
	}
	booked := make([]time.Time, 0, len(appts))
	for _, a := range appts {
		if a.ID == ignore {
			continue
		}
		booked = append(booked, a.AppointmentTime)
	}
	return availability.FreeSlots(d.AvailableTimes, booked), nil
}

// Validate reports whether requested is exactly one of the doctor's free
// slots on date. A requested time with minutes never matches.
func (v *Validator) Validate(ctx context.Context, doctorID uuid.UUID, date time.Time, requested availability.TimeOfDay) (Verdict, error) {
	slots, err := v.FreeSlots(ctx, doctorID, date)
	if errors.Is(err, doctor.ErrNotFound) {
		return VerdictDoctorNotFound, nil
	}
	if err != nil {
		return VerdictInvalid, err
	}
	if containsSlot(slots, requested) {
		return VerdictValid, nil
	}
	return VerdictInvalid, nil
}

func containsSlot(slots []string, t availability.TimeOfDay) bool {
	for _, s := range slots {
		slot, err := availability.ParseTimeOfDay(s)
		if err == nil && slot == t {
			return true
		}
	}
	return false
}
