package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/availability"
)

const (
	StatusScheduled = 0
	StatusCompleted = 1
)

// SlotLength is the fixed duration of every appointment.
const SlotLength = time.Hour

const (
	dateLayout = "2006-01-02"
)

var timeLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"}

// Appointment is a one-hour booking of a doctor by a patient. AppointmentTime
// is wall-clock time in the clinic's zone.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	AppointmentTime time.Time `json:"appointment_time"`
	Status          int       `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a *Appointment) EndTime() time.Time {
	return a.AppointmentTime.Add(SlotLength)
}

// Date returns midnight of the appointment's calendar day.
func (a *Appointment) Date() time.Time {
	start, _ := availability.DayBounds(a.AppointmentTime)
	return start
}

func (a *Appointment) TimeOfDay() availability.TimeOfDay {
	return availability.TimeOfDayOf(a.AppointmentTime)
}

// Detail is an appointment joined with the names of both parties.
type Detail struct {
	Appointment
	DoctorName  string `json:"doctor_name"`
	PatientName string `json:"patient_name"`
}

// UpdateRequest carries the fields a patient may overwrite when rescheduling.
type UpdateRequest struct {
	DoctorID        uuid.UUID
	AppointmentTime time.Time
	Status          int
}

// BookRequest is the wire form of a new booking.
type BookRequest struct {
	DoctorID        string `json:"doctor_id" validate:"required,uuid"`
	AppointmentTime string `json:"appointment_time" validate:"required"`
}

type RescheduleRequest struct {
	DoctorID        string `json:"doctor_id" validate:"required,uuid"`
	AppointmentTime string `json:"appointment_time" validate:"required"`
	Status          int    `json:"status" validate:"min=0"`
}

type StatusRequest struct {
	Status int `json:"status" validate:"min=0"`
}

// ParseAppointmentTime reads "YYYY-MM-DDTHH:MM" (a space separator and
// trailing seconds are accepted) as wall-clock time in loc.
func ParseAppointmentTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid appointment time %q, expected YYYY-MM-DDTHH:MM", s)
}

// ParseDate reads "YYYY-MM-DD" as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
