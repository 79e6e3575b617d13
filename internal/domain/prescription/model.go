package prescription

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Prescription is written by a doctor against an appointment. An appointment
// may carry several.
type Prescription struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AppointmentID string             `json:"appointment_id" bson:"appointment_id"`
	DoctorID      string             `json:"doctor_id" bson:"doctor_id"`
	PatientName   string             `json:"patient_name" bson:"patient_name"`
	Medication    string             `json:"medication" bson:"medication"`
	Dosage        string             `json:"dosage" bson:"dosage"`
	DoctorNotes   string             `json:"doctor_notes,omitempty" bson:"doctor_notes,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

type CreateRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	PatientName   string `json:"patient_name" validate:"required,min=3,max=100"`
	Medication    string `json:"medication" validate:"required,min=3,max=100"`
	Dosage        string `json:"dosage" validate:"required"`
	DoctorNotes   string `json:"doctor_notes" validate:"max=200"`
}

// SaveResult reports whether the follow-up status change reached the
// appointment. The prescription is stored either way.
type SaveResult struct {
	Prescription  *Prescription `json:"prescription"`
	StatusUpdated bool          `json:"status_updated"`
}
