package prescription

import (
	"time"
)

// Prescription lives in the document store. AppointmentID is a
// one-directional reference to a relational appointment row; nothing in
// the document store enforces it, the link guard does.
type Prescription struct {
	ID            string    `bson:"_id" json:"id"`
	AppointmentID string    `bson:"appointment_id" json:"appointment_id"`
	PatientName   string    `bson:"patient_name" json:"patient_name"`
	Medication    string    `bson:"medication" json:"medication"`
	Dosage        string    `bson:"dosage" json:"dosage"`
	DoctorNotes   *string   `bson:"doctor_notes,omitempty" json:"doctor_notes,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// AttachPayload is the caller-supplied content of a new prescription.
type AttachPayload struct {
	PatientName string
	Medication  string
	Dosage      string
	DoctorNotes *string
}

// UpdatePayload carries the fields the prescribing doctor may amend
// after creation. Nil fields are left untouched.
type UpdatePayload struct {
	Medication  *string
	Dosage      *string
	DoctorNotes *string
}

// Ref pairs a prescription with the appointment it claims to depend
// on; the reconciler walks these.
type Ref struct {
	PrescriptionID string
	AppointmentID  string
}
