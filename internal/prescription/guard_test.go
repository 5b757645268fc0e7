package prescription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/clock"
	"github.com/clinicore/clinic-scheduling/internal/fault"
)

type mockAppointments struct {
	mock.Mock
}

func (m *mockAppointments) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	args := m.Called(ctx, id)
	if appt := args.Get(0); appt != nil {
		return appt.(*appointment.Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

// memPrescriptionRepo backs guard and reconciler tests without a
// running document store.
type memPrescriptionRepo struct {
	mu   sync.Mutex
	byID map[string]Prescription
}

func newMemPrescriptionRepo() *memPrescriptionRepo {
	return &memPrescriptionRepo{byID: make(map[string]Prescription)}
}

func (m *memPrescriptionRepo) Insert(ctx context.Context, p Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	return nil
}

func (m *memPrescriptionRepo) GetByID(ctx context.Context, id string) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return &p, nil
}

func (m *memPrescriptionRepo) GetByAppointment(ctx context.Context, appointmentID string) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.AppointmentID == appointmentID {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrPrescriptionNotFound
}

func (m *memPrescriptionRepo) UpdateDetails(ctx context.Context, id string, payload UpdatePayload, now time.Time) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	if payload.Medication != nil {
		p.Medication = *payload.Medication
	}
	if payload.Dosage != nil {
		p.Dosage = *payload.Dosage
	}
	if payload.DoctorNotes != nil {
		p.DoctorNotes = payload.DoctorNotes
	}
	p.UpdatedAt = now
	m.byID[id] = p
	return &p, nil
}

func (m *memPrescriptionRepo) Search(ctx context.Context, filter SearchFilter) ([]Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Prescription
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPrescriptionRepo) ListRefs(ctx context.Context) ([]Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []Ref
	for _, p := range m.byID {
		refs = append(refs, Ref{PrescriptionID: p.ID, AppointmentID: p.AppointmentID})
	}
	return refs, nil
}

var guardNow = time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

func scheduledAppointment(id uuid.UUID) *appointment.Appointment {
	return &appointment.Appointment{
		ID:              id,
		DoctorID:        uuid.New(),
		PatientID:       uuid.New(),
		StartTime:       guardNow.Add(-time.Hour),
		DurationMinutes: 30,
		Status:          appointment.StatusScheduled,
	}
}

func validPayload() AttachPayload {
	return AttachPayload{
		PatientName: "Ada Osei",
		Medication:  "Amoxicillin",
		Dosage:      "500mg twice daily",
	}
}

func TestAttachToScheduledAppointment(t *testing.T) {
	apptID := uuid.New()
	appts := new(mockAppointments)
	appts.On("GetByID", mock.Anything, apptID).Return(scheduledAppointment(apptID), nil)

	repo := newMemPrescriptionRepo()
	g := NewGuard(appts, repo, clock.Fixed(guardNow), zerolog.Nop())

	p, err := g.Attach(context.Background(), apptID, validPayload())
	require.NoError(t, err)

	assert.Equal(t, apptID.String(), p.AppointmentID)
	assert.Equal(t, "Amoxicillin", p.Medication)
	assert.Equal(t, guardNow, p.CreatedAt)
	appts.AssertExpectations(t)

	stored, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.AppointmentID, stored.AppointmentID)
}

func TestAttachToCompletedAppointment(t *testing.T) {
	apptID := uuid.New()
	appt := scheduledAppointment(apptID)
	appt.Status = appointment.StatusCompleted

	appts := new(mockAppointments)
	appts.On("GetByID", mock.Anything, apptID).Return(appt, nil)

	g := NewGuard(appts, newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

	_, err := g.Attach(context.Background(), apptID, validPayload())
	assert.NoError(t, err)
}

func TestAttachRejectsCancelledAndNoShow(t *testing.T) {
	for _, status := range []appointment.Status{appointment.StatusCancelled, appointment.StatusNoShow} {
		t.Run(string(status), func(t *testing.T) {
			apptID := uuid.New()
			appt := scheduledAppointment(apptID)
			appt.Status = status

			appts := new(mockAppointments)
			appts.On("GetByID", mock.Anything, apptID).Return(appt, nil)

			g := NewGuard(appts, newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

			_, err := g.Attach(context.Background(), apptID, validPayload())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrAppointmentNotEligible)
			assert.Equal(t, fault.Integrity, fault.KindOf(err))
		})
	}
}

func TestAttachToMissingAppointment(t *testing.T) {
	apptID := uuid.New()
	appts := new(mockAppointments)
	appts.On("GetByID", mock.Anything, apptID).
		Return(nil, fault.Wrap(fault.Integrity, appointment.ErrAppointmentNotFound, "appointment %s", apptID))

	g := NewGuard(appts, newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

	_, err := g.Attach(context.Background(), apptID, validPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}

func TestAttachSecondPrescriptionRejected(t *testing.T) {
	apptID := uuid.New()
	appts := new(mockAppointments)
	appts.On("GetByID", mock.Anything, apptID).Return(scheduledAppointment(apptID), nil)

	repo := newMemPrescriptionRepo()
	g := NewGuard(appts, repo, clock.Fixed(guardNow), zerolog.Nop())

	_, err := g.Attach(context.Background(), apptID, validPayload())
	require.NoError(t, err)

	_, err = g.Attach(context.Background(), apptID, validPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
}

func TestAttachValidatesPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload AttachPayload
	}{
		{"missing patient name", AttachPayload{Medication: "X", Dosage: "Y"}},
		{"missing medication", AttachPayload{PatientName: "A", Dosage: "Y"}},
		{"missing dosage", AttachPayload{PatientName: "A", Medication: "X"}},
		{"blank fields", AttachPayload{PatientName: "  ", Medication: " ", Dosage: "\t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appts := new(mockAppointments)
			g := NewGuard(appts, newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

			_, err := g.Attach(context.Background(), uuid.New(), tt.payload)
			require.Error(t, err)
			assert.Equal(t, fault.Validation, fault.KindOf(err))

			// validation fails before the relational store is consulted
			appts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateDoesNotRecheckAppointment(t *testing.T) {
	apptID := uuid.New()
	appts := new(mockAppointments)
	appts.On("GetByID", mock.Anything, apptID).Return(scheduledAppointment(apptID), nil).Once()

	repo := newMemPrescriptionRepo()
	g := NewGuard(appts, repo, clock.Fixed(guardNow), zerolog.Nop())

	p, err := g.Attach(context.Background(), apptID, validPayload())
	require.NoError(t, err)

	dosage := "250mg once daily"
	updated, err := g.Update(context.Background(), p.ID, UpdatePayload{Dosage: &dosage})
	require.NoError(t, err)
	assert.Equal(t, dosage, updated.Dosage)
	assert.Equal(t, "Amoxicillin", updated.Medication)

	// the single GetByID from Attach is the only relational read
	appts.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestUpdateRequiresAField(t *testing.T) {
	g := NewGuard(new(mockAppointments), newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

	_, err := g.Update(context.Background(), uuid.NewString(), UpdatePayload{})
	require.Error(t, err)
	assert.Equal(t, fault.Validation, fault.KindOf(err))
}

func TestUpdateRejectsBlankValues(t *testing.T) {
	g := NewGuard(new(mockAppointments), newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

	blank := "  "
	_, err := g.Update(context.Background(), uuid.NewString(), UpdatePayload{Medication: &blank})
	require.Error(t, err)
	assert.Equal(t, fault.Validation, fault.KindOf(err))
}

func TestUpdateUnknownPrescription(t *testing.T) {
	g := NewGuard(new(mockAppointments), newMemPrescriptionRepo(), clock.Fixed(guardNow), zerolog.Nop())

	med := "Ibuprofen"
	_, err := g.Update(context.Background(), uuid.NewString(), UpdatePayload{Medication: &med})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}

func TestGetByAppointment(t *testing.T) {
	apptID := uuid.New()
	appts := new(mockAppointments)
	appts.On("GetByID", mock.Anything, apptID).Return(scheduledAppointment(apptID), nil)

	repo := newMemPrescriptionRepo()
	g := NewGuard(appts, repo, clock.Fixed(guardNow), zerolog.Nop())

	created, err := g.Attach(context.Background(), apptID, validPayload())
	require.NoError(t, err)

	got, err := g.GetByAppointment(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = g.GetByAppointment(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrescriptionNotFound)
}
