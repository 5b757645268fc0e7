package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/prescription"
	"github.com/clinicore/clinic-scheduling/internal/query"
)

const dateLayout = "2006-01-02"

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "request carries no verified identity")
			return
		}

		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		// Patients book for themselves; doctors and admins may book on
		// a patient's behalf.
		if actor.Role == appointment.RolePatient && actor.UserID != patientID {
			writeError(w, http.StatusForbidden, "forbidden", "patients may only book their own appointments")
			return
		}

		appt, err := svc.Book(r.Context(), doctorID, patientID, req.StartTime, req.DurationMinutes)
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func transitionHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "request carries no verified identity")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		target := appointment.Status(req.Status)
		switch target {
		case appointment.StatusCompleted, appointment.StatusCancelled, appointment.StatusNoShow:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be completed, cancelled or no_show")
			return
		}

		appt, err := svc.Transition(r.Context(), id, target, actor)
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetByID(r.Context(), id)
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var appts []appointment.Appointment

		switch {
		case q.Get("doctor_id") != "":
			doctorID, err := uuid.Parse(q.Get("doctor_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			day, err := time.Parse(dateLayout, q.Get("date"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			appts, err = svc.FindByDoctorAndDate(r.Context(), doctorID, day)
			if err != nil {
				writeFault(w, err)
				return
			}

		case q.Get("patient_id") != "":
			patientID, err := uuid.Parse(q.Get("patient_id"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			limit, _ := strconv.Atoi(q.Get("limit"))
			offset, _ := strconv.Atoi(q.Get("offset"))
			appts, err = svc.FindByPatient(r.Context(), patientID, limit, offset)
			if err != nil {
				writeFault(w, err)
				return
			}

		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "doctor_id+date or patient_id is required")
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func freeSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		day, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.FreeSlots(r.Context(), doctorID, day)
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slots)
	}
}

func attachPrescriptionHandler(guard *prescription.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "request carries no verified identity")
			return
		}
		if actor.Role != appointment.RoleDoctor && actor.Role != appointment.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden", "only doctors may attach prescriptions")
			return
		}

		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req AttachPrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := guard.Attach(r.Context(), appointmentID, prescription.AttachPayload{
			PatientName: req.PatientName,
			Medication:  req.Medication,
			Dosage:      req.Dosage,
			DoctorNotes: req.DoctorNotes,
		})
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, p)
	}
}

func getPrescriptionHandler(guard *prescription.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		p, err := guard.GetByAppointment(r.Context(), appointmentID)
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func updatePrescriptionHandler(guard *prescription.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "request carries no verified identity")
			return
		}
		if actor.Role != appointment.RoleDoctor && actor.Role != appointment.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden", "only doctors may update prescriptions")
			return
		}

		id := chi.URLParam(r, "id")

		var req UpdatePrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := guard.Update(r.Context(), id, prescription.UpdatePayload{
			Medication:  req.Medication,
			Dosage:      req.Dosage,
			DoctorNotes: req.DoctorNotes,
		})
		if err != nil {
			writeFault(w, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func searchAppointmentsHandler(engine *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := criteriaFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_criteria", err.Error())
			return
		}

		views, err := engine.Appointments(r.Context(), criteria)
		if err != nil {
			writeFault(w, err)
			return
		}

		if views == nil {
			views = []query.AppointmentView{}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func searchPrescriptionsHandler(engine *query.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria, err := criteriaFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_criteria", err.Error())
			return
		}

		result, err := engine.Prescriptions(r.Context(), criteria)
		if err != nil {
			writeFault(w, err)
			return
		}

		if result == nil {
			result = []prescription.Prescription{}
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func criteriaFromQuery(r *http.Request) (query.Criteria, error) {
	q := r.URL.Query()
	var c query.Criteria

	if v := q.Get("doctor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c, err
		}
		c.DoctorID = &id
	}
	c.PatientNameContains = q.Get("patient_name")
	c.Specialty = q.Get("specialty")
	if v := q.Get("time_of_day"); v != "" {
		c.TimeOfDay = query.TimeOfDay(v)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return c, err
		}
		c.DateFrom = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return c, err
		}
		c.DateUntil = t
	}
	c.FreeText = q.Get("free_text")
	for _, raw := range q["appointment_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c, err
		}
		c.AppointmentIDs = append(c.AppointmentIDs, id)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, err
		}
		c.Limit = n
	}

	return c, nil
}
