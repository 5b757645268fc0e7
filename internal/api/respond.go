package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	"github.com/clinicore/clinic-scheduling/internal/fault"
	"github.com/clinicore/clinic-scheduling/internal/prescription"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeFault maps a classified error to an HTTP status and a stable
// machine-readable code. Business conditions are ordinary responses,
// never 500s.
func writeFault(w http.ResponseWriter, err error) {
	code := errorCode(err)

	switch fault.KindOf(err) {
	case fault.Validation:
		writeError(w, http.StatusBadRequest, code, err.Error())
	case fault.Conflict:
		writeError(w, http.StatusConflict, code, err.Error())
	case fault.Integrity:
		switch {
		case isNotFound(err):
			writeError(w, http.StatusNotFound, code, err.Error())
		case errors.Is(err, appointment.ErrForbidden):
			writeError(w, http.StatusForbidden, code, err.Error())
		default:
			writeError(w, http.StatusUnprocessableEntity, code, err.Error())
		}
	case fault.Unavailable:
		writeError(w, http.StatusServiceUnavailable, code, "a backing store is unavailable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, appointment.ErrAppointmentNotFound) ||
		errors.Is(err, appointment.ErrDoctorNotFound) ||
		errors.Is(err, appointment.ErrPatientNotFound) ||
		errors.Is(err, prescription.ErrPrescriptionNotFound)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, appointment.ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, appointment.ErrScheduleBusy), errors.Is(err, redisclient.ErrLockNotAcquired):
		return "schedule_busy"
	case errors.Is(err, appointment.ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, appointment.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, appointment.ErrForbidden):
		return "forbidden"
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		return "appointment_not_found"
	case errors.Is(err, appointment.ErrDoctorNotFound):
		return "doctor_not_found"
	case errors.Is(err, appointment.ErrPatientNotFound):
		return "patient_not_found"
	case errors.Is(err, prescription.ErrAppointmentNotEligible):
		return "appointment_not_eligible"
	case errors.Is(err, prescription.ErrAlreadyAttached):
		return "prescription_exists"
	case errors.Is(err, prescription.ErrPrescriptionNotFound):
		return "prescription_not_found"
	}

	if kind := fault.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal_error"
}
