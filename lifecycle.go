package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

/**************************
 ******* Slot Table *******
 **************************/

const (
	slotMin = 1
	slotMax = 4
)

// Fixed daily appointment windows, indexed by slot number.
var slotTimes = [...]string{
	"9:00 AM - 11:00 AM",
	"11:00 AM - 1:00 PM",
	"2:00 PM - 4:00 PM",
	"4:00 PM - 6:00 PM",
}

func validSlot(slot int) bool {
	return slot >= slotMin && slot <= slotMax
}

func slotLabel(slot int) string {
	if !validSlot(slot) {
		return ""
	}
	return slotTimes[slot-1]
}

/**************************
 **** Lifecycle Rules *****
 **************************/

type AppointmentAction string

const (
	ActionApprove    AppointmentAction = "approve"
	ActionReject     AppointmentAction = "reject"
	ActionCancel     AppointmentAction = "cancel"
	ActionReschedule AppointmentAction = "reschedule"
)

type actionParams struct {
	NewDate string
	NewSlot int
}

// legalActions returns the actions a role may take on an appointment in its
// current status. Doctors decide on pending requests; patients manage their
// booked ones. Terminal statuses offer nothing.
func legalActions(role Role, appt Appointment) []AppointmentAction {
	switch role {
	case RoleDoctor:
		if appt.Status == StatusPending {
			return []AppointmentAction{ActionApprove, ActionReject}
		}
	case RolePatient:
		if appt.Status == StatusBooked {
			return []AppointmentAction{ActionReschedule, ActionCancel}
		}
	}
	return nil
}

func canPerform(role Role, appt Appointment, action AppointmentAction) bool {
	for _, legal := range legalActions(role, appt) {
		if legal == action {
			return true
		}
	}
	return false
}

// applyAction computes the appointment state after a confirmed action. It is
// pure: validation failures return a ValidationError and leave the input
// untouched. Rescheduling always resets the status to PENDING so the doctor
// has to approve the new time.
func applyAction(appt Appointment, action AppointmentAction, params actionParams) (Appointment, error) {
	switch action {
	case ActionApprove:
		if appt.Status != StatusPending {
			return appt, &ValidationError{Message: "Only pending appointments can be approved"}
		}
		appt.Status = StatusBooked
	case ActionReject:
		if appt.Status != StatusPending {
			return appt, &ValidationError{Message: "Only pending appointments can be rejected"}
		}
		appt.Status = StatusRejected
	case ActionCancel:
		if appt.Status != StatusBooked {
			return appt, &ValidationError{Message: "Only booked appointments can be cancelled"}
		}
		appt.Status = StatusCancelled
	case ActionReschedule:
		if appt.Status != StatusBooked {
			return appt, &ValidationError{Message: "Only booked appointments can be rescheduled"}
		}
		if params.NewDate == "" {
			return appt, &ValidationError{Message: "Please select a new date"}
		}
		newDate, err := parseDate(params.NewDate)
		if err != nil {
			return appt, &ValidationError{Message: "invalid date format; use YYYY-MM-DD"}
		}
		if !validSlot(params.NewSlot) {
			return appt, &ValidationError{Message: fmt.Sprintf("slot must be between %d and %d", slotMin, slotMax)}
		}
		appt.Date = Date{Time: newDate}
		appt.Slot = params.NewSlot
		appt.Status = StatusPending
		appt.IsRescheduled = 1
	default:
		return appt, &ValidationError{Message: "Unknown action"}
	}
	return appt, nil
}

/**************************
 ***** Action Dispatch ****
 **************************/

// LifecycleController dispatches appointment actions against the remote API.
// Transitions are never applied locally: a successful call is followed by a
// full list re-fetch so the working set cannot drift from server state.
type LifecycleController struct {
	client *APIClient

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newLifecycleController(client *APIClient) *LifecycleController {
	return &LifecycleController{
		client:   client,
		inFlight: map[string]struct{}{},
	}
}

// begin marks an action on an entity as in progress. It reports false when
// the same action on the same entity has not completed yet, which blocks
// duplicate submission without restricting unrelated concurrent actions.
func (lc *LifecycleController) begin(key string) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if _, exists := lc.inFlight[key]; exists {
		return false
	}
	lc.inFlight[key] = struct{}{}
	return true
}

func (lc *LifecycleController) end(key string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	delete(lc.inFlight, key)
}

// Appointments fetches the role-appropriate appointment list, ordered by date
// and slot. Patient and doctor variants hit different endpoints but share the
// return shape.
func (lc *LifecycleController) Appointments(ctx context.Context, token string, role Role) ([]Appointment, error) {
	var (
		appointments []Appointment
		err          error
	)
	switch role {
	case RolePatient:
		appointments, err = lc.client.PatientAppointments(ctx, token)
	case RoleDoctor:
		appointments, err = lc.client.DoctorAppointments(ctx, token)
	default:
		return nil, &ValidationError{Message: "No appointment list for this role"}
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(appointments, func(i, j int) bool {
		if !appointments[i].Date.Equal(appointments[j].Date.Time) {
			return appointments[i].Date.Before(appointments[j].Date.Time)
		}
		return appointments[i].Slot < appointments[j].Slot
	})
	return appointments, nil
}

// Dispatch validates an action locally, then requests it from the remote API.
// The appointment passed in reflects the last fetched state; the collaborator
// remains the authority and may still refuse. No local state is mutated; on
// success the caller re-fetches the list.
func (lc *LifecycleController) Dispatch(ctx context.Context, token string, ident Identity, appt Appointment, action AppointmentAction, params actionParams) error {
	if !canPerform(ident.Role, appt, action) {
		return &ValidationError{Message: "This action is not available"}
	}

	// Dry-run the transition; invalid input fails before any network call
	if _, err := applyAction(appt, action, params); err != nil {
		return err
	}

	key := fmt.Sprintf("%s:%d", action, appt.ID)
	if !lc.begin(key) {
		return &ValidationError{Message: "This action is already in progress"}
	}
	defer lc.end(key)

	var err error
	switch action {
	case ActionApprove:
		err = lc.client.Approve(ctx, token, appt.ID)
	case ActionReject:
		err = lc.client.Reject(ctx, token, appt.ID)
	case ActionCancel:
		err = lc.client.PatientCancel(ctx, token, appt.ID)
	case ActionReschedule:
		_, err = lc.client.Reschedule(ctx, token, appt.ID, params.NewDate, params.NewSlot)
	}
	if err != nil {
		return err
	}

	logAction(ctx, ident, string(action), fmt.Sprintf("appointment:%d", appt.ID))
	return nil
}
