package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Book requests a new appointment. The server enforces slot uniqueness; a
// lost race comes back as a ConflictError even when the slot looked available
// in the last fetched grid.
func (c *APIClient) Book(ctx context.Context, token string, doctorID, patientID int, date string, slot int) (Appointment, error) {
	body, err := jsonBody(BookRequest{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		Slot:      slot,
	})
	if err != nil {
		return Appointment{}, err
	}

	var appointment Appointment
	if err := c.do(ctx, "book", http.MethodPost, "/appointments/book", nil, token, body, "Booking failed", &appointment); err != nil {
		return Appointment{}, err
	}
	return appointment, nil
}

// PatientAppointments lists the authenticated patient's appointments.
func (c *APIClient) PatientAppointments(ctx context.Context, token string) ([]Appointment, error) {
	var appointments []Appointment
	if err := c.do(ctx, "patient appointments", http.MethodGet, "/patients/me/appointments", nil, token, nil, "Failed to fetch patient appointments", &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// DoctorAppointments lists the authenticated doctor's appointments.
func (c *APIClient) DoctorAppointments(ctx context.Context, token string) ([]Appointment, error) {
	var appointments []Appointment
	if err := c.do(ctx, "doctor appointments", http.MethodGet, "/doctors/me/appointments", nil, token, nil, "Failed to fetch doctor appointments", &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// Approve confirms a pending appointment. Doctor only.
func (c *APIClient) Approve(ctx context.Context, token string, appointmentID int) error {
	path := fmt.Sprintf("/appointments/%d/approve", appointmentID)
	return c.do(ctx, "approve", http.MethodPost, path, nil, token, nil, "Failed to approve appointment", nil)
}

// Reject declines a pending appointment. Doctor only.
func (c *APIClient) Reject(ctx context.Context, token string, appointmentID int) error {
	path := fmt.Sprintf("/appointments/%d/reject", appointmentID)
	return c.do(ctx, "reject", http.MethodPost, path, nil, token, nil, "Failed to reject appointment", nil)
}

// Reschedule moves a booked appointment to a new date and slot. The server
// resets the status to PENDING so the doctor has to approve it again.
func (c *APIClient) Reschedule(ctx context.Context, token string, appointmentID int, newDate string, newSlot int) (Appointment, error) {
	queryParams := url.Values{}
	queryParams.Set("new_date", newDate)
	queryParams.Set("new_slot", strconv.Itoa(newSlot))

	var appointment Appointment
	path := fmt.Sprintf("/appointments/%d/reschedule", appointmentID)
	if err := c.do(ctx, "reschedule", http.MethodPost, path, queryParams, token, nil, "Failed to reschedule", &appointment); err != nil {
		return Appointment{}, err
	}
	return appointment, nil
}

// PatientCancel cancels a booked appointment on the patient's behalf.
func (c *APIClient) PatientCancel(ctx context.Context, token string, appointmentID int) error {
	path := fmt.Sprintf("/appointments/%d/patient-cancel", appointmentID)
	return c.do(ctx, "cancel", http.MethodPost, path, nil, token, nil, "Failed to cancel", nil)
}

// CancelByDoctor cancels an appointment as the assigned doctor.
func (c *APIClient) CancelByDoctor(ctx context.Context, token string, appointmentID int) error {
	path := fmt.Sprintf("/appointments/%d", appointmentID)
	return c.do(ctx, "cancel", http.MethodDelete, path, nil, token, nil, "Cancellation failed", nil)
}
