package main

import (
	"fmt"
	"time"
)

/**************************
 ****** Users & Roles *****
 **************************/

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Identity is derived from the bearer token payload. The claims are not
// verified client-side and only drive which view to present; authorization
// decisions stay with the remote API.
type Identity struct {
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ID        int       `json:"id"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// View names match the screens of the browser UI.
type View string

const (
	ViewAdminPanel      View = "admin-panel"
	ViewDoctorDirectory View = "doctor-directory"
	ViewMyAppointments  View = "my-appointments"
)

/**************************
 ****** Appointments ******
 **************************/

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusBooked    AppointmentStatus = "BOOKED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusRejected  AppointmentStatus = "REJECTED"
)

type Appointment struct {
	ID            int               `json:"id"`
	DoctorID      int               `json:"doctor_id"`
	PatientID     int               `json:"patient_id"`
	Date          Date              `json:"date"`
	Slot          int               `json:"slot"`
	Status        AppointmentStatus `json:"status"`
	IsRescheduled int               `json:"is_rescheduled,omitempty"`
}

/**************************
 ********* Doctors ********
 **************************/

type VerificationStatus int

const (
	VerificationPending VerificationStatus = iota
	VerificationApproved
	VerificationRejected
)

func (v VerificationStatus) String() string {
	switch v {
	case VerificationApproved:
		return "approved"
	case VerificationRejected:
		return "rejected"
	default:
		return "pending"
	}
}

type Doctor struct {
	ID            int                `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	LicenseNumber string             `json:"license_number,omitempty"`
	IsVerified    VerificationStatus `json:"is_verified"`
}

/**************************
 ****** Availability ******
 **************************/

type SlotStatus struct {
	Slot          int  `json:"slot"`
	Available     bool `json:"available"`
	AppointmentID *int `json:"appointment_id"`
	PatientID     *int `json:"patient_id"`
}

type Availability struct {
	Date     Date         `json:"date"`
	DoctorID int          `json:"doctor_id"`
	Slots    []SlotStatus `json:"slots"`
}

/**************************
 ****** API Payloads ******
 **************************/

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        Role   `json:"role"`
	IsVerified  *int   `json:"is_verified"`
}

type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	LicenseNumber string `json:"license_number,omitempty"`
}

type BookRequest struct {
	DoctorID  int    `json:"doctor_id"`
	PatientID int    `json:"patient_id"`
	Date      string `json:"date"`
	Slot      int    `json:"slot"`
}

// Error body returned by the remote API on a non-2xx response.
type apiError struct {
	Detail string `json:"detail"`
}

/********************************
 ********** App Config **********
 ********************************/

type Config struct {
	APIBase       string `json:"apiBase"`
	ListenAddr    string `json:"listenAddr"`
	TokenFile     string `json:"tokenFile"`
	LoginPerSec   int    `json:"loginPerSec"`
	LoginBurst    int    `json:"loginBurst"`
	AllowedOrigin string `json:"allowedOrigin"`
}

/*******************************
 ***** Unmarshal Functions *****
 *******************************/

// Create custom date type
type Date struct {
	time.Time
}

const wireDateFormat = "2006-01-02"

// Custom UnmarshalJSON for Date type
func (d *Date) UnmarshalJSON(data []byte) error {

	// Remove quotes around the date string
	dateStr := string(data)
	if len(dateStr) < 2 {
		return fmt.Errorf("invalid date value: %s", dateStr)
	}
	dateStr = dateStr[1 : len(dateStr)-1]

	// Parse string
	parsedTime, err := parseDate(dateStr)
	if err != nil {
		return fmt.Errorf("error parsing date: %v", err)
	}

	// Set parsed time to Date struct
	d.Time = parsedTime
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(wireDateFormat) + `"`), nil
}

func (d Date) String() string {
	return d.Format(wireDateFormat)
}
