package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newAPIClient(srv.URL)
}

func TestAuthenticateSendsFormCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Fatalf("unexpected content type: %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "pat@example.com" || r.PostForm.Get("password") != "secret" {
			t.Fatalf("unexpected credentials: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok123",
			"token_type":   "bearer",
			"role":         "patient",
		})
	}))

	resp, err := client.Authenticate(context.Background(), "pat@example.com", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if resp.AccessToken != "tok123" || resp.Role != RolePatient {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.IsVerified != nil {
		t.Fatalf("is_verified should be absent for patients")
	}
}

func TestAuthenticatedCallCarriesHeaders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok123" {
			t.Fatalf("unexpected authorization header: %q", auth)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Fatal("missing correlation id")
		}
		w.Write([]byte(`[]`))
	}))

	if _, err := client.ListDoctors(context.Background(), "tok123"); err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		call    func(*APIClient) error
		check   func(error) bool
		message string
	}{
		{
			name:   "login 401 is AuthError",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Incorrect email or password"}`,
			call: func(c *APIClient) error {
				_, err := c.Authenticate(context.Background(), "a@b.c", "bad")
				return err
			},
			check:   func(err error) bool { var e *AuthError; return errors.As(err, &e) },
			message: "Incorrect email or password",
		},
		{
			name:   "authenticated 401 is SessionError",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Could not validate credentials"}`,
			call: func(c *APIClient) error {
				_, err := c.ListDoctors(context.Background(), "stale")
				return err
			},
			check:   func(err error) bool { var e *SessionError; return errors.As(err, &e) },
			message: "Could not validate credentials",
		},
		{
			name:   "409 is ConflictError",
			status: http.StatusConflict,
			body:   `{"detail":"slot already booked or patient double-booking"}`,
			call: func(c *APIClient) error {
				_, err := c.Book(context.Background(), "tok", 7, 12, "2024-06-01", 2)
				return err
			},
			check:   func(err error) bool { var e *ConflictError; return errors.As(err, &e) },
			message: "slot already booked or patient double-booking",
		},
		{
			name:   "400 is ValidationError",
			status: http.StatusBadRequest,
			body:   `{"detail":"date cannot be in the past"}`,
			call: func(c *APIClient) error {
				_, err := c.Book(context.Background(), "tok", 7, 12, "2020-01-01", 2)
				return err
			},
			check:   func(err error) bool { var e *ValidationError; return errors.As(err, &e) },
			message: "date cannot be in the past",
		},
		{
			name:   "500 without detail falls back to the fixed message",
			status: http.StatusInternalServerError,
			body:   ``,
			call: func(c *APIClient) error {
				_, err := c.Book(context.Background(), "tok", 7, 12, "2024-06-01", 2)
				return err
			},
			check:   func(err error) bool { var e *RequestError; return errors.As(err, &e) },
			message: "Booking failed",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))

			err := tc.call(client)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !tc.check(err) {
				t.Fatalf("unexpected error type: %T (%v)", err, err)
			}
			if got := userMessage(err); got != tc.message {
				t.Fatalf("message = %q, want %q", got, tc.message)
			}
		})
	}
}

func TestMalformedSuccessBodyIsRequestError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))

	_, err := client.ListDoctors(context.Background(), "tok")
	var requestErr *RequestError
	if !errors.As(err, &requestErr) {
		t.Fatalf("expected RequestError, got %T (%v)", err, err)
	}
	if requestErr.Message != "Failed to fetch doctors" {
		t.Fatalf("unexpected message: %q", requestErr.Message)
	}
}

func TestCancelByDoctorUsesDelete(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/appointments/42" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": 42, "doctor_id": 7, "patient_id": 12,
			"date": "2024-06-01", "slot": 2, "status": "CANCELLED",
		})
	}))

	if err := client.CancelByDoctor(context.Background(), "tok", 42); err != nil {
		t.Fatalf("CancelByDoctor: %v", err)
	}
}

func TestGetAvailability(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/doctors/7/availability" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if date := r.URL.Query().Get("date"); date != "2024-06-01" {
			t.Fatalf("unexpected date param: %s", date)
		}
		w.Write([]byte(`{
			"date": "2024-06-01",
			"doctor_id": 7,
			"slots": [
				{"slot": 1, "available": false, "appointment_id": 9, "patient_id": 4},
				{"slot": 2, "available": true, "appointment_id": null, "patient_id": null},
				{"slot": 3, "available": true, "appointment_id": null, "patient_id": null},
				{"slot": 4, "available": false, "appointment_id": 11, "patient_id": 5}
			]
		}`))
	}))

	availability, err := client.GetAvailability(context.Background(), "tok", 7, "2024-06-01")
	if err != nil {
		t.Fatalf("GetAvailability: %v", err)
	}
	if len(availability.Slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(availability.Slots))
	}
	if availability.Slots[0].AppointmentID == nil || *availability.Slots[0].AppointmentID != 9 {
		t.Fatalf("expected appointment id on booked slot: %+v", availability.Slots[0])
	}
	if !availability.Slots[1].Available || !availability.Slots[2].Available {
		t.Fatal("slots 2 and 3 should be available")
	}
	if availability.Date.String() != "2024-06-01" {
		t.Fatalf("unexpected date: %s", availability.Date)
	}
}

func TestRescheduleSendsQueryParams(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appointments/42/reschedule" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("new_date") != "2024-07-15" || q.Get("new_slot") != "3" {
			t.Fatalf("unexpected query params: %v", q)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": 42, "doctor_id": 7, "patient_id": 12,
			"date": "2024-07-15", "slot": 3, "status": "PENDING",
		})
	}))

	appointment, err := client.Reschedule(context.Background(), "tok", 42, "2024-07-15", 3)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if appointment.Status != StatusPending || appointment.Slot != 3 {
		t.Fatalf("unexpected appointment: %+v", appointment)
	}
}
