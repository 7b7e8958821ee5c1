package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.elastic.co/apm"
)

var (
	appVersion string
)

// webApp binds the view routes to the three core components. The session
// controller is passed in explicitly so every view shares one ownership
// point for the token.
type webApp struct {
	client    *APIClient
	session   *SessionController
	lifecycle *LifecycleController
}

func newWebApp(client *APIClient, session *SessionController, lifecycle *LifecycleController) *webApp {
	return &webApp{
		client:    client,
		session:   session,
		lifecycle: lifecycle,
	}
}

func heartbeat(c echo.Context) error {
	// Heartbeat function to assess service status. Immediately return 200
	return c.NoContent(http.StatusOK)
}

/**************************
 ****** View Models *******
 **************************/

type sessionView struct {
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	ID        int        `json:"id"`
	View      View       `json:"view"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type appointmentView struct {
	Appointment
	Time    string              `json:"time"`
	Actions []AppointmentAction `json:"actions"`
}

type slotView struct {
	SlotStatus
	Time     string `json:"time"`
	Bookable bool   `json:"bookable"`
}

func sessionViewOf(ident Identity) sessionView {
	view := sessionView{
		Email: ident.Email,
		Role:  ident.Role,
		ID:    ident.ID,
		View:  initialView(ident.Role),
	}
	// Advisory only; expiry is never enforced locally
	if !ident.ExpiresAt.IsZero() {
		view.ExpiresAt = &ident.ExpiresAt
	}
	return view
}

func (app *webApp) appointmentViews(role Role, appointments []Appointment) []appointmentView {
	views := make([]appointmentView, 0, len(appointments))
	for _, appt := range appointments {
		views = append(views, appointmentView{
			Appointment: appt,
			Time:        slotLabel(appt.Slot),
			Actions:     legalActions(role, appt),
		})
	}
	return views
}

/**************************
 **** Failure Handling ****
 **************************/

// fail converts any error from the taxonomy into a user-visible message. A
// SessionError additionally forces a logout; nothing reaches a global handler.
func (app *webApp) fail(c echo.Context, err error) error {
	ctx := c.Request().Context()
	logger(ctx, err)

	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		app.session.Logout(ctx)
	}

	return c.JSON(httpStatusFor(err), echo.Map{"error": userMessage(err)})
}

func httpStatusFor(err error) int {
	var (
		authErr     *AuthError
		validateErr *ValidationError
		conflictErr *ConflictError
		sessionErr  *SessionError
		requestErr  *RequestError
	)
	switch {
	case errors.As(err, &authErr), errors.As(err, &sessionErr):
		return http.StatusUnauthorized
	case errors.As(err, &validateErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &requestErr):
		if requestErr.Status >= 400 {
			return requestErr.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

/**************************
 ******** Session *********
 **************************/

func (app *webApp) login(c echo.Context) error {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&payload); err != nil {
		return app.fail(c, &ValidationError{Message: "Email and password are required"})
	}
	if payload.Email == "" || payload.Password == "" {
		return app.fail(c, &ValidationError{Message: "Email and password are required"})
	}

	identity, err := app.session.Login(c.Request().Context(), payload.Email, payload.Password)
	if err != nil {
		return app.fail(c, err)
	}

	return c.JSON(http.StatusOK, sessionViewOf(identity))
}

func (app *webApp) logout(c echo.Context) error {
	app.session.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (app *webApp) sessionInfo(c echo.Context) error {
	_, identity, err := app.session.Token(c.Request().Context())
	if err != nil {
		return app.fail(c, err)
	}
	return c.JSON(http.StatusOK, sessionViewOf(identity))
}

/**************************
 ****** Registration ******
 **************************/

func (app *webApp) register(c echo.Context) error {
	var payload struct {
		Role          Role   `json:"role"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		Password      string `json:"password"`
		LicenseNumber string `json:"license_number"`
	}
	if err := c.Bind(&payload); err != nil {
		return app.fail(c, &ValidationError{Message: "Invalid registration request"})
	}
	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		return app.fail(c, &ValidationError{Message: "All fields are required"})
	}

	ctx := c.Request().Context()
	switch payload.Role {
	case RolePatient:
		if err := app.client.RegisterPatient(ctx, payload.Name, payload.Email, payload.Password); err != nil {
			return app.fail(c, err)
		}
	case RoleDoctor:
		if payload.LicenseNumber == "" {
			return app.fail(c, &ValidationError{Message: "Medical License Number is required"})
		}
		if err := app.client.RegisterDoctor(ctx, payload.Name, payload.Email, payload.Password, payload.LicenseNumber); err != nil {
			return app.fail(c, err)
		}
	default:
		return app.fail(c, &ValidationError{Message: "Role must be patient or doctor"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"message": "Registration successful! Please login."})
}

/**************************
 **** Doctor Directory ****
 **************************/

func (app *webApp) doctors(c echo.Context) error {
	doctors, err := app.client.ListDoctors(c.Request().Context(), tokenFrom(c))
	if err != nil {
		return app.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"doctors": doctors})
}

func (app *webApp) availability(c echo.Context) error {
	doctorID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return app.fail(c, &ValidationError{Message: "Invalid doctor id"})
	}

	date := c.QueryParam("date")
	if err := validateBookingDate(date); err != nil {
		return app.fail(c, err)
	}

	availability, err := app.client.GetAvailability(c.Request().Context(), tokenFrom(c), doctorID, date)
	if err != nil {
		return app.fail(c, err)
	}

	identity := identityFrom(c)
	return c.JSON(http.StatusOK, echo.Map{
		"date":      availability.Date,
		"doctor_id": availability.DoctorID,
		"slots":     slotViews(identity.Role, availability.Slots),
	})
}

func slotViews(role Role, slots []SlotStatus) []slotView {
	views := make([]slotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, slotView{
			SlotStatus: slot,
			Time:       slotLabel(slot.Slot),
			Bookable:   slot.Available && role == RolePatient,
		})
	}
	return views
}

// validateBookingDate refuses malformed and past dates before any call to
// the remote API.
func validateBookingDate(date string) error {
	if date == "" {
		return &ValidationError{Message: "Please select a date"}
	}
	parsed, err := parseDate(date)
	if err != nil {
		return &ValidationError{Message: "invalid date format; use YYYY-MM-DD"}
	}
	if isPastDay(parsed) {
		return &ValidationError{Message: "date cannot be in the past"}
	}
	return nil
}

/**************************
 ********* Booking ********
 **************************/

func (app *webApp) book(c echo.Context) error {
	identity := identityFrom(c)
	if identity.Role != RolePatient {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only patients can book appointments"})
	}

	doctorID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return app.fail(c, &ValidationError{Message: "Invalid doctor id"})
	}

	var payload struct {
		Date string `json:"date"`
		Slot int    `json:"slot"`
	}
	if err := c.Bind(&payload); err != nil {
		return app.fail(c, &ValidationError{Message: "Invalid booking request"})
	}
	if err := validateBookingDate(payload.Date); err != nil {
		return app.fail(c, err)
	}
	if !validSlot(payload.Slot) {
		return app.fail(c, &ValidationError{Message: fmt.Sprintf("slot must be between %d and %d", slotMin, slotMax)})
	}

	// Block duplicate submission of the same booking by the same patient
	// while it is in flight
	key := fmt.Sprintf("book:%d:%d:%s:%d", identity.ID, doctorID, payload.Date, payload.Slot)
	if !app.lifecycle.begin(key) {
		return app.fail(c, &ValidationError{Message: "This booking is already in progress"})
	}
	defer app.lifecycle.end(key)

	ctx := c.Request().Context()
	token := tokenFrom(c)

	appointment, err := app.client.Book(ctx, token, doctorID, identity.ID, payload.Date, payload.Slot)
	if err != nil {
		// On a lost slot race the grid the user saw was stale; the message is
		// surfaced and the slot is not marked booked locally
		return app.fail(c, err)
	}

	logAction(ctx, identity, "book", fmt.Sprintf("appointment:%d", appointment.ID))

	// Re-fetch the grid so the response reflects confirmed server state
	availability, err := app.client.GetAvailability(ctx, token, doctorID, payload.Date)
	if err != nil {
		return app.fail(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "Appointment booked successfully!",
		"appointment": appointment,
		"slots":       slotViews(identity.Role, availability.Slots),
	})
}

/**************************
 ****** Appointments ******
 **************************/

func (app *webApp) appointments(c echo.Context) error {
	identity := identityFrom(c)

	appointments, err := app.lifecycle.Appointments(c.Request().Context(), tokenFrom(c), identity.Role)
	if err != nil {
		return app.fail(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"appointments": app.appointmentViews(identity.Role, appointments),
	})
}

// appointmentAction builds the handler for one lifecycle action. The action
// is validated against the freshly fetched list, dispatched, and confirmed
// by a full re-fetch; the response always carries server state.
func (app *webApp) appointmentAction(action AppointmentAction, successMessage string) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := identityFrom(c)
		token := tokenFrom(c)
		ctx := c.Request().Context()

		appointmentID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return app.fail(c, &ValidationError{Message: "Invalid appointment id"})
		}

		var params actionParams
		if action == ActionReschedule {
			var payload struct {
				NewDate string `json:"new_date"`
				NewSlot int    `json:"new_slot"`
			}
			if err := c.Bind(&payload); err != nil {
				return app.fail(c, &ValidationError{Message: "Invalid reschedule request"})
			}
			params = actionParams{NewDate: payload.NewDate, NewSlot: payload.NewSlot}
		}

		appointments, err := app.lifecycle.Appointments(ctx, token, identity.Role)
		if err != nil {
			return app.fail(c, err)
		}

		appointment, found := findAppointment(appointments, appointmentID)
		if !found {
			return app.fail(c, &RequestError{Op: string(action), Status: http.StatusNotFound, Message: "appointment not found"})
		}

		if err := app.lifecycle.Dispatch(ctx, token, identity, appointment, action, params); err != nil {
			return app.fail(c, err)
		}

		refreshed, err := app.lifecycle.Appointments(ctx, token, identity.Role)
		if err != nil {
			return app.fail(c, err)
		}

		return c.JSON(http.StatusOK, echo.Map{
			"message":      successMessage,
			"appointments": app.appointmentViews(identity.Role, refreshed),
		})
	}
}

func findAppointment(appointments []Appointment, id int) (Appointment, bool) {
	for _, appt := range appointments {
		if appt.ID == id {
			return appt, true
		}
	}
	return Appointment{}, false
}

/**************************
 ******* Admin Panel ******
 **************************/

func (app *webApp) adminDoctors(c echo.Context) error {
	identity := identityFrom(c)
	if identity.Role != RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx := c.Request().Context()
	token := tokenFrom(c)

	// Create span
	span, _ := apm.StartSpan(ctx, "Fetch Doctor Lists", "AdminPanel")
	defer span.End()

	// Fetch the pending and full doctor lists in parallel
	var (
		wg      sync.WaitGroup
		pending []Doctor
		all     []Doctor
	)
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		pending, err = app.client.PendingDoctors(ctx, token)
		errCh <- err
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		all, err = app.client.AllDoctors(ctx, token)
		errCh <- err
	}()

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return app.fail(c, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"pending": pending,
		"doctors": all,
	})
}

func (app *webApp) adminDoctorAction(verify bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := identityFrom(c)
		if identity.Role != RoleAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}

		doctorID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return app.fail(c, &ValidationError{Message: "Invalid doctor id"})
		}

		ctx := c.Request().Context()
		token := tokenFrom(c)

		var (
			message string
			action  string
		)
		if verify {
			err = app.client.VerifyDoctor(ctx, token, doctorID)
			message = "Doctor verified successfully!"
			action = "verify-doctor"
		} else {
			err = app.client.RejectDoctor(ctx, token, doctorID)
			message = "Doctor rejected successfully!"
			action = "reject-doctor"
		}
		if err != nil {
			return app.fail(c, err)
		}

		logAction(ctx, identity, action, fmt.Sprintf("doctor:%d", doctorID))

		return c.JSON(http.StatusOK, echo.Map{"message": message})
	}
}
