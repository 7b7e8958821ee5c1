package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListDoctors returns the verified doctors available for booking.
func (c *APIClient) ListDoctors(ctx context.Context, token string) ([]Doctor, error) {
	var doctors []Doctor
	if err := c.do(ctx, "list doctors", http.MethodGet, "/doctors", nil, token, nil, "Failed to fetch doctors", &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

// GetAvailability returns the slot grid for one doctor on one date. The
// response is exhaustive over the fixed slot range, so the caller can render
// every window whether or not it is taken.
func (c *APIClient) GetAvailability(ctx context.Context, token string, doctorID int, date string) (Availability, error) {
	queryParams := url.Values{}
	queryParams.Set("date", date)

	var availability Availability
	path := fmt.Sprintf("/doctors/%d/availability", doctorID)
	if err := c.do(ctx, "availability", http.MethodGet, path, queryParams, token, nil, "Failed to fetch availability", &availability); err != nil {
		return Availability{}, err
	}
	return availability, nil
}

// PendingDoctors lists doctors awaiting verification. Admin only.
func (c *APIClient) PendingDoctors(ctx context.Context, token string) ([]Doctor, error) {
	var doctors []Doctor
	if err := c.do(ctx, "pending doctors", http.MethodGet, "/admin/pending-doctors", nil, token, nil, "Failed to fetch pending doctors", &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

// AllDoctors lists every doctor with its verification status. Admin only.
func (c *APIClient) AllDoctors(ctx context.Context, token string) ([]Doctor, error) {
	var doctors []Doctor
	if err := c.do(ctx, "all doctors", http.MethodGet, "/admin/all-doctors", nil, token, nil, "Failed to fetch doctors", &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

// VerifyDoctor approves a pending doctor account. Admin only.
func (c *APIClient) VerifyDoctor(ctx context.Context, token string, doctorID int) error {
	path := fmt.Sprintf("/admin/verify-doctor/%d", doctorID)
	return c.do(ctx, "verify doctor", http.MethodPut, path, nil, token, nil, "Failed to verify doctor", nil)
}

// RejectDoctor rejects a pending doctor account. Admin only.
func (c *APIClient) RejectDoctor(ctx context.Context, token string, doctorID int) error {
	path := fmt.Sprintf("/admin/reject-doctor/%d", doctorID)
	return c.do(ctx, "reject doctor", http.MethodPut, path, nil, token, nil, "Failed to reject doctor", nil)
}
