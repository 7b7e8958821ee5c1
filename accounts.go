package main

import (
	"context"
	"net/http"
	"net/url"
)

// Authenticate exchanges credentials for a bearer token. The remote API
// expects form-encoded fields named username/password, where username is the
// account email.
func (c *APIClient) Authenticate(ctx context.Context, email, password string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var token TokenResponse
	if err := c.doForm(ctx, "login", "/token", form, "Login failed", &token); err != nil {
		return TokenResponse{}, err
	}
	return token, nil
}

// RegisterPatient creates a patient account.
func (c *APIClient) RegisterPatient(ctx context.Context, name, email, password string) error {
	body, err := jsonBody(RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	return c.do(ctx, "register", http.MethodPost, "/patients", nil, "", body, "Registration failed", nil)
}

// RegisterDoctor creates a doctor account; the license number is required and
// the account starts unverified until an admin approves it.
func (c *APIClient) RegisterDoctor(ctx context.Context, name, email, password, licenseNumber string) error {
	body, err := jsonBody(RegisterRequest{
		Name:          name,
		Email:         email,
		Password:      password,
		LicenseNumber: licenseNumber,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, "register", http.MethodPost, "/doctors/register", nil, "", body, "Registration failed", nil)
}
