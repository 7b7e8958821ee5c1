package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func parseToken(raw string) (*jwt.Token, error) {
	index := strings.Index(raw, "Bearer ")
	if index == 0 {
		raw = raw[len("Bearer "):]
	}

	// Decode the token payload without verifying the signature. The claims
	// only drive view routing; the remote API re-validates on every call.
	token, _, err := new(jwt.Parser).ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// identityFromToken derives the session identity from the token payload.
// Required claims: sub (account email) and role. The id claim defaults to 0
// when absent; exp is carried on the identity but not enforced.
func identityFromToken(raw string) (Identity, error) {
	token, err := parseToken(raw)
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("token payload is not an object")
	}

	// Extract the "sub" claim from the token payload
	email, ok := claims["sub"].(string)
	if !ok || email == "" {
		return Identity{}, fmt.Errorf("subject (sub) claim missing or not a string")
	}

	// Extract the "role" claim and check it maps to a known view
	roleStr, ok := claims["role"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("role claim missing or not a string")
	}
	role := Role(roleStr)
	switch role {
	case RolePatient, RoleDoctor, RoleAdmin:
	default:
		return Identity{}, fmt.Errorf("unknown role: %s", roleStr)
	}

	identity := Identity{
		Email: email,
		Role:  role,
	}

	// Optional "id" claim, defaults to 0
	if id, ok := claims["id"].(float64); ok {
		identity.ID = int(id)
	}

	// Optional "exp" claim, advisory only
	if exp, ok := claims["exp"].(float64); ok {
		identity.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}

	return identity, nil
}

// initialView maps a role to the screen presented right after login.
func initialView(role Role) View {
	switch role {
	case RoleAdmin:
		return ViewAdminPanel
	case RolePatient:
		return ViewDoctorDirectory
	default:
		return ViewMyAppointments
	}
}
