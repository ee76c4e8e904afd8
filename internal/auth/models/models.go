package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type LoginRequest struct {
	CI       string `json:"cedulaIdentidad" binding:"required" validate:"required,ci"`
	Password string `json:"contrasena" binding:"required" validate:"required"`
}

// RegisterRequest claims an account for a CI already known to the backend.
type RegisterRequest struct {
	CI string `json:"ci" binding:"required" validate:"required,ci"`
}

type NewPasswordRequest struct {
	CI              string `json:"ci" binding:"required" validate:"required,ci"`
	Password        string `json:"contrasena" binding:"required" validate:"required"`
	ConfirmPassword string `json:"confirmarContrasena" binding:"required" validate:"required"`
}

// LoginReply is what the backend's /auth/login answers.
type LoginReply struct {
	Token      string     `json:"token"`
	Expiration Expiration `json:"expiration"`
}

// UserRecord is the subset of GET /usuarios/ci/{ci} the console needs.
type UserRecord struct {
	Admin bool `json:"admin"`
}

// AuthResponse is returned to the browser after a successful login.
type AuthResponse struct {
	Token     string    `json:"token,omitempty"`
	CI        string    `json:"ci"`
	IsAdmin   bool      `json:"isAdmin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expiration accepts an ISO date string or epoch milliseconds. Anything else
// decodes to the zero time, leaving the token's own exp claim in charge.
type Expiration struct {
	time.Time
}

var expirationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (e *Expiration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err == nil {
			e.Time = time.UnixMilli(ms)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	for _, layout := range expirationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			e.Time = t
			return nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		e.Time = time.UnixMilli(ms)
	}
	return nil
}
