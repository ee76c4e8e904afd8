// Package admin manages console users: activation and promotion to admin.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
)

type User struct {
	ID      int64              `json:"idUsuario"`
	CI      gateway.FlexString `json:"ci"`
	Name    string             `json:"nombre"`
	Surname string             `json:"apellido"`
	Email   string             `json:"correoElectronico"`
	Phone   gateway.FlexString `json:"telefono"`
	Active  bool               `json:"active"`
	Admin   bool               `json:"admin"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

type Service struct {
	client *gateway.Client
	log    *zap.Logger
}

func NewService(client *gateway.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, log: log}
}

// Users lists every user that is not an administrator.
func (s *Service) Users(ctx context.Context, sess *session.Session) ([]User, error) {
	var users []User
	if err := s.client.Call(ctx, sess, http.MethodGet, "/usuarios/noAdmin", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ToggleActive flips the user's active flag on the backend.
func (s *Service) ToggleActive(ctx context.Context, sess *session.Session, userID int64) error {
	if err := s.client.Call(ctx, sess, http.MethodPost, fmt.Sprintf("/usuarios/active/%d", userID), struct{}{}, nil); err != nil {
		return err
	}
	s.log.Info("user active status toggled",
		zap.Int64("user_id", userID),
		zap.String("by", subject(sess)),
		zap.String("event", "user_active_toggled"),
	)
	return nil
}

// Promote grants the administrator role.
func (s *Service) Promote(ctx context.Context, sess *session.Session, userID int64) error {
	if err := s.client.Call(ctx, sess, http.MethodPost, fmt.Sprintf("/usuarios/admin/%d", userID), struct{}{}, nil); err != nil {
		return err
	}
	s.log.Info("user promoted to admin",
		zap.Int64("user_id", userID),
		zap.String("by", subject(sess)),
		zap.String("event", "user_promoted"),
	)
	return nil
}

// Filter keeps users whose name, CI, email or phone contains query,
// ignoring case. Active users come first, then by full name.
func Filter(users []User, query string) []User {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]User, 0, len(users))
	for _, u := range users {
		if query == "" || matches(u, query) {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].FullName() < out[j].FullName()
	})
	return out
}

// Eligible keeps the users that can still be promoted.
func Eligible(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if !u.Admin {
			out = append(out, u)
		}
	}
	return out
}

func matches(u User, query string) bool {
	for _, f := range []string{u.FullName(), string(u.CI), u.Email, string(u.Phone)} {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

func subject(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Subject
}
