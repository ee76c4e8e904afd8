package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"donation-console/internal/auth/models"
	"donation-console/internal/gateway"
	"donation-console/internal/session"
	appErrors "donation-console/pkg/errors"
	"donation-console/pkg/utils"
)

// Service forwards credentials to the backend and keeps the resulting
// sessions in the registry. It never checks passwords itself.
type Service struct {
	api      *gateway.Client
	auth     *gateway.Client
	sessions *session.Registry
	log      *zap.Logger
}

func NewService(api, auth *gateway.Client, sessions *session.Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		api:      api,
		auth:     auth,
		sessions: sessions,
		log:      log,
	}
}

func (s *Service) Login(ctx context.Context, request *models.LoginRequest) (*models.AuthResponse, error) {
	request.CI = utils.SanitizeCI(request.CI)
	if err := utils.ValidateStruct(request); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	var reply models.LoginReply
	if err := s.auth.Call(ctx, nil, http.MethodPost, "/login", request, &reply); err != nil {
		var se *gateway.ServerError
		if errors.Is(err, gateway.ErrUnauthorized) || (errors.As(err, &se) && se.Status < 500) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if reply.Token == "" {
		return nil, appErrors.ErrInvalidToken
	}

	candidate, err := session.New(reply.Token, reply.Expiration.Time, false)
	if err != nil {
		return nil, appErrors.NewAppError("INVALID_TOKEN", "Invalid token", err)
	}

	// Admin status only gates console views; a failed lookup means not admin.
	isAdmin, err := s.isAdmin(ctx, candidate)
	if err != nil {
		s.log.Warn("admin status lookup failed", zap.String("ci", candidate.Subject), zap.Error(err))
	}
	sess, err := s.sessions.Create(reply.Token, reply.Expiration.Time, isAdmin)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in",
		zap.String("ci", sess.Subject),
		zap.Bool("admin", isAdmin),
		zap.String("event", "login"),
	)
	return &models.AuthResponse{
		Token:     sess.Token,
		CI:        sess.Subject,
		IsAdmin:   sess.IsAdmin,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

func (s *Service) isAdmin(ctx context.Context, sess *session.Session) (bool, error) {
	var user models.UserRecord
	if err := s.api.Call(ctx, sess, http.MethodGet, "/usuarios/ci/"+url.PathEscape(sess.Subject), nil, &user); err != nil {
		return false, err
	}
	return user.Admin, nil
}

func (s *Service) Register(ctx context.Context, request *models.RegisterRequest) error {
	request.CI = utils.SanitizeCI(request.CI)
	if err := utils.ValidateStruct(request); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if err := s.api.Call(ctx, nil, http.MethodPost, "/usuarios/register", request, nil); err != nil {
		return err
	}
	s.log.Info("account registration requested", zap.String("ci", request.CI), zap.String("event", "register"))
	return nil
}

func (s *Service) SetNewPassword(ctx context.Context, request *models.NewPasswordRequest) error {
	request.CI = utils.SanitizeCI(request.CI)
	if err := utils.ValidateStruct(request); err != nil {
		return appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if request.Password != request.ConfirmPassword {
		return appErrors.ErrPasswordMismatch
	}
	if err := utils.ValidatePassword(request.Password); err != nil {
		return appErrors.NewAppError("WEAK_PASSWORD", err.Error(), appErrors.ErrWeakPassword)
	}

	body := map[string]string{"contrasena": request.Password}
	if err := s.api.Call(ctx, nil, http.MethodPost, "/usuarios/newPassword/"+url.PathEscape(request.CI), body, nil); err != nil {
		return fmt.Errorf("set new password: %w", err)
	}
	return nil
}

// Logout forgets the session. Tokens are not revoked on the backend.
func (s *Service) Logout(token string) {
	s.sessions.Clear(token)
}

// Session resolves a bearer token to its live session.
func (s *Service) Session(token string) (*session.Session, error) {
	return s.sessions.Get(token)
}
