package solicitud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"donation-console/internal/gateway"
	"donation-console/internal/session"
	appErrors "donation-console/pkg/errors"
	"donation-console/pkg/utils"
)

const FieldReason = "motivo"

type Service struct {
	client *gateway.Client
	now    func() time.Time
	log    *zap.Logger
}

func NewService(client *gateway.Client, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, now: time.Now, log: log}
}

// Summaries fetches every request with display defaults applied.
func (s *Service) Summaries(ctx context.Context, sess *session.Session) ([]Summary, error) {
	var records []record
	if err := s.client.Call(ctx, sess, http.MethodGet, "/solicitudes/resumen", nil, &records); err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Summary, 0, len(records))
	for _, r := range records {
		out = append(out, r.toSummary(now))
	}
	return out, nil
}

// Approve accepts the request on behalf of the session's user. The backend
// expects the approver's CI as a plain-text body.
func (s *Service) Approve(ctx context.Context, sess *session.Session, id string) (string, error) {
	if sess == nil {
		return "", appErrors.ErrUnauthorized
	}
	if err := checkID(id); err != nil {
		return "", err
	}

	var reply string
	path := "/solicitudes-sin-responder/aprobar/" + url.PathEscape(id)
	if err := s.client.CallText(ctx, sess, http.MethodPost, path, sess.Subject, &reply); err != nil {
		return "", err
	}

	s.log.Info("solicitud approved",
		zap.String("solicitud_id", id),
		zap.String("ci", sess.Subject),
		zap.String("event", "solicitud_approved"),
	)
	return reply, nil
}

// Reject refuses the request with a reason, sent as plain text.
func (s *Service) Reject(ctx context.Context, sess *session.Session, id, reason string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	reason = utils.SanitizeText(reason)
	if reason == "" {
		return "", appErrors.NewFieldError(FieldReason, "Debe indicar el motivo del rechazo.")
	}

	var reply string
	path := "/solicitudes-sin-responder/rechazar/" + url.PathEscape(id)
	if err := s.client.CallText(ctx, sess, http.MethodPost, path, reason, &reply); err != nil {
		return "", err
	}

	s.log.Info("solicitud rejected",
		zap.String("solicitud_id", id),
		zap.String("event", "solicitud_rejected"),
	)
	return reply, nil
}

// CreateRequest is a complete aid request registered from the console.
type CreateRequest struct {
	Solicitante struct {
		CI       string `json:"ci" validate:"required,ci"`
		Nombre   string `json:"nombre" validate:"required,max=100"`
		Apellido string `json:"apellido" validate:"required,max=100"`
		Telefono string `json:"telefono" validate:"omitempty,phone"`
		Email    string `json:"email" validate:"omitempty,email"`
	} `json:"solicitante"`
	Destino struct {
		Comunidad string   `json:"comunidad" validate:"required,max=150"`
		Direccion string   `json:"direccion" validate:"required,max=250"`
		Provincia string   `json:"provincia" validate:"required,max=100"`
		Latitud   *float64 `json:"latitud" validate:"omitempty,latitude"`
		Longitud  *float64 `json:"longitud" validate:"omitempty,longitude"`
	} `json:"destino"`
	CantidadPersonas    int    `json:"cantidadPersonas" validate:"required,min=1"`
	FechaInicioIncendio string `json:"fechaInicioIncendio" validate:"omitempty,datetime=2006-01-02"`
	ListaProductos      string `json:"listaProductos" validate:"required"`
	Categoria           string `json:"categoria,omitempty"`
}

func (r *CreateRequest) sanitize() {
	r.Solicitante.CI = utils.SanitizeCI(r.Solicitante.CI)
	r.Solicitante.Nombre = utils.SanitizeText(r.Solicitante.Nombre)
	r.Solicitante.Apellido = utils.SanitizeText(r.Solicitante.Apellido)
	r.Solicitante.Telefono = utils.SanitizePhone(r.Solicitante.Telefono)
	r.Solicitante.Email = utils.SanitizeEmail(r.Solicitante.Email)
	r.Destino.Comunidad = utils.SanitizeText(r.Destino.Comunidad)
	r.Destino.Direccion = utils.SanitizeText(r.Destino.Direccion)
	r.Destino.Provincia = utils.SanitizeText(r.Destino.Provincia)
	r.ListaProductos = utils.SanitizeText(r.ListaProductos)
	r.Categoria = utils.SanitizeText(r.Categoria)
}

// Create registers a complete request. The body is validated locally first;
// the backend decides everything else.
func (s *Service) Create(ctx context.Context, sess *session.Session, req CreateRequest) (interface{}, error) {
	req.sanitize()
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrInvalidInput, err)
	}

	var reply string
	if err := s.client.Call(ctx, sess, http.MethodPost, "/solicitudes-sin-responder/crear-completa", req, &reply); err != nil {
		return nil, err
	}

	s.log.Info("solicitud created",
		zap.String("ci_solicitante", req.Solicitante.CI),
		zap.String("event", "solicitud_created"),
	)
	return replyBody(reply), nil
}

// replyBody passes JSON replies through untouched and wraps plain text.
func replyBody(reply string) interface{} {
	if json.Valid([]byte(reply)) {
		return json.RawMessage(reply)
	}
	return reply
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing solicitud id", appErrors.ErrInvalidInput)
	}
	return nil
}
