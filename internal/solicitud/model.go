// Package solicitud lists aid requests and forwards approve/reject/create
// decisions to the backend.
package solicitud

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"donation-console/internal/gateway"
)

const (
	notAvailable         = "No disponible"
	addressNotAvailable  = "Dirección no disponible"
	productsNotAvailable = "Productos no disponibles"
)

// Summary is a request as the console shows it. Missing backend fields are
// replaced by display defaults so the list never renders blanks.
type Summary struct {
	ID               string    `json:"idSolicitud"`
	RequesterCI      string    `json:"ciSolicitante"`
	RequesterName    string    `json:"nombreSolicitante"`
	RequesterSurname string    `json:"apellidoSolicitante"`
	RequesterPhone   string    `json:"telefonoSolicitante"`
	Community        string    `json:"comunidad"`
	Address          string    `json:"direccion"`
	Province         string    `json:"provincia"`
	Products         []string  `json:"listadoProductos"`
	RequestedAt      time.Time `json:"fechaSolicitud"`
	FireStartedAt    *string   `json:"fechaInicioIncendio"`
	People           int       `json:"cantidadPersonas"`

	// Approved is nil while the request is unanswered.
	Approved      *bool  `json:"aprobada"`
	Justification string `json:"justificacion,omitempty"`
}

// State names the three answer states used by the list filter.
func (s Summary) State() string {
	switch {
	case s.Approved == nil:
		return StatePending
	case *s.Approved:
		return StateApproved
	default:
		return StateRejected
	}
}

type person struct {
	CI      gateway.FlexString `json:"ci"`
	Name    string             `json:"nombre"`
	Surname string             `json:"apellido"`
	Phone   gateway.FlexString `json:"telefono"`
}

type destination struct {
	Community string `json:"comunidad"`
	Address   string `json:"direccion"`
	Province  string `json:"provincia"`
}

// record mirrors /solicitudes/resumen, which is inconsistent about field names.
type record struct {
	IDSolicitud      gateway.FlexString `json:"idSolicitud"`
	ID               gateway.FlexString `json:"id"`
	Requester        *person            `json:"solicitante"`
	CIUsuario        gateway.FlexString `json:"ciUsuario"`
	Destination      *destination       `json:"destino"`
	Productos        json.RawMessage    `json:"productos"`
	ListaProductos   json.RawMessage    `json:"listaProductos"`
	FechaSolicitud   *string            `json:"fechaSolicitud"`
	FechaIncendio    *string            `json:"fechaInicioIncendio"`
	Celular          gateway.FlexString `json:"celular"`
	CantidadPersonas int                `json:"cantidadPersonas"`
	CantPersonas     int                `json:"cantPersonas"`
	Aprobada         *bool              `json:"aprobada"`
	Justificacion    string             `json:"justificacion"`
}

func (r record) toSummary(now time.Time) Summary {
	s := Summary{
		ID:               firstNonEmpty(string(r.IDSolicitud), string(r.ID)),
		RequesterCI:      string(r.CIUsuario),
		RequesterName:    notAvailable,
		RequesterSurname: notAvailable,
		RequesterPhone:   string(r.Celular),
		Community:        notAvailable,
		Address:          addressNotAvailable,
		Province:         notAvailable,
		Products:         products(r.Productos, r.ListaProductos),
		RequestedAt:      now,
		FireStartedAt:    r.FechaIncendio,
		People:           r.CantidadPersonas,
		Approved:         r.Aprobada,
		Justification:    r.Justificacion,
	}

	if p := r.Requester; p != nil {
		s.RequesterCI = firstNonEmpty(string(p.CI), s.RequesterCI)
		s.RequesterName = firstNonEmpty(p.Name, notAvailable)
		s.RequesterSurname = firstNonEmpty(p.Surname, notAvailable)
		s.RequesterPhone = firstNonEmpty(string(p.Phone), s.RequesterPhone)
	}
	s.RequesterCI = firstNonEmpty(s.RequesterCI, notAvailable)
	s.RequesterPhone = firstNonEmpty(s.RequesterPhone, notAvailable)

	if d := r.Destination; d != nil {
		s.Community = firstNonEmpty(d.Community, notAvailable)
		s.Address = firstNonEmpty(d.Address, addressNotAvailable)
		s.Province = firstNonEmpty(d.Province, notAvailable)
	}
	if s.People == 0 {
		s.People = r.CantPersonas
	}
	if r.FechaSolicitud != nil {
		if t, ok := parseDate(*r.FechaSolicitud); ok {
			s.RequestedAt = t
		}
	}
	return s
}

// products accepts a list, a single string, or nothing.
func products(raws ...json.RawMessage) []string {
	for _, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}

		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil && strings.TrimSpace(one) != "" {
			return []string{one}
		}
		// Lists of objects: keep whatever names they carry.
		var objs []map[string]interface{}
		if err := json.Unmarshal(raw, &objs); err == nil {
			out := make([]string, 0, len(objs))
			for _, o := range objs {
				for _, key := range []string{"nombre", "producto", "descripcion"} {
					if v, ok := o[key].(string); ok && v != "" {
						out = append(out, v)
						break
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return []string{productsNotAvailable}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
