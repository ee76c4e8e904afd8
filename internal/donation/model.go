// Package donation implements the donation list and the status update
// workflow: open a draft, capture location and photo, submit, patch.
package donation

import (
	"time"
)

type Status string

const (
	StatusPendiente      Status = "Pendiente"
	StatusArmandoPaquete Status = "Iniciando armado de paquete"
	StatusEnCamino       Status = "En camino"
	StatusEntregado      Status = "Entregado"
)

// Terminal reports whether no further update is possible.
func (s Status) Terminal() bool {
	return s == StatusEntregado
}

// RequiresImage reports whether moving to s needs a delivery photo.
func (s Status) RequiresImage() bool {
	return s == StatusEntregado
}

// Forward-only transitions. En camino may be re-sent to report a new position.
var validTransitions = map[Status][]Status{
	StatusPendiente:      {StatusEnCamino, StatusEntregado},
	StatusArmandoPaquete: {StatusEnCamino, StatusEntregado},
	StatusEnCamino:       {StatusEnCamino, StatusEntregado},
	StatusEntregado:      {},
}

// AllowedNext returns the statuses a donation in current may move to.
// Unknown stored statuses are treated like Pendiente.
func AllowedNext(current Status) []Status {
	next, ok := validTransitions[current]
	if !ok {
		next = validTransitions[StatusPendiente]
	}
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

func canTransition(current, next Status) bool {
	for _, s := range AllowedNext(current) {
		if s == next {
			return true
		}
	}
	return false
}

// Donation is the console's view of a backend donation record.
type Donation struct {
	ID          int64      `json:"id"`
	Code        string     `json:"nombre"`
	Responsible string     `json:"encargado"`
	ApprovedAt  *time.Time `json:"fechaAprobacion"`
	DeliveredAt *time.Time `json:"fechaEntrega"`
	Status      Status     `json:"estado"`
	Image       *string    `json:"imagen"`
}

// CanUpdate drives the "Actualizar" control: hidden once delivered.
func (d *Donation) CanUpdate() bool {
	return d.DeliveredAt == nil && !d.Status.Terminal()
}

// ImpliedStatus is what the donation shows when a draft opens.
func (d *Donation) ImpliedStatus() Status {
	if d.DeliveredAt != nil {
		return StatusEntregado
	}
	if d.Status == "" {
		return StatusPendiente
	}
	return d.Status
}

// DisplayStatus is the two-state badge shown on the card.
func (d *Donation) DisplayStatus() string {
	if d.DeliveredAt != nil {
		return "Entregado"
	}
	return "En Espera"
}

// View is the JSON shape sent to the browser.
type View struct {
	*Donation
	CanUpdate     bool     `json:"puedeActualizar"`
	DisplayStatus string   `json:"estadoVisible"`
	ImageURL      string   `json:"imagenUrl,omitempty"`
	NextStatuses  []Status `json:"siguientesEstados"`
}

func NewView(d *Donation, imageBaseURL string) View {
	v := View{
		Donation:      d,
		CanUpdate:     d.CanUpdate(),
		DisplayStatus: d.DisplayStatus(),
		NextStatuses:  AllowedNext(d.Status),
	}
	if d.Image != nil && *d.Image != "" {
		v.ImageURL = imageBaseURL + *d.Image
	}
	return v
}
