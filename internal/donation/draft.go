package donation

import (
	"context"
	"time"

	"donation-console/internal/geolocation"
)

// User-facing messages. Each validation failure has its own text so the
// form can point at the offending field.
const (
	msgImageRequired    = "Debe seleccionar una imagen para continuar."
	msgLocationRequired = "No se pudo obtener su ubicación. No se puede actualizar el estado."
	msgLocationFailed   = "No se pudo obtener la ubicación."
	msgLocationDenied   = "Permiso de ubicación denegado. Seleccione su posición en el mapa."
	msgLocationTimeout  = "La ubicación tardó demasiado. Intente nuevamente o seleccione su posición en el mapa."
	msgInvalidStatus    = "El estado seleccionado no es válido para esta donación."
	msgInvalidImage     = "El archivo seleccionado no es una imagen válida."
	msgImageTooLarge    = "La imagen excede el tamaño permitido."
)

const (
	FieldImage    = "imagen"
	FieldLocation = "ubicacion"
	FieldStatus   = "estado"
)

// draft is the in-progress update of one donation. Guarded by Controller.mu.
type draft struct {
	id       string
	owner    string
	target   Donation
	next     Status
	image    *Image
	location *geolocation.Sample
	openedAt time.Time

	refining    bool
	locationErr string
	imageErr    string
	submitErr   string
	submitting  bool

	// acqGen identifies the acquisition whose result may still be applied.
	acqGen    uint64
	acqCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// DraftView is a copy of a draft's state, safe to hand to callers.
type DraftView struct {
	ID            string              `json:"id"`
	Donation      Donation            `json:"donacion"`
	NextStatus    Status              `json:"nuevoEstado"`
	AllowedNext   []Status            `json:"estadosPermitidos"`
	ImageRequired bool                `json:"imagenRequerida"`
	Image         *Image              `json:"imagen,omitempty"`
	Location      *geolocation.Sample `json:"ubicacion,omitempty"`
	Zoom          int                 `json:"zoom,omitempty"`
	Refining      bool                `json:"obteniendoUbicacion"`
	LocationError string              `json:"errorUbicacion,omitempty"`
	ImageError    string              `json:"errorImagen,omitempty"`
	SubmitError   string              `json:"errorEnvio,omitempty"`
	Submitting    bool                `json:"enviando"`
	OpenedAt      time.Time           `json:"abierto"`
}

func (d *draft) view() DraftView {
	v := DraftView{
		ID:            d.id,
		Donation:      d.target,
		NextStatus:    d.next,
		AllowedNext:   AllowedNext(d.target.ImpliedStatus()),
		ImageRequired: d.next.RequiresImage(),
		Refining:      d.refining,
		LocationError: d.locationErr,
		ImageError:    d.imageErr,
		SubmitError:   d.submitErr,
		Submitting:    d.submitting,
		OpenedAt:      d.openedAt,
	}
	if d.image != nil {
		img := *d.image
		v.Image = &img
	}
	if d.location != nil {
		loc := *d.location
		if loc.Accuracy != nil {
			acc := *loc.Accuracy
			loc.Accuracy = &acc
			v.Zoom = geolocation.ZoomForAccuracy(acc)
		}
		v.Location = &loc
	}
	return v
}
